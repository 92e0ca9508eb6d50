/*
 * Copyright © 2025 OrbitLease, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package components defines the interfaces the protocol components expose to
// each other, so each can be built and tested against its collaborators without
// an import cycle.
//
// Conventions:
//   - Every method takes the DBTX it must run inside. Callers that are not
//     already inside a transaction pass Persistence.NOTX() for reads, or open a
//     transaction for writes - a failed operation rolls back in its entirety.
//   - A "caller" parameter is the authenticated identity the operation runs as
//     (the equivalent of msg.sender) - authentication itself happens at the
//     boundary that invokes this library, not here.
package components

import (
	"context"

	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
)

// Roles are coarse capability sets checked at the start of gated operations.
const (
	RoleGovernance = "governance"
	RoleRegistrar  = "registrar"
)

// KVPair is one metadata attribute within a namespace
type KVPair struct {
	Key   oltypes.Bytes32 `json:"key"`
	Value string          `json:"value"`
}

// MetadataStore is a generic namespaced key/value store. Namespaces are opaque
// 32-byte handles chosen by the caller - the store enforces no semantics about
// what a namespace means, only that keys in one namespace cannot collide with
// another.
type MetadataStore interface {
	// SetMany is the public, governance-gated write path
	SetMany(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, namespace oltypes.Bytes32, pairs []*KVPair) error
	// UncheckedSetMany is the construction-time path, for use by sibling
	// components seeding attributes of an object that has not granted any role
	// yet. Never expose this on an external surface.
	UncheckedSetMany(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32, pairs []*KVPair) error
	Get(ctx context.Context, dbtx persistence.DBTX, namespace, key oltypes.Bytes32) (string, error)
	GetAll(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) ([]*KVPair, error)
	GetAllKeys(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) ([]oltypes.Bytes32, error)
	Remove(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, namespace, key oltypes.Bytes32) error
	Has(ctx context.Context, dbtx persistence.DBTX, namespace, key oltypes.Bytes32) (bool, error)
	Count(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) (int64, error)
}

type RoleManager interface {
	GrantRole(ctx context.Context, dbtx persistence.DBTX, caller, grantee oltypes.EthAddress, role string) error
	RevokeRole(ctx context.Context, dbtx persistence.DBTX, caller, grantee oltypes.EthAddress, role string) error
	HasRole(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress, role string) (bool, error)
	// RequireRole fails with an authorization error if the address lacks the role
	RequireRole(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress, role string) error
	// GenesisGrant seeds a role without a governance check - bootstrap only
	GenesisGrant(ctx context.Context, dbtx persistence.DBTX, grantee oltypes.EthAddress, role string) error
}

// TokenDeployment describes a new fungible token ledger. The full supply is
// minted to the recipient in the same transaction that creates the token.
type TokenDeployment struct {
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	TotalSupply *oltypes.HexUint256 `json:"totalSupply"`
	Admin       oltypes.EthAddress  `json:"admin"`
	Recipient   oltypes.EthAddress  `json:"recipient"`
	AssetID     uint64              `json:"assetId,omitempty"` // 0 for tokens not bound to an asset (the settlement currency)
}

type TokenInfo struct {
	Address     oltypes.EthAddress  `json:"address"`
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	TotalSupply *oltypes.HexUint256 `json:"totalSupply"`
	Admin       oltypes.EthAddress  `json:"admin"`
	AssetID     uint64              `json:"assetId,omitempty"`
}

type HolderBalance struct {
	Holder  oltypes.EthAddress  `json:"holder"`
	Balance *oltypes.HexUint256 `json:"balance"`
}

// TokenManager owns the balance/holder/allowance state of every ownership token
// and the settlement currency. Invariants: sum(balances) == totalSupply for
// every token; a balance row exists if and only if the balance is > 0.
type TokenManager interface {
	Deploy(ctx context.Context, dbtx persistence.DBTX, d *TokenDeployment) (*oltypes.EthAddress, error)
	GetToken(ctx context.Context, dbtx persistence.DBTX, token oltypes.EthAddress) (*TokenInfo, error)
	TotalSupply(ctx context.Context, dbtx persistence.DBTX, token oltypes.EthAddress) (*oltypes.HexUint256, error)
	BalanceOf(ctx context.Context, dbtx persistence.DBTX, token, holder oltypes.EthAddress) (*oltypes.HexUint256, error)
	Holders(ctx context.Context, dbtx persistence.DBTX, token oltypes.EthAddress) ([]*HolderBalance, error)
	Transfer(ctx context.Context, dbtx persistence.DBTX, token, from, to oltypes.EthAddress, amount *oltypes.HexUint256) error
	Approve(ctx context.Context, dbtx persistence.DBTX, token, owner, spender oltypes.EthAddress, amount *oltypes.HexUint256) error
	Allowance(ctx context.Context, dbtx persistence.DBTX, token, owner, spender oltypes.EthAddress) (*oltypes.HexUint256, error)
	// TransferFrom spends the spender's allowance on the owner's balance - the
	// pull-funding primitive behind all marketplace escrow
	TransferFrom(ctx context.Context, dbtx persistence.DBTX, token, spender, from, to oltypes.EthAddress, amount *oltypes.HexUint256) error
}

type AssetType struct {
	SchemaHash            oltypes.Bytes32   `json:"schemaHash"`
	Name                  string            `json:"name"`
	RequiredAttributeKeys []oltypes.Bytes32 `json:"requiredAttributeKeys"`
}

type AssetInstance struct {
	AssetID        uint64             `json:"assetId"`
	SchemaHash     oltypes.Bytes32    `json:"schemaHash"`
	Issuer         oltypes.EthAddress `json:"issuer"`
	OwnershipToken oltypes.EthAddress `json:"ownershipToken"`
}

type InstanceRegistration struct {
	SchemaHash     oltypes.Bytes32     `json:"schemaHash"`
	TokenName      string              `json:"tokenName"`
	TokenSymbol    string              `json:"tokenSymbol"`
	TotalSupply    *oltypes.HexUint256 `json:"totalSupply"`
	Admin          oltypes.EthAddress  `json:"admin"`
	TokenRecipient oltypes.EthAddress  `json:"tokenRecipient"`
	Attributes     []*KVPair           `json:"attributes,omitempty"`
}

type AssetRegistry interface {
	CreateType(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, name string, schemaHash oltypes.Bytes32, requiredAttributeKeys []oltypes.Bytes32, attrs []*KVPair) error
	RegisterInstance(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, reg *InstanceRegistration) (assetID uint64, token *oltypes.EthAddress, err error)
	// Reads never fail on missing data - they return the zero sentinel
	AssetExists(ctx context.Context, dbtx persistence.DBTX, assetID uint64) (bool, error)
	GetAsset(ctx context.Context, dbtx persistence.DBTX, assetID uint64) (*AssetInstance, error)
	GetType(ctx context.Context, dbtx persistence.DBTX, schemaHash oltypes.Bytes32) (*AssetType, error)
}

// LeaseTerms is the signable body of a lease. Every field is bound into the
// intent digest - adding a field here without extending the digest computation
// (or vice versa) is a protocol-breaking defect.
type LeaseTerms struct {
	Lessor          oltypes.EthAddress  `json:"lessor"`
	Lessee          oltypes.EthAddress  `json:"lessee"`
	AssetID         uint64              `json:"assetId"`
	PaymentToken    oltypes.EthAddress  `json:"paymentToken"`
	RentAmount      *oltypes.HexUint256 `json:"rentAmount"`
	RentPeriod      uint64              `json:"rentPeriod"`
	SecurityDeposit *oltypes.HexUint256 `json:"securityDeposit"`
	StartTime       int64               `json:"startTime"`
	EndTime         int64               `json:"endTime"`
	LegalDocHash    oltypes.Bytes32     `json:"legalDocHash"`
	TermsVersion    uint64              `json:"termsVersion"`
	AttributeKeys   []oltypes.Bytes32   `json:"attributeKeys"`
	AttributeValues []string            `json:"attributeValues"`
}

type LeaseIntent struct {
	Deadline            int64           `json:"deadline"`
	AssetTypeSchemaHash oltypes.Bytes32 `json:"assetTypeSchemaHash"`
	Lease               LeaseTerms      `json:"lease"`
}

// Lease is the persisted record of a successfully minted lease. Terms are
// immutable; only the metadata attributes and the record holder can change.
type Lease struct {
	LeaseID      uint64             `json:"leaseId"`
	Terms        LeaseTerms         `json:"terms"`
	RecordHolder oltypes.EthAddress `json:"recordHolder"`
	MintedAt     oltypes.Timestamp  `json:"mintedAt"`
}

type LeaseFactory interface {
	// Digest computes the canonical EIP-712 digest of the intent - the single
	// source of truth for what both parties sign
	Digest(ctx context.Context, intent *LeaseIntent) (*oltypes.Bytes32, error)
	// VerifySignature checks that sig is a valid signature by expected over the
	// intent digest. The party name only decorates the error.
	VerifySignature(ctx context.Context, intent *LeaseIntent, sig oltypes.HexBytes, expected oltypes.EthAddress, party string) error
	// Mint verifies both signatures against the digest and creates the lease
	// record. Deliberately permissionless - any caller holding two valid
	// signatures may mint.
	Mint(ctx context.Context, dbtx persistence.DBTX, intent *LeaseIntent, lessorSig, lesseeSig oltypes.HexBytes) (leaseID uint64, err error)
	GetLease(ctx context.Context, dbtx persistence.DBTX, leaseID uint64) (*Lease, error)
	TransferLeaseRecord(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, leaseID uint64, to oltypes.EthAddress) error
	GetAttribute(ctx context.Context, dbtx persistence.DBTX, leaseID uint64, key oltypes.Bytes32) (string, error)
	SetAttribute(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, leaseID uint64, key oltypes.Bytes32, value string) error
	GetAllAttributes(ctx context.Context, dbtx persistence.DBTX, leaseID uint64) ([]*KVPair, error)
}

type Sale struct {
	SaleID         uint64              `json:"saleId"`
	Seller         oltypes.EthAddress  `json:"seller"`
	OwnershipToken oltypes.EthAddress  `json:"ownershipToken"`
	Amount         *oltypes.HexUint256 `json:"amount"`
	PricePerUnit   *oltypes.HexUint256 `json:"pricePerUnit"`
	Active         bool                `json:"active"`
}

type SaleBid struct {
	SaleID        uint64              `json:"saleId"`
	BidIndex      uint64              `json:"bidIndex"`
	Bidder        oltypes.EthAddress  `json:"bidder"`
	Amount        *oltypes.HexUint256 `json:"amount"`
	PricePerUnit  *oltypes.HexUint256 `json:"pricePerUnit"`
	EscrowedFunds *oltypes.HexUint256 `json:"escrowedFunds"`
	Active        bool                `json:"active"`
}

type LeaseOffer struct {
	OfferID uint64             `json:"offerId"`
	Lessor  oltypes.EthAddress `json:"lessor"`
	Intent  LeaseIntent        `json:"intent"`
	Active  bool               `json:"active"`
}

type LeaseBid struct {
	OfferID         uint64              `json:"offerId"`
	BidIndex        uint64              `json:"bidIndex"`
	Bidder          oltypes.EthAddress  `json:"bidder"`
	LesseeSignature oltypes.HexBytes    `json:"lesseeSignature"`
	EscrowedFunds   *oltypes.HexUint256 `json:"escrowedFunds"`
	Active          bool                `json:"active"`
}

// Marketplace escrows the settlement currency, settles sales and lease
// acceptances atomically, and owns the pull-based claims ledger.
type Marketplace interface {
	PostSale(ctx context.Context, dbtx persistence.DBTX, seller, token oltypes.EthAddress, amount, pricePerUnit *oltypes.HexUint256) (saleID uint64, err error)
	PlaceSaleBid(ctx context.Context, dbtx persistence.DBTX, bidder oltypes.EthAddress, saleID uint64, amount, pricePerUnit *oltypes.HexUint256) (bidIndex uint64, err error)
	AcceptSaleBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID, bidIndex uint64) error
	CancelSale(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID uint64) error
	CancelSaleBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID, bidIndex uint64) error
	GetSale(ctx context.Context, dbtx persistence.DBTX, saleID uint64) (*Sale, error)
	GetSaleBids(ctx context.Context, dbtx persistence.DBTX, saleID uint64) ([]*SaleBid, error)

	PostLeaseOffer(ctx context.Context, dbtx persistence.DBTX, lessor oltypes.EthAddress, intent *LeaseIntent) (offerID uint64, err error)
	PlaceLeaseBid(ctx context.Context, dbtx persistence.DBTX, bidder oltypes.EthAddress, offerID uint64, lesseeSignature oltypes.HexBytes, funds *oltypes.HexUint256) (bidIndex uint64, err error)
	AcceptLeaseBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, offerID, bidIndex uint64, lessorSignature oltypes.HexBytes) (leaseID uint64, err error)
	CancelLeaseOffer(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, offerID uint64) error
	GetLeaseOffer(ctx context.Context, dbtx persistence.DBTX, offerID uint64) (*LeaseOffer, error)
	GetLeaseBids(ctx context.Context, dbtx persistence.DBTX, offerID uint64) ([]*LeaseBid, error)

	ClaimRevenue(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress) (*oltypes.HexUint256, error)
	Claimable(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress) (*oltypes.HexUint256, error)
}

type Event struct {
	ID      string               `json:"id"`
	Type    string               `json:"type"`
	Parties []oltypes.EthAddress `json:"parties"`
	Data    map[string]any       `json:"data"`
	Created oltypes.Timestamp    `json:"created"`
}

// EventStore is the append-only protocol event log, written in the same
// transaction as the state change it describes
type EventStore interface {
	Write(ctx context.Context, dbtx persistence.DBTX, eventType string, parties []oltypes.EthAddress, data map[string]any) error
	List(ctx context.Context, dbtx persistence.DBTX, offset, limit int) ([]*Event, error)
}

// SequenceAllocator hands out the monotonic entity ids (assets, leases, sales,
// lease offers), incremented exactly once per successful creation
type SequenceAllocator interface {
	Next(ctx context.Context, dbtx persistence.DBTX, name string) (uint64, error)
}

// Event types observable by external indexers
const (
	EventTypeCreated         = "asset_type_created"
	EventInstanceRegistered  = "asset_instance_registered"
	EventLeaseMinted         = "lease_minted"
	EventLeaseTransferred    = "lease_record_transferred"
	EventSalePosted          = "sale_posted"
	EventSaleBidPlaced       = "sale_bid_placed"
	EventSaleBidAccepted     = "sale_bid_accepted"
	EventSaleBidRefunded     = "sale_bid_refunded"
	EventSaleCancelled       = "sale_cancelled"
	EventLeaseOfferPosted    = "lease_offer_posted"
	EventLeaseBidPlaced      = "lease_bid_placed"
	EventLeaseAccepted       = "lease_accepted"
	EventLeaseBidRefunded    = "lease_bid_refunded"
	EventLeaseOfferCancelled = "lease_offer_cancelled"
	EventRevenueClaimed      = "revenue_claimed"
	EventRoleGranted         = "role_granted"
	EventRoleRevoked         = "role_revoked"
)

// Sequence names
const (
	SeqAssets      = "assets"
	SeqLeases      = "leases"
	SeqSales       = "sales"
	SeqLeaseOffers = "lease_offers"
)
