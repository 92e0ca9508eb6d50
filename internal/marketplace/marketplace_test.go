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

package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/orbitlease/orbitlease/internal/assetregistry"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/eventstore"
	"github.com/orbitlease/orbitlease/internal/leasefactory"
	"github.com/orbitlease/orbitlease/internal/metastore"
	"github.com/orbitlease/orbitlease/internal/rolemgr"
	"github.com/orbitlease/orbitlease/internal/sequences"
	"github.com/orbitlease/orbitlease/internal/tokenmgr"
	"github.com/orbitlease/orbitlease/pkg/olconf"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	governor  = *oltypes.MustEthAddress("0x1000000000000000000000000000000000000001")
	registrar = *oltypes.MustEthAddress("0x2000000000000000000000000000000000000002")
	alice     = *oltypes.MustEthAddress("0x3000000000000000000000000000000000000003")
	bob       = *oltypes.MustEthAddress("0x4000000000000000000000000000000000000004")
	carol     = *oltypes.MustEthAddress("0x5000000000000000000000000000000000000005")

	satelliteSchema = oltypes.Bytes32Keccak([]byte("schema: LEO comms satellite v1"))
)

type testMarket struct {
	mp       components.Marketplace
	tokens   components.TokenManager
	registry components.AssetRegistry
	factory  components.LeaseFactory
	p        persistence.Persistence

	venue    oltypes.EthAddress
	currency oltypes.EthAddress
}

// newTestMarket wires the full component stack over an in-memory database,
// deploys the settlement currency with the governor holding the supply, and
// creates one registered asset type ready for instances.
func newTestMarket(t *testing.T) (context.Context, *testMarket, func()) {
	ctx := context.Background()
	p, done, err := persistence.NewUnitTestPersistence(ctx, "marketplace")
	require.NoError(t, err)

	events := eventstore.NewEventStore()
	roles := rolemgr.NewRoleManager(events)
	metadata := metastore.NewMetadataStore(roles)
	tokens := tokenmgr.NewTokenManager()
	seqs := sequences.NewSequenceAllocator()
	registry := assetregistry.NewAssetRegistry(roles, metadata, tokens, seqs, events)

	chainID := int64(1337)
	factory := leasefactory.NewLeaseFactory(&olconf.ProtocolConfig{ChainID: &chainID}, registry, metadata, seqs, events)

	var currency *oltypes.EthAddress
	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		if err := roles.GenesisGrant(ctx, dbtx, governor, components.RoleGovernance); err != nil {
			return err
		}
		if err := roles.GenesisGrant(ctx, dbtx, registrar, components.RoleRegistrar); err != nil {
			return err
		}
		if err := registry.CreateType(ctx, dbtx, governor, "LEO comms satellite", satelliteSchema, nil, nil); err != nil {
			return err
		}
		currency, err = tokens.Deploy(ctx, dbtx, &components.TokenDeployment{
			Name:        "OrbitLease Settlement Token",
			Symbol:      "OLST",
			TotalSupply: oltypes.Uint64ToUint256(100000000),
			Admin:       governor,
			Recipient:   governor,
		})
		return err
	})
	require.NoError(t, err)

	venue := DefaultVenueAddress()
	return ctx, &testMarket{
		mp:       NewMarketplace(venue, *currency, registry, tokens, factory, seqs, events),
		tokens:   tokens,
		registry: registry,
		factory:  factory,
		p:        p,
		venue:    venue,
		currency: *currency,
	}, done
}

// registerAsset deploys an ownership token for a fresh asset instance with the
// full share supply minted to the recipient
func (tm *testMarket) registerAsset(t *testing.T, ctx context.Context, recipient oltypes.EthAddress, supply uint64) (uint64, oltypes.EthAddress) {
	var assetID uint64
	var token *oltypes.EthAddress
	err := tm.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		assetID, token, err = tm.registry.RegisterInstance(ctx, dbtx, registrar, &components.InstanceRegistration{
			SchemaHash:     satelliteSchema,
			TokenName:      "Satellite Shares",
			TokenSymbol:    "SAT",
			TotalSupply:    oltypes.Uint64ToUint256(supply),
			Admin:          governor,
			TokenRecipient: recipient,
		})
		return err
	})
	require.NoError(t, err)
	return assetID, *token
}

// fundAndApprove moves settlement currency from the governor's treasury to the
// address and approves the venue to pull the same amount
func (tm *testMarket) fundAndApprove(t *testing.T, ctx context.Context, addr oltypes.EthAddress, amount uint64) {
	err := tm.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		if err := tm.tokens.Transfer(ctx, dbtx, tm.currency, governor, addr, oltypes.Uint64ToUint256(amount)); err != nil {
			return err
		}
		return tm.tokens.Approve(ctx, dbtx, tm.currency, addr, tm.venue, oltypes.Uint64ToUint256(amount))
	})
	require.NoError(t, err)
}

func (tm *testMarket) currencyBalance(t *testing.T, ctx context.Context, addr oltypes.EthAddress) int64 {
	b, err := tm.tokens.BalanceOf(ctx, tm.p.NOTX(), tm.currency, addr)
	require.NoError(t, err)
	return b.Int().Int64()
}

func (tm *testMarket) shareBalance(t *testing.T, ctx context.Context, token, addr oltypes.EthAddress) int64 {
	b, err := tm.tokens.BalanceOf(ctx, tm.p.NOTX(), token, addr)
	require.NoError(t, err)
	return b.Int().Int64()
}

func (tm *testMarket) claimable(t *testing.T, ctx context.Context, addr oltypes.EthAddress) int64 {
	c, err := tm.mp.Claimable(ctx, tm.p.NOTX(), addr)
	require.NoError(t, err)
	return c.Int().Int64()
}

// leaseIntentFor builds an offer intent for the asset with the lessee left as
// the zero placeholder, to be substituted per bidder
func (tm *testMarket) leaseIntentFor(lessor oltypes.EthAddress, assetID, rent, deposit uint64) *components.LeaseIntent {
	start := time.Now().Unix()
	return &components.LeaseIntent{
		Deadline:            time.Now().Add(time.Hour).Unix(),
		AssetTypeSchemaHash: satelliteSchema,
		Lease: components.LeaseTerms{
			Lessor:          lessor,
			AssetID:         assetID,
			PaymentToken:    tm.currency,
			RentAmount:      oltypes.Uint64ToUint256(rent),
			RentPeriod:      86400,
			SecurityDeposit: oltypes.Uint64ToUint256(deposit),
			StartTime:       start,
			EndTime:         start + 30*86400,
			LegalDocHash:    oltypes.Bytes32Keccak([]byte("lease agreement v1")),
			TermsVersion:    1,
			AttributeKeys:   []oltypes.Bytes32{},
			AttributeValues: []string{},
		},
	}
}

// signAsLessee signs the intent with the key holder substituted as lessee, the
// form a marketplace bid carries
func (tm *testMarket) signAsLessee(t *testing.T, ctx context.Context, intent *components.LeaseIntent, kp *secp256k1.KeyPair) oltypes.HexBytes {
	signed := *intent
	signed.Lease.Lessee = *oltypes.EthAddressBytes(kp.Address[:])
	digest, err := tm.factory.Digest(ctx, &signed)
	require.NoError(t, err)
	sig, err := kp.SignDirect(digest[:])
	require.NoError(t, err)
	return sig.CompactRSV()
}

func (tm *testMarket) signAsLessor(t *testing.T, ctx context.Context, intent *components.LeaseIntent, lessee oltypes.EthAddress, kp *secp256k1.KeyPair) oltypes.HexBytes {
	signed := *intent
	signed.Lease.Lessee = lessee
	digest, err := tm.factory.Digest(ctx, &signed)
	require.NoError(t, err)
	sig, err := kp.SignDirect(digest[:])
	require.NoError(t, err)
	return sig.CompactRSV()
}

func TestSaleLifecycle(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	_, token := tmkt.registerAsset(t, ctx, alice, 1000)
	tmkt.fundAndApprove(t, ctx, bob, 200)
	tmkt.fundAndApprove(t, ctx, carol, 500)

	var saleID uint64
	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		saleID, err = tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(100), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)

	// Shares stay with the seller while the sale is live
	assert.Equal(t, int64(1000), tmkt.shareBalance(t, ctx, token, alice))

	var bobBid, carolBid uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		bobBid, err = tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(40), oltypes.Uint64ToUint256(5))
		if err != nil {
			return err
		}
		carolBid, err = tmkt.mp.PlaceSaleBid(ctx, dbtx, carol, saleID, oltypes.Uint64ToUint256(100), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bobBid)
	assert.Equal(t, uint64(1), carolBid)

	// Both escrows sit on the venue
	assert.Equal(t, int64(700), tmkt.currencyBalance(t, ctx, tmkt.venue))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, bob))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, carol))

	// The asset side is never escrowed - the seller approves the venue to pull
	// the shares at settlement
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.tokens.Approve(ctx, dbtx, token, alice, tmkt.venue, oltypes.Uint64ToUint256(100))
	})
	require.NoError(t, err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, carolBid)
	})
	require.NoError(t, err)

	// Atomic settlement: shares to carol, funds to alice, bob made whole
	assert.Equal(t, int64(100), tmkt.shareBalance(t, ctx, token, carol))
	assert.Equal(t, int64(900), tmkt.shareBalance(t, ctx, token, alice))
	assert.Equal(t, int64(500), tmkt.currencyBalance(t, ctx, alice))
	assert.Equal(t, int64(200), tmkt.currencyBalance(t, ctx, bob))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, tmkt.venue))

	s, err := tmkt.mp.GetSale(ctx, tmkt.p.NOTX(), saleID)
	require.NoError(t, err)
	assert.False(t, s.Active)

	bids, err := tmkt.mp.GetSaleBids(ctx, tmkt.p.NOTX(), saleID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.False(t, bids[0].Active)
	assert.False(t, bids[1].Active)

	// The sale cannot be settled twice
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, carolBid)
	})
	assert.Regexp(t, "OL010601", err)
}

func TestAcceptSaleBidNeedsShareApproval(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	_, token := tmkt.registerAsset(t, ctx, alice, 1000)
	tmkt.fundAndApprove(t, ctx, bob, 50)

	var saleID, bidIndex uint64
	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		saleID, err = tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		if err != nil {
			return err
		}
		bidIndex, err = tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)

	// The seller never approved the venue for the shares, so the settlement
	// pull fails and the whole acceptance rolls back
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, bidIndex)
	})
	assert.Regexp(t, "OL010305", err)

	assert.Equal(t, int64(1000), tmkt.shareBalance(t, ctx, token, alice))
	assert.Equal(t, int64(0), tmkt.shareBalance(t, ctx, token, bob))
	assert.Equal(t, int64(50), tmkt.currencyBalance(t, ctx, tmkt.venue))

	s, err := tmkt.mp.GetSale(ctx, tmkt.p.NOTX(), saleID)
	require.NoError(t, err)
	assert.True(t, s.Active)

	// After approving, the same acceptance settles
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		if err := tmkt.tokens.Approve(ctx, dbtx, token, alice, tmkt.venue, oltypes.Uint64ToUint256(10)); err != nil {
			return err
		}
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, bidIndex)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), tmkt.shareBalance(t, ctx, token, bob))
	assert.Equal(t, int64(50), tmkt.currencyBalance(t, ctx, alice))
}

func TestCancelSaleRefundsAllBids(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	_, token := tmkt.registerAsset(t, ctx, alice, 1000)
	tmkt.fundAndApprove(t, ctx, bob, 50)

	var saleID uint64
	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		saleID, err = tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		if err != nil {
			return err
		}
		_, err = tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)

	// Only the seller may cancel
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.CancelSale(ctx, dbtx, bob, saleID)
	})
	assert.Regexp(t, "OL010604", err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.CancelSale(ctx, dbtx, alice, saleID)
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50), tmkt.currencyBalance(t, ctx, bob))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, tmkt.venue))
}

func TestCancelSaleBid(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	_, token := tmkt.registerAsset(t, ctx, alice, 1000)
	tmkt.fundAndApprove(t, ctx, bob, 50)

	var saleID, bidIndex uint64
	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		saleID, err = tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		if err != nil {
			return err
		}
		bidIndex, err = tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.CancelSaleBid(ctx, dbtx, carol, saleID, bidIndex)
	})
	assert.Regexp(t, "OL010605", err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.CancelSaleBid(ctx, dbtx, bob, saleID, bidIndex)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), tmkt.currencyBalance(t, ctx, bob))

	// A cancelled bid cannot be accepted or cancelled again
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, bidIndex)
	})
	assert.Regexp(t, "OL010603", err)
}

func TestSaleValidation(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	_, token := tmkt.registerAsset(t, ctx, alice, 1000)

	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(0), oltypes.Uint64ToUint256(5))
		return err
	})
	assert.Regexp(t, "OL010303", err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PostSale(ctx, dbtx, alice, *oltypes.MustEthAddress("0x9999999999999999999999999999999999999999"), oltypes.Uint64ToUint256(1), oltypes.Uint64ToUint256(5))
		return err
	})
	assert.Regexp(t, "OL010300", err)

	var saleID uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		saleID, err = tmkt.mp.PostSale(ctx, dbtx, alice, token, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		return err
	})
	require.NoError(t, err)

	// Bid for more units than listed
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(11), oltypes.Uint64ToUint256(5))
		return err
	})
	assert.Regexp(t, "OL010606", err)

	// Bid without approving the venue - escrow pull fails
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PlaceSaleBid(ctx, dbtx, bob, saleID, oltypes.Uint64ToUint256(10), oltypes.Uint64ToUint256(5))
		return err
	})
	assert.Regexp(t, "OL010305", err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.AcceptSaleBid(ctx, dbtx, alice, saleID, 7)
	})
	assert.Regexp(t, "OL010602", err)

	_, err = tmkt.mp.GetSale(ctx, tmkt.p.NOTX(), 42)
	assert.Regexp(t, "OL010600", err)
}

func TestLeaseOfferLifecycle(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	lessorKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidder1Key, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidder2Key, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	lessor := *oltypes.EthAddressBytes(lessorKey.Address[:])
	bidder1 := *oltypes.EthAddressBytes(bidder1Key.Address[:])
	bidder2 := *oltypes.EthAddressBytes(bidder2Key.Address[:])

	// The lessor holds the full ownership supply, so the whole winning escrow
	// flows back as claimable revenue
	assetID, _ := tmkt.registerAsset(t, ctx, lessor, 1000)
	tmkt.fundAndApprove(t, ctx, bidder1, 1500)
	tmkt.fundAndApprove(t, ctx, bidder2, 1500)

	intent := tmkt.leaseIntentFor(lessor, assetID, 1000, 500)
	sig1 := tmkt.signAsLessee(t, ctx, intent, bidder1Key)
	sig2 := tmkt.signAsLessee(t, ctx, intent, bidder2Key)

	var offerID, bid1, bid2 uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		offerID, err = tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, intent)
		if err != nil {
			return err
		}
		bid1, err = tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder1, offerID, sig1, oltypes.Uint64ToUint256(1500))
		if err != nil {
			return err
		}
		bid2, err = tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder2, offerID, sig2, oltypes.Uint64ToUint256(1500))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), tmkt.currencyBalance(t, ctx, tmkt.venue))

	lessorSig := tmkt.signAsLessor(t, ctx, intent, bidder1, lessorKey)
	var leaseID uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		leaseID, err = tmkt.mp.AcceptLeaseBid(ctx, dbtx, lessor, offerID, bid1, lessorSig)
		return err
	})
	require.NoError(t, err)

	// The lease minted with the winning bidder as lessee and record holder
	lease, err := tmkt.factory.GetLease(ctx, tmkt.p.NOTX(), leaseID)
	require.NoError(t, err)
	assert.Equal(t, lessor, lease.Terms.Lessor)
	assert.Equal(t, bidder1, lease.Terms.Lessee)
	assert.Equal(t, bidder1, lease.RecordHolder)

	// The losing bid refunded in full, and the full escrow of the winning bid
	// (rent 1000 plus deposit 500) claimable by the sole shareholder
	assert.Equal(t, int64(1500), tmkt.currencyBalance(t, ctx, bidder2))
	assert.Equal(t, int64(1500), tmkt.currencyBalance(t, ctx, tmkt.venue))
	assert.Equal(t, int64(1500), tmkt.claimable(t, ctx, lessor))

	offer, err := tmkt.mp.GetLeaseOffer(ctx, tmkt.p.NOTX(), offerID)
	require.NoError(t, err)
	assert.False(t, offer.Active)
	bids, err := tmkt.mp.GetLeaseBids(ctx, tmkt.p.NOTX(), offerID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.False(t, bids[bid1].Active)
	assert.False(t, bids[bid2].Active)

	// Claiming pays out and zeroes the claim, draining the venue completely
	var paid *oltypes.HexUint256
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		var err error
		paid, err = tmkt.mp.ClaimRevenue(ctx, dbtx, lessor)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), paid.Int().Int64())
	assert.Equal(t, int64(1500), tmkt.currencyBalance(t, ctx, lessor))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, tmkt.venue))
	assert.Equal(t, int64(0), tmkt.claimable(t, ctx, lessor))
}

func TestLeaseRevenueDistributesProRata(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	lessorKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidderKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	lessor := *oltypes.EthAddressBytes(lessorKey.Address[:])
	bidder := *oltypes.EthAddressBytes(bidderKey.Address[:])

	// 1M shares split 700k alice / 300k bob
	assetID, token := tmkt.registerAsset(t, ctx, alice, 1000000)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.tokens.Transfer(ctx, dbtx, token, alice, bob, oltypes.Uint64ToUint256(300000))
	})
	require.NoError(t, err)
	tmkt.fundAndApprove(t, ctx, bidder, 1200)

	intent := tmkt.leaseIntentFor(lessor, assetID, 1000, 200)
	lesseeSig := tmkt.signAsLessee(t, ctx, intent, bidderKey)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		offerID, err := tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, intent)
		if err != nil {
			return err
		}
		bidIndex, err := tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, lesseeSig, oltypes.Uint64ToUint256(1200))
		if err != nil {
			return err
		}
		_, err = tmkt.mp.AcceptLeaseBid(ctx, dbtx, lessor, offerID, bidIndex, tmkt.signAsLessor(t, ctx, intent, bidder, lessorKey))
		return err
	})
	require.NoError(t, err)

	// The full 1200 escrow (rent 1000 plus deposit 200) distributes:
	// floor(1200 * 700000 / 1000000) and floor(1200 * 300000 / 1000000)
	assert.Equal(t, int64(840), tmkt.claimable(t, ctx, alice))
	assert.Equal(t, int64(360), tmkt.claimable(t, ctx, bob))
	assert.Equal(t, int64(0), tmkt.claimable(t, ctx, lessor))
}

func TestLeaseRevenueRoundsDownAndDustStays(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	lessorKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidderKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	lessor := *oltypes.EthAddressBytes(lessorKey.Address[:])
	bidder := *oltypes.EthAddressBytes(bidderKey.Address[:])

	// 3 shares split 1 alice / 2 bob, rent 100: 33 + 66, dust of 1
	assetID, token := tmkt.registerAsset(t, ctx, alice, 3)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.tokens.Transfer(ctx, dbtx, token, alice, bob, oltypes.Uint64ToUint256(2))
	})
	require.NoError(t, err)
	tmkt.fundAndApprove(t, ctx, bidder, 100)

	intent := tmkt.leaseIntentFor(lessor, assetID, 100, 0)
	lesseeSig := tmkt.signAsLessee(t, ctx, intent, bidderKey)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		offerID, err := tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, intent)
		if err != nil {
			return err
		}
		bidIndex, err := tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, lesseeSig, oltypes.Uint64ToUint256(100))
		if err != nil {
			return err
		}
		_, err = tmkt.mp.AcceptLeaseBid(ctx, dbtx, lessor, offerID, bidIndex, tmkt.signAsLessor(t, ctx, intent, bidder, lessorKey))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(33), tmkt.claimable(t, ctx, alice))
	assert.Equal(t, int64(66), tmkt.claimable(t, ctx, bob))
	// Venue holds claims plus the 1 unit of rounding dust
	assert.Equal(t, int64(100), tmkt.currencyBalance(t, ctx, tmkt.venue))
}

func TestLeaseOfferValidation(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	lessorKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidderKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	lessor := *oltypes.EthAddressBytes(lessorKey.Address[:])
	bidder := *oltypes.EthAddressBytes(bidderKey.Address[:])

	assetID, _ := tmkt.registerAsset(t, ctx, lessor, 1000)
	tmkt.fundAndApprove(t, ctx, bidder, 2000)

	// Posting for someone else's terms
	intent := tmkt.leaseIntentFor(lessor, assetID, 1000, 500)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PostLeaseOffer(ctx, dbtx, alice, intent)
		return err
	})
	assert.Regexp(t, "OL010613", err)

	// Wrong payment token
	wrongToken := tmkt.leaseIntentFor(lessor, assetID, 1000, 500)
	wrongToken.Lease.PaymentToken = *oltypes.MustEthAddress("0x9999999999999999999999999999999999999999")
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, wrongToken)
		return err
	})
	assert.Regexp(t, "OL010610", err)

	// Unknown asset
	unknownAsset := tmkt.leaseIntentFor(lessor, 42, 1000, 500)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, unknownAsset)
		return err
	})
	assert.Regexp(t, "OL010500", err)

	var offerID uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		offerID, err = tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, intent)
		return err
	})
	require.NoError(t, err)

	// Escrow must equal rent+deposit exactly
	sig := tmkt.signAsLessee(t, ctx, intent, bidderKey)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, sig, oltypes.Uint64ToUint256(2000))
		return err
	})
	assert.Regexp(t, "OL010611", err)

	// A bid carrying someone else's signature is rejected before any escrow
	lessorSigned := tmkt.signAsLessee(t, ctx, intent, lessorKey)
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, lessorSigned, oltypes.Uint64ToUint256(1500))
		return err
	})
	assert.Regexp(t, "OL010503", err)
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, tmkt.venue))

	var bidIndex uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		bidIndex, err = tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, sig, oltypes.Uint64ToUint256(1500))
		return err
	})
	require.NoError(t, err)

	// Only the lessor may accept
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.AcceptLeaseBid(ctx, dbtx, bidder, offerID, bidIndex, sig)
		return err
	})
	assert.Regexp(t, "OL010609", err)

	_, err = tmkt.mp.GetLeaseOffer(ctx, tmkt.p.NOTX(), 42)
	assert.Regexp(t, "OL010607", err)
}

func TestCancelLeaseOfferRefundsBids(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	lessorKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	bidderKey, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	lessor := *oltypes.EthAddressBytes(lessorKey.Address[:])
	bidder := *oltypes.EthAddressBytes(bidderKey.Address[:])

	assetID, _ := tmkt.registerAsset(t, ctx, lessor, 1000)
	tmkt.fundAndApprove(t, ctx, bidder, 1500)

	intent := tmkt.leaseIntentFor(lessor, assetID, 1000, 500)
	sig := tmkt.signAsLessee(t, ctx, intent, bidderKey)
	var offerID uint64
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		offerID, err = tmkt.mp.PostLeaseOffer(ctx, dbtx, lessor, intent)
		if err != nil {
			return err
		}
		_, err = tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, sig, oltypes.Uint64ToUint256(1500))
		return err
	})
	require.NoError(t, err)

	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return tmkt.mp.CancelLeaseOffer(ctx, dbtx, lessor, offerID)
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), tmkt.currencyBalance(t, ctx, bidder))
	assert.Equal(t, int64(0), tmkt.currencyBalance(t, ctx, tmkt.venue))

	// Bidding on a cancelled offer fails
	err = tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.PlaceLeaseBid(ctx, dbtx, bidder, offerID, sig, oltypes.Uint64ToUint256(1500))
		return err
	})
	assert.Regexp(t, "OL010608", err)
}

func TestClaimRevenueNothingToClaim(t *testing.T) {
	ctx, tmkt, done := newTestMarket(t)
	defer done()

	err := tmkt.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		_, err := tmkt.mp.ClaimRevenue(ctx, dbtx, alice)
		return err
	})
	assert.Regexp(t, "OL010612", err)
}
