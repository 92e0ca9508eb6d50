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

// Package marketplace is the trading venue for ownership shares and lease
// intents. All funds movement is in the settlement currency, escrowed to the
// venue address while a bid is live, and either settled or refunded in full.
//
// Funds invariants:
//   - venue currency balance == sum(active bid escrows) + sum(claims)
//   - a bid row is Active if and only if its escrow is still held
//   - claims are credited before any distribution transfer, and zeroed before
//     the claim payout transfer (no double spend path)
package marketplace

import (
	"context"
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

type marketplace struct {
	venue    oltypes.EthAddress
	currency oltypes.EthAddress

	registry  components.AssetRegistry
	tokens    components.TokenManager
	factory   components.LeaseFactory
	sequences components.SequenceAllocator
	events    components.EventStore
}

// DefaultVenueAddress is the escrow account used when no venue address is
// configured, derived the same way as a token ledger address
func DefaultVenueAddress() oltypes.EthAddress {
	hash := oltypes.Bytes32Keccak([]byte("orbitlease/venue"))
	return *oltypes.EthAddressBytes(hash[12:])
}

func NewMarketplace(
	venue, currency oltypes.EthAddress,
	registry components.AssetRegistry,
	tokens components.TokenManager,
	factory components.LeaseFactory,
	sequences components.SequenceAllocator,
	events components.EventStore,
) components.Marketplace {
	return &marketplace{
		venue:     venue,
		currency:  currency,
		registry:  registry,
		tokens:    tokens,
		factory:   factory,
		sequences: sequences,
		events:    events,
	}
}

// creditClaim adds to an address's claimable revenue. The funds stay on the
// venue balance until ClaimRevenue pulls them.
func (mp *marketplace) creditClaim(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress, amount *oltypes.HexUint256) error {
	if amount.IsZero() {
		return nil
	}
	var row claim
	err := dbtx.DB().
		Where("address = ?", addr).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return dbtx.DB().Create(&claim{Address: addr, Amount: amount}).Error
	}
	if err != nil {
		return err
	}
	newAmount := oltypes.BigIntToUint256(new(big.Int).Add(row.Amount.Int(), amount.Int()))
	return dbtx.DB().
		Model(&claim{}).
		Where("address = ?", addr).
		Update("amount", newAmount).
		Error
}

func (mp *marketplace) Claimable(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress) (*oltypes.HexUint256, error) {
	var row claim
	err := dbtx.DB().
		Where("address = ?", addr).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return oltypes.Uint64ToUint256(0), nil
	}
	if err != nil {
		return nil, err
	}
	return row.Amount, nil
}

// ClaimRevenue pays out the caller's full claimable amount. The claim row is
// deleted before the funds move, so a failed transfer rolls the whole
// operation back rather than leaving a spent claim.
func (mp *marketplace) ClaimRevenue(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress) (*oltypes.HexUint256, error) {
	amount, err := mp.Claimable(ctx, dbtx, caller)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, i18n.NewError(ctx, msgs.MsgMarketNothingToClaim, caller)
	}
	err = dbtx.DB().
		Where("address = ?", caller).
		Delete(&claim{}).
		Error
	if err != nil {
		return nil, err
	}
	if err := mp.tokens.Transfer(ctx, dbtx, mp.currency, mp.venue, caller, amount); err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Revenue claim of %s paid to %s", amount, caller)
	err = mp.events.Write(ctx, dbtx, components.EventRevenueClaimed,
		[]oltypes.EthAddress{caller},
		map[string]any{"amount": amount})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// distributeRevenue splits an amount pro-rata across the current holders of an
// ownership token, by floor(amount * balance / totalSupply). Rounding dust
// stays on the venue balance.
func (mp *marketplace) distributeRevenue(ctx context.Context, dbtx persistence.DBTX, ownershipToken oltypes.EthAddress, amount *oltypes.HexUint256) error {
	info, err := mp.tokens.GetToken(ctx, dbtx, ownershipToken)
	if err != nil {
		return err
	}
	holders, err := mp.tokens.Holders(ctx, dbtx, ownershipToken)
	if err != nil {
		return err
	}
	supply := info.TotalSupply.Int()
	for _, h := range holders {
		share := new(big.Int).Mul(amount.Int(), h.Balance.Int())
		share.Div(share, supply)
		if err := mp.creditClaim(ctx, dbtx, h.Holder, oltypes.BigIntToUint256(share)); err != nil {
			return err
		}
	}
	return nil
}
