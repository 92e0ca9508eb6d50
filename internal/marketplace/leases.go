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
	"encoding/json"
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

// PostLeaseOffer lists a lease intent for bidding. The lessee field of the
// listed terms is a placeholder - each bidder signs the intent with themselves
// substituted as lessee.
func (mp *marketplace) PostLeaseOffer(ctx context.Context, dbtx persistence.DBTX, lessor oltypes.EthAddress, intent *components.LeaseIntent) (uint64, error) {
	if !intent.Lease.Lessor.Equals(&lessor) {
		return 0, i18n.NewError(ctx, msgs.MsgMarketLessorMismatch, intent.Lease.Lessor, lessor)
	}
	if !intent.Lease.PaymentToken.Equals(&mp.currency) {
		return 0, i18n.NewError(ctx, msgs.MsgMarketWrongPaymentToken, mp.currency, intent.Lease.PaymentToken)
	}
	exists, err := mp.registry.AssetExists(ctx, dbtx, intent.Lease.AssetID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, i18n.NewError(ctx, msgs.MsgLeaseUnknownAsset, intent.Lease.AssetID)
	}
	offerID, err := mp.sequences.Next(ctx, dbtx, components.SeqLeaseOffers)
	if err != nil {
		return 0, err
	}
	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return 0, err
	}
	err = dbtx.DB().Create(&leaseOffer{
		OfferID: offerID,
		Lessor:  lessor,
		Intent:  string(intentJSON),
		Active:  true,
	}).Error
	if err != nil {
		return 0, err
	}
	log.L(ctx).Infof("Lease offer %d posted by %s for asset %d", offerID, lessor, intent.Lease.AssetID)
	err = mp.events.Write(ctx, dbtx, components.EventLeaseOfferPosted,
		[]oltypes.EthAddress{lessor},
		map[string]any{"offerId": offerID, "assetId": intent.Lease.AssetID, "rentAmount": intent.Lease.RentAmount})
	if err != nil {
		return 0, err
	}
	return offerID, nil
}

// PlaceLeaseBid escrows rent+deposit and records the bidder's signature over
// the intent with themselves as lessee. The signature is checked here so an
// unacceptable bid fails fast, and checked again authoritatively at mint.
func (mp *marketplace) PlaceLeaseBid(ctx context.Context, dbtx persistence.DBTX, bidder oltypes.EthAddress, offerID uint64, lesseeSignature oltypes.HexBytes, funds *oltypes.HexUint256) (uint64, error) {
	offer, err := mp.getActiveLeaseOffer(ctx, dbtx, offerID)
	if err != nil {
		return 0, err
	}
	required := requiredFunds(&offer.Intent.Lease)
	if !funds.Equals(required) {
		return 0, i18n.NewError(ctx, msgs.MsgMarketBidFundsMismatch, required, funds)
	}
	bidIntent := offer.Intent
	bidIntent.Lease.Lessee = bidder
	if err := mp.factory.VerifySignature(ctx, &bidIntent, lesseeSignature, bidder, "lessee"); err != nil {
		return 0, err
	}
	if err := mp.tokens.TransferFrom(ctx, dbtx, mp.currency, mp.venue, bidder, mp.venue, funds); err != nil {
		return 0, err
	}
	bidIndex, err := mp.nextLeaseBidIndex(ctx, dbtx, offerID)
	if err != nil {
		return 0, err
	}
	err = dbtx.DB().Create(&leaseBid{
		OfferID:         offerID,
		BidIndex:        bidIndex,
		Bidder:          bidder,
		LesseeSignature: lesseeSignature,
		EscrowedFunds:   funds,
		Active:          true,
	}).Error
	if err != nil {
		return 0, err
	}
	err = mp.events.Write(ctx, dbtx, components.EventLeaseBidPlaced,
		[]oltypes.EthAddress{bidder, offer.Lessor},
		map[string]any{"offerId": offerID, "bidIndex": bidIndex, "escrowed": funds})
	if err != nil {
		return 0, err
	}
	return bidIndex, nil
}

// AcceptLeaseBid mints the lease with the bidder as lessee and settles the
// escrow: the full escrowed funds (rent plus security deposit) distribute
// pro-rata to the asset's current shareholders as claimable revenue, and
// every other live bid is refunded.
func (mp *marketplace) AcceptLeaseBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, offerID, bidIndex uint64, lessorSignature oltypes.HexBytes) (uint64, error) {
	offer, err := mp.getActiveLeaseOffer(ctx, dbtx, offerID)
	if err != nil {
		return 0, err
	}
	if !offer.Lessor.Equals(&caller) {
		return 0, i18n.NewError(ctx, msgs.MsgMarketNotLessor, offer.Lessor, offerID)
	}
	bid, err := mp.getActiveLeaseBid(ctx, dbtx, offerID, bidIndex)
	if err != nil {
		return 0, err
	}
	finalIntent := offer.Intent
	finalIntent.Lease.Lessee = bid.Bidder
	leaseID, err := mp.factory.Mint(ctx, dbtx, &finalIntent, lessorSignature, bid.LesseeSignature)
	if err != nil {
		return 0, err
	}
	asset, err := mp.registry.GetAsset(ctx, dbtx, finalIntent.Lease.AssetID)
	if err != nil {
		return 0, err
	}
	if err := mp.distributeRevenue(ctx, dbtx, asset.OwnershipToken, bid.EscrowedFunds); err != nil {
		return 0, err
	}
	if err := mp.deactivateLeaseBid(dbtx, offerID, bidIndex); err != nil {
		return 0, err
	}
	if err := mp.refundLeaseBids(ctx, dbtx, offerID); err != nil {
		return 0, err
	}
	err = dbtx.DB().
		Model(&leaseOffer{}).
		Where("offer_id = ?", offerID).
		Update("active", false).
		Error
	if err != nil {
		return 0, err
	}
	log.L(ctx).Infof("Lease offer %d settled as lease %d (lessee=%s distributed=%s)",
		offerID, leaseID, bid.Bidder, bid.EscrowedFunds)
	err = mp.events.Write(ctx, dbtx, components.EventLeaseAccepted,
		[]oltypes.EthAddress{offer.Lessor, bid.Bidder},
		map[string]any{"offerId": offerID, "bidIndex": bidIndex, "leaseId": leaseID})
	if err != nil {
		return 0, err
	}
	return leaseID, nil
}

func (mp *marketplace) CancelLeaseOffer(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, offerID uint64) error {
	offer, err := mp.getActiveLeaseOffer(ctx, dbtx, offerID)
	if err != nil {
		return err
	}
	if !offer.Lessor.Equals(&caller) {
		return i18n.NewError(ctx, msgs.MsgMarketNotLessor, offer.Lessor, offerID)
	}
	if err := mp.refundLeaseBids(ctx, dbtx, offerID); err != nil {
		return err
	}
	err = dbtx.DB().
		Model(&leaseOffer{}).
		Where("offer_id = ?", offerID).
		Update("active", false).
		Error
	if err != nil {
		return err
	}
	return mp.events.Write(ctx, dbtx, components.EventLeaseOfferCancelled,
		[]oltypes.EthAddress{offer.Lessor},
		map[string]any{"offerId": offerID})
}

func (mp *marketplace) GetLeaseOffer(ctx context.Context, dbtx persistence.DBTX, offerID uint64) (*components.LeaseOffer, error) {
	var row leaseOffer
	err := dbtx.DB().
		Where("offer_id = ?", offerID).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgMarketOfferUnknown, offerID)
	}
	if err != nil {
		return nil, err
	}
	offer := &components.LeaseOffer{
		OfferID: row.OfferID,
		Lessor:  row.Lessor,
		Active:  row.Active,
	}
	if err := json.Unmarshal([]byte(row.Intent), &offer.Intent); err != nil {
		return nil, err
	}
	return offer, nil
}

func (mp *marketplace) GetLeaseBids(ctx context.Context, dbtx persistence.DBTX, offerID uint64) ([]*components.LeaseBid, error) {
	var rows []*leaseBid
	err := dbtx.DB().
		Where("offer_id = ?", offerID).
		Order("bid_index").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	bids := make([]*components.LeaseBid, len(rows))
	for i, row := range rows {
		bids[i] = &components.LeaseBid{
			OfferID:         row.OfferID,
			BidIndex:        row.BidIndex,
			Bidder:          row.Bidder,
			LesseeSignature: row.LesseeSignature,
			EscrowedFunds:   row.EscrowedFunds,
			Active:          row.Active,
		}
	}
	return bids, nil
}

func requiredFunds(terms *components.LeaseTerms) *oltypes.HexUint256 {
	return oltypes.BigIntToUint256(new(big.Int).Add(terms.RentAmount.Int(), terms.SecurityDeposit.Int()))
}

func (mp *marketplace) getActiveLeaseOffer(ctx context.Context, dbtx persistence.DBTX, offerID uint64) (*components.LeaseOffer, error) {
	offer, err := mp.GetLeaseOffer(ctx, dbtx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Active {
		return nil, i18n.NewError(ctx, msgs.MsgMarketOfferInactive, offerID)
	}
	return offer, nil
}

func (mp *marketplace) getActiveLeaseBid(ctx context.Context, dbtx persistence.DBTX, offerID, bidIndex uint64) (*components.LeaseBid, error) {
	var row leaseBid
	err := dbtx.DB().
		Where("offer_id = ? AND bid_index = ?", offerID, bidIndex).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgMarketBidUnknown, bidIndex, offerID)
	}
	if err != nil {
		return nil, err
	}
	if !row.Active {
		return nil, i18n.NewError(ctx, msgs.MsgMarketBidInactive, bidIndex, offerID)
	}
	return &components.LeaseBid{
		OfferID:         row.OfferID,
		BidIndex:        row.BidIndex,
		Bidder:          row.Bidder,
		LesseeSignature: row.LesseeSignature,
		EscrowedFunds:   row.EscrowedFunds,
		Active:          row.Active,
	}, nil
}

func (mp *marketplace) nextLeaseBidIndex(ctx context.Context, dbtx persistence.DBTX, offerID uint64) (uint64, error) {
	var count int64
	err := dbtx.DB().
		Model(&leaseBid{}).
		Where("offer_id = ?", offerID).
		Count(&count).
		Error
	return uint64(count), err
}

func (mp *marketplace) deactivateLeaseBid(dbtx persistence.DBTX, offerID, bidIndex uint64) error {
	return dbtx.DB().
		Model(&leaseBid{}).
		Where("offer_id = ? AND bid_index = ?", offerID, bidIndex).
		Update("active", false).
		Error
}

func (mp *marketplace) refundLeaseBids(ctx context.Context, dbtx persistence.DBTX, offerID uint64) error {
	var rows []*leaseBid
	err := dbtx.DB().
		Where("offer_id = ? AND active = ?", offerID, true).
		Order("bid_index").
		Find(&rows).
		Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := mp.tokens.Transfer(ctx, dbtx, mp.currency, mp.venue, row.Bidder, row.EscrowedFunds); err != nil {
			return err
		}
		if err := mp.deactivateLeaseBid(dbtx, offerID, row.BidIndex); err != nil {
			return err
		}
		err = mp.events.Write(ctx, dbtx, components.EventLeaseBidRefunded,
			[]oltypes.EthAddress{row.Bidder},
			map[string]any{"offerId": offerID, "bidIndex": row.BidIndex, "refunded": row.EscrowedFunds})
		if err != nil {
			return err
		}
	}
	return nil
}
