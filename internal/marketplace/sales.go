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
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

// PostSale lists ownership shares for sale. The shares stay on the seller's
// balance until a bid is accepted - only bid funds are escrowed.
func (mp *marketplace) PostSale(ctx context.Context, dbtx persistence.DBTX, seller, token oltypes.EthAddress, amount, pricePerUnit *oltypes.HexUint256) (uint64, error) {
	if amount.IsZero() {
		return 0, i18n.NewError(ctx, msgs.MsgTokenAmountZero)
	}
	if _, err := mp.tokens.GetToken(ctx, dbtx, token); err != nil {
		return 0, err
	}
	saleID, err := mp.sequences.Next(ctx, dbtx, components.SeqSales)
	if err != nil {
		return 0, err
	}
	err = dbtx.DB().Create(&sale{
		SaleID:         saleID,
		Seller:         seller,
		OwnershipToken: token,
		Amount:         amount,
		PricePerUnit:   pricePerUnit,
		Active:         true,
	}).Error
	if err != nil {
		return 0, err
	}
	log.L(ctx).Infof("Sale %d posted by %s: %s units of %s at %s", saleID, seller, amount, token, pricePerUnit)
	err = mp.events.Write(ctx, dbtx, components.EventSalePosted,
		[]oltypes.EthAddress{seller},
		map[string]any{"saleId": saleID, "token": token, "amount": amount, "pricePerUnit": pricePerUnit})
	if err != nil {
		return 0, err
	}
	return saleID, nil
}

// PlaceSaleBid escrows amount*pricePerUnit of the bidder's settlement currency
// with the venue. The bidder must have approved the venue for at least that
// amount beforehand.
func (mp *marketplace) PlaceSaleBid(ctx context.Context, dbtx persistence.DBTX, bidder oltypes.EthAddress, saleID uint64, amount, pricePerUnit *oltypes.HexUint256) (uint64, error) {
	s, err := mp.getActiveSale(ctx, dbtx, saleID)
	if err != nil {
		return 0, err
	}
	if amount.Int().Cmp(s.Amount.Int()) > 0 {
		return 0, i18n.NewError(ctx, msgs.MsgMarketBidExceedsSale, amount, s.Amount)
	}
	funds := oltypes.BigIntToUint256(new(big.Int).Mul(amount.Int(), pricePerUnit.Int()))
	if err := mp.tokens.TransferFrom(ctx, dbtx, mp.currency, mp.venue, bidder, mp.venue, funds); err != nil {
		return 0, err
	}
	bidIndex, err := mp.nextSaleBidIndex(ctx, dbtx, saleID)
	if err != nil {
		return 0, err
	}
	err = dbtx.DB().Create(&saleBid{
		SaleID:        saleID,
		BidIndex:      bidIndex,
		Bidder:        bidder,
		Amount:        amount,
		PricePerUnit:  pricePerUnit,
		EscrowedFunds: funds,
		Active:        true,
	}).Error
	if err != nil {
		return 0, err
	}
	err = mp.events.Write(ctx, dbtx, components.EventSaleBidPlaced,
		[]oltypes.EthAddress{bidder, s.Seller},
		map[string]any{"saleId": saleID, "bidIndex": bidIndex, "amount": amount, "escrowed": funds})
	if err != nil {
		return 0, err
	}
	return bidIndex, nil
}

// AcceptSaleBid settles one bid atomically: the venue pulls the shares from
// the seller (who must have approved the venue for them, since the asset side
// is never escrowed) and delivers them to the bidder, escrowed funds move
// venue to seller, every other live bid is refunded and the sale closes. Any
// unsold remainder stays with the seller for a fresh listing.
func (mp *marketplace) AcceptSaleBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID, bidIndex uint64) error {
	s, err := mp.getActiveSale(ctx, dbtx, saleID)
	if err != nil {
		return err
	}
	if !s.Seller.Equals(&caller) {
		return i18n.NewError(ctx, msgs.MsgMarketNotSeller, s.Seller, saleID)
	}
	bid, err := mp.getActiveSaleBid(ctx, dbtx, saleID, bidIndex)
	if err != nil {
		return err
	}
	if err := mp.tokens.TransferFrom(ctx, dbtx, s.OwnershipToken, mp.venue, s.Seller, bid.Bidder, bid.Amount); err != nil {
		return err
	}
	if err := mp.tokens.Transfer(ctx, dbtx, mp.currency, mp.venue, s.Seller, bid.EscrowedFunds); err != nil {
		return err
	}
	if err := mp.deactivateSaleBid(dbtx, saleID, bidIndex); err != nil {
		return err
	}
	if err := mp.refundSaleBids(ctx, dbtx, saleID); err != nil {
		return err
	}
	err = dbtx.DB().
		Model(&sale{}).
		Where("sale_id = ?", saleID).
		Update("active", false).
		Error
	if err != nil {
		return err
	}
	log.L(ctx).Infof("Sale %d settled: %s units of %s to %s for %s", saleID, bid.Amount, s.OwnershipToken, bid.Bidder, bid.EscrowedFunds)
	return mp.events.Write(ctx, dbtx, components.EventSaleBidAccepted,
		[]oltypes.EthAddress{s.Seller, bid.Bidder},
		map[string]any{"saleId": saleID, "bidIndex": bidIndex, "amount": bid.Amount, "paid": bid.EscrowedFunds})
}

func (mp *marketplace) CancelSale(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID uint64) error {
	s, err := mp.getActiveSale(ctx, dbtx, saleID)
	if err != nil {
		return err
	}
	if !s.Seller.Equals(&caller) {
		return i18n.NewError(ctx, msgs.MsgMarketNotSeller, s.Seller, saleID)
	}
	if err := mp.refundSaleBids(ctx, dbtx, saleID); err != nil {
		return err
	}
	err = dbtx.DB().
		Model(&sale{}).
		Where("sale_id = ?", saleID).
		Update("active", false).
		Error
	if err != nil {
		return err
	}
	return mp.events.Write(ctx, dbtx, components.EventSaleCancelled,
		[]oltypes.EthAddress{s.Seller},
		map[string]any{"saleId": saleID})
}

func (mp *marketplace) CancelSaleBid(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, saleID, bidIndex uint64) error {
	bid, err := mp.getActiveSaleBid(ctx, dbtx, saleID, bidIndex)
	if err != nil {
		return err
	}
	if !bid.Bidder.Equals(&caller) {
		return i18n.NewError(ctx, msgs.MsgMarketNotBidder, bid.Bidder, bidIndex)
	}
	if err := mp.tokens.Transfer(ctx, dbtx, mp.currency, mp.venue, bid.Bidder, bid.EscrowedFunds); err != nil {
		return err
	}
	if err := mp.deactivateSaleBid(dbtx, saleID, bidIndex); err != nil {
		return err
	}
	return mp.events.Write(ctx, dbtx, components.EventSaleBidRefunded,
		[]oltypes.EthAddress{bid.Bidder},
		map[string]any{"saleId": saleID, "bidIndex": bidIndex, "refunded": bid.EscrowedFunds})
}

func (mp *marketplace) GetSale(ctx context.Context, dbtx persistence.DBTX, saleID uint64) (*components.Sale, error) {
	var row sale
	err := dbtx.DB().
		Where("sale_id = ?", saleID).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgMarketSaleUnknown, saleID)
	}
	if err != nil {
		return nil, err
	}
	return &components.Sale{
		SaleID:         row.SaleID,
		Seller:         row.Seller,
		OwnershipToken: row.OwnershipToken,
		Amount:         row.Amount,
		PricePerUnit:   row.PricePerUnit,
		Active:         row.Active,
	}, nil
}

func (mp *marketplace) GetSaleBids(ctx context.Context, dbtx persistence.DBTX, saleID uint64) ([]*components.SaleBid, error) {
	var rows []*saleBid
	err := dbtx.DB().
		Where("sale_id = ?", saleID).
		Order("bid_index").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	bids := make([]*components.SaleBid, len(rows))
	for i, row := range rows {
		bids[i] = &components.SaleBid{
			SaleID:        row.SaleID,
			BidIndex:      row.BidIndex,
			Bidder:        row.Bidder,
			Amount:        row.Amount,
			PricePerUnit:  row.PricePerUnit,
			EscrowedFunds: row.EscrowedFunds,
			Active:        row.Active,
		}
	}
	return bids, nil
}

func (mp *marketplace) getActiveSale(ctx context.Context, dbtx persistence.DBTX, saleID uint64) (*components.Sale, error) {
	s, err := mp.GetSale(ctx, dbtx, saleID)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, i18n.NewError(ctx, msgs.MsgMarketSaleInactive, saleID)
	}
	return s, nil
}

func (mp *marketplace) getActiveSaleBid(ctx context.Context, dbtx persistence.DBTX, saleID, bidIndex uint64) (*components.SaleBid, error) {
	var row saleBid
	err := dbtx.DB().
		Where("sale_id = ? AND bid_index = ?", saleID, bidIndex).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgMarketBidUnknown, bidIndex, saleID)
	}
	if err != nil {
		return nil, err
	}
	if !row.Active {
		return nil, i18n.NewError(ctx, msgs.MsgMarketBidInactive, bidIndex, saleID)
	}
	return &components.SaleBid{
		SaleID:        row.SaleID,
		BidIndex:      row.BidIndex,
		Bidder:        row.Bidder,
		Amount:        row.Amount,
		PricePerUnit:  row.PricePerUnit,
		EscrowedFunds: row.EscrowedFunds,
		Active:        row.Active,
	}, nil
}

func (mp *marketplace) nextSaleBidIndex(ctx context.Context, dbtx persistence.DBTX, saleID uint64) (uint64, error) {
	var count int64
	err := dbtx.DB().
		Model(&saleBid{}).
		Where("sale_id = ?", saleID).
		Count(&count).
		Error
	return uint64(count), err
}

func (mp *marketplace) deactivateSaleBid(dbtx persistence.DBTX, saleID, bidIndex uint64) error {
	return dbtx.DB().
		Model(&saleBid{}).
		Where("sale_id = ? AND bid_index = ?", saleID, bidIndex).
		Update("active", false).
		Error
}

// refundSaleBids returns the escrow of every bid still active on a sale
func (mp *marketplace) refundSaleBids(ctx context.Context, dbtx persistence.DBTX, saleID uint64) error {
	var rows []*saleBid
	err := dbtx.DB().
		Where("sale_id = ? AND active = ?", saleID, true).
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
		if err := mp.deactivateSaleBid(dbtx, saleID, row.BidIndex); err != nil {
			return err
		}
		err = mp.events.Write(ctx, dbtx, components.EventSaleBidRefunded,
			[]oltypes.EthAddress{row.Bidder},
			map[string]any{"saleId": saleID, "bidIndex": row.BidIndex, "refunded": row.EscrowedFunds})
		if err != nil {
			return err
		}
	}
	return nil
}
