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
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

type sale struct {
	SaleID         uint64              `gorm:"column:sale_id;primaryKey"`
	Seller         oltypes.EthAddress  `gorm:"column:seller"`
	OwnershipToken oltypes.EthAddress  `gorm:"column:ownership_token"`
	Amount         *oltypes.HexUint256 `gorm:"column:amount"`
	PricePerUnit   *oltypes.HexUint256 `gorm:"column:price_per_unit"`
	Active         bool                `gorm:"column:active"`
	Created        oltypes.Timestamp   `gorm:"column:created;autoCreateTime:nano"`
}

func (sale) TableName() string {
	return "sales"
}

type saleBid struct {
	SaleID        uint64              `gorm:"column:sale_id;primaryKey"`
	BidIndex      uint64              `gorm:"column:bid_index;primaryKey"`
	Bidder        oltypes.EthAddress  `gorm:"column:bidder"`
	Amount        *oltypes.HexUint256 `gorm:"column:amount"`
	PricePerUnit  *oltypes.HexUint256 `gorm:"column:price_per_unit"`
	EscrowedFunds *oltypes.HexUint256 `gorm:"column:escrowed_funds"`
	Active        bool                `gorm:"column:active"`
	Created       oltypes.Timestamp   `gorm:"column:created;autoCreateTime:nano"`
}

func (saleBid) TableName() string {
	return "sale_bids"
}

type leaseOffer struct {
	OfferID uint64             `gorm:"column:offer_id;primaryKey"`
	Lessor  oltypes.EthAddress `gorm:"column:lessor"`
	Intent  string             `gorm:"column:intent"` // JSON of the signable intent
	Active  bool               `gorm:"column:active"`
	Created oltypes.Timestamp  `gorm:"column:created;autoCreateTime:nano"`
}

func (leaseOffer) TableName() string {
	return "lease_offers"
}

type leaseBid struct {
	OfferID         uint64              `gorm:"column:offer_id;primaryKey"`
	BidIndex        uint64              `gorm:"column:bid_index;primaryKey"`
	Bidder          oltypes.EthAddress  `gorm:"column:bidder"`
	LesseeSignature oltypes.HexBytes    `gorm:"column:lessee_signature"`
	EscrowedFunds   *oltypes.HexUint256 `gorm:"column:escrowed_funds"`
	Active          bool                `gorm:"column:active"`
	Created         oltypes.Timestamp   `gorm:"column:created;autoCreateTime:nano"`
}

func (leaseBid) TableName() string {
	return "lease_bids"
}

type claim struct {
	Address oltypes.EthAddress  `gorm:"column:address;primaryKey"`
	Amount  *oltypes.HexUint256 `gorm:"column:amount"`
}

func (claim) TableName() string {
	return "claims"
}
