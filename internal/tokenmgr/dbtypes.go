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

package tokenmgr

import (
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

type token struct {
	Address     oltypes.EthAddress  `gorm:"column:address;primaryKey"`
	Name        string              `gorm:"column:name"`
	Symbol      string              `gorm:"column:symbol"`
	TotalSupply *oltypes.HexUint256 `gorm:"column:total_supply"`
	Admin       oltypes.EthAddress  `gorm:"column:admin"`
	AssetID     uint64              `gorm:"column:asset_id"`
	Created     oltypes.Timestamp   `gorm:"column:created;autoCreateTime:nano"`
}

func (token) TableName() string {
	return "tokens"
}

type balance struct {
	Token   oltypes.EthAddress  `gorm:"column:token;primaryKey"`
	Holder  oltypes.EthAddress  `gorm:"column:holder;primaryKey"`
	Balance *oltypes.HexUint256 `gorm:"column:balance"`
}

func (balance) TableName() string {
	return "token_balances"
}

type allowance struct {
	Token   oltypes.EthAddress  `gorm:"column:token;primaryKey"`
	Owner   oltypes.EthAddress  `gorm:"column:owner;primaryKey"`
	Spender oltypes.EthAddress  `gorm:"column:spender;primaryKey"`
	Amount  *oltypes.HexUint256 `gorm:"column:amount"`
}

func (allowance) TableName() string {
	return "token_allowances"
}
