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

// Package tokenmgr owns the fungible-balance ledgers: one per registered asset
// (100% of the asset's ownership) plus the settlement currency. Balances,
// the enumerable holder set, and pull-transfer allowances live here; nothing
// else in the system writes them.
package tokenmgr

import (
	"context"
	"encoding/binary"
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

type tokenManager struct{}

func NewTokenManager() components.TokenManager {
	return &tokenManager{}
}

// Deploy creates a new token ledger with its fixed total supply minted to the
// recipient, all in the caller's transaction. The address is derived
// deterministically from the deployment parameters.
func (tm *tokenManager) Deploy(ctx context.Context, dbtx persistence.DBTX, d *components.TokenDeployment) (*oltypes.EthAddress, error) {
	if d.TotalSupply.IsZero() {
		return nil, i18n.NewError(ctx, msgs.MsgTokenSupplyZero)
	}
	addr := tokenAddress(d)
	var count int64
	err := dbtx.DB().
		Model(&token{}).
		Where("address = ?", addr).
		Count(&count).
		Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, i18n.NewError(ctx, msgs.MsgTokenAlreadyDeployed, addr)
	}
	err = dbtx.DB().Create(&token{
		Address:     *addr,
		Name:        d.Name,
		Symbol:      d.Symbol,
		TotalSupply: d.TotalSupply,
		Admin:       d.Admin,
		AssetID:     d.AssetID,
	}).Error
	if err == nil {
		err = dbtx.DB().Create(&balance{
			Token:   *addr,
			Holder:  d.Recipient,
			Balance: d.TotalSupply,
		}).Error
	}
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Deployed token %s '%s' supply=%s recipient=%s", addr, d.Symbol, d.TotalSupply, d.Recipient)
	return addr, nil
}

// tokenAddress derives the ledger address for a deployment - keccak over a
// domain tag, the asset id, and the token name/symbol, truncated to 20 bytes
// the same way a contract address is derived from a deployment hash
func tokenAddress(d *components.TokenDeployment) *oltypes.EthAddress {
	var assetID [8]byte
	binary.BigEndian.PutUint64(assetID[:], d.AssetID)
	preimage := append([]byte("orbitlease/token/"), assetID[:]...)
	preimage = append(preimage, []byte(d.Name)...)
	preimage = append(preimage, []byte(d.Symbol)...)
	hash := oltypes.Bytes32Keccak(preimage)
	return oltypes.EthAddressBytes(hash[12:])
}

func (tm *tokenManager) GetToken(ctx context.Context, dbtx persistence.DBTX, tokenAddr oltypes.EthAddress) (*components.TokenInfo, error) {
	var row token
	err := dbtx.DB().
		Where("address = ?", tokenAddr).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgTokenUnknown, tokenAddr)
	}
	if err != nil {
		return nil, err
	}
	return &components.TokenInfo{
		Address:     row.Address,
		Name:        row.Name,
		Symbol:      row.Symbol,
		TotalSupply: row.TotalSupply,
		Admin:       row.Admin,
		AssetID:     row.AssetID,
	}, nil
}

func (tm *tokenManager) TotalSupply(ctx context.Context, dbtx persistence.DBTX, tokenAddr oltypes.EthAddress) (*oltypes.HexUint256, error) {
	info, err := tm.GetToken(ctx, dbtx, tokenAddr)
	if err != nil {
		return nil, err
	}
	return info.TotalSupply, nil
}

func (tm *tokenManager) BalanceOf(ctx context.Context, dbtx persistence.DBTX, tokenAddr, holder oltypes.EthAddress) (*oltypes.HexUint256, error) {
	var row balance
	err := dbtx.DB().
		Where("token = ? AND holder = ?", tokenAddr, holder).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return oltypes.Uint64ToUint256(0), nil
	}
	if err != nil {
		return nil, err
	}
	return row.Balance, nil
}

// Holders enumerates the current non-zero holder set. A row exists if and only
// if the balance is greater than zero.
func (tm *tokenManager) Holders(ctx context.Context, dbtx persistence.DBTX, tokenAddr oltypes.EthAddress) ([]*components.HolderBalance, error) {
	var rows []*balance
	err := dbtx.DB().
		Where("token = ?", tokenAddr).
		Order("holder").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	holders := make([]*components.HolderBalance, len(rows))
	for i, row := range rows {
		holders[i] = &components.HolderBalance{Holder: row.Holder, Balance: row.Balance}
	}
	return holders, nil
}

func (tm *tokenManager) Transfer(ctx context.Context, dbtx persistence.DBTX, tokenAddr, from, to oltypes.EthAddress, amount *oltypes.HexUint256) error {
	if amount.IsZero() {
		return i18n.NewError(ctx, msgs.MsgTokenAmountZero)
	}
	if _, err := tm.GetToken(ctx, dbtx, tokenAddr); err != nil {
		return err
	}
	if err := tm.debit(ctx, dbtx, tokenAddr, from, amount); err != nil {
		return err
	}
	return tm.credit(ctx, dbtx, tokenAddr, to, amount)
}

func (tm *tokenManager) Approve(ctx context.Context, dbtx persistence.DBTX, tokenAddr, owner, spender oltypes.EthAddress, amount *oltypes.HexUint256) error {
	if _, err := tm.GetToken(ctx, dbtx, tokenAddr); err != nil {
		return err
	}
	// An approval for zero clears the allowance row
	if amount.IsZero() {
		return dbtx.DB().
			Where("token = ? AND owner = ? AND spender = ?", tokenAddr, owner, spender).
			Delete(&allowance{}).
			Error
	}
	var row allowance
	err := dbtx.DB().
		Where("token = ? AND owner = ? AND spender = ?", tokenAddr, owner, spender).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return dbtx.DB().Create(&allowance{
			Token:   tokenAddr,
			Owner:   owner,
			Spender: spender,
			Amount:  amount,
		}).Error
	}
	if err != nil {
		return err
	}
	return dbtx.DB().
		Model(&allowance{}).
		Where("token = ? AND owner = ? AND spender = ?", tokenAddr, owner, spender).
		Update("amount", amount).
		Error
}

func (tm *tokenManager) Allowance(ctx context.Context, dbtx persistence.DBTX, tokenAddr, owner, spender oltypes.EthAddress) (*oltypes.HexUint256, error) {
	var row allowance
	err := dbtx.DB().
		Where("token = ? AND owner = ? AND spender = ?", tokenAddr, owner, spender).
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

// TransferFrom moves funds the owner previously approved for the spender. The
// allowance is reduced in the same transaction as the balance movement.
func (tm *tokenManager) TransferFrom(ctx context.Context, dbtx persistence.DBTX, tokenAddr, spender, from, to oltypes.EthAddress, amount *oltypes.HexUint256) error {
	if amount.IsZero() {
		return i18n.NewError(ctx, msgs.MsgTokenAmountZero)
	}
	if _, err := tm.GetToken(ctx, dbtx, tokenAddr); err != nil {
		return err
	}
	if err := tm.lockAllowanceRow(dbtx, tokenAddr, from, spender); err != nil {
		return err
	}
	current, err := tm.Allowance(ctx, dbtx, tokenAddr, from, spender)
	if err != nil {
		return err
	}
	if current.Int().Cmp(amount.Int()) < 0 {
		return i18n.NewError(ctx, msgs.MsgTokenTransferNotApproved, amount, from, spender, current)
	}
	remaining := oltypes.BigIntToUint256(new(big.Int).Sub(current.Int(), amount.Int()))
	if remaining.IsZero() {
		err = dbtx.DB().
			Where("token = ? AND owner = ? AND spender = ?", tokenAddr, from, spender).
			Delete(&allowance{}).
			Error
	} else {
		err = dbtx.DB().
			Model(&allowance{}).
			Where("token = ? AND owner = ? AND spender = ?", tokenAddr, from, spender).
			Update("amount", remaining).
			Error
	}
	if err != nil {
		return err
	}
	if err := tm.debit(ctx, dbtx, tokenAddr, from, amount); err != nil {
		return err
	}
	return tm.credit(ctx, dbtx, tokenAddr, to, amount)
}

// lockBalanceRow takes the write lock on a balance row ahead of a
// read-modify-write. The self-assignment UPDATE is a no-op for the stored
// value, but on PostgreSQL it makes concurrent movers of the same balance
// serialize instead of both passing a check against a stale read under READ
// COMMITTED. Returns the number of rows matched.
func (tm *tokenManager) lockBalanceRow(dbtx persistence.DBTX, tokenAddr, holder oltypes.EthAddress) (int64, error) {
	res := dbtx.DB().
		Model(&balance{}).
		Where("token = ? AND holder = ?", tokenAddr, holder).
		Update("balance", gorm.Expr("balance"))
	return res.RowsAffected, res.Error
}

// lockAllowanceRow is the same row-lock step for an allowance row. A missing
// row needs no lock - the allowance is then zero and the spend fails.
func (tm *tokenManager) lockAllowanceRow(dbtx persistence.DBTX, tokenAddr, owner, spender oltypes.EthAddress) error {
	return dbtx.DB().
		Model(&allowance{}).
		Where("token = ? AND owner = ? AND spender = ?", tokenAddr, owner, spender).
		Update("amount", gorm.Expr("amount")).
		Error
}

func (tm *tokenManager) debit(ctx context.Context, dbtx persistence.DBTX, tokenAddr, holder oltypes.EthAddress, amount *oltypes.HexUint256) error {
	locked, err := tm.lockBalanceRow(dbtx, tokenAddr, holder)
	if err != nil {
		return err
	}
	if locked == 0 {
		return i18n.NewError(ctx, msgs.MsgTokenInsufficientBalance, holder, tokenAddr, "0x0", amount)
	}
	var row balance
	err = dbtx.DB().
		Where("token = ? AND holder = ?", tokenAddr, holder).
		First(&row).
		Error
	if err != nil {
		return err
	}
	if row.Balance.Int().Cmp(amount.Int()) < 0 {
		return i18n.NewError(ctx, msgs.MsgTokenInsufficientBalance, holder, tokenAddr, row.Balance, amount)
	}
	remaining := oltypes.BigIntToUint256(new(big.Int).Sub(row.Balance.Int(), amount.Int()))
	if remaining.IsZero() {
		// Maintain the holder-set invariant - zero balances leave the set
		return dbtx.DB().
			Where("token = ? AND holder = ?", tokenAddr, holder).
			Delete(&balance{}).
			Error
	}
	return dbtx.DB().
		Model(&balance{}).
		Where("token = ? AND holder = ?", tokenAddr, holder).
		Update("balance", remaining).
		Error
}

func (tm *tokenManager) credit(ctx context.Context, dbtx persistence.DBTX, tokenAddr, holder oltypes.EthAddress, amount *oltypes.HexUint256) error {
	locked, err := tm.lockBalanceRow(dbtx, tokenAddr, holder)
	if err != nil {
		return err
	}
	if locked == 0 {
		// New holder joins the set. A concurrent insert of the same holder is
		// caught by the primary key, rolling this transaction back for retry.
		return dbtx.DB().Create(&balance{
			Token:   tokenAddr,
			Holder:  holder,
			Balance: amount,
		}).Error
	}
	var row balance
	err = dbtx.DB().
		Where("token = ? AND holder = ?", tokenAddr, holder).
		First(&row).
		Error
	if err != nil {
		return err
	}
	newBalance := oltypes.BigIntToUint256(new(big.Int).Add(row.Balance.Int(), amount.Int()))
	return dbtx.DB().
		Model(&balance{}).
		Where("token = ? AND holder = ?", tokenAddr, holder).
		Update("balance", newBalance).
		Error
}
