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

package leasefactory

import (
	"context"
	"encoding/json"

	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

type lease struct {
	LeaseID         uint64              `gorm:"column:lease_id;primaryKey"`
	Lessor          oltypes.EthAddress  `gorm:"column:lessor"`
	Lessee          oltypes.EthAddress  `gorm:"column:lessee"`
	AssetID         uint64              `gorm:"column:asset_id"`
	PaymentToken    oltypes.EthAddress  `gorm:"column:payment_token"`
	RentAmount      *oltypes.HexUint256 `gorm:"column:rent_amount"`
	RentPeriod      uint64              `gorm:"column:rent_period"`
	SecurityDeposit *oltypes.HexUint256 `gorm:"column:security_deposit"`
	StartTime       int64               `gorm:"column:start_time"`
	EndTime         int64               `gorm:"column:end_time"`
	LegalDocHash    oltypes.Bytes32     `gorm:"column:legal_doc_hash"`
	TermsVersion    uint64              `gorm:"column:terms_version"`
	AttributeKeys   string              `gorm:"column:attribute_keys"`   // JSON array of bytes32, in signed order
	AttributeValues string              `gorm:"column:attribute_values"` // JSON array of strings, in signed order
	RecordHolder    oltypes.EthAddress  `gorm:"column:record_holder"`
	MintedAt        oltypes.Timestamp   `gorm:"column:minted_at;autoCreateTime:nano"`
}

func (lease) TableName() string {
	return "leases"
}

func newLeaseRow(leaseID uint64, terms *components.LeaseTerms) (*lease, error) {
	keys := terms.AttributeKeys
	if keys == nil {
		keys = []oltypes.Bytes32{}
	}
	values := terms.AttributeValues
	if values == nil {
		values = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return nil, err
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return &lease{
		LeaseID:         leaseID,
		Lessor:          terms.Lessor,
		Lessee:          terms.Lessee,
		AssetID:         terms.AssetID,
		PaymentToken:    terms.PaymentToken,
		RentAmount:      terms.RentAmount,
		RentPeriod:      terms.RentPeriod,
		SecurityDeposit: terms.SecurityDeposit,
		StartTime:       terms.StartTime,
		EndTime:         terms.EndTime,
		LegalDocHash:    terms.LegalDocHash,
		TermsVersion:    terms.TermsVersion,
		AttributeKeys:   string(keysJSON),
		AttributeValues: string(valuesJSON),
		RecordHolder:    terms.Lessee,
	}, nil
}

func (row *lease) toAPI(ctx context.Context) (*components.Lease, error) {
	l := &components.Lease{
		LeaseID: row.LeaseID,
		Terms: components.LeaseTerms{
			Lessor:          row.Lessor,
			Lessee:          row.Lessee,
			AssetID:         row.AssetID,
			PaymentToken:    row.PaymentToken,
			RentAmount:      row.RentAmount,
			RentPeriod:      row.RentPeriod,
			SecurityDeposit: row.SecurityDeposit,
			StartTime:       row.StartTime,
			EndTime:         row.EndTime,
			LegalDocHash:    row.LegalDocHash,
			TermsVersion:    row.TermsVersion,
		},
		RecordHolder: row.RecordHolder,
		MintedAt:     row.MintedAt,
	}
	if err := json.Unmarshal([]byte(row.AttributeKeys), &l.Terms.AttributeKeys); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(row.AttributeValues), &l.Terms.AttributeValues); err != nil {
		return nil, err
	}
	return l, nil
}
