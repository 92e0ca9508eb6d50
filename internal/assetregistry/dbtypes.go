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

package assetregistry

import (
	"context"
	"encoding/json"

	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

type assetType struct {
	SchemaHash   oltypes.Bytes32   `gorm:"column:schema_hash;primaryKey"`
	Name         string            `gorm:"column:name"`
	RequiredKeys string            `gorm:"column:required_keys"` // JSON array of bytes32
	Created      oltypes.Timestamp `gorm:"column:created;autoCreateTime:nano"`
}

func (assetType) TableName() string {
	return "asset_types"
}

func newAssetTypeRow(schemaHash oltypes.Bytes32, name string, requiredKeys []oltypes.Bytes32) (*assetType, error) {
	if requiredKeys == nil {
		requiredKeys = []oltypes.Bytes32{}
	}
	keysJSON, err := json.Marshal(requiredKeys)
	if err != nil {
		return nil, err
	}
	return &assetType{
		SchemaHash:   schemaHash,
		Name:         name,
		RequiredKeys: string(keysJSON),
	}, nil
}

func (row *assetType) toAPI(ctx context.Context) (*components.AssetType, error) {
	at := &components.AssetType{
		SchemaHash: row.SchemaHash,
		Name:       row.Name,
	}
	if err := json.Unmarshal([]byte(row.RequiredKeys), &at.RequiredAttributeKeys); err != nil {
		return nil, err
	}
	return at, nil
}

type assetInstance struct {
	AssetID        uint64             `gorm:"column:asset_id;primaryKey"`
	SchemaHash     oltypes.Bytes32    `gorm:"column:schema_hash"`
	Issuer         oltypes.EthAddress `gorm:"column:issuer"`
	OwnershipToken oltypes.EthAddress `gorm:"column:ownership_token"`
	Created        oltypes.Timestamp  `gorm:"column:created;autoCreateTime:nano"`
}

func (assetInstance) TableName() string {
	return "assets"
}
