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

// Package assetregistry declares asset types (schemas) and registers asset
// instances. Registering an instance deploys the instance's ownership token
// atomically - `ownershipToken != 0` is the existence predicate the rest of
// the system relies on.
//
// Type governance and instance registration are deliberately separate roles: a
// protocol operator keeps the schema taxonomy centralized while delegating who
// may onboard individual assets.
package assetregistry

import (
	"context"
	"encoding/binary"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

type assetRegistry struct {
	roles     components.RoleManager
	metadata  components.MetadataStore
	tokens    components.TokenManager
	sequences components.SequenceAllocator
	events    components.EventStore
}

func NewAssetRegistry(
	roles components.RoleManager,
	metadata components.MetadataStore,
	tokens components.TokenManager,
	sequences components.SequenceAllocator,
	events components.EventStore,
) components.AssetRegistry {
	return &assetRegistry{
		roles:     roles,
		metadata:  metadata,
		tokens:    tokens,
		sequences: sequences,
		events:    events,
	}
}

// InstanceNamespace is the metadata namespace of a registered asset instance
func InstanceNamespace(assetID uint64) oltypes.Bytes32 {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], assetID)
	return oltypes.Bytes32Keccak(append([]byte("orbitlease/asset/"), id[:]...))
}

func (ar *assetRegistry) CreateType(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, name string, schemaHash oltypes.Bytes32, requiredAttributeKeys []oltypes.Bytes32, attrs []*components.KVPair) error {
	if err := ar.roles.RequireRole(ctx, dbtx, caller, components.RoleGovernance); err != nil {
		return err
	}
	if name == "" {
		return i18n.NewError(ctx, msgs.MsgRegistryNameRequired)
	}
	existing, err := ar.GetType(ctx, dbtx, schemaHash)
	if err != nil {
		return err
	}
	if existing.Name != "" {
		return i18n.NewError(ctx, msgs.MsgRegistryDuplicateType, schemaHash)
	}
	row, err := newAssetTypeRow(schemaHash, name, requiredAttributeKeys)
	if err != nil {
		return err
	}
	if err := dbtx.DB().Create(row).Error; err != nil {
		return err
	}
	// Type attributes live under the schema hash itself
	if err := ar.metadata.UncheckedSetMany(ctx, dbtx, schemaHash, attrs); err != nil {
		return err
	}
	log.L(ctx).Infof("Asset type '%s' created for schema %s", name, schemaHash)
	return ar.events.Write(ctx, dbtx, components.EventTypeCreated,
		[]oltypes.EthAddress{caller},
		map[string]any{"schemaHash": schemaHash, "name": name})
}

func (ar *assetRegistry) RegisterInstance(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, reg *components.InstanceRegistration) (uint64, *oltypes.EthAddress, error) {
	if err := ar.roles.RequireRole(ctx, dbtx, caller, components.RoleRegistrar); err != nil {
		return 0, nil, err
	}
	assetType, err := ar.GetType(ctx, dbtx, reg.SchemaHash)
	if err != nil {
		return 0, nil, err
	}
	if assetType.Name == "" {
		return 0, nil, i18n.NewError(ctx, msgs.MsgRegistryUnknownType, reg.SchemaHash)
	}

	assetID, err := ar.sequences.Next(ctx, dbtx, components.SeqAssets)
	if err != nil {
		return 0, nil, err
	}
	tokenAddr, err := ar.tokens.Deploy(ctx, dbtx, &components.TokenDeployment{
		Name:        reg.TokenName,
		Symbol:      reg.TokenSymbol,
		TotalSupply: reg.TotalSupply,
		Admin:       reg.Admin,
		Recipient:   reg.TokenRecipient,
		AssetID:     assetID,
	})
	if err != nil {
		return 0, nil, err
	}
	err = dbtx.DB().Create(&assetInstance{
		AssetID:        assetID,
		SchemaHash:     reg.SchemaHash,
		Issuer:         caller,
		OwnershipToken: *tokenAddr,
	}).Error
	if err != nil {
		return 0, nil, err
	}
	// The new token has not granted any role to the registrar, so instance
	// attributes go through the construction-time metadata path
	if err := ar.metadata.UncheckedSetMany(ctx, dbtx, InstanceNamespace(assetID), reg.Attributes); err != nil {
		return 0, nil, err
	}
	log.L(ctx).Infof("Asset %d registered under schema %s with ownership token %s", assetID, reg.SchemaHash, tokenAddr)
	err = ar.events.Write(ctx, dbtx, components.EventInstanceRegistered,
		[]oltypes.EthAddress{caller, reg.Admin, reg.TokenRecipient},
		map[string]any{"assetId": assetID, "schemaHash": reg.SchemaHash, "ownershipToken": tokenAddr})
	if err != nil {
		return 0, nil, err
	}
	return assetID, tokenAddr, nil
}

func (ar *assetRegistry) AssetExists(ctx context.Context, dbtx persistence.DBTX, assetID uint64) (bool, error) {
	asset, err := ar.GetAsset(ctx, dbtx, assetID)
	if err != nil {
		return false, err
	}
	return !asset.OwnershipToken.IsZero(), nil
}

// GetAsset returns the zero sentinel (not an error) for an unknown asset id
func (ar *assetRegistry) GetAsset(ctx context.Context, dbtx persistence.DBTX, assetID uint64) (*components.AssetInstance, error) {
	var row assetInstance
	err := dbtx.DB().
		Where("asset_id = ?", assetID).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return &components.AssetInstance{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &components.AssetInstance{
		AssetID:        row.AssetID,
		SchemaHash:     row.SchemaHash,
		Issuer:         row.Issuer,
		OwnershipToken: row.OwnershipToken,
	}, nil
}

// GetType returns the zero sentinel (not an error) for an unknown schema hash
func (ar *assetRegistry) GetType(ctx context.Context, dbtx persistence.DBTX, schemaHash oltypes.Bytes32) (*components.AssetType, error) {
	var row assetType
	err := dbtx.DB().
		Where("schema_hash = ?", schemaHash).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return &components.AssetType{}, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toAPI(ctx)
}
