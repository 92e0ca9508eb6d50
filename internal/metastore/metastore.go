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

// Package metastore is a generic namespaced key/value store, composed into the
// other components so arbitrary descriptive attributes never pollute core state.
package metastore

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type attribute struct {
	Namespace oltypes.Bytes32   `gorm:"column:namespace;primaryKey"`
	Key       oltypes.Bytes32   `gorm:"column:key;primaryKey"`
	Value     string            `gorm:"column:value"`
	Created   oltypes.Timestamp `gorm:"column:created;autoCreateTime:nano"`
	Updated   oltypes.Timestamp `gorm:"column:updated;autoUpdateTime:nano"`
}

func (attribute) TableName() string {
	return "attributes"
}

type metadataStore struct {
	roles components.RoleManager
}

func NewMetadataStore(roles components.RoleManager) components.MetadataStore {
	return &metadataStore{roles: roles}
}

func (ms *metadataStore) SetMany(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, namespace oltypes.Bytes32, pairs []*components.KVPair) error {
	if err := ms.roles.RequireRole(ctx, dbtx, caller, components.RoleGovernance); err != nil {
		return err
	}
	return ms.UncheckedSetMany(ctx, dbtx, namespace, pairs)
}

// UncheckedSetMany is the construction-time write path, used while seeding
// attributes of an object that has not granted any role yet. Only reachable
// through the components interface - never exposed externally.
func (ms *metadataStore) UncheckedSetMany(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32, pairs []*components.KVPair) error {
	if len(pairs) == 0 {
		return nil
	}
	rows := make([]*attribute, len(pairs))
	for i, pair := range pairs {
		rows[i] = &attribute{
			Namespace: namespace,
			Key:       pair.Key,
			Value:     pair.Value,
		}
	}
	return dbtx.DB().
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated"}),
		}).
		Create(rows).
		Error
}

// Get returns the empty string for a missing key - use Has to distinguish an
// absent key from an empty value
func (ms *metadataStore) Get(ctx context.Context, dbtx persistence.DBTX, namespace, key oltypes.Bytes32) (string, error) {
	var row attribute
	err := dbtx.DB().
		Where("namespace = ? AND key = ?", namespace, key).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (ms *metadataStore) GetAll(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) ([]*components.KVPair, error) {
	var rows []*attribute
	err := dbtx.DB().
		Where("namespace = ?", namespace).
		Order("key").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	pairs := make([]*components.KVPair, len(rows))
	for i, row := range rows {
		pairs[i] = &components.KVPair{Key: row.Key, Value: row.Value}
	}
	return pairs, nil
}

func (ms *metadataStore) GetAllKeys(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) ([]oltypes.Bytes32, error) {
	pairs, err := ms.GetAll(ctx, dbtx, namespace)
	if err != nil {
		return nil, err
	}
	keys := make([]oltypes.Bytes32, len(pairs))
	for i, pair := range pairs {
		keys[i] = pair.Key
	}
	return keys, nil
}

func (ms *metadataStore) Remove(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, namespace, key oltypes.Bytes32) error {
	if err := ms.roles.RequireRole(ctx, dbtx, caller, components.RoleGovernance); err != nil {
		return err
	}
	res := dbtx.DB().
		Where("namespace = ? AND key = ?", namespace, key).
		Delete(&attribute{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgMetaKeyNotFound, key, namespace)
	}
	return nil
}

func (ms *metadataStore) Has(ctx context.Context, dbtx persistence.DBTX, namespace, key oltypes.Bytes32) (bool, error) {
	var count int64
	err := dbtx.DB().
		Model(&attribute{}).
		Where("namespace = ? AND key = ?", namespace, key).
		Count(&count).
		Error
	return count > 0, err
}

func (ms *metadataStore) Count(ctx context.Context, dbtx persistence.DBTX, namespace oltypes.Bytes32) (int64, error) {
	var count int64
	err := dbtx.DB().
		Model(&attribute{}).
		Where("namespace = ?", namespace).
		Count(&count).
		Error
	return count, err
}
