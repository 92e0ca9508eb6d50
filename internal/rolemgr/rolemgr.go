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

// Package rolemgr holds the coarse capability sets gating administrative
// operations. Trading and claiming are permissionless and never consult it.
package rolemgr

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm/clause"
)

type roleGrant struct {
	Address oltypes.EthAddress `gorm:"column:address;primaryKey"`
	Role    string             `gorm:"column:role;primaryKey"`
	Created oltypes.Timestamp  `gorm:"column:created;autoCreateTime:nano"`
}

func (roleGrant) TableName() string {
	return "roles"
}

type roleManager struct {
	events components.EventStore
}

func NewRoleManager(events components.EventStore) components.RoleManager {
	return &roleManager{events: events}
}

func validRole(ctx context.Context, role string) error {
	switch role {
	case components.RoleGovernance, components.RoleRegistrar:
		return nil
	default:
		return i18n.NewError(ctx, msgs.MsgRoleUnknown, role)
	}
}

func (rm *roleManager) GrantRole(ctx context.Context, dbtx persistence.DBTX, caller, grantee oltypes.EthAddress, role string) error {
	if err := rm.RequireRole(ctx, dbtx, caller, components.RoleGovernance); err != nil {
		return err
	}
	if err := validRole(ctx, role); err != nil {
		return err
	}
	held, err := rm.HasRole(ctx, dbtx, grantee, role)
	if err != nil {
		return err
	}
	if held {
		return i18n.NewError(ctx, msgs.MsgRoleAlreadyHeld, grantee, role)
	}
	if err := dbtx.DB().Create(&roleGrant{Address: grantee, Role: role}).Error; err != nil {
		return err
	}
	log.L(ctx).Infof("Role '%s' granted to %s by %s", role, grantee, caller)
	return rm.events.Write(ctx, dbtx, components.EventRoleGranted,
		[]oltypes.EthAddress{caller, grantee},
		map[string]any{"role": role})
}

func (rm *roleManager) RevokeRole(ctx context.Context, dbtx persistence.DBTX, caller, grantee oltypes.EthAddress, role string) error {
	if err := rm.RequireRole(ctx, dbtx, caller, components.RoleGovernance); err != nil {
		return err
	}
	if err := validRole(ctx, role); err != nil {
		return err
	}
	res := dbtx.DB().
		Where("address = ? AND role = ?", grantee, role).
		Delete(&roleGrant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgRoleNotHeld, grantee, role)
	}
	return rm.events.Write(ctx, dbtx, components.EventRoleRevoked,
		[]oltypes.EthAddress{caller, grantee},
		map[string]any{"role": role})
}

func (rm *roleManager) HasRole(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress, role string) (bool, error) {
	var count int64
	err := dbtx.DB().
		Model(&roleGrant{}).
		Where("address = ? AND role = ?", addr, role).
		Count(&count).
		Error
	return count > 0, err
}

func (rm *roleManager) RequireRole(ctx context.Context, dbtx persistence.DBTX, addr oltypes.EthAddress, role string) error {
	held, err := rm.HasRole(ctx, dbtx, addr, role)
	if err != nil {
		return err
	}
	if !held {
		return i18n.NewError(ctx, msgs.MsgRoleRequired, addr, role)
	}
	return nil
}

// GenesisGrant seeds a role from config at first start - idempotent, ungated.
// Must never be reachable from any external calling surface.
func (rm *roleManager) GenesisGrant(ctx context.Context, dbtx persistence.DBTX, grantee oltypes.EthAddress, role string) error {
	if err := validRole(ctx, role); err != nil {
		return err
	}
	return dbtx.DB().
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(&roleGrant{Address: grantee, Role: role}).
		Error
}
