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

package rolemgr

import (
	"context"
	"fmt"
	"testing"

	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/eventstore"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"github.com/orbitlease/orbitlease/pkg/persistence/mockpersistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	governor = *oltypes.MustEthAddress("0x1000000000000000000000000000000000000001")
	alice    = *oltypes.MustEthAddress("0x2000000000000000000000000000000000000002")
	bob      = *oltypes.MustEthAddress("0x3000000000000000000000000000000000000003")
)

func newTestRoleManager(t *testing.T) (context.Context, components.RoleManager, persistence.Persistence, func()) {
	ctx := context.Background()
	p, done, err := persistence.NewUnitTestPersistence(ctx, "rolemgr")
	require.NoError(t, err)

	rm := NewRoleManager(eventstore.NewEventStore())
	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GenesisGrant(ctx, dbtx, governor, components.RoleGovernance)
	})
	require.NoError(t, err)
	return ctx, rm, p, done
}

func TestGrantAndRevokeRole(t *testing.T) {
	ctx, rm, p, done := newTestRoleManager(t)
	defer done()

	err := p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GrantRole(ctx, dbtx, governor, alice, components.RoleRegistrar)
	})
	require.NoError(t, err)

	held, err := rm.HasRole(ctx, p.NOTX(), alice, components.RoleRegistrar)
	require.NoError(t, err)
	assert.True(t, held)
	require.NoError(t, rm.RequireRole(ctx, p.NOTX(), alice, components.RoleRegistrar))

	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.RevokeRole(ctx, dbtx, governor, alice, components.RoleRegistrar)
	})
	require.NoError(t, err)

	held, err = rm.HasRole(ctx, p.NOTX(), alice, components.RoleRegistrar)
	require.NoError(t, err)
	assert.False(t, held)
	assert.Regexp(t, "OL010202", rm.RequireRole(ctx, p.NOTX(), alice, components.RoleRegistrar))
}

func TestGrantRequiresGovernance(t *testing.T) {
	ctx, rm, p, done := newTestRoleManager(t)
	defer done()

	err := p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GrantRole(ctx, dbtx, alice, bob, components.RoleRegistrar)
	})
	assert.Regexp(t, "OL010202", err)
}

func TestGrantDuplicateAndRevokeMissing(t *testing.T) {
	ctx, rm, p, done := newTestRoleManager(t)
	defer done()

	err := p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GrantRole(ctx, dbtx, governor, alice, components.RoleRegistrar)
	})
	require.NoError(t, err)

	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GrantRole(ctx, dbtx, governor, alice, components.RoleRegistrar)
	})
	assert.Regexp(t, "OL010203", err)

	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.RevokeRole(ctx, dbtx, governor, bob, components.RoleRegistrar)
	})
	assert.Regexp(t, "OL010204", err)
}

func TestUnknownRoleRejected(t *testing.T) {
	ctx, rm, p, done := newTestRoleManager(t)
	defer done()

	err := p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GrantRole(ctx, dbtx, governor, alice, "superuser")
	})
	assert.Regexp(t, "OL010201", err)

	err = p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GenesisGrant(ctx, dbtx, alice, "superuser")
	})
	assert.Regexp(t, "OL010201", err)
}

func TestGenesisGrantIdempotent(t *testing.T) {
	ctx, rm, p, done := newTestRoleManager(t)
	defer done()

	// Seeding the same grant twice is a no-op, not an error
	err := p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GenesisGrant(ctx, dbtx, governor, components.RoleGovernance)
	})
	require.NoError(t, err)

	held, err := rm.HasRole(ctx, p.NOTX(), governor, components.RoleGovernance)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestHasRoleQueryFailure(t *testing.T) {
	mdb, err := mockpersistence.NewSQLMockProvider()
	require.NoError(t, err)

	rm := NewRoleManager(eventstore.NewEventStore())
	mdb.Mock.ExpectQuery("SELECT count").WillReturnError(fmt.Errorf("pop"))
	_, err = rm.HasRole(context.Background(), mdb.P.NOTX(), alice, components.RoleRegistrar)
	assert.Regexp(t, "pop", err)
	require.NoError(t, mdb.Mock.ExpectationsWereMet())
}

func TestGenesisGrantInsertFailureRollsBack(t *testing.T) {
	mdb, err := mockpersistence.NewSQLMockProvider()
	require.NoError(t, err)

	rm := NewRoleManager(eventstore.NewEventStore())
	mdb.Mock.ExpectBegin()
	mdb.Mock.ExpectExec("INSERT").WillReturnError(fmt.Errorf("pop"))
	mdb.Mock.ExpectRollback()
	err = mdb.P.Transaction(context.Background(), func(ctx context.Context, dbtx persistence.DBTX) error {
		return rm.GenesisGrant(ctx, dbtx, alice, components.RoleRegistrar)
	})
	assert.Regexp(t, "pop", err)
	require.NoError(t, mdb.Mock.ExpectationsWereMet())
}
