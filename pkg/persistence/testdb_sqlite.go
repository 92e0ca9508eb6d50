// Copyright © 2025 OrbitLease, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"

	"github.com/orbitlease/orbitlease/pkg/confutil"
	"github.com/orbitlease/orbitlease/pkg/olconf"
)

// Used for unit tests throughout the project that want to test against a real DB.
// Returns an in-memory SQLite DB with all migrations applied.
//
// Relies on the convention that all packages with DB tests sit two levels below
// the repository root.
func NewUnitTestPersistence(ctx context.Context, suite string) (Persistence, func(), error) {
	p, err := newSQLiteProvider(ctx, &olconf.DBConfig{
		Type: "sqlite",
		SQLite: olconf.SQLiteConfig{
			SQLDBConfig: olconf.SQLDBConfig{
				DSN:           ":memory:",
				AutoMigrate:   confutil.P(true),
				MigrationsDir: "../../db/migrations/sqlite",
				DebugQueries:  false,
			},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}
