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
	"fmt"

	"gorm.io/gorm"
)

type noTX struct {
	gdb *gorm.DB
}

func newNOTX(gdb *gorm.DB) DBTX {
	return &noTX{gdb: gdb}
}

func (t *noTX) DB() *gorm.DB {
	return t.gdb
}

func (t *noTX) AddPreCommit(func(ctx context.Context, tx DBTX) error) {
	panic(fmt.Errorf("pre-commit handlers cannot be used outside of a transaction"))
}

func (t *noTX) AddPostCommit(func(ctx context.Context)) {
	panic(fmt.Errorf("post-commit handlers cannot be used outside of a transaction"))
}

func (t *noTX) AddFinalizer(func(ctx context.Context, err error)) {
	panic(fmt.Errorf("finalizers cannot be used outside of a transaction"))
}

func (gp *provider) NOTX() DBTX {
	return newNOTX(gp.gdb)
}
