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

package sequences

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sequence struct {
	Name      string `gorm:"column:name;primaryKey"`
	NextValue uint64 `gorm:"column:next_value"`
}

func (sequence) TableName() string {
	return "sequences"
}

type sequenceAllocator struct{}

func NewSequenceAllocator() components.SequenceAllocator {
	return &sequenceAllocator{}
}

// Next allocates the next id for the named sequence, starting at 1. The
// counter advances with a single atomic UPDATE, so on PostgreSQL two
// concurrent transactions serialize on the row instead of both reading the
// same value under READ COMMITTED. Must run inside the same transaction as
// the creation that consumes the id, so that a rolled-back creation never
// burns an id.
func (sa *sequenceAllocator) Next(ctx context.Context, dbtx persistence.DBTX, name string) (uint64, error) {
	err := dbtx.DB().
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&sequence{Name: name, NextValue: 1}).
		Error
	if err != nil {
		return 0, err
	}
	err = dbtx.DB().
		Model(&sequence{}).
		Where("name = ?", name).
		Update("next_value", gorm.Expr("next_value + 1")).
		Error
	if err != nil {
		return 0, err
	}
	// This transaction holds the row lock from the increment, so the read-back
	// sees exactly the value it wrote
	var seq sequence
	if err := dbtx.DB().Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, err
	}
	if seq.NextValue < 2 {
		return 0, i18n.NewError(ctx, msgs.MsgSequenceOverflow, name)
	}
	allocated := seq.NextValue - 1
	log.L(ctx).Tracef("Allocated %s id %d", name, allocated)
	return allocated, nil
}
