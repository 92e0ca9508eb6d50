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

package eventstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
)

type event struct {
	Seq     uint64            `gorm:"column:seq;primaryKey;autoIncrement"`
	ID      string            `gorm:"column:id"`
	Type    string            `gorm:"column:event_type"`
	Parties string            `gorm:"column:parties"` // JSON array of addresses
	Data    string            `gorm:"column:data"`    // JSON object of entity ids and values
	Created oltypes.Timestamp `gorm:"column:created;autoCreateTime:nano"`
}

func (event) TableName() string {
	return "events"
}

type eventStore struct{}

func NewEventStore() components.EventStore {
	return &eventStore{}
}

// Write appends one protocol event in the same transaction as the state change
// it describes - an event row exists if and only if the transition happened.
func (es *eventStore) Write(ctx context.Context, dbtx persistence.DBTX, eventType string, parties []oltypes.EthAddress, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	partiesJSON, err := json.Marshal(parties)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ev := &event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Parties: string(partiesJSON),
		Data:    string(dataJSON),
	}
	if err := dbtx.DB().Create(ev).Error; err != nil {
		return err
	}
	log.L(ctx).Debugf("Event %s (%s)", eventType, ev.ID)
	return nil
}

func (es *eventStore) List(ctx context.Context, dbtx persistence.DBTX, offset, limit int) ([]*components.Event, error) {
	var rows []*event
	err := dbtx.DB().
		Order("seq").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	events := make([]*components.Event, len(rows))
	for i, row := range rows {
		ev := &components.Event{
			ID:      row.ID,
			Type:    row.Type,
			Created: row.Created,
		}
		if err := json.Unmarshal([]byte(row.Parties), &ev.Parties); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(row.Data), &ev.Data); err != nil {
			return nil, err
		}
		events[i] = ev
	}
	return events, nil
}
