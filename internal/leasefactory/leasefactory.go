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

// Package leasefactory mints lease records from dual-signed lease intents.
// The intent digest is an EIP-712 v4 hash, so signatures produced by standard
// Ethereum wallet tooling verify here unchanged.
package leasefactory

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/olconf"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
	"gorm.io/gorm"
)

type leaseFactory struct {
	domainName        string
	domainVersion     string
	chainID           int64
	verifyingContract oltypes.EthAddress

	registry  components.AssetRegistry
	metadata  components.MetadataStore
	sequences components.SequenceAllocator
	events    components.EventStore

	// Overridable for deadline tests
	now func() time.Time
}

func NewLeaseFactory(
	conf *olconf.ProtocolConfig,
	registry components.AssetRegistry,
	metadata components.MetadataStore,
	sequences components.SequenceAllocator,
	events components.EventStore,
) components.LeaseFactory {
	return &leaseFactory{
		domainName:        confStringOr(conf.DomainName, *olconf.ProtocolDefaults.DomainName),
		domainVersion:     confStringOr(conf.DomainVersion, *olconf.ProtocolDefaults.DomainVersion),
		chainID:           confInt64Or(conf.ChainID, *olconf.ProtocolDefaults.ChainID),
		verifyingContract: addrOrZero(conf.AuthorityAddress),
		registry:          registry,
		metadata:          metadata,
		sequences:         sequences,
		events:            events,
		now:               time.Now,
	}
}

func confStringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func confInt64Or(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

func addrOrZero(v *oltypes.EthAddress) oltypes.EthAddress {
	if v == nil {
		return oltypes.EthAddress{}
	}
	return *v
}

// LeaseNamespace is the metadata namespace of a minted lease
func LeaseNamespace(leaseID uint64) oltypes.Bytes32 {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], leaseID)
	return oltypes.Bytes32Keccak(append([]byte("orbitlease/lease/"), id[:]...))
}

// Mint validates the intent, verifies both party signatures against the
// EIP-712 digest, and persists the lease record. The lessee becomes the
// initial record holder. Any caller holding two valid signatures may mint.
func (lf *leaseFactory) Mint(ctx context.Context, dbtx persistence.DBTX, intent *components.LeaseIntent, lessorSig, lesseeSig oltypes.HexBytes) (uint64, error) {
	now := lf.now().Unix()
	if intent.Deadline < now {
		return 0, i18n.NewError(ctx, msgs.MsgLeaseExpiredIntent, intent.Deadline, now)
	}
	if intent.Lease.StartTime >= intent.Lease.EndTime {
		return 0, i18n.NewError(ctx, msgs.MsgLeaseInvalidTimeRange, intent.Lease.StartTime, intent.Lease.EndTime)
	}
	exists, err := lf.registry.AssetExists(ctx, dbtx, intent.Lease.AssetID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, i18n.NewError(ctx, msgs.MsgLeaseUnknownAsset, intent.Lease.AssetID)
	}
	digest, err := lf.Digest(ctx, intent)
	if err != nil {
		return 0, err
	}
	if err := lf.verifySignature(ctx, digest, lessorSig, intent.Lease.Lessor, "lessor"); err != nil {
		return 0, err
	}
	if err := lf.verifySignature(ctx, digest, lesseeSig, intent.Lease.Lessee, "lessee"); err != nil {
		return 0, err
	}

	leaseID, err := lf.sequences.Next(ctx, dbtx, components.SeqLeases)
	if err != nil {
		return 0, err
	}
	row, err := newLeaseRow(leaseID, &intent.Lease)
	if err != nil {
		return 0, err
	}
	if err := dbtx.DB().Create(row).Error; err != nil {
		return 0, err
	}
	// The signed attribute arrays seed the lease's mutable metadata
	attrs := make([]*components.KVPair, len(intent.Lease.AttributeKeys))
	for i, key := range intent.Lease.AttributeKeys {
		attrs[i] = &components.KVPair{Key: key, Value: intent.Lease.AttributeValues[i]}
	}
	if err := lf.metadata.UncheckedSetMany(ctx, dbtx, LeaseNamespace(leaseID), attrs); err != nil {
		return 0, err
	}
	log.L(ctx).Infof("Lease %d minted for asset %d (lessor=%s lessee=%s digest=%s)",
		leaseID, intent.Lease.AssetID, intent.Lease.Lessor, intent.Lease.Lessee, digest)
	err = lf.events.Write(ctx, dbtx, components.EventLeaseMinted,
		[]oltypes.EthAddress{intent.Lease.Lessor, intent.Lease.Lessee},
		map[string]any{"leaseId": leaseID, "assetId": intent.Lease.AssetID, "digest": digest})
	if err != nil {
		return 0, err
	}
	return leaseID, nil
}

func (lf *leaseFactory) GetLease(ctx context.Context, dbtx persistence.DBTX, leaseID uint64) (*components.Lease, error) {
	var row lease
	err := dbtx.DB().
		Where("lease_id = ?", leaseID).
		First(&row).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, i18n.NewError(ctx, msgs.MsgLeaseUnknown, leaseID)
	}
	if err != nil {
		return nil, err
	}
	return row.toAPI(ctx)
}

// TransferLeaseRecord reassigns record holdership. Terms are immutable so this
// is the only mutation of the lease row after mint.
func (lf *leaseFactory) TransferLeaseRecord(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, leaseID uint64, to oltypes.EthAddress) error {
	if err := lf.requireRecordHolder(ctx, dbtx, caller, leaseID); err != nil {
		return err
	}
	err := dbtx.DB().
		Model(&lease{}).
		Where("lease_id = ?", leaseID).
		Update("record_holder", to).
		Error
	if err != nil {
		return err
	}
	return lf.events.Write(ctx, dbtx, components.EventLeaseTransferred,
		[]oltypes.EthAddress{caller, to},
		map[string]any{"leaseId": leaseID, "to": to})
}

func (lf *leaseFactory) GetAttribute(ctx context.Context, dbtx persistence.DBTX, leaseID uint64, key oltypes.Bytes32) (string, error) {
	if _, err := lf.GetLease(ctx, dbtx, leaseID); err != nil {
		return "", err
	}
	return lf.metadata.Get(ctx, dbtx, LeaseNamespace(leaseID), key)
}

// SetAttribute goes through the governed metadata write path - lease terms are
// immutable but their attached metadata is administered by governance
func (lf *leaseFactory) SetAttribute(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, leaseID uint64, key oltypes.Bytes32, value string) error {
	if _, err := lf.GetLease(ctx, dbtx, leaseID); err != nil {
		return err
	}
	return lf.metadata.SetMany(ctx, dbtx, caller, LeaseNamespace(leaseID),
		[]*components.KVPair{{Key: key, Value: value}})
}

func (lf *leaseFactory) GetAllAttributes(ctx context.Context, dbtx persistence.DBTX, leaseID uint64) ([]*components.KVPair, error) {
	if _, err := lf.GetLease(ctx, dbtx, leaseID); err != nil {
		return nil, err
	}
	return lf.metadata.GetAll(ctx, dbtx, LeaseNamespace(leaseID))
}

func (lf *leaseFactory) requireRecordHolder(ctx context.Context, dbtx persistence.DBTX, caller oltypes.EthAddress, leaseID uint64) error {
	l, err := lf.GetLease(ctx, dbtx, leaseID)
	if err != nil {
		return err
	}
	if !l.RecordHolder.Equals(&caller) {
		return i18n.NewError(ctx, msgs.MsgLeaseNotRecordHolder, caller, leaseID)
	}
	return nil
}
