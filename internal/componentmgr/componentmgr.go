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

// Package componentmgr assembles the protocol components against a single
// persistence layer, and runs the one-time bootstrap (genesis roles and the
// settlement currency) in a single transaction at startup.
package componentmgr

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/assetregistry"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/eventstore"
	"github.com/orbitlease/orbitlease/internal/leasefactory"
	"github.com/orbitlease/orbitlease/internal/marketplace"
	"github.com/orbitlease/orbitlease/internal/metastore"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/internal/rolemgr"
	"github.com/orbitlease/orbitlease/internal/sequences"
	"github.com/orbitlease/orbitlease/internal/tokenmgr"
	"github.com/orbitlease/orbitlease/pkg/olconf"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
	"github.com/orbitlease/orbitlease/pkg/persistence"
)

// bootstrapNamespace records one-time setup facts, like the settlement
// currency address, so restarts are idempotent
var (
	bootstrapNamespace = oltypes.Bytes32Keccak([]byte("orbitlease/bootstrap"))
	currencyKey        = oltypes.Bytes32Keccak([]byte("currency"))
)

type ComponentManager struct {
	conf *olconf.Config
	p    persistence.Persistence

	sequences   components.SequenceAllocator
	events      components.EventStore
	roles       components.RoleManager
	metadata    components.MetadataStore
	tokens      components.TokenManager
	registry    components.AssetRegistry
	factory     components.LeaseFactory
	marketplace components.Marketplace

	currency oltypes.EthAddress
	venue    oltypes.EthAddress
}

func NewComponentManager(conf *olconf.Config, p persistence.Persistence) *ComponentManager {
	return &ComponentManager{conf: conf, p: p}
}

// Start wires the components in dependency order and runs the bootstrap
// transaction. Safe to call on every startup - bootstrap is idempotent.
func (cm *ComponentManager) Start(ctx context.Context) error {
	cm.sequences = sequences.NewSequenceAllocator()
	cm.events = eventstore.NewEventStore()
	cm.roles = rolemgr.NewRoleManager(cm.events)
	cm.metadata = metastore.NewMetadataStore(cm.roles)
	cm.tokens = tokenmgr.NewTokenManager()
	cm.registry = assetregistry.NewAssetRegistry(cm.roles, cm.metadata, cm.tokens, cm.sequences, cm.events)
	cm.factory = leasefactory.NewLeaseFactory(&cm.conf.Protocol, cm.registry, cm.metadata, cm.sequences, cm.events)

	if cm.conf.Marketplace.VenueAddress != nil {
		cm.venue = *cm.conf.Marketplace.VenueAddress
	} else {
		cm.venue = marketplace.DefaultVenueAddress()
	}

	err := cm.p.Transaction(ctx, func(ctx context.Context, dbtx persistence.DBTX) error {
		if err := cm.seedGenesisRoles(ctx, dbtx); err != nil {
			return err
		}
		return cm.bootstrapCurrency(ctx, dbtx)
	})
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgComponentStartFailed, "bootstrap")
	}

	cm.marketplace = marketplace.NewMarketplace(cm.venue, cm.currency, cm.registry, cm.tokens, cm.factory, cm.sequences, cm.events)
	log.L(ctx).Infof("Components started (venue=%s currency=%s)", cm.venue, cm.currency)
	return nil
}

func (cm *ComponentManager) seedGenesisRoles(ctx context.Context, dbtx persistence.DBTX) error {
	for _, addr := range cm.conf.Genesis.Governance {
		if err := cm.roles.GenesisGrant(ctx, dbtx, addr, components.RoleGovernance); err != nil {
			return err
		}
	}
	for _, addr := range cm.conf.Genesis.Registrars {
		if err := cm.roles.GenesisGrant(ctx, dbtx, addr, components.RoleRegistrar); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapCurrency deploys the settlement currency on first startup, and
// reloads its recorded address on every restart after that
func (cm *ComponentManager) bootstrapCurrency(ctx context.Context, dbtx persistence.DBTX) error {
	recorded, err := cm.metadata.Get(ctx, dbtx, bootstrapNamespace, currencyKey)
	if err != nil {
		return err
	}
	if recorded != "" {
		addr, err := oltypes.ParseEthAddress(ctx, recorded)
		if err != nil {
			return err
		}
		cm.currency = *addr
		return nil
	}
	currency := &cm.conf.Marketplace.Currency
	if currency.TotalSupply == nil || currency.Admin == nil || currency.Recipient == nil {
		return i18n.NewError(ctx, msgs.MsgConfigMissingCurrency)
	}
	name := *olconf.CurrencyDefaults.Name
	if currency.Name != nil {
		name = *currency.Name
	}
	symbol := *olconf.CurrencyDefaults.Symbol
	if currency.Symbol != nil {
		symbol = *currency.Symbol
	}
	addr, err := cm.tokens.Deploy(ctx, dbtx, &components.TokenDeployment{
		Name:        name,
		Symbol:      symbol,
		TotalSupply: currency.TotalSupply,
		Admin:       *currency.Admin,
		Recipient:   *currency.Recipient,
	})
	if err != nil {
		return err
	}
	cm.currency = *addr
	return cm.metadata.UncheckedSetMany(ctx, dbtx, bootstrapNamespace,
		[]*components.KVPair{{Key: currencyKey, Value: addr.String()}})
}

func (cm *ComponentManager) Stop(ctx context.Context) {
	cm.p.Close()
	log.L(ctx).Infof("Components stopped")
}

func (cm *ComponentManager) Persistence() persistence.Persistence    { return cm.p }
func (cm *ComponentManager) Sequences() components.SequenceAllocator { return cm.sequences }
func (cm *ComponentManager) Events() components.EventStore           { return cm.events }
func (cm *ComponentManager) Roles() components.RoleManager           { return cm.roles }
func (cm *ComponentManager) Metadata() components.MetadataStore      { return cm.metadata }
func (cm *ComponentManager) Tokens() components.TokenManager         { return cm.tokens }
func (cm *ComponentManager) Registry() components.AssetRegistry      { return cm.registry }
func (cm *ComponentManager) LeaseFactory() components.LeaseFactory   { return cm.factory }
func (cm *ComponentManager) Marketplace() components.Marketplace     { return cm.marketplace }
func (cm *ComponentManager) CurrencyAddress() oltypes.EthAddress     { return cm.currency }
func (cm *ComponentManager) VenueAddress() oltypes.EthAddress        { return cm.venue }
