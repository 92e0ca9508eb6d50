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

package olconf

import (
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

type Config struct {
	DB          DBConfig          `json:"db"`
	Log         LogConfig         `json:"log"`
	Protocol    ProtocolConfig    `json:"protocol"`
	Marketplace MarketplaceConfig `json:"marketplace"`
	Genesis     GenesisConfig     `json:"genesis"`
}

type LogConfig struct {
	Level *string `json:"level"`
}

type DBConfig struct {
	Type     string         `json:"type"`
	Postgres PostgresConfig `json:"postgres"`
	SQLite   SQLiteConfig   `json:"sqlite"`
}

type PostgresConfig struct {
	SQLDBConfig `json:",inline"`
}

type SQLiteConfig struct {
	SQLDBConfig `json:",inline"`
}

type SQLDBConfig struct {
	DSN             string  `json:"dsn"`
	MaxOpenConns    *int    `json:"maxOpenConns"`
	MaxIdleConns    *int    `json:"maxIdleConns"`
	ConnMaxIdleTime *string `json:"connMaxIdleTime"`
	ConnMaxLifetime *string `json:"connMaxLifetime"`
	AutoMigrate     *bool   `json:"autoMigrate"`
	MigrationsDir   string  `json:"migrationsDir"`
	DebugQueries    bool    `json:"debugQueries"`
	StatementCache  *bool   `json:"statementCache"`
}

// ProtocolConfig pins the domain separation parameters of the lease intent
// signing scheme. Changing any of these invalidates all outstanding signatures.
type ProtocolConfig struct {
	ChainID          *int64              `json:"chainId"`
	DomainName       *string             `json:"domainName"`
	DomainVersion    *string             `json:"domainVersion"`
	AuthorityAddress *oltypes.EthAddress `json:"authorityAddress"`
}

type MarketplaceConfig struct {
	VenueAddress *oltypes.EthAddress `json:"venueAddress"`
	Currency     CurrencyConfig      `json:"currency"`
}

// CurrencyConfig describes the single settlement currency token. The token is
// deployed at first startup if it does not already exist in the ledger.
type CurrencyConfig struct {
	Name        *string             `json:"name"`
	Symbol      *string             `json:"symbol"`
	TotalSupply *oltypes.HexUint256 `json:"totalSupply"`
	Admin       *oltypes.EthAddress `json:"admin"`
	Recipient   *oltypes.EthAddress `json:"recipient"`
}

// GenesisConfig seeds the initial capability sets. Further grants are made
// through the role manager by a governance address.
type GenesisConfig struct {
	Governance []oltypes.EthAddress `json:"governance"`
	Registrars []oltypes.EthAddress `json:"registrars"`
}

var ProtocolDefaults = &ProtocolConfig{
	ChainID:       i64Ptr(1),
	DomainName:    strPtr("orbitlease"),
	DomainVersion: strPtr("1"),
}

var CurrencyDefaults = &CurrencyConfig{
	Name:   strPtr("OrbitLease Settlement Token"),
	Symbol: strPtr("OLST"),
}

func strPtr(s string) *string { return &s }

func i64Ptr(i int64) *int64 { return &i }
