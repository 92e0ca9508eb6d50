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

package msgs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const olPrefix = "OL01"

var registered sync.Once
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	registered.Do(func() {
		i18n.RegisterPrefix(olPrefix, "OrbitLease Protocol")
	})
	if !strings.HasPrefix(key, olPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", olPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Types (OL0100xx)
	MsgTypesInvalidHex        = ffe("OL010000", "Invalid hex: %s")
	MsgTypesInvalidHexLen     = ffe("OL010001", "Invalid length for hex bytes: expected=%d actual=%d")
	MsgTypesBadAddress        = ffe("OL010002", "Bad address (20 hex bytes required): %s")
	MsgTypesInvalidHexInteger = ffe("OL010003", "Invalid integer: %s")
	MsgTypesInvalidDBUint256  = ffe("OL010004", "Invalid DB serialized uint256: %s")
	MsgTypesScanFail          = ffe("OL010005", "Unable to scan type %T into type %T")
	MsgTypesTimeParseFail     = ffe("OL010006", "Cannot parse time as RFC3339, Unix, or UnixNano: '%s'")

	// Persistence and config (OL0101xx)
	MsgPersistenceInvalidType          = ffe("OL010100", "Invalid persistence type: %s")
	MsgPersistenceMissingDSN           = ffe("OL010101", "Missing DSN for database connection")
	MsgPersistenceInitFailed           = ffe("OL010102", "Database init failed")
	MsgPersistenceMigrationFailed      = ffe("OL010103", "Database migration failed")
	MsgPersistenceMissingMigrationDir  = ffe("OL010104", "Missing migration directory")
	MsgPersistenceErrorInDBTransaction = ffe("OL010105", "Error within database transaction: %v")
	MsgConfigFileMissing               = ffe("OL010106", "Config file not found: %s")
	MsgConfigFileParseFailed           = ffe("OL010107", "Failed to parse config file %s")
	MsgConfigMissingCurrency           = ffe("OL010111", "Settlement currency must be configured")
	MsgSequenceOverflow                = ffe("OL010112", "Sequence '%s' overflow")

	// Metadata store and roles (OL0102xx)
	MsgMetaKeyNotFound = ffe("OL010200", "No value for key %s in namespace %s", 404)
	MsgRoleUnknown     = ffe("OL010201", "Unknown role: %s")
	MsgRoleRequired    = ffe("OL010202", "Address %s does not hold required role '%s'", 403)
	MsgRoleAlreadyHeld = ffe("OL010203", "Address %s already holds role '%s'")
	MsgRoleNotHeld     = ffe("OL010204", "Address %s does not hold role '%s'")

	// Token ledger (OL0103xx)
	MsgTokenUnknown             = ffe("OL010300", "Unknown token: %s", 404)
	MsgTokenAlreadyDeployed     = ffe("OL010301", "Token already deployed at %s")
	MsgTokenSupplyZero          = ffe("OL010302", "Token total supply must be greater than 0")
	MsgTokenAmountZero          = ffe("OL010303", "Token amount must be greater than 0")
	MsgTokenInsufficientBalance = ffe("OL010304", "Insufficient balance for %s on token %s (available=%s requested=%s)", 409)
	MsgTokenTransferNotApproved = ffe("OL010305", "Transfer of %s from %s not approved for spender %s (allowance=%s)", 403)

	// Asset registry (OL0104xx)
	MsgRegistryDuplicateType = ffe("OL010400", "Asset type already exists for schema %s", 409)
	MsgRegistryUnknownType   = ffe("OL010401", "Unknown asset type: %s", 404)
	MsgRegistryNameRequired  = ffe("OL010402", "Asset type name is required")

	// Lease factory (OL0105xx)
	MsgLeaseUnknownAsset      = ffe("OL010500", "Asset %d does not exist", 404)
	MsgLeaseExpiredIntent     = ffe("OL010501", "Lease intent deadline %d has passed (now=%d)")
	MsgLeaseInvalidTimeRange  = ffe("OL010502", "Lease startTime %d must be before endTime %d")
	MsgLeaseSignatureMismatch = ffe("OL010503", "Signature for '%s' did not match: expected=%s recovered=%s", 403)
	MsgLeaseInvalidSignature  = ffe("OL010504", "Invalid signature for '%s'")
	MsgLeaseUnknown           = ffe("OL010505", "Unknown lease: %d", 404)
	MsgLeaseNotRecordHolder   = ffe("OL010506", "Address %s does not hold the record for lease %d", 403)
	MsgLeaseAttributeMismatch = ffe("OL010507", "Lease attribute keys and values must be the same length (keys=%d values=%d)")

	// Marketplace (OL0106xx)
	MsgMarketSaleUnknown       = ffe("OL010600", "Unknown sale: %d", 404)
	MsgMarketSaleInactive      = ffe("OL010601", "Sale %d is no longer active", 409)
	MsgMarketBidUnknown        = ffe("OL010602", "Unknown bid %d on %d", 404)
	MsgMarketBidInactive       = ffe("OL010603", "Bid %d on %d is no longer active", 409)
	MsgMarketNotSeller         = ffe("OL010604", "Only the seller %s may perform this action on sale %d", 403)
	MsgMarketNotBidder         = ffe("OL010605", "Only the bidder %s may cancel bid %d", 403)
	MsgMarketBidExceedsSale    = ffe("OL010606", "Bid amount %s exceeds listed amount %s")
	MsgMarketOfferUnknown      = ffe("OL010607", "Unknown lease offer: %d", 404)
	MsgMarketOfferInactive     = ffe("OL010608", "Lease offer %d is no longer active", 409)
	MsgMarketNotLessor         = ffe("OL010609", "Only the lessor %s may perform this action on offer %d", 403)
	MsgMarketWrongPaymentToken = ffe("OL010610", "Lease offer must use settlement currency %s (got %s)")
	MsgMarketBidFundsMismatch  = ffe("OL010611", "Lease bid funds must equal rent+deposit %s (got %s)")
	MsgMarketNothingToClaim    = ffe("OL010612", "No claimable revenue for %s", 404)
	MsgMarketLessorMismatch    = ffe("OL010613", "Lease offer must be posted by its lessor %s (caller=%s)", 403)

	// Component manager and events (OL0107xx)
	MsgComponentStartFailed = ffe("OL010700", "Component '%s' failed to initialize")
	MsgEventUnknownType     = ffe("OL010701", "Unknown event type: %s")
)
