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

package oltypes

import (
	"context"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/orbitlease/orbitlease/internal/msgs"
)

// HexBytes is a variable length byte array, serialized to JSON as lower case hex
// with an 0x prefix, and to the DB as a hex string (no prefix).
type HexBytes []byte

func ParseHexBytes(ctx context.Context, s string) (HexBytes, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidHex, s)
	}
	return b, nil
}

func MustParseHexBytes(s string) HexBytes {
	hb, err := ParseHexBytes(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return hb
}

func (hb HexBytes) String() string {
	return "0x" + hex.EncodeToString(hb)
}

func (hb HexBytes) HexString() string {
	return hex.EncodeToString(hb)
}

func (hb HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hb.String())
}

func (hb *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pHb, err := ParseHexBytes(context.Background(), s)
	if err != nil {
		return err
	}
	*hb = pHb
	return nil
}

func (hb HexBytes) Value() (driver.Value, error) {
	return hb.HexString(), nil
}

func (hb *HexBytes) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*hb = nil
		return nil
	case string:
		pHb, err := ParseHexBytes(context.Background(), v)
		if err != nil {
			return err
		}
		*hb = pHb
		return nil
	case []byte:
		pHb, err := ParseHexBytes(context.Background(), string(v))
		if err != nil {
			return err
		}
		*hb = pHb
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, hb)
	}
}
