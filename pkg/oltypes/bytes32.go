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
	"golang.org/x/crypto/sha3"
)

// Bytes32 is a 32 byte value, serialized to JSON as lower case hex with an 0x prefix,
// and to the DB as a 64 character hex string (no prefix) for indexability.
type Bytes32 [32]byte

func ParseBytes32(ctx context.Context, s string) (*Bytes32, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidHex, s)
	}
	if len(b) != 32 {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidHexLen, 32, len(b))
	}
	var b32 Bytes32
	copy(b32[:], b)
	return &b32, nil
}

func MustParseBytes32(s string) Bytes32 {
	b32, err := ParseBytes32(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return *b32
}

// Bytes32Keccak returns the keccak256 hash of the input as a Bytes32
func Bytes32Keccak(b []byte) Bytes32 {
	var b32 Bytes32
	hash := sha3.NewLegacyKeccak256()
	hash.Write(b)
	copy(b32[:], hash.Sum(nil))
	return b32
}

func (b32 Bytes32) String() string {
	return "0x" + hex.EncodeToString(b32[:])
}

func (b32 Bytes32) HexString() string {
	return hex.EncodeToString(b32[:])
}

func (b32 Bytes32) IsZero() bool {
	return b32 == Bytes32{}
}

func (b32 Bytes32) Equals(other *Bytes32) bool {
	return other != nil && b32 == *other
}

func (b32 Bytes32) MarshalJSON() ([]byte, error) {
	return json.Marshal(b32.String())
}

func (b32 *Bytes32) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pB32, err := ParseBytes32(context.Background(), s)
	if err != nil {
		return err
	}
	*b32 = *pB32
	return nil
}

func (b32 Bytes32) Value() (driver.Value, error) {
	return b32.HexString(), nil
}

func (b32 *Bytes32) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		pB32, err := ParseBytes32(context.Background(), v)
		if err != nil {
			return err
		}
		*b32 = *pB32
		return nil
	case []byte:
		if len(v) == 32 {
			copy(b32[:], v)
			return nil
		}
		pB32, err := ParseBytes32(context.Background(), string(v))
		if err != nil {
			return err
		}
		*b32 = *pB32
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, b32)
	}
}
