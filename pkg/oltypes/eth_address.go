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
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/orbitlease/orbitlease/internal/msgs"
)

// EthAddress is a 20 byte Ethereum-style address, serialized to JSON as lower case
// hex with an 0x prefix, and to the DB as a 40 character hex string (no prefix).
type EthAddress [20]byte

func ParseEthAddress(ctx context.Context, s string) (*EthAddress, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil || len(b) != 20 {
		return nil, i18n.NewError(ctx, msgs.MsgTypesBadAddress, s)
	}
	var a EthAddress
	copy(a[:], b)
	return &a, nil
}

func MustEthAddress(s string) *EthAddress {
	a, err := ParseEthAddress(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return a
}

// EthAddressBytes builds an address from up to 20 bytes (zero padded on the right)
func EthAddressBytes(b []byte) *EthAddress {
	var a EthAddress
	copy(a[:], b)
	return &a
}

// EthAddressFromSigner converts an address from the firefly-signer library types
func EthAddressFromSigner(a ethtypes.Address0xHex) EthAddress {
	return EthAddress(a)
}

func (a EthAddress) SignerAddress() ethtypes.Address0xHex {
	return ethtypes.Address0xHex(a)
}

func (a EthAddress) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a EthAddress) HexString() string {
	return hex.EncodeToString(a[:])
}

// Checksummed returns the EIP-55 checksummed form of the address
func (a EthAddress) Checksummed() string {
	return ethtypes.AddressWithChecksum(a).String()
}

func (a EthAddress) IsZero() bool {
	return a == EthAddress{}
}

func (a EthAddress) Equals(other *EthAddress) bool {
	return other != nil && a == *other
}

func (a EthAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *EthAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pA, err := ParseEthAddress(context.Background(), s)
	if err != nil {
		return err
	}
	*a = *pA
	return nil
}

func (a EthAddress) Value() (driver.Value, error) {
	return a.HexString(), nil
}

func (a *EthAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		pA, err := ParseEthAddress(context.Background(), v)
		if err != nil {
			return err
		}
		*a = *pA
		return nil
	case []byte:
		if len(v) == 20 {
			copy(a[:], v)
			return nil
		}
		pA, err := ParseEthAddress(context.Background(), string(v))
		if err != nil {
			return err
		}
		*a = *pA
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, a)
	}
}
