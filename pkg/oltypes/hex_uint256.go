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
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/orbitlease/orbitlease/internal/msgs"
)

// HexUint256 is an unsigned integer up to 256 bits in size, serialized to the DB
// as a 64 character zero-padded hex string so that range queries sort correctly.
type HexUint256 big.Int

// Parse a string - 0x prefix, hex, or decimal
func ParseHexUint256(ctx context.Context, s string) (*HexUint256, error) {
	bi, ok := new(big.Int).SetString(s, 0)
	if !ok || bi.Sign() < 0 {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidHexInteger, s)
	}
	return (*HexUint256)(bi), nil
}

func MustParseHexUint256(s string) *HexUint256 {
	hi, err := ParseHexUint256(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return hi
}

func Uint64ToUint256(v uint64) *HexUint256 {
	return (*HexUint256)(new(big.Int).SetUint64(v))
}

func BigIntToUint256(v *big.Int) *HexUint256 {
	return (*HexUint256)(v)
}

func (hi *HexUint256) Int() *big.Int {
	return (*big.Int)(hi)
}

// Natural string representation is lower case hex with 0x prefix
func (hi *HexUint256) String() string {
	return hi.HexString0xPrefix()
}

func (hi *HexUint256) HexString0xPrefix() string {
	if hi == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%s", hi.Int().Text(16))
}

func (hi *HexUint256) IsZero() bool {
	return hi == nil || hi.Int().Sign() == 0
}

func (hi *HexUint256) Equals(other *HexUint256) bool {
	if hi == nil || other == nil {
		return hi.IsZero() && other.IsZero()
	}
	return hi.Int().Cmp(other.Int()) == 0
}

func (hi *HexUint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(hi.HexString0xPrefix())
}

func (hi *HexUint256) setJSONString(text string) error {
	pHi, err := ParseHexUint256(context.Background(), text)
	if err != nil {
		return err
	}
	*hi = *pHi
	return nil
}

// Parses with/without 0x prefix, hex or decimal, string or number
func (hi *HexUint256) UnmarshalJSON(b []byte) error {
	var iVal interface{}
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber() // a float64 JSON number decoder can (and does) lose precision
	err := decoder.Decode(&iVal)
	if err == nil {
		switch v := iVal.(type) {
		case string:
			err = hi.setJSONString(v)
		case json.Number:
			err = hi.setJSONString(v.String())
		default:
			err = i18n.NewError(context.Background(), msgs.MsgTypesScanFail, iVal, hi)
		}
	}
	return err
}

func (hi *HexUint256) Value() (driver.Value, error) {
	return string(PadHexBigUint(hi.Int(), make([]byte, 64))), nil
}

func (hi *HexUint256) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		bi, ok := new(big.Int).SetString(v, 16)
		if len(v) != 64 || !ok {
			// This type was not used to serialize to the database
			return i18n.NewError(context.Background(), msgs.MsgTypesInvalidDBUint256, v)
		}
		*hi = (HexUint256)(*bi)
		return nil
	case int64:
		*hi = (HexUint256)(*big.NewInt(v))
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, hi)
	}
}

// PadHexBigUint returns the supplied buffer, with all the bytes to the left of the integer set to '0'
func PadHexBigUint(bi *big.Int, buff []byte) []byte {
	unPadded := new(big.Int).Abs(bi).Text(16)
	boundary := len(buff) - len(unPadded)
	for i := 0; i < len(buff); i++ {
		if i >= boundary {
			buff[i] = unPadded[i-boundary]
		} else {
			buff[i] = '0'
		}
	}
	return buff
}
