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
	"encoding/json"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/orbitlease/orbitlease/internal/msgs"
)

// Timestamp is a UTC timestamp stored as nanoseconds since the unix epoch,
// serialized to JSON as an RFC3339Nano string.
type Timestamp int64

func TimestampNow() Timestamp {
	return Timestamp(time.Now().UnixNano())
}

func TimestampFromUnix(unixTime int64) Timestamp {
	return Timestamp(time.Unix(unixTime, 0).UnixNano())
}

func (ts Timestamp) Time() time.Time {
	return time.Unix(0, int64(ts)).UTC()
}

func (ts Timestamp) UnixNano() int64 {
	return int64(ts)
}

func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var iVal interface{}
	err := json.Unmarshal(b, &iVal)
	if err != nil {
		return err
	}
	switch v := iVal.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return i18n.NewError(context.Background(), msgs.MsgTypesTimeParseFail, v)
		}
		*ts = Timestamp(t.UnixNano())
		return nil
	case float64:
		*ts = Timestamp(int64(v))
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, iVal, ts)
	}
}

func (ts Timestamp) Value() (driver.Value, error) {
	return int64(ts), nil
}

func (ts *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*ts = Timestamp(v)
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, ts)
	}
}
