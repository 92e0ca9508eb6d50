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
	"context"
	"os"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"sigs.k8s.io/yaml"
)

// ReadAndParseConfig loads the YAML (or JSON) config file into the supplied struct
func ReadAndParseConfig(ctx context.Context, filePath string, conf *Config) error {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgConfigFileMissing, filePath)
	}
	if err := yaml.Unmarshal(b, conf); err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgConfigFileParseFailed, filePath)
	}
	log.L(ctx).Debugf("Loaded configuration from %s", filePath)
	return nil
}
