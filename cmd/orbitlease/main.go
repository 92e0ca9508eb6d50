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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/orbitlease/orbitlease/internal/componentmgr"
	"github.com/orbitlease/orbitlease/pkg/olconf"
	"github.com/orbitlease/orbitlease/pkg/persistence"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "orbitlease.yaml", "path to the configuration file")
	flag.Parse()

	ctx := context.Background()

	var conf olconf.Config
	if err := olconf.ReadAndParseConfig(ctx, *configPath, &conf); err != nil {
		log.L(ctx).Error(err.Error())
		return 1
	}
	if conf.Log.Level != nil {
		log.SetLevel(*conf.Log.Level)
	}

	p, err := persistence.NewPersistence(ctx, &conf.DB)
	if err != nil {
		log.L(ctx).Error(err.Error())
		return 1
	}

	cm := componentmgr.NewComponentManager(&conf, p)
	if err := cm.Start(ctx); err != nil {
		log.L(ctx).Error(err.Error())
		p.Close()
		return 1
	}
	defer cm.Stop(ctx)

	log.L(ctx).Infof("OrbitLease started")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.L(ctx).Infof("Shutting down on %s", sig)
	return 0
}
