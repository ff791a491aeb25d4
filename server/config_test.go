/*
 * Copyright 2025 The Crema Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/server"
	"github.com/crema-team/crema/server/rpc"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, "localhost:"+strconv.Itoa(server.DefaultRPCPort), conf.RPCAddr())
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)

		assert.Equal(t, server.DefaultRPCPort, conf.RPC.Port)
		assert.Equal(t, "", conf.RPC.CertFile)
		assert.Equal(t, server.DefaultSnapshotInterval, conf.Backend.SnapshotInterval)
		assert.Nil(t, conf.Mongo)
		assert.NoError(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile("config.sample.yml")
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, server.DefaultRPCPort, conf.RPC.Port)
		assert.Equal(t, "", conf.RPC.CertFile)
		assert.Equal(t, "", conf.RPC.KeyFile)
		assert.Equal(t, server.DefaultRPCMaxConnectionAge, conf.RPC.ParseMaxConnectionAge())

		assert.Equal(t, server.DefaultProfilingPort, conf.Profiling.Port)

		assert.Equal(t, server.DefaultDomainsPath, conf.Backend.DomainsPath)
		assert.Equal(t, server.DefaultTransactionsPath, conf.Backend.TransactionsPath)
		assert.Equal(t, server.DefaultRestoreConcurrency, conf.Backend.RestoreConcurrency)
		assert.Equal(t, server.DefaultTokenDuration, conf.Backend.ParseTokenDuration())
		assert.True(t, conf.Backend.UseDefaultDataBase)
		assert.Equal(t, server.DefaultDataBaseName, conf.Backend.DefaultDataBase)

		require.NotNil(t, conf.Mongo)
		assert.Equal(t, server.DefaultMongoConnectionURI, conf.Mongo.ConnectionURI)
		assert.Equal(t, server.DefaultMongoCremaDatabase, conf.Mongo.CremaDatabase)
		assert.Equal(t, server.DefaultMongoConnectionTimeout, conf.Mongo.ParseConnectionTimeout())
		assert.Equal(t, server.DefaultMongoPingTimeout, conf.Mongo.ParsePingTimeout())
	})

	t.Run("ensure default value test", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crema.yml")
		require.NoError(t, os.WriteFile(path, []byte("RPC:\n  Port: 14004\nMongo:\n  MonitoringEnabled: true\n"), 0o600))

		conf, err := server.NewConfigFromFile(path)
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, 14004, conf.RPC.Port)
		assert.Equal(t, uint64(server.DefaultRPCMaxRequestBytes), conf.RPC.MaxRequestBytes)
		assert.Nil(t, conf.Profiling)
		assert.Equal(t, server.DefaultDomainsPath, conf.Backend.DomainsPath)
		assert.True(t, conf.Backend.UseDefaultDataBase)
		assert.Equal(t, server.DefaultMongoMonitoringSlowQueryThreshold.String(), conf.Mongo.MonitoringSlowQueryThreshold)
	})

	t.Run("invalid config test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.RPC.Port = 0
		assert.ErrorIs(t, conf.Validate(), rpc.ErrInvalidRPCPort)

		conf = server.NewConfig()
		conf.Backend.TokenDuration = "day"
		assert.Error(t, conf.Validate())
	})
}
