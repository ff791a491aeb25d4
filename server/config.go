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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crema-team/crema/server/backend"
	"github.com/crema-team/crema/server/backend/database/mongo"
	"github.com/crema-team/crema/server/profiling"
	"github.com/crema-team/crema/server/rpc"
)

// Below are the values of the default values of Crema config.
const (
	DefaultRPCPort                  = 4004
	DefaultRPCMaxRequestBytes       = 4 * 1024 * 1024
	DefaultRPCMaxConnectionAge      = 50 * time.Second
	DefaultRPCMaxConnectionAgeGrace = 10 * time.Second

	DefaultProfilingPort = 4005

	DefaultDomainsPath        = "crema-data/domains"
	DefaultTransactionsPath   = "crema-data/transactions"
	DefaultRestoreConcurrency = 4
	DefaultSnapshotInterval   = 100
	DefaultSecretKey          = "crema-secret"
	DefaultTokenDuration      = 24 * time.Hour
	DefaultUseDefaultDataBase = true
	DefaultDataBaseName       = "default"

	DefaultMongoConnectionURI                = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout            = mongo.DefaultConnectionTimeout
	DefaultMongoPingTimeout                  = mongo.DefaultPingTimeout
	DefaultMongoCremaDatabase                = mongo.DefaultCremaDatabase
	DefaultMongoMonitoringSlowQueryThreshold = 100 * time.Millisecond
)

// Config is the configuration for creating a Crema instance.
type Config struct {
	RPC       *rpc.Config       `yaml:"RPC"`
	Profiling *profiling.Config `yaml:"Profiling"`
	Backend   *backend.Config   `yaml:"Backend"`
	Mongo     *mongo.Config     `yaml:"Mongo"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.RPC == nil {
		c.RPC = &rpc.Config{}
	}
	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.MaxRequestBytes == 0 {
		c.RPC.MaxRequestBytes = DefaultRPCMaxRequestBytes
	}
	if c.RPC.MaxConnectionAge == "" {
		c.RPC.MaxConnectionAge = DefaultRPCMaxConnectionAge.String()
	}
	if c.RPC.MaxConnectionAgeGrace == "" {
		c.RPC.MaxConnectionAgeGrace = DefaultRPCMaxConnectionAgeGrace.String()
	}

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend == nil {
		c.Backend = &backend.Config{UseDefaultDataBase: DefaultUseDefaultDataBase}
	}
	if c.Backend.DomainsPath == "" {
		c.Backend.DomainsPath = DefaultDomainsPath
	}
	if c.Backend.TransactionsPath == "" {
		c.Backend.TransactionsPath = DefaultTransactionsPath
	}
	if c.Backend.RestoreConcurrency == 0 {
		c.Backend.RestoreConcurrency = DefaultRestoreConcurrency
	}
	if c.Backend.SnapshotInterval == 0 {
		c.Backend.SnapshotInterval = DefaultSnapshotInterval
	}
	if c.Backend.SecretKey == "" {
		c.Backend.SecretKey = DefaultSecretKey
	}
	if c.Backend.TokenDuration == "" {
		c.Backend.TokenDuration = DefaultTokenDuration.String()
	}
	if c.Backend.DefaultDataBase == "" {
		c.Backend.DefaultDataBase = DefaultDataBaseName
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}

		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}

		if c.Mongo.CremaDatabase == "" {
			c.Mongo.CremaDatabase = DefaultMongoCremaDatabase
		}

		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}

		if c.Mongo.MonitoringEnabled && c.Mongo.MonitoringSlowQueryThreshold == "" {
			c.Mongo.MonitoringSlowQueryThreshold = DefaultMongoMonitoringSlowQueryThreshold.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:                  port,
			MaxRequestBytes:       DefaultRPCMaxRequestBytes,
			MaxConnectionAge:      DefaultRPCMaxConnectionAge.String(),
			MaxConnectionAgeGrace: DefaultRPCMaxConnectionAgeGrace.String(),
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{
			DomainsPath:        DefaultDomainsPath,
			TransactionsPath:   DefaultTransactionsPath,
			RestoreConcurrency: DefaultRestoreConcurrency,
			SnapshotInterval:   DefaultSnapshotInterval,
			SecretKey:          DefaultSecretKey,
			TokenDuration:      DefaultTokenDuration.String(),
			UseDefaultDataBase: DefaultUseDefaultDataBase,
			DefaultDataBase:    DefaultDataBaseName,
		},
	}
}
