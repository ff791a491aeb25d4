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

package backend

import (
	"fmt"
	"os"
	"time"

	"github.com/crema-team/crema/internal/validation"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// DomainsPath is the directory holding the logs of the domains.
	DomainsPath string `yaml:"DomainsPath"`

	// TransactionsPath is the directory holding the backups of database
	// transactions.
	TransactionsPath string `yaml:"TransactionsPath"`

	// RestoreConcurrency is the number of domain logs replayed at the same
	// time on startup.
	RestoreConcurrency int `yaml:"RestoreConcurrency"`

	// SnapshotInterval is the number of log entries between two snapshots of
	// a domain.
	SnapshotInterval int `yaml:"SnapshotInterval"`

	// SubscriptionLimit is the maximum number of domain event subscribers.
	// Zero means no limit.
	SubscriptionLimit int `yaml:"SubscriptionLimit"`

	// SecretKey is the secret key for signing authentication tokens.
	SecretKey string `yaml:"SecretKey"`

	// TokenDuration is the duration of the authentication tokens.
	TokenDuration string `yaml:"TokenDuration"`

	// UseDefaultDataBase is whether to create the default database on start.
	UseDefaultDataBase bool `yaml:"UseDefaultDataBase"`

	// DefaultDataBase is the name of the default database.
	DefaultDataBase string `yaml:"DefaultDataBase"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.DomainsPath == "" {
		return fmt.Errorf(`invalid argument "" for "--domains-path" flag`)
	}

	if c.TransactionsPath == "" {
		return fmt.Errorf(`invalid argument "" for "--transactions-path" flag`)
	}

	if c.RestoreConcurrency < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--restore-concurrency" flag`,
			c.RestoreConcurrency,
		)
	}

	if c.SnapshotInterval < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--snapshot-interval" flag`,
			c.SnapshotInterval,
		)
	}

	if _, err := time.ParseDuration(c.TokenDuration); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--token-duration" flag: %w`,
			c.TokenDuration,
			err,
		)
	}

	if c.UseDefaultDataBase {
		if err := validation.ValidateValue(c.DefaultDataBase, "required,slug,min=2,max=30"); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--default-database" flag: %w`,
				c.DefaultDataBase,
				err,
			)
		}
	}

	return nil
}

// ParseTokenDuration returns the duration of the authentication tokens.
func (c *Config) ParseTokenDuration() time.Duration {
	result, err := time.ParseDuration(c.TokenDuration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse token duration: %v\n", err)
		os.Exit(1)
	}

	return result
}
