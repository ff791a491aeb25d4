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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crema-team/crema/server"
	"github.com/crema-team/crema/server/backend/database/mongo"
	"github.com/crema-team/crema/server/logging"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath    string
	flagLogLevel    string
	flagLogEncoding string

	tokenDuration time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoCremaDatabase     string
	mongoPingTimeout       time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start Crema server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Backend.TokenDuration = tokenDuration.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					CremaDatabase:     mongoCremaDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetEncoding(flagLogEncoding); err != nil {
				return err
			}

			r, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := r.Start(); err != nil {
				return err
			}

			if code := handleSignal(r); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(r *server.Crema) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		// crema is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Error(err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogEncoding,
		"log-encoding",
		"console",
		"Log encoding: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().Uint64Var(
		&conf.RPC.MaxRequestBytes,
		"rpc-max-requests-bytes",
		server.DefaultRPCMaxRequestBytes,
		"Maximum client request size in bytes the server will accept.",
	)
	cmd.Flags().StringVar(
		&conf.RPC.MaxConnectionAge,
		"rpc-max-connection-age",
		server.DefaultRPCMaxConnectionAge.String(),
		"Maximum duration of connection may exist before it will be closed by sending a GoAway.",
	)
	cmd.Flags().StringVar(
		&conf.RPC.MaxConnectionAgeGrace,
		"rpc-max-connection-age-grace",
		server.DefaultRPCMaxConnectionAgeGrace.String(),
		"Additional grace period after MaxConnectionAge after which connections will be forcibly closed.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.DomainsPath,
		"domains-path",
		server.DefaultDomainsPath,
		"Directory holding the logs of the domains.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.TransactionsPath,
		"transactions-path",
		server.DefaultTransactionsPath,
		"Directory holding the backups of database transactions.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.RestoreConcurrency,
		"restore-concurrency",
		server.DefaultRestoreConcurrency,
		"Number of domain logs replayed at the same time on startup.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SnapshotInterval,
		"snapshot-interval",
		server.DefaultSnapshotInterval,
		"Number of log entries between two snapshots of a domain.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SubscriptionLimit,
		"subscription-limit",
		0,
		"Maximum number of domain event subscribers, 0 for no limit.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.SecretKey,
		"secret-key",
		server.DefaultSecretKey,
		"The secret key for signing authentication tokens.",
	)
	cmd.Flags().DurationVar(
		&tokenDuration,
		"token-duration",
		server.DefaultTokenDuration,
		"The duration of the authentication tokens.",
	)
	cmd.Flags().BoolVar(
		&conf.Backend.UseDefaultDataBase,
		"use-default-database",
		server.DefaultUseDefaultDataBase,
		"Whether to create the default database on start.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.DefaultDataBase,
		"default-database",
		server.DefaultDataBaseName,
		"The name of the default database.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI, the database catalog is kept in memory when empty",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoCremaDatabase,
		"mongo-crema-database",
		server.DefaultMongoCremaDatabase,
		"Crema's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)

	rootCmd.AddCommand(cmd)
}
