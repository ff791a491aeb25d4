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

// Package backend provides the backend implementation of Crema. It owns the
// database catalog, the registry of live domains and the resources they need.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/auth"
	"github.com/crema-team/crema/server/backend/background"
	"github.com/crema-team/crema/server/backend/database"
	memdb "github.com/crema-team/crema/server/backend/database/memory"
	"github.com/crema-team/crema/server/backend/database/mongo"
	"github.com/crema-team/crema/server/domains"
	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/profiling/prometheus"
)

// Backend manages Crema's backend such as the database catalog and the
// domains of the databases.
type Backend struct {
	Config *Config

	// Background is used to manage background tasks.
	Background *background.Background
	// TokenManager issues and verifies the tokens of users.
	TokenManager *auth.TokenManager

	// Collection is the directory of live domains.
	Collection *domains.Collection
	// Domains groups the live domains by database and restores them.
	Domains *domains.Context

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database catalog instance.
	DB database.Database
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Create the background task manager and the token manager.
	bg := background.New(metrics)
	tokenManager := auth.NewTokenManager(conf.SecretKey, conf.ParseTokenDuration())

	// 02. Create the database instance. If the MongoDB configuration is given,
	// create a MongoDB instance. Otherwise, create a memory database instance.
	var db database.Database
	var err error
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	// 03. Ensure the default database.
	if conf.UseDefaultDataBase {
		if _, err := db.EnsureDefaultDataBaseInfo(context.Background(), conf.DefaultDataBase); err != nil {
			return nil, err
		}
	}

	// 04. Create the registry of live domains.
	collection, err := domains.NewCollection(metrics, conf.SubscriptionLimit)
	if err != nil {
		return nil, err
	}
	domainContext := domains.NewContext(collection, bg, domains.Options{
		DomainsPath:        conf.DomainsPath,
		TransactionsPath:   conf.TransactionsPath,
		RestoreConcurrency: conf.RestoreConcurrency,
		SnapshotInterval:   conf.SnapshotInterval,
	}, metrics)

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	logging.DefaultLogger().Infof("backend created: db: %s, domains: %s", dbInfo, conf.DomainsPath)

	return &Backend{
		Config: conf,

		Background:   bg,
		TokenManager: tokenManager,

		Collection: collection,
		Domains:    domainContext,

		Metrics: metrics,
		DB:      db,
	}, nil
}

// Start creates the categories of the databases in the catalog and restores
// their domains from the logs.
func (b *Backend) Start(ctx context.Context) error {
	infos, err := b.DB.ListDataBaseInfos(ctx)
	if err != nil {
		return err
	}

	databases := make([]types.DataBaseInfo, 0, len(infos))
	for _, info := range infos {
		databases = append(databases, *info)
	}
	if err := b.Domains.Initialize(ctx, databases); err != nil {
		return err
	}

	result, err := b.Domains.Restore(ctx)
	if err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend started: %d databases, domains %s", len(databases), result)
	return nil
}

// Shutdown closes all resources of this instance. The logs of the live
// domains are kept for the next start.
func (b *Backend) Shutdown() error {
	var errs []error

	if err := b.Domains.Close(context.Background()); err != nil {
		errs = append(errs, err)
	}
	b.Collection.Close()
	b.Background.Close()

	if err := b.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}

// CreateDataBase adds a database to the catalog and creates its category.
func (b *Backend) CreateDataBase(ctx context.Context, name, comment string) (*types.DataBaseInfo, error) {
	info, err := b.DB.CreateDataBaseInfo(ctx, name, comment)
	if err != nil {
		return nil, err
	}

	if err := b.Domains.AddDataBase(ctx, *info); err != nil {
		if derr := b.DB.DeleteDataBaseInfo(ctx, info.ID); derr != nil {
			logging.From(ctx).Warnf("delete database %s: %v", info.ID, derr)
		}
		return nil, err
	}
	return info, nil
}

// DeleteDataBase removes the domains of the given database, their logs and
// the database from the catalog.
func (b *Backend) DeleteDataBase(ctx context.Context, id types.ID) error {
	if _, err := b.DB.FindDataBaseInfoByID(ctx, id); err != nil {
		return err
	}
	if err := b.Domains.RemoveDataBase(ctx, id); err != nil && !errors.Is(err, domains.ErrDataBaseNotFound) {
		return fmt.Errorf("remove domains of %s: %w", id, err)
	}
	return b.DB.DeleteDataBaseInfo(ctx, id)
}
