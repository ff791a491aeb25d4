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

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/backend/database"
	"github.com/crema-team/crema/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves the
// database catalog.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	clientOptions := options.Client().ApplyURI(conf.ConnectionURI)
	if conf.MonitoringEnabled {
		var threshold time.Duration
		if conf.MonitoringSlowQueryThreshold != "" {
			var err error
			if threshold, err = time.ParseDuration(conf.MonitoringSlowQueryThreshold); err != nil {
				return nil, fmt.Errorf("parse slow query threshold: %w", err)
			}
		}

		monitor := NewQueryMonitor(&MonitorConfig{
			Enabled:            conf.MonitoringEnabled,
			SlowQueryThreshold: threshold,
		})
		clientOptions.SetMonitor(monitor.CreateCommandMonitor())
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingTimeout := conf.ParsePingTimeout()
	ctxPing, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.CremaDatabase)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.CremaDatabase)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

// EnsureDefaultDataBaseInfo creates the default database if it does not
// exist.
func (c *Client) EnsureDefaultDataBaseInfo(ctx context.Context, name string) (*types.DataBaseInfo, error) {
	candidate, err := database.NewDefaultDataBaseInfo(name)
	if err != nil {
		return nil, err
	}

	result := c.collection(ColDataBases).FindOneAndUpdate(
		ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": candidate},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	info := &types.DataBaseInfo{}
	if err := result.Decode(info); err != nil {
		return nil, fmt.Errorf("upsert default database: %w", err)
	}

	return info, nil
}

// CreateDataBaseInfo creates a new database of the given name.
func (c *Client) CreateDataBaseInfo(ctx context.Context, name, comment string) (*types.DataBaseInfo, error) {
	info, err := database.NewDataBaseInfo(name, comment)
	if err != nil {
		return nil, err
	}

	if _, err := c.collection(ColDataBases).InsertOne(ctx, info); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", name, database.ErrDataBaseAlreadyExists)
		}
		return nil, fmt.Errorf("insert database: %w", err)
	}

	return info, nil
}

// FindDataBaseInfoByID returns the database of the given id.
func (c *Client) FindDataBaseInfoByID(ctx context.Context, id types.ID) (*types.DataBaseInfo, error) {
	return c.findDataBaseInfo(ctx, bson.M{"_id": id.String()}, id.String())
}

// FindDataBaseInfoByName returns the database of the given name.
func (c *Client) FindDataBaseInfoByName(ctx context.Context, name string) (*types.DataBaseInfo, error) {
	return c.findDataBaseInfo(ctx, bson.M{"name": name}, name)
}

// ListDataBaseInfos returns every database sorted by name.
func (c *Client) ListDataBaseInfos(ctx context.Context) ([]*types.DataBaseInfo, error) {
	cursor, err := c.collection(ColDataBases).Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: int32(1)}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find databases: %w", err)
	}

	var infos []*types.DataBaseInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch databases: %w", err)
	}

	return infos, nil
}

// DeleteDataBaseInfo removes the database of the given id.
func (c *Client) DeleteDataBaseInfo(ctx context.Context, id types.ID) error {
	result, err := c.collection(ColDataBases).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrDataBaseNotFound)
	}

	return nil
}

func (c *Client) findDataBaseInfo(ctx context.Context, filter bson.M, key string) (*types.DataBaseInfo, error) {
	result := c.collection(ColDataBases).FindOne(ctx, filter)

	info := &types.DataBaseInfo{}
	if err := result.Decode(info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", key, database.ErrDataBaseNotFound)
		}
		return nil, fmt.Errorf("find database: %w", err)
	}

	return info, nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.CremaDatabase).Collection(name)
}
