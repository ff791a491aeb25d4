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

// Package database provides the catalog of the databases hosting domains.
package database

import (
	"context"
	"time"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrDataBaseNotFound is returned when the database is not in the catalog.
	ErrDataBaseNotFound = errors.NotFound("database not found").WithCode("ErrDataBaseNotFound")

	// ErrDataBaseAlreadyExists is returned when a database of the same name
	// is already in the catalog.
	ErrDataBaseAlreadyExists = errors.AlreadyExists("database already exists").WithCode("ErrDataBaseAlreadyExists")
)

// Database represents the catalog which reads or saves the databases hosting
// domains.
type Database interface {
	// Close all resources of this database.
	Close() error

	// EnsureDefaultDataBaseInfo creates the default database if it does not
	// exist.
	EnsureDefaultDataBaseInfo(ctx context.Context, name string) (*types.DataBaseInfo, error)

	// CreateDataBaseInfo creates a new database of the given name.
	CreateDataBaseInfo(ctx context.Context, name, comment string) (*types.DataBaseInfo, error)

	// FindDataBaseInfoByID returns the database of the given id.
	FindDataBaseInfoByID(ctx context.Context, id types.ID) (*types.DataBaseInfo, error)

	// FindDataBaseInfoByName returns the database of the given name.
	FindDataBaseInfoByName(ctx context.Context, name string) (*types.DataBaseInfo, error)

	// ListDataBaseInfos returns every database sorted by name.
	ListDataBaseInfos(ctx context.Context) ([]*types.DataBaseInfo, error)

	// DeleteDataBaseInfo removes the database of the given id.
	DeleteDataBaseInfo(ctx context.Context, id types.ID) error
}

// NewDefaultDataBaseInfo returns the default database of the given name. Its
// ID is derived from the name so that the logs of its domains are found again
// by a fresh catalog.
func NewDefaultDataBaseInfo(name string) (*types.DataBaseInfo, error) {
	info, err := NewDataBaseInfo(name, "default database")
	if err != nil {
		return nil, err
	}
	info.ID = types.NameID("database:" + name)
	return info, nil
}

// NewDataBaseInfo returns a new validated database of the given name.
func NewDataBaseInfo(name, comment string) (*types.DataBaseInfo, error) {
	info := &types.DataBaseInfo{
		ID:        types.NewID(),
		Name:      name,
		Comment:   comment,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}
