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

// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// EnsureDefaultDataBaseInfo creates the default database if it does not
// exist.
func (d *DB) EnsureDefaultDataBaseInfo(ctx context.Context, name string) (*types.DataBaseInfo, error) {
	info, err := d.FindDataBaseInfoByName(ctx, name)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, database.ErrDataBaseNotFound) {
		return nil, err
	}

	info, err = database.NewDefaultDataBaseInfo(name)
	if err != nil {
		return nil, err
	}
	return d.insertDataBaseInfo(info)
}

// CreateDataBaseInfo creates a new database of the given name.
func (d *DB) CreateDataBaseInfo(_ context.Context, name, comment string) (*types.DataBaseInfo, error) {
	info, err := database.NewDataBaseInfo(name, comment)
	if err != nil {
		return nil, err
	}
	return d.insertDataBaseInfo(info)
}

func (d *DB) insertDataBaseInfo(info *types.DataBaseInfo) (*types.DataBaseInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	// NOTE: memdb does not check unique indexes other than id.
	existing, err := txn.First(tblDataBases, "name", info.Name)
	if err != nil {
		return nil, fmt.Errorf("find database by name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, database.ErrDataBaseAlreadyExists)
	}
	existing, err = txn.First(tblDataBases, "id", info.ID.String())
	if err != nil {
		return nil, fmt.Errorf("find database by id: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", info.ID, database.ErrDataBaseAlreadyExists)
	}

	if err := txn.Insert(tblDataBases, info); err != nil {
		return nil, fmt.Errorf("insert database: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// FindDataBaseInfoByID returns the database of the given id.
func (d *DB) FindDataBaseInfoByID(_ context.Context, id types.ID) (*types.DataBaseInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDataBases, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find database by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrDataBaseNotFound)
	}

	return raw.(*types.DataBaseInfo).DeepCopy(), nil
}

// FindDataBaseInfoByName returns the database of the given name.
func (d *DB) FindDataBaseInfoByName(_ context.Context, name string) (*types.DataBaseInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDataBases, "name", name)
	if err != nil {
		return nil, fmt.Errorf("find database by name: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", name, database.ErrDataBaseNotFound)
	}

	return raw.(*types.DataBaseInfo).DeepCopy(), nil
}

// ListDataBaseInfos returns every database sorted by name.
func (d *DB) ListDataBaseInfos(_ context.Context) ([]*types.DataBaseInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblDataBases, "id")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	var infos []*types.DataBaseInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*types.DataBaseInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// DeleteDataBaseInfo removes the database of the given id.
func (d *DB) DeleteDataBaseInfo(_ context.Context, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDataBases, "id", id.String())
	if err != nil {
		return fmt.Errorf("find database by id: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", id, database.ErrDataBaseNotFound)
	}
	if err := txn.Delete(tblDataBases, raw); err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	txn.Commit()

	return nil
}
