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

// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/backend/database"
)

// uniqueName returns a database name that does not collide across runs
// sharing the same store.
func uniqueName(prefix string) string {
	return prefix + "-" + types.NewID().String()[:8]
}

// RunCreateDataBaseInfoTest runs the CreateDataBaseInfo test for the given db.
func RunCreateDataBaseInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()
	name := uniqueName("create")

	info, err := db.CreateDataBaseInfo(ctx, name, "comment")
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)
	assert.Equal(t, "comment", info.Comment)
	assert.NoError(t, info.Validate())

	_, err = db.CreateDataBaseInfo(ctx, name, "")
	assert.ErrorIs(t, err, database.ErrDataBaseAlreadyExists)

	_, err = db.CreateDataBaseInfo(ctx, "Invalid Name", "")
	assert.Error(t, err)
}

// RunFindDataBaseInfoTest runs the FindDataBaseInfoByID and
// FindDataBaseInfoByName test for the given db.
func RunFindDataBaseInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	created, err := db.CreateDataBaseInfo(ctx, uniqueName("find"), "")
	require.NoError(t, err)

	found, err := db.FindDataBaseInfoByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))

	found, err = db.FindDataBaseInfoByName(ctx, created.Name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = db.FindDataBaseInfoByID(ctx, types.NewID())
	assert.ErrorIs(t, err, database.ErrDataBaseNotFound)
	_, err = db.FindDataBaseInfoByName(ctx, uniqueName("missing"))
	assert.ErrorIs(t, err, database.ErrDataBaseNotFound)
}

// RunEnsureDefaultDataBaseInfoTest runs the EnsureDefaultDataBaseInfo test for
// the given db.
func RunEnsureDefaultDataBaseInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()
	name := uniqueName("default")

	first, err := db.EnsureDefaultDataBaseInfo(ctx, name)
	require.NoError(t, err)
	second, err := db.EnsureDefaultDataBaseInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// the id only depends on the name
	assert.Equal(t, types.NameID("database:"+name), first.ID)
}

// RunListAndDeleteDataBaseInfoTest runs the ListDataBaseInfos and
// DeleteDataBaseInfo test for the given db.
func RunListAndDeleteDataBaseInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	a, err := db.CreateDataBaseInfo(ctx, uniqueName("list-a"), "")
	require.NoError(t, err)
	b, err := db.CreateDataBaseInfo(ctx, uniqueName("list-b"), "")
	require.NoError(t, err)

	infos, err := db.ListDataBaseInfos(ctx)
	require.NoError(t, err)
	names := make(map[string]bool)
	for i, info := range infos {
		names[info.Name] = true
		if i > 0 {
			assert.LessOrEqual(t, infos[i-1].Name, info.Name)
		}
	}
	assert.True(t, names[a.Name])
	assert.True(t, names[b.Name])

	require.NoError(t, db.DeleteDataBaseInfo(ctx, a.ID))
	_, err = db.FindDataBaseInfoByID(ctx, a.ID)
	assert.ErrorIs(t, err, database.ErrDataBaseNotFound)
	assert.ErrorIs(t, db.DeleteDataBaseInfo(ctx, a.ID), database.ErrDataBaseNotFound)

	// the name is free again
	_, err = db.CreateDataBaseInfo(ctx, a.Name, "")
	assert.NoError(t, err)
}
