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
package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/errors"
)

func TestDomainRowInfo(t *testing.T) {
	t.Run("clear key test", func(t *testing.T) {
		assert.True(t, types.ClearRowInfo("Item").IsClearKey())
		assert.False(t, types.DomainRowInfo{TableName: "Item", Keys: []interface{}{1}}.IsClearKey())
		assert.False(t, types.DomainRowInfo{TableName: "Item", Keys: []interface{}{types.ClearKey, 1}}.IsClearKey())
	})

	t.Run("validate test", func(t *testing.T) {
		assert.NoError(t, types.ValidateRowInfos([]types.DomainRowInfo{{TableName: "Item"}}))

		err := types.ValidateRowInfos([]types.DomainRowInfo{{TableName: "Item"}, {}})
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))

		err = types.ValidateRowInfos(nil)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
	})
}

func TestDomainInfo(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		info := types.DomainInfo{
			ID:         types.NewID(),
			DataBaseID: types.NewID(),
			ItemPath:   "/tables/Item",
			ItemType:   types.DomainTypeTableContent.ItemType(),
			DomainType: types.DomainTypeTableContent,
			CreatedAt:  time.Now(),
		}
		assert.NoError(t, info.Validate())

		info.ItemPath = "tables/Item"
		assert.True(t, errors.IsStatus(info.Validate(), errors.ErrCodeInvalidArgument))

		info.ItemPath = "/tables/Item"
		info.DomainType = "unknown"
		assert.Error(t, info.Validate())

		info.DomainType = types.DomainTypeTableTemplate
		info.DataBaseID = "db"
		assert.ErrorIs(t, info.Validate(), types.ErrInvalidID)
	})

	t.Run("signature provider test", func(t *testing.T) {
		signature := types.NewSignatureDateProvider("admin").Provide()
		assert.Equal(t, "admin", signature.ID)
		assert.False(t, signature.IsZero())

		fixed := types.SignatureDate{ID: "member", DateTime: time.Unix(10, 0)}
		assert.Equal(t, fixed, types.FixedSignatureDateProvider(fixed).Provide())
	})
}

func TestDataBaseInfo(t *testing.T) {
	info := &types.DataBaseInfo{ID: types.NewID(), Name: "default"}
	assert.NoError(t, info.Validate())

	clone := info.DeepCopy()
	clone.Name = "Not A Slug"
	assert.Equal(t, "default", info.Name)
	assert.True(t, errors.IsStatus(clone.Validate(), errors.ErrCodeInvalidArgument))
}
