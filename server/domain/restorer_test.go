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

package domain_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/dataset"
	"github.com/crema-team/crema/server/domain"
)

func restore(t *testing.T, options domain.LogOptions, dir string) *domain.Domain {
	ctx := context.Background()
	d, err := domain.NewRestorer(options, dir).Restore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close(ctx))
	})
	return d
}

func TestRestorer(t *testing.T) {
	ctx := context.Background()

	t.Run("replay entries test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{
			{TableName: "Item", Fields: map[string]interface{}{"Name": "a"}},
			{TableName: "Item", Fields: map[string]interface{}{"Name": "b", "A": 3}},
			{TableName: "Item", Fields: map[string]interface{}{"Name": "c"}},
		}, nil)
		require.NoError(t, err)
		_, err = d.SetRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{1},
			Fields:    map[string]interface{}{"ID": 10, "A": 5},
		}}, nil)
		require.NoError(t, err)
		_, err = d.RemoveRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{2},
		}}, nil)
		require.NoError(t, err)

		expected, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		expectedMeta, err := d.MetaData(ctx, false)
		require.NoError(t, err)

		first := restore(t, options, dir)
		rows, err := first.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Equal(t, expected, rows)

		meta, err := first.MetaData(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, expectedMeta.Info, meta.Info)
		assert.Equal(t, expectedMeta.ModificationInfo, meta.ModificationInfo)
		assert.Equal(t, types.DomainStateActive, meta.State)
		assert.Empty(t, meta.Users)

		// restoring again from the same log gives the same document
		second := restore(t, options, dir)
		rows, err = second.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Equal(t, expected, rows)
	})

	t.Run("restored domain continues the log test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		require.NoError(t, err)
		require.NoError(t, d.Close(ctx))

		// closing flushes a snapshot covering the entries
		assert.Equal(t, 0, countFiles(t, dir, "*.entry"))
		assert.Equal(t, 1, countFiles(t, dir, "snapshot-*.xml.gz"))

		restored := restore(t, options, dir)
		_, err = restored.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		added, err := restored.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(2)}, added[0].Keys)
		assert.Equal(t, 1, countFiles(t, dir, "*.entry"))
	})

	t.Run("snapshot interval test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir(), SnapshotInterval: 2}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
			require.NoError(t, err)
		}

		assert.Equal(t, 1, countFiles(t, dir, "*.entry"))
		assert.Equal(t, 1, countFiles(t, dir, "snapshot-*.xml.gz"))
		assert.Equal(t, 1, countFiles(t, dir, "snapshot-00000004.xml.gz"))

		restored := restore(t, options, dir)
		rows, err := restored.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Len(t, rows, 5)
	})

	t.Run("template replay test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		template, err := dataset.NewTableTemplate("Item", true,
			&dataset.Column{Name: "ID", DataType: dataset.TypeGUID, IsKey: true},
		)
		require.NoError(t, err)
		d, err := domain.NewTableTemplateDomain(newDomainInfo("/Default/templates/Item"), template)
		require.NoError(t, err)
		require.NoError(t, d.Initialize(ctx, options))
		t.Cleanup(func() {
			assert.NoError(t, d.Close(ctx))
		})

		_, err = d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Fields: map[string]interface{}{
				dataset.ColumnFieldName:         "Count",
				dataset.ColumnFieldDataType:     "int",
				dataset.ColumnFieldDefaultValue: 1,
			},
		}}, nil)
		require.NoError(t, err)
		require.NoError(t, d.SetProperty(ctx, admin, domain.PropertyTableName, "Goods", nil))
		require.NoError(t, d.SetProperty(ctx, admin, domain.PropertyTags, "server", nil))

		expected, err := d.Rows(ctx, "Goods")
		require.NoError(t, err)

		restored := restore(t, options, options.Dir(d.Info()))
		rows, err := restored.Rows(ctx, "Goods")
		require.NoError(t, err)
		assert.Equal(t, expected, rows)
		assert.Equal(t, types.DomainTypeTableTemplate, restored.Type())
	})

	t.Run("corrupted log test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		require.NoError(t, err)

		garbage := filepath.Join(dir, "00000002.entry")
		require.NoError(t, os.WriteFile(garbage, []byte("garbage"), 0o644))
		_, err = domain.NewRestorer(options, dir).Restore(ctx)
		assert.ErrorIs(t, err, domain.ErrCorruptedLog)
		_, err = os.Stat(garbage)
		assert.NoError(t, err)

		require.NoError(t, os.Remove(garbage))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "00000009.entry"), []byte("gap"), 0o644))
		_, err = domain.NewRestorer(options, dir).Restore(ctx)
		assert.ErrorIs(t, err, domain.ErrCorruptedLog)

		_, err = domain.NewRestorer(options, t.TempDir()).Restore(ctx)
		assert.ErrorIs(t, err, domain.ErrCorruptedLog)
	})

	t.Run("find logs test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)

		dirs, err := domain.FindLogs(options, d.DataBaseID())
		require.NoError(t, err)
		assert.Equal(t, []string{options.Dir(d.Info())}, dirs)

		dirs, err = domain.FindLogs(options, types.NewID())
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})

	t.Run("inspect log test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
			require.NoError(t, err)
		}

		summary, err := domain.InspectLog(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, summary.Dir)
		assert.Equal(t, d.ID(), summary.Info.ID)
		assert.Equal(t, int64(0), summary.SnapshotSeq)
		assert.Equal(t, int64(2), summary.Seq)
		assert.Equal(t, 2, summary.Entries)

		_, err = domain.InspectLog(t.TempDir())
		assert.ErrorIs(t, err, domain.ErrCorruptedLog)
	})
}
