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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/api/types/events"
	"github.com/crema-team/crema/pkg/dataset"
	"github.com/crema-team/crema/pkg/errors"
	"github.com/crema-team/crema/server/auth"
	"github.com/crema-team/crema/server/domain"
)

var (
	admin   = auth.New("admin", "Administrator", types.AuthorityAdmin, time.Time{})
	member1 = auth.New("member1", "Member 1", types.AuthorityMember, time.Time{})
	member2 = auth.New("member2", "Member 2", types.AuthorityMember, time.Time{})
	guest   = auth.New("guest", "Guest", types.AuthorityGuest, time.Time{})
)

type recorder struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (r *recorder) Publish(event events.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) ofType(eventType events.DomainEventType) []events.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []events.DomainEvent
	for _, e := range r.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// cancelingPublisher cancels the context of the running call when it sees an
// event of the given type, then holds the dispatcher for a while.
type cancelingPublisher struct {
	eventType events.DomainEventType
	cancel    context.CancelFunc
}

func (p *cancelingPublisher) Publish(event events.DomainEvent) {
	if event.Type != p.eventType {
		return
	}
	p.cancel()
	time.Sleep(50 * time.Millisecond)
}

func newItemDataSet(t *testing.T) *dataset.DataSet {
	table, err := dataset.NewTable("Item",
		&dataset.Column{Name: "ID", DataType: dataset.TypeInt, IsKey: true, AutoIncrement: true},
		&dataset.Column{Name: "Name", DataType: dataset.TypeString},
		&dataset.Column{Name: "A", DataType: dataset.TypeInt, DefaultValue: 0},
	)
	require.NoError(t, err)

	ds := dataset.New("Default")
	require.NoError(t, ds.AddTable(table))
	return ds
}

func newDomainInfo(itemPath string) types.DomainInfo {
	return types.DomainInfo{
		ID:         types.NewID(),
		DataBaseID: types.NewID(),
		ItemPath:   itemPath,
		CreatedBy:  "admin",
	}
}

func newContentDomain(t *testing.T, options domain.LogOptions) (*domain.Domain, *recorder) {
	ctx := context.Background()
	d, err := domain.NewTableContentDomain(newDomainInfo("/Default/tables/Item"), newItemDataSet(t))
	require.NoError(t, err)
	require.NoError(t, d.Initialize(ctx, options))

	r := &recorder{}
	require.NoError(t, d.SetPublisher(ctx, r))
	t.Cleanup(func() {
		assert.NoError(t, d.Close(ctx))
	})
	return d, r
}

func countFiles(t *testing.T, dir, pattern string) int {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	return len(matches)
}

func TestDomainRows(t *testing.T) {
	ctx := context.Background()

	t.Run("new, set and remove row test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, r := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		added, err := d.NewRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Fields:    map[string]interface{}{"Name": "a", "A": 1},
		}}, nil)
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.Equal(t, []interface{}{int64(1)}, added[0].Keys)

		changed, err := d.SetRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{1},
			Fields:    map[string]interface{}{"A": 2},
		}}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), changed[0].Fields["A"])

		_, err = d.RemoveRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{1},
		}}, nil)
		require.NoError(t, err)

		assert.Equal(t, 3, countFiles(t, dir, "*.entry"))
		assert.Len(t, r.ofType(events.DomainRowAdded), 1)
		assert.Len(t, r.ofType(events.DomainRowChanged), 1)
		assert.Len(t, r.ofType(events.DomainRowRemoved), 1)

		data, err := d.Delete(ctx, false)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))

		state, err := d.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.DomainStateDisposed, state)

		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		assert.ErrorIs(t, err, domain.ErrDomainNotActive)
	})

	t.Run("failed mutation is neither applied nor logged test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, r := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		_, err = d.NewRow(ctx, member1, []types.DomainRowInfo{
			{TableName: "Item", Fields: map[string]interface{}{"ID": 1, "Name": "a"}},
			{TableName: "Item", Fields: map[string]interface{}{"ID": 1, "Name": "b"}},
		}, nil)
		assert.ErrorIs(t, err, dataset.ErrDuplicateKey)

		rows, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Equal(t, 0, countFiles(t, dir, "*.entry"))
		assert.Empty(t, r.ofType(events.DomainRowAdded))

		_, err = d.SetRow(ctx, member1, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{7},
			Fields:    map[string]interface{}{"A": 1},
		}}, nil)
		assert.ErrorIs(t, err, dataset.ErrRowNotFound)

		_, err = d.NewRow(ctx, member1, nil, nil)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
		assert.Equal(t, 0, countFiles(t, dir, "*.entry"))
	})

	t.Run("canceled after commit reports success test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)
		dir := options.Dir(d.Info())

		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		require.NoError(t, d.SetPublisher(ctx, &cancelingPublisher{
			eventType: events.DomainRowAdded,
			cancel:    cancel,
		}))

		added, err := d.NewRow(callCtx, member1, []types.DomainRowInfo{
			{TableName: "Item", Fields: map[string]interface{}{"Name": "a"}},
		}, nil)
		require.NoError(t, err)
		assert.Len(t, added, 1)

		rows, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, 1, countFiles(t, dir, "*.entry"))
	})

	t.Run("concurrent new row test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)

		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, a := range []*auth.Authentication{member1, member2} {
			wg.Add(1)
			go func(a *auth.Authentication) {
				defer wg.Done()
				_, err := d.NewRow(ctx, a, []types.DomainRowInfo{{
					TableName: "Item",
					Fields:    map[string]interface{}{"Name": a.UserID()},
				}}, nil)
				assert.NoError(t, err)
			}(a)
		}
		wg.Wait()

		rows, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []interface{}{int64(1)}, rows[0].Keys)
		assert.Equal(t, []interface{}{int64(2)}, rows[1].Keys)
		assert.Equal(t, 2, countFiles(t, options.Dir(d.Info()), "*.entry"))
	})

	t.Run("clear rows test", func(t *testing.T) {
		d, r := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{
			{TableName: "Item", Fields: map[string]interface{}{"Name": "a"}},
			{TableName: "Item", Fields: map[string]interface{}{"Name": "b"}},
		}, nil)
		require.NoError(t, err)

		removed, err := d.RemoveRow(ctx, admin, []types.DomainRowInfo{types.ClearRowInfo("Item")}, nil)
		require.NoError(t, err)
		assert.True(t, removed[0].IsClearKey())
		assert.True(t, r.ofType(events.DomainRowRemoved)[0].Rows[0].IsClearKey())

		rows, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("signature test", func(t *testing.T) {
		d, _ := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		signature := types.SignatureDate{
			ID:       "admin",
			DateTime: time.Date(2025, 4, 1, 9, 0, 0, 123456789, time.UTC),
		}
		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Fields:    map[string]interface{}{"Name": "a"},
		}}, types.FixedSignatureDateProvider(signature))
		require.NoError(t, err)

		meta, err := d.MetaData(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, "admin", meta.ModificationInfo.ID)
		assert.Equal(t, signature.DateTime.Truncate(time.Millisecond), meta.ModificationInfo.DateTime)
		assert.Equal(t, types.DomainStateActive, meta.State)
		assert.Equal(t, "admin", meta.Owner)
		assert.NotEmpty(t, meta.Data)

		ds, err := dataset.UnmarshalCompressed(meta.Data)
		require.NoError(t, err)
		table, err := ds.Table("Item")
		require.NoError(t, err)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("property of table content test", func(t *testing.T) {
		d, _ := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		err = d.SetProperty(ctx, admin, domain.PropertyComment, "items", nil)
		assert.ErrorIs(t, err, domain.ErrNotSupported)
	})
}

func TestDomainUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("ownership test", func(t *testing.T) {
		d, r := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})

		_, err := d.Enter(ctx, guest, types.DomainAccessTypeReadOnly)
		require.NoError(t, err)
		owner, err := d.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", owner)

		_, err = d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		owner, err = d.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "member1", owner)

		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		assert.ErrorIs(t, err, domain.ErrUserAlreadyEntered)

		require.NoError(t, d.Leave(ctx, member1))
		owner, err = d.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "member2", owner)

		require.NoError(t, d.Leave(ctx, member2))
		owner, err = d.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", owner)

		users, err := d.Users(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "guest", users[0].UserID)

		changes := r.ofType(events.DomainOwnerChanged)
		require.Len(t, changes, 3)
		assert.Equal(t, "member1", changes[0].Owner)
		assert.Equal(t, "member2", changes[1].Owner)
		assert.Equal(t, "", changes[2].Owner)
	})

	t.Run("set owner test", func(t *testing.T) {
		d, _ := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, guest, types.DomainAccessTypeReadOnly)
		require.NoError(t, err)

		assert.ErrorIs(t, d.SetOwner(ctx, member2, "member2"), domain.ErrNotOwner)
		assert.ErrorIs(t, d.SetOwner(ctx, member1, "guest"), domain.ErrInvalidOwner)
		require.NoError(t, d.SetOwner(ctx, member1, "member2"))

		users, err := d.Users(ctx)
		require.NoError(t, err)
		assert.False(t, users[0].IsOwner)
		assert.True(t, users[1].IsOwner)
	})

	t.Run("kick test", func(t *testing.T) {
		d, r := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		u, err := d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		_, err = d.Kick(ctx, member2, "member1", "")
		assert.ErrorIs(t, err, domain.ErrNotOwner)
		_, err = d.Kick(ctx, admin, "admin", "")
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)

		info, err := d.Kick(ctx, admin, "member2", "bye")
		require.NoError(t, err)
		assert.Equal(t, "member2", info.UserID)

		_, err = u.NewRow(ctx, []types.DomainRowInfo{{TableName: "Item"}})
		assert.ErrorIs(t, err, domain.ErrUserKicked)
		assert.Equal(t, "bye", errors.Metadata(err)["comment"])

		users, err := d.Users(ctx)
		require.NoError(t, err)
		for _, user := range users {
			assert.NotEqual(t, "member2", user.UserID)
		}

		removed := r.ofType(events.DomainUserRemoved)
		require.Len(t, removed, 1)
		assert.Equal(t, types.RemoveReasonKicked, removed[0].RemoveInfo.Reason)
		assert.Equal(t, "bye", removed[0].RemoveInfo.Comment)

		// the owner can be kicked by an administrator
		_, err = d.Kick(ctx, admin, "member1", "")
		require.NoError(t, err)
		owner, err := d.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", owner)

		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
	})

	t.Run("access test", func(t *testing.T) {
		d, _ := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})

		_, err := d.Enter(ctx, guest, types.DomainAccessTypeReadWrite)
		assert.ErrorIs(t, err, domain.ErrReadOnlyAccess)
		_, err = d.Enter(ctx, guest, types.DomainAccessType("owner"))
		assert.ErrorIs(t, err, domain.ErrInvalidAccessType)

		_, err = d.Enter(ctx, member1, types.DomainAccessTypeReadOnly)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, member1, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		assert.ErrorIs(t, err, domain.ErrReadOnlyAccess)

		_, err = d.NewRow(ctx, member2, []types.DomainRowInfo{{TableName: "Item"}}, nil)
		assert.ErrorIs(t, err, domain.ErrUserNotEntered)
	})

	t.Run("edit lock test", func(t *testing.T) {
		d, r := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.Enter(ctx, member2, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		_, err = d.NewRow(ctx, member1, []types.DomainRowInfo{{
			TableName: "Item",
			Fields:    map[string]interface{}{"Name": "a"},
		}}, nil)
		require.NoError(t, err)

		location := types.DomainLocationInfo{TableName: "Item", Keys: []interface{}{int64(1)}, ColumnName: "Name"}
		require.NoError(t, d.BeginUserEdit(ctx, member1, location))
		assert.ErrorIs(t, d.BeginUserEdit(ctx, member2, location), domain.ErrLocationLocked)
		assert.ErrorIs(t, d.SetUserLocation(ctx, member1, types.DomainLocationInfo{}), domain.ErrInvalidOperation)

		change := []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{1},
			Fields:    map[string]interface{}{"Name": "b"},
		}}
		_, err = d.SetRow(ctx, member2, change, nil)
		assert.ErrorIs(t, err, domain.ErrLocationLocked)
		_, err = d.RemoveRow(ctx, member2, []types.DomainRowInfo{types.ClearRowInfo("Item")}, nil)
		assert.ErrorIs(t, err, domain.ErrLocationLocked)

		// the editing user itself is not locked out
		_, err = d.SetRow(ctx, member1, change, nil)
		require.NoError(t, err)

		require.NoError(t, d.EndUserEdit(ctx, member1))
		assert.ErrorIs(t, d.EndUserEdit(ctx, member1), domain.ErrNotEditing)
		_, err = d.SetRow(ctx, member2, change, nil)
		require.NoError(t, err)

		assert.Len(t, r.ofType(events.DomainUserEditBegun), 1)
		assert.Len(t, r.ofType(events.DomainUserEditEnded), 1)
	})

	t.Run("detach and attach test", func(t *testing.T) {
		d, r := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		u, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		require.NoError(t, d.Detach(ctx, member1, member2))
		info, err := u.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.DomainUserStateOffline, info.State)
		assert.True(t, info.IsOwner)

		_, err = u.NewRow(ctx, []types.DomainRowInfo{{TableName: "Item"}})
		assert.ErrorIs(t, err, domain.ErrUserNotEntered)

		require.NoError(t, d.Attach(ctx, member1))
		_, err = u.NewRow(ctx, []types.DomainRowInfo{{TableName: "Item"}})
		require.NoError(t, err)
		assert.Len(t, r.ofType(events.DomainUserStateChanged), 2)
	})

	t.Run("expired authentication test", func(t *testing.T) {
		options := domain.LogOptions{Root: t.TempDir()}
		d, _ := newContentDomain(t, options)

		now := time.Now()
		clock := func() time.Time { return now }
		expiring := auth.New("member3", "Member 3", types.AuthorityMember, now.Add(time.Hour), auth.WithClock(clock))
		_, err := d.Enter(ctx, expiring, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)

		now = now.Add(2 * time.Hour)
		_, err = d.NewRow(ctx, expiring, []types.DomainRowInfo{{
			TableName: "Item",
			Fields:    map[string]interface{}{"Name": "a"},
		}}, nil)
		assert.ErrorIs(t, err, auth.ErrAuthenticationExpired)
		assert.Equal(t, 0, countFiles(t, options.Dir(d.Info()), "*.entry"))
	})

	t.Run("delete permission test", func(t *testing.T) {
		d, _ := newContentDomain(t, domain.LogOptions{Root: t.TempDir()})
		assert.NoError(t, d.CheckDelete(ctx, member2))
		assert.ErrorIs(t, d.CheckDelete(ctx, guest), domain.ErrNotOwner)

		_, err := d.Enter(ctx, member1, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		assert.NoError(t, d.CheckDelete(ctx, member1))
		assert.NoError(t, d.CheckDelete(ctx, admin))
		assert.ErrorIs(t, d.CheckDelete(ctx, member2), domain.ErrNotOwner)
	})
}

func TestTemplateDomain(t *testing.T) {
	ctx := context.Background()

	newTemplateDomain := func(t *testing.T, isNew bool) *domain.Domain {
		template, err := dataset.NewTableTemplate("Item", isNew,
			&dataset.Column{Name: "ID", DataType: dataset.TypeInt, IsKey: true},
		)
		require.NoError(t, err)
		d, err := domain.NewTableTemplateDomain(newDomainInfo("/Default/templates/Item"), template)
		require.NoError(t, err)
		require.NoError(t, d.Initialize(ctx, domain.LogOptions{Root: t.TempDir()}))
		t.Cleanup(func() {
			assert.NoError(t, d.Close(ctx))
		})

		_, err = d.Enter(ctx, admin, types.DomainAccessTypeReadWrite)
		require.NoError(t, err)
		return d
	}

	t.Run("column rows test", func(t *testing.T) {
		d := newTemplateDomain(t, true)
		assert.Equal(t, "templates", d.Info().ItemType)

		added, err := d.NewRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Fields: map[string]interface{}{
				dataset.ColumnFieldName:     "Name",
				dataset.ColumnFieldDataType: "string",
			},
		}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"Name"}, added[0].Keys)

		_, err = d.SetRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Item",
			Keys:      []interface{}{"Name"},
			Fields:    map[string]interface{}{dataset.ColumnFieldComment: "display name"},
		}}, nil)
		require.NoError(t, err)

		_, err = d.NewRow(ctx, admin, []types.DomainRowInfo{{
			TableName: "Other",
			Fields:    map[string]interface{}{dataset.ColumnFieldName: "X"},
		}}, nil)
		assert.ErrorIs(t, err, domain.ErrTableMismatch)

		rows, err := d.Rows(ctx, "Item")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "display name", rows[1].Fields[dataset.ColumnFieldComment])
	})

	t.Run("properties test", func(t *testing.T) {
		d := newTemplateDomain(t, true)
		r := &recorder{}
		require.NoError(t, d.SetPublisher(ctx, r))

		require.NoError(t, d.SetProperty(ctx, admin, domain.PropertyComment, "items", nil))
		require.NoError(t, d.SetProperty(ctx, admin, domain.PropertyTableName, "Goods", nil))
		assert.ErrorIs(t, d.SetProperty(ctx, admin, domain.PropertyTags, 1, nil), domain.ErrInvalidPropertyValue)
		assert.ErrorIs(t, d.SetProperty(ctx, admin, "Width", "10", nil), domain.ErrNotSupported)
		err := d.SetProperty(ctx, admin, "Unknown", 5, nil)
		assert.ErrorIs(t, err, domain.ErrNotSupported)
		assert.NotErrorIs(t, err, domain.ErrInvalidPropertyValue)

		rows, err := d.Rows(ctx, "Goods")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Len(t, r.ofType(events.DomainPropertyChanged), 2)
		assert.Len(t, r.ofType(events.DomainInfoChanged), 1)
	})

	t.Run("rename saved template test", func(t *testing.T) {
		d := newTemplateDomain(t, false)
		err := d.SetProperty(ctx, admin, domain.PropertyTableName, "Goods", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
		assert.ErrorIs(t, err, dataset.ErrTemplateNotNew)

		_, err = d.Rows(ctx, "Item")
		assert.NoError(t, err)
	})
}
