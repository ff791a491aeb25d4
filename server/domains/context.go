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

// Package domains provides the registry of live domains: the Collection that
// indexes them and the Context that groups them into database categories,
// restores them at startup and runs database transactions.
package domains

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/api/types/events"
	"github.com/crema-team/crema/pkg/dataset"
	"github.com/crema-team/crema/pkg/dispatcher"
	"github.com/crema-team/crema/server/backend/background"
	"github.com/crema-team/crema/server/backend/pubsub"
	"github.com/crema-team/crema/server/domain"
	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/profiling/prometheus"
)

// DefaultRestoreConcurrency is the number of logs replayed at the same time
// when no concurrency is configured.
const DefaultRestoreConcurrency = 4

// Options configures a Context.
type Options struct {
	// DomainsPath is the root of the domain logs.
	DomainsPath string

	// TransactionsPath is the root of the database transaction backups.
	TransactionsPath string

	// RestoreConcurrency is the number of logs replayed at the same time.
	RestoreConcurrency int

	// SnapshotInterval is the number of entries between two snapshots.
	SnapshotInterval int
}

func (o Options) restoreConcurrency() int {
	if o.RestoreConcurrency <= 0 {
		return DefaultRestoreConcurrency
	}
	return o.RestoreConcurrency
}

// RestoreResult counts the logs replayed by a restoration.
type RestoreResult struct {
	Succeeded int
	Failed    int
}

func (r RestoreResult) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}

// Context groups the live domains of a collection into database categories.
// It owns the logs under its DomainsPath.
type Context struct {
	dispatcher *dispatcher.Dispatcher
	collection *Collection
	background *background.Background
	options    Options
	logOptions domain.LogOptions
	metrics    *prometheus.Metrics
	log        logging.Logger

	subscriptions *pubsub.Subscriptions[events.DomainEvent]

	// The fields below are only used on the dispatcher.
	tree         *categoryTree
	initialized  bool
	restored     bool
	subscription *pubsub.Subscription[events.DomainEvent]
}

// NewContext creates a new Context of the given collection. Events of the
// collection are forwarded to the subscribers of the context on a goroutine
// of the given background.
func NewContext(
	collection *Collection,
	bg *background.Background,
	options Options,
	metrics *prometheus.Metrics,
) *Context {
	return &Context{
		dispatcher: dispatcher.New("domain-context"),
		collection: collection,
		background: bg,
		options:    options,
		logOptions: domain.LogOptions{
			Root:             options.DomainsPath,
			SnapshotInterval: options.SnapshotInterval,
			Metrics:          metrics,
		},
		metrics:       metrics,
		log:           logging.New("CTXT"),
		subscriptions: pubsub.NewSubscriptions[events.DomainEvent]("domain-context", 0),
		tree:          newCategoryTree(),
	}
}

// NewDomainInfo returns the identity of a new domain editing the given item.
func NewDomainInfo(databaseID types.ID, itemPath, createdBy string) types.DomainInfo {
	return types.DomainInfo{
		ID:         types.NewID(),
		DataBaseID: databaseID,
		ItemPath:   itemPath,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

// NewTableContentDomain creates a domain editing the rows of the given data
// set, reporting to the metrics of this context.
func (c *Context) NewTableContentDomain(info types.DomainInfo, ds *dataset.DataSet) (*domain.Domain, error) {
	return domain.NewTableContentDomain(info, ds, c.domainOptions()...)
}

// NewTableTemplateDomain creates a domain editing the columns of the given
// template, reporting to the metrics of this context.
func (c *Context) NewTableTemplateDomain(info types.DomainInfo, template *dataset.TableTemplate) (*domain.Domain, error) {
	return domain.NewTableTemplateDomain(info, template, c.domainOptions()...)
}

// Initialize creates the categories of the given databases and starts
// forwarding the events of the collection.
func (c *Context) Initialize(ctx context.Context, databases []types.DataBaseInfo) error {
	return c.dispatcher.Invoke(ctx, func() error {
		if c.initialized {
			return nil
		}

		for _, info := range databases {
			if err := c.addDataBase(info); err != nil {
				return err
			}
		}

		sub, err := c.collection.Subscribe("domain-context")
		if err != nil {
			return fmt.Errorf("subscribe collection: %w", err)
		}
		if !c.background.AttachGoroutine(func(ctx context.Context) {
			c.forward(ctx, sub)
		}, "domain-context-forward") {
			c.collection.Unsubscribe(sub.ID())
			return fmt.Errorf("forward events: %w", dispatcher.ErrDispatcherDisposed)
		}
		c.subscription = sub
		c.initialized = true
		return nil
	})
}

// Restore replays the logs of every database and registers the restored
// domains. A log that fails to restore is counted and left untouched; it does
// not fail the restoration. Restore may be called once.
func (c *Context) Restore(ctx context.Context) (RestoreResult, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (RestoreResult, error) {
		if !c.initialized {
			return RestoreResult{}, ErrNotInitialized
		}
		if c.restored {
			return RestoreResult{}, ErrAlreadyRestored
		}
		c.restored = true

		start := time.Now()
		var result RestoreResult
		for _, id := range c.dataBaseIDs() {
			r, err := c.restoreDataBase(ctx, id)
			result.Succeeded += r.Succeeded
			result.Failed += r.Failed
			if err != nil {
				return result, err
			}
		}

		if c.metrics != nil {
			c.metrics.AddDomainRestorations(result.Succeeded, result.Failed)
		}
		c.log.Infof("restored domains: %s in %s", result, time.Since(start))
		return result, nil
	})
}

// Add initializes the log of the given domain and registers it under the
// category of its database.
func (c *Context) Add(ctx context.Context, auth domain.Authentication, d *domain.Domain) error {
	return c.dispatcher.Invoke(ctx, func() error {
		if err := auth.ValidateExpired(); err != nil {
			return err
		}
		if !auth.Authority().CanWrite() {
			return fmt.Errorf("add %s by %s: %w", d, auth.UserID(), domain.ErrReadOnlyAccess)
		}
		if !c.initialized {
			return ErrNotInitialized
		}
		if err := c.checkItemPath(d.Info()); err != nil {
			return err
		}
		if _, err := c.collection.FindByItemPath(ctx, d.DataBaseID(), d.ItemPath()); err == nil {
			return fmt.Errorf("%s: %w", d, ErrDomainAlreadyExists)
		} else if !errors.Is(err, ErrDomainNotFound) {
			return err
		}

		if err := d.Initialize(ctx, c.logOptions); err != nil {
			return err
		}
		if err := c.collection.Add(ctx, d); err != nil {
			if _, derr := d.Delete(ctx, true); derr != nil {
				c.log.Warnf("delete %s: %v", d, derr)
			}
			return err
		}
		c.tree.add(d)
		return nil
	})
}

// Remove unregisters the domain of the given id and deletes its log. Unless
// canceled, the committed document is returned.
func (c *Context) Remove(ctx context.Context, id types.ID, isCanceled bool) ([]byte, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() ([]byte, error) {
		removed, err := c.collection.Remove(ctx, []types.ID{id}, isCanceled)
		if err != nil {
			return nil, err
		}
		if len(removed) == 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrDomainNotFound)
		}

		d := removed[0]
		c.tree.remove(d.Info())
		return d.Delete(ctx, isCanceled)
	})
}

// Delete removes the domain of the given id if the given user may delete it.
func (c *Context) Delete(
	ctx context.Context,
	auth domain.Authentication,
	id types.ID,
	isCanceled bool,
) ([]byte, error) {
	d, err := c.collection.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.CheckDelete(ctx, auth); err != nil {
		return nil, err
	}
	return c.Remove(ctx, id, isCanceled)
}

// DeleteDomains removes every domain of the given database with one
// DomainsDeleted event. Only administrators may do this.
func (c *Context) DeleteDomains(
	ctx context.Context,
	auth domain.Authentication,
	databaseID types.ID,
	isCanceled bool,
) (int, error) {
	if err := auth.ValidateExpired(); err != nil {
		return 0, err
	}
	if !auth.Authority().IsAdmin() {
		return 0, fmt.Errorf("delete domains of %s by %s: %w", databaseID, auth.UserID(), domain.ErrNotOwner)
	}

	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (int, error) {
		if _, ok := c.tree.databases[databaseID]; !ok {
			return 0, fmt.Errorf("%s: %w", databaseID, ErrDataBaseNotFound)
		}
		return c.removeDomains(ctx, databaseID, isCanceled)
	})
}

// AddDataBase creates the category of the given database.
func (c *Context) AddDataBase(ctx context.Context, info types.DataBaseInfo) error {
	return c.dispatcher.Invoke(ctx, func() error {
		return c.addDataBase(info)
	})
}

// RemoveDataBase removes the domains of the given database, their logs and
// its category.
func (c *Context) RemoveDataBase(ctx context.Context, databaseID types.ID) error {
	return c.dispatcher.Invoke(ctx, func() error {
		if _, ok := c.tree.databases[databaseID]; !ok {
			return fmt.Errorf("%s: %w", databaseID, ErrDataBaseNotFound)
		}
		if _, err := c.removeDomains(ctx, databaseID, true); err != nil {
			return err
		}
		delete(c.tree.databases, databaseID)

		if err := os.RemoveAll(filepath.Join(c.options.DomainsPath, databaseID.String())); err != nil {
			return fmt.Errorf("remove logs of %s: %w", databaseID, err)
		}
		return nil
	})
}

// DataBases returns the databases of this context sorted by name.
func (c *Context) DataBases(ctx context.Context) ([]types.DataBaseInfo, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() ([]types.DataBaseInfo, error) {
		infos := make([]types.DataBaseInfo, 0, len(c.tree.databases))
		for _, db := range c.tree.databases {
			infos = append(infos, db.Info())
		}
		sort.Slice(infos, func(i, j int) bool {
			return infos[i].Name < infos[j].Name
		})
		return infos, nil
	})
}

// AttachUsers brings the given users back online in every domain of the
// given database.
func (c *Context) AttachUsers(ctx context.Context, databaseID types.ID, auths ...domain.Authentication) error {
	return c.forEach(ctx, databaseID, func(d *domain.Domain) error {
		return d.Attach(ctx, auths...)
	})
}

// DetachUsers takes the given users offline in every domain of the given
// database.
func (c *Context) DetachUsers(ctx context.Context, databaseID types.ID, auths ...domain.Authentication) error {
	return c.forEach(ctx, databaseID, func(d *domain.Domain) error {
		return d.Detach(ctx, auths...)
	})
}

// Find returns the live domain of the given id.
func (c *Context) Find(ctx context.Context, id types.ID) (*domain.Domain, error) {
	return c.collection.Find(ctx, id)
}

// FindByItemPath returns the live domain of the given item of a database.
func (c *Context) FindByItemPath(ctx context.Context, databaseID types.ID, itemPath string) (*domain.Domain, error) {
	return c.collection.FindByItemPath(ctx, databaseID, itemPath)
}

// List returns the live domains of the given database, or every live domain
// if databaseID is empty.
func (c *Context) List(ctx context.Context, databaseID types.ID) ([]*domain.Domain, error) {
	return c.collection.List(ctx, databaseID)
}

// GetMetaData returns the metadata of the live domains of the given database.
func (c *Context) GetMetaData(ctx context.Context, databaseID types.ID) ([]types.DomainMetaData, error) {
	domains, err := c.collection.List(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	metas := make([]types.DomainMetaData, 0, len(domains))
	for _, d := range domains {
		meta, err := d.MetaData(ctx, false)
		if errors.Is(err, domain.ErrDomainNotActive) {
			continue
		}
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Item returns the category or domain item of the given path.
func (c *Context) Item(ctx context.Context, path string) (Item, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (Item, error) {
		item, ok := c.tree.find(path)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrItemNotFound)
		}
		return item, nil
	})
}

// Subscribe subscribes to the events of every live domain. Events delivered
// through the context carry the path of their category.
func (c *Context) Subscribe(subscriber string) (*pubsub.Subscription[events.DomainEvent], error) {
	return c.subscriptions.Subscribe(subscriber, DefaultSubscriptionBufferSize)
}

// Unsubscribe closes the subscription of the given id.
func (c *Context) Unsubscribe(id string) {
	c.subscriptions.Unsubscribe(id)
}

// Close closes every live domain, keeping their logs, and stops the context.
func (c *Context) Close(ctx context.Context) error {
	if c.dispatcher.IsDisposed() {
		return nil
	}

	err := c.dispatcher.Invoke(ctx, func() error {
		domains, err := c.collection.List(ctx, "")
		if err != nil {
			return err
		}

		var errs []error
		for _, d := range domains {
			if err := d.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", d, err))
			}
		}
		if c.subscription != nil {
			c.collection.Unsubscribe(c.subscription.ID())
			c.subscription = nil
		}
		c.tree = newCategoryTree()
		return errors.Join(errs...)
	})
	c.dispatcher.Dispose()
	c.subscriptions.Close()
	return err
}

func (c *Context) domainOptions() []domain.Option {
	if c.metrics == nil {
		return nil
	}
	return []domain.Option{domain.WithMetrics(c.metrics)}
}

func (c *Context) addDataBase(info types.DataBaseInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if _, ok := c.tree.databases[info.ID]; ok {
		return fmt.Errorf("%s: %w", info.ID, ErrDataBaseAlreadyExists)
	}
	for _, db := range c.tree.databases {
		if db.info.Name == info.Name {
			return fmt.Errorf("%s: %w", info.Name, ErrDataBaseAlreadyExists)
		}
	}
	c.tree.databases[info.ID] = newDataBaseCategory(info)
	return nil
}

func (c *Context) dataBaseIDs() []types.ID {
	ids := make([]types.ID, 0, len(c.tree.databases))
	for id := range c.tree.databases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

func (c *Context) checkItemPath(info types.DomainInfo) error {
	db, ok := c.tree.databases[info.DataBaseID]
	if !ok {
		return fmt.Errorf("%s: %w", info.DataBaseID, ErrDataBaseNotFound)
	}
	category, ok := db.Category(info.ItemType)
	if !ok || !strings.HasPrefix(info.ItemPath, category.Path()) || info.ItemPath == category.Path() {
		return fmt.Errorf("%s of %s: %w", info.ItemPath, db.Path(), ErrInvalidItemPath)
	}
	return nil
}

// restoreDataBase replays the logs of the given database and registers the
// restored domains with one DomainsCreated event.
func (c *Context) restoreDataBase(ctx context.Context, databaseID types.ID) (RestoreResult, error) {
	var result RestoreResult
	dirs, err := domain.FindLogs(c.logOptions, databaseID)
	if err != nil {
		return result, err
	}

	restored := make([]*domain.Domain, len(dirs))
	failures := make([]error, len(dirs))
	var g errgroup.Group
	g.SetLimit(c.options.restoreConcurrency())
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			restored[i], failures[i] = domain.NewRestorer(c.logOptions, dir, c.domainOptions()...).Restore(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var accepted []*domain.Domain
	for i, d := range restored {
		if failures[i] != nil {
			result.Failed++
			c.log.Warnf("restore %s: %v", dirs[i], failures[i])
			continue
		}
		if err := c.checkRestored(ctx, d, accepted); err != nil {
			result.Failed++
			c.log.Warnf("restore %s: %v", dirs[i], err)
			c.closeDomain(ctx, d)
			continue
		}
		accepted = append(accepted, d)
	}

	if err := c.collection.Add(ctx, accepted...); err != nil {
		for _, d := range accepted {
			c.closeDomain(ctx, d)
		}
		result.Failed += len(accepted)
		return result, err
	}
	for _, d := range accepted {
		c.tree.add(d)
	}
	result.Succeeded = len(accepted)
	return result, nil
}

// checkRestored reports whether a restored domain conflicts with a live
// domain or with another domain of the same batch.
func (c *Context) checkRestored(ctx context.Context, d *domain.Domain, batch []*domain.Domain) error {
	if err := c.checkItemPath(d.Info()); err != nil {
		return err
	}
	for _, other := range batch {
		if other.ID() == d.ID() || other.ItemPath() == d.ItemPath() {
			return fmt.Errorf("%s: %w", d, ErrDomainAlreadyExists)
		}
	}
	if _, err := c.collection.FindByItemPath(ctx, d.DataBaseID(), d.ItemPath()); err == nil {
		return fmt.Errorf("%s: %w", d, ErrDomainAlreadyExists)
	}
	if _, err := c.collection.Find(ctx, d.ID()); err == nil {
		return fmt.Errorf("%s: %w", d, ErrDomainAlreadyExists)
	}
	return nil
}

func (c *Context) closeDomain(ctx context.Context, d *domain.Domain) {
	if err := d.Close(ctx); err != nil {
		c.log.Warnf("close %s: %v", d, err)
	}
}

// removeDomains unregisters the domains of the given database with one event
// and deletes their logs.
func (c *Context) removeDomains(ctx context.Context, databaseID types.ID, isCanceled bool) (int, error) {
	domains, err := c.collection.List(ctx, databaseID)
	if err != nil {
		return 0, err
	}
	ids := make([]types.ID, 0, len(domains))
	for _, d := range domains {
		ids = append(ids, d.ID())
	}

	removed, err := c.collection.Remove(ctx, ids, isCanceled)
	if err != nil {
		return 0, err
	}
	for _, d := range removed {
		c.tree.remove(d.Info())
		if _, err := d.Delete(ctx, isCanceled); err != nil {
			c.log.Warnf("delete %s: %v", d, err)
		}
	}
	return len(removed), nil
}

func (c *Context) forEach(ctx context.Context, databaseID types.ID, fn func(d *domain.Domain) error) error {
	domains, err := c.collection.List(ctx, databaseID)
	if err != nil {
		return err
	}

	var errs []error
	for _, d := range domains {
		if err := fn(d); err != nil && !errors.Is(err, domain.ErrDomainNotActive) {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// forward delivers the events of the collection to the subscribers of this
// context, in order, after resolving their category path.
func (c *Context) forward(ctx context.Context, sub *pubsub.Subscription[events.DomainEvent]) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := c.dispatcher.Post(func() {
				if len(event.Domains) > 0 {
					event.CategoryPath = c.tree.categoryPath(event.Domains[0])
				}
				c.subscriptions.Publish(event)
			}); err != nil {
				return
			}
		}
	}
}
