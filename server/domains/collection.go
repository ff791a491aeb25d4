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

package domains

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/api/types/events"
	"github.com/crema-team/crema/pkg/dispatcher"
	"github.com/crema-team/crema/server/backend/pubsub"
	"github.com/crema-team/crema/server/domain"
	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/profiling/prometheus"
)

const (
	tblDomains = "domains"

	// DefaultSubscriptionBufferSize is the number of events buffered for each
	// subscriber.
	DefaultSubscriptionBufferSize = 64
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblDomains: {
			Name: tblDomains,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"database_id": {
					Name:    "database_id",
					Indexer: &memdb.StringFieldIndex{Field: "DataBaseID"},
				},
				"database_id_item_path": {
					Name:   "database_id_item_path",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "DataBaseID"},
							&memdb.StringFieldIndex{Field: "ItemPath"},
						},
					},
				},
			},
		},
	},
}

// record is the row of a live domain in the directory.
type record struct {
	ID         types.ID
	DataBaseID types.ID
	ItemPath   string
	Domain     *domain.Domain
}

// Collection is the directory of live domains. It receives the events of its
// domains and delivers them to subscribers.
type Collection struct {
	dispatcher    *dispatcher.Dispatcher
	db            *memdb.MemDB
	subscriptions *pubsub.Subscriptions[events.DomainEvent]
	metrics       *prometheus.Metrics
	log           logging.Logger
}

// NewCollection creates a new empty Collection. A subscriptionLimit of zero
// means no limit.
func NewCollection(metrics *prometheus.Metrics, subscriptionLimit int) (*Collection, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &Collection{
		dispatcher:    dispatcher.New("domain-collection"),
		db:            db,
		subscriptions: pubsub.NewSubscriptions[events.DomainEvent]("domain-collection", subscriptionLimit),
		metrics:       metrics,
		log:           logging.New("COLL"),
	}, nil
}

// Add registers the given domains and raises one DomainsCreated event for the
// batch. Nothing is registered if one of them conflicts with a live domain.
func (c *Collection) Add(ctx context.Context, domains ...*domain.Domain) error {
	if len(domains) == 0 {
		return nil
	}

	return c.dispatcher.Invoke(ctx, func() error {
		txn := c.db.Txn(true)
		defer txn.Abort()

		for _, d := range domains {
			// NOTE: memdb does not enforce unique indexes other than id.
			existing, err := txn.First(tblDomains, "id", d.ID().String())
			if err != nil {
				return fmt.Errorf("find domain by id: %w", err)
			}
			if existing == nil {
				existing, err = txn.First(tblDomains, "database_id_item_path", d.DataBaseID().String(), d.ItemPath())
				if err != nil {
					return fmt.Errorf("find domain by item path: %w", err)
				}
			}
			if existing != nil {
				return fmt.Errorf("%s: %w", d, ErrDomainAlreadyExists)
			}

			if err := txn.Insert(tblDomains, &record{
				ID:         d.ID(),
				DataBaseID: d.DataBaseID(),
				ItemPath:   d.ItemPath(),
				Domain:     d,
			}); err != nil {
				return fmt.Errorf("insert domain: %w", err)
			}
		}

		// domains publish through this collection as soon as they are findable
		for i, d := range domains {
			if err := d.SetPublisher(ctx, c); err != nil {
				for _, published := range domains[:i] {
					if cerr := published.SetPublisher(ctx, nil); cerr != nil {
						c.log.Warnf("clear publisher of %s: %v", published, cerr)
					}
				}
				return fmt.Errorf("set publisher of %s: %w", d, err)
			}
		}
		txn.Commit()

		if c.metrics != nil {
			for _, d := range domains {
				c.metrics.AddDomains(string(d.Type()), 1)
			}
		}
		c.deliver(events.DomainEvent{
			Type:       events.DomainsCreated,
			DataBaseID: domains[0].DataBaseID(),
			Domains:    infosOf(domains),
		})
		return nil
	})
}

// Remove unregisters the domains of the given ids and raises one
// DomainsDeleted event for them. The removed domains are returned; unknown ids
// are skipped.
func (c *Collection) Remove(ctx context.Context, ids []types.ID, isCanceled bool) ([]*domain.Domain, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() ([]*domain.Domain, error) {
		txn := c.db.Txn(true)
		defer txn.Abort()

		var removed []*domain.Domain
		for _, id := range ids {
			raw, err := txn.First(tblDomains, "id", id.String())
			if err != nil {
				return nil, fmt.Errorf("find domain by id: %w", err)
			}
			if raw == nil {
				continue
			}
			if err := txn.Delete(tblDomains, raw); err != nil {
				return nil, fmt.Errorf("delete domain: %w", err)
			}
			removed = append(removed, raw.(*record).Domain)
		}
		txn.Commit()

		if len(removed) == 0 {
			return nil, nil
		}
		if c.metrics != nil {
			for _, d := range removed {
				c.metrics.RemoveDomains(string(d.Type()), 1)
			}
		}

		flags := make([]bool, len(removed))
		for i := range flags {
			flags[i] = isCanceled
		}
		c.deliver(events.DomainEvent{
			Type:       events.DomainsDeleted,
			DataBaseID: removed[0].DataBaseID(),
			Domains:    infosOf(removed),
			IsCanceled: flags,
		})
		return removed, nil
	})
}

// Find returns the live domain of the given id.
func (c *Collection) Find(ctx context.Context, id types.ID) (*domain.Domain, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (*domain.Domain, error) {
		txn := c.db.Txn(false)
		defer txn.Abort()

		raw, err := txn.First(tblDomains, "id", id.String())
		if err != nil {
			return nil, fmt.Errorf("find domain by id: %w", err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%s: %w", id, ErrDomainNotFound)
		}
		return raw.(*record).Domain, nil
	})
}

// FindByItemPath returns the live domain of the given item of a database.
func (c *Collection) FindByItemPath(ctx context.Context, databaseID types.ID, itemPath string) (*domain.Domain, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (*domain.Domain, error) {
		txn := c.db.Txn(false)
		defer txn.Abort()

		raw, err := txn.First(tblDomains, "database_id_item_path", databaseID.String(), itemPath)
		if err != nil {
			return nil, fmt.Errorf("find domain by item path: %w", err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%s%s: %w", databaseID, itemPath, ErrDomainNotFound)
		}
		return raw.(*record).Domain, nil
	})
}

// List returns the live domains of the given database sorted by item path, or
// every live domain if databaseID is empty.
func (c *Collection) List(ctx context.Context, databaseID types.ID) ([]*domain.Domain, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() ([]*domain.Domain, error) {
		txn := c.db.Txn(false)
		defer txn.Abort()

		var iter memdb.ResultIterator
		var err error
		if databaseID == "" {
			iter, err = txn.Get(tblDomains, "id")
		} else {
			iter, err = txn.Get(tblDomains, "database_id", databaseID.String())
		}
		if err != nil {
			return nil, fmt.Errorf("list domains: %w", err)
		}

		var records []*record
		for raw := iter.Next(); raw != nil; raw = iter.Next() {
			records = append(records, raw.(*record))
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].DataBaseID != records[j].DataBaseID {
				return records[i].DataBaseID < records[j].DataBaseID
			}
			return records[i].ItemPath < records[j].ItemPath
		})

		domains := make([]*domain.Domain, 0, len(records))
		for _, r := range records {
			domains = append(domains, r.Domain)
		}
		return domains, nil
	})
}

// Publish delivers an event raised by a domain. It does not wait for the
// delivery.
func (c *Collection) Publish(event events.DomainEvent) {
	if err := c.dispatcher.Post(func() {
		c.deliver(event)
	}); err != nil {
		c.log.Debugf("drop %s of %s: %v", event.Type, event.DomainID(), err)
	}
}

// Subscribe subscribes to the events of every live domain.
func (c *Collection) Subscribe(subscriber string) (*pubsub.Subscription[events.DomainEvent], error) {
	return c.subscriptions.Subscribe(subscriber, DefaultSubscriptionBufferSize)
}

// Unsubscribe closes the subscription of the given id.
func (c *Collection) Unsubscribe(id string) {
	c.subscriptions.Unsubscribe(id)
}

// Close closes the subscriptions and stops the dispatcher. Live domains are
// not disposed.
func (c *Collection) Close() {
	c.dispatcher.Dispose()
	c.subscriptions.Close()
}

func (c *Collection) deliver(event events.DomainEvent) {
	if c.metrics != nil {
		c.metrics.AddDomainEvents(string(event.Type))
	}
	c.subscriptions.Publish(event)
}

func infosOf(domains []*domain.Domain) []types.DomainInfo {
	infos := make([]types.DomainInfo, 0, len(domains))
	for _, d := range domains {
		infos = append(infos, d.Info())
	}
	return infos
}
