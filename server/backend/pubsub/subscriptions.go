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
package pubsub

import (
	"fmt"
	"sort"
	"sync"

	"github.com/crema-team/crema/pkg/errors"
	"github.com/crema-team/crema/server/logging"
)

var (
	// ErrTooManySubscribers is returned when the limit of subscribers is reached.
	ErrTooManySubscribers = errors.ResourceExhausted("too many subscribers").WithCode("ErrTooManySubscribers")
)

// Subscriptions is a collection of Subscription[E] receiving the same events.
type Subscriptions[E any] struct {
	name  string
	limit int

	mu     sync.RWMutex
	subs   map[string]*Subscription[E]
	closed bool
}

// NewSubscriptions creates a new Subscriptions collection. A limit of zero
// means no limit.
func NewSubscriptions[E any](name string, limit int) *Subscriptions[E] {
	return &Subscriptions[E]{
		name:  name,
		limit: limit,
		subs:  make(map[string]*Subscription[E]),
	}
}

// Subscribe creates and adds a subscription of the given subscriber.
func (s *Subscriptions[E]) Subscribe(subscriber string, bufSize int) (*Subscription[E], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%s: closed: %w", s, ErrTooManySubscribers)
	}
	if s.limit > 0 && len(s.subs) >= s.limit {
		return nil, fmt.Errorf("%s: %d subscribers: %w", s, s.limit, ErrTooManySubscribers)
	}

	sub := NewSubscription[E](subscriber, bufSize)
	s.subs[sub.ID()] = sub
	return sub, nil
}

// Unsubscribe closes and removes the subscription of the given id.
func (s *Subscriptions[E]) Unsubscribe(id string) bool {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if ok {
		sub.Close()
	}
	return ok
}

// Values returns the subscriptions ordered by id.
func (s *Subscriptions[E]) Values() []*Subscription[E] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]*Subscription[E], 0, len(s.subs))
	for _, sub := range s.subs {
		values = append(values, sub)
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].ID() < values[j].ID()
	})
	return values
}

// Publish publishes the given event to every subscription and returns the
// number of subscribers that received it.
func (s *Subscriptions[E]) Publish(event E) int {
	delivered := 0
	for _, sub := range s.Values() {
		if sub.Publish(event) {
			delivered++
			continue
		}
		logging.DefaultLogger().Warnf("%s: publish to %s(%s) timeout or closed", s, sub.Subscriber(), sub.ID())
	}
	return delivered
}

// Len returns the number of subscriptions.
func (s *Subscriptions[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close closes every subscription. Subscribe fails afterwards.
func (s *Subscriptions[E]) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*Subscription[E])
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// String returns a string representation of this subscriptions collection.
func (s *Subscriptions[E]) String() string {
	return fmt.Sprintf("Subscriptions(%s)", s.name)
}
