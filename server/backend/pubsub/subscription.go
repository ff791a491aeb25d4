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
// Package pubsub provides generic subscriptions used to fan out the events of
// domains to their subscribers.
package pubsub

import (
	"sync"
	gotime "time"

	"github.com/rs/xid"
)

const (
	// publishTimeout is the timeout for publishing an event.
	publishTimeout = 100 * gotime.Millisecond
)

// Subscription represents a subscription of a subscriber to events of type E.
type Subscription[E any] struct {
	id         string
	subscriber string
	mu         sync.Mutex
	closed     bool
	events     chan E
}

// NewSubscription creates a new instance of Subscription with the given buffer size.
func NewSubscription[E any](subscriber string, bufSize int) *Subscription[E] {
	return &Subscription[E]{
		id:         xid.New().String(),
		subscriber: subscriber,
		events:     make(chan E, bufSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription[E]) ID() string {
	return s.id
}

// Events returns the event channel of this subscription. The channel is
// closed when the subscription is closed.
func (s *Subscription[E]) Events() <-chan E {
	return s.events
}

// Subscriber returns the subscriber of this subscription.
func (s *Subscription[E]) Subscriber() string {
	return s.subscriber
}

// Close closes all resources of this Subscription.
func (s *Subscription[E]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Publish publishes the given event to the subscriber. It returns false if the
// subscription is closed or the subscriber did not receive the event in time.
func (s *Subscription[E]) Publish(event E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	// NOTE: a subscriber that stopped reading loses events rather than
	// blocking the publisher.
	select {
	case s.events <- event:
		return true
	case <-gotime.After(publishTimeout):
		return false
	}
}
