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
package pubsub_test

import (
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/server/backend/pubsub"
)

func TestSubscriptions(t *testing.T) {
	t.Run("publish subscribe test", func(t *testing.T) {
		subs := pubsub.NewSubscriptions[string]("test", 0)
		subA, err := subs.Subscribe("alice", 0)
		require.NoError(t, err)
		subB, err := subs.Subscribe("bob", 1)
		require.NoError(t, err)
		assert.Equal(t, 2, subs.Len())

		var wg gosync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "created", <-subA.Events())
		}()

		assert.Equal(t, 2, subs.Publish("created"))
		wg.Wait()
		assert.Equal(t, "created", <-subB.Events())
	})

	t.Run("slow subscriber test", func(t *testing.T) {
		subs := pubsub.NewSubscriptions[int]("slow", 0)
		sub, err := subs.Subscribe("alice", 0)
		require.NoError(t, err)

		assert.Equal(t, 0, subs.Publish(1))
		assert.True(t, subs.Unsubscribe(sub.ID()))
		assert.False(t, subs.Unsubscribe(sub.ID()))

		_, ok := <-sub.Events()
		assert.False(t, ok)
	})

	t.Run("limit and close test", func(t *testing.T) {
		subs := pubsub.NewSubscriptions[int]("limited", 1)
		sub, err := subs.Subscribe("alice", 1)
		require.NoError(t, err)

		_, err = subs.Subscribe("bob", 1)
		assert.ErrorIs(t, err, pubsub.ErrTooManySubscribers)

		subs.Close()
		assert.False(t, sub.Publish(1))
		_, err = subs.Subscribe("bob", 1)
		assert.Error(t, err)
	})
}
