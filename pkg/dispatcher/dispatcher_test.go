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

package dispatcher_test

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/pkg/dispatcher"
)

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("invoke returns result test", func(t *testing.T) {
		d := dispatcher.New("test")
		defer d.Dispose()

		value, err := dispatcher.InvokeValue(ctx, d, func() (int, error) {
			return 42, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 42, value)

		expected := errors.New("failed")
		assert.ErrorIs(t, d.Invoke(ctx, func() error { return expected }), expected)
	})

	t.Run("fifo order test", func(t *testing.T) {
		d := dispatcher.New("fifo")
		defer d.Dispose()

		var order []int
		for i := 0; i < 100; i++ {
			i := i
			require.NoError(t, d.Post(func() {
				order = append(order, i)
			}))
		}

		length, err := dispatcher.InvokeValue(ctx, d, func() (int, error) {
			return len(order), nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 100, length)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
	})

	t.Run("serialized execution test", func(t *testing.T) {
		d := dispatcher.New("serial")
		defer d.Dispose()

		counter := 0
		var wg gosync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, d.Invoke(ctx, func() error {
					counter++
					return nil
				}))
			}()
		}
		wg.Wait()

		value, err := dispatcher.InvokeValue(ctx, d, func() (int, error) {
			return counter, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 50, value)
	})

	t.Run("disposed dispatcher test", func(t *testing.T) {
		d := dispatcher.New("disposed")
		d.Dispose()
		d.Dispose()

		assert.True(t, d.IsDisposed())
		assert.ErrorIs(t, d.Invoke(ctx, func() error { return nil }), dispatcher.ErrDispatcherDisposed)
		assert.ErrorIs(t, d.Post(func() {}), dispatcher.ErrDispatcherDisposed)
	})

	t.Run("queued tasks fail on dispose test", func(t *testing.T) {
		d := dispatcher.New("queued")

		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, d.Post(func() {
			close(started)
			<-release
		}))
		<-started

		result := make(chan error, 1)
		go func() {
			result <- d.Invoke(ctx, func() error { return nil })
		}()
		assert.Eventually(t, func() bool { return d.Len() == 1 }, time.Second, time.Millisecond)

		go func() {
			time.Sleep(10 * time.Millisecond)
			close(release)
		}()
		d.Dispose()

		assert.ErrorIs(t, <-result, dispatcher.ErrDispatcherDisposed)
	})

	t.Run("canceled context skips task test", func(t *testing.T) {
		d := dispatcher.New("canceled")
		defer d.Dispose()

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		executed := false
		err := d.Invoke(canceled, func() error {
			executed = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		// flush the queue before reading the flag on the dispatcher
		assert.NoError(t, d.Invoke(ctx, func() error {
			assert.False(t, executed)
			return nil
		}))
	})

	t.Run("cancel after start waits for result test", func(t *testing.T) {
		d := dispatcher.New("running")
		defer d.Dispose()

		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		started := make(chan struct{})
		release := make(chan struct{})
		result := make(chan error, 1)
		go func() {
			result <- d.Invoke(callCtx, func() error {
				close(started)
				<-release
				return nil
			})
		}()

		<-started
		cancel()
		select {
		case err := <-result:
			require.FailNow(t, "invoke returned before the task finished", "err: %v", err)
		case <-time.After(20 * time.Millisecond):
		}

		close(release)
		assert.NoError(t, <-result)
	})

	t.Run("cancel while queued skips task test", func(t *testing.T) {
		d := dispatcher.New("queued-cancel")
		defer d.Dispose()

		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, d.Post(func() {
			close(started)
			<-release
		}))
		<-started

		callCtx, cancel := context.WithCancel(ctx)
		executed := false
		result := make(chan error, 1)
		go func() {
			result <- d.Invoke(callCtx, func() error {
				executed = true
				return nil
			})
		}()
		assert.Eventually(t, func() bool { return d.Len() == 1 }, time.Second, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-result, context.Canceled)
		close(release)

		assert.NoError(t, d.Invoke(ctx, func() error {
			assert.False(t, executed)
			return nil
		}))
	})

	t.Run("panic is converted to error test", func(t *testing.T) {
		d := dispatcher.New("panic")
		defer d.Dispose()

		err := d.Invoke(ctx, func() error {
			panic("boom")
		})
		assert.ErrorIs(t, err, dispatcher.ErrTaskPanicked)
		assert.NoError(t, d.Invoke(ctx, func() error { return nil }))
	})
}
