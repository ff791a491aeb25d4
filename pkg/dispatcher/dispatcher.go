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

/*
Package dispatcher provides a single-goroutine task queue used as the mailbox of
an actor.

Every stateful component owns exactly one Dispatcher. The owner's state is only
touched by closures running on the dispatcher goroutine, so the closures never
need a lock. Other goroutines submit closures with Invoke, which blocks the
caller until the closure has run, or with Post, which returns immediately.
Closures are executed one at a time in submission order.

A closure running on a dispatcher must never Invoke the same dispatcher, since
it would wait for itself.
*/
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrDispatcherDisposed is returned when a task is submitted to, or still
	// queued on, a disposed dispatcher.
	ErrDispatcherDisposed = errors.Unavailable("dispatcher disposed").WithCode("ErrDispatcherDisposed")

	// ErrTaskPanicked is returned when a submitted task panics.
	ErrTaskPanicked = errors.Internal("task panicked").WithCode("ErrTaskPanicked")
)

// Task states. A task leaves taskQueued exactly once, either to taskRunning
// on the dispatcher goroutine or to taskCanceled in its waiting caller.
const (
	taskQueued int32 = iota
	taskRunning
	taskCanceled
)

type task struct {
	ctx   context.Context
	fn    func() error
	done  chan error
	state atomic.Int32
}

// Dispatcher is a FIFO task queue drained by one dedicated goroutine.
type Dispatcher struct {
	id   string
	name string

	mu       sync.Mutex
	queue    []*task
	notify   chan struct{}
	disposed bool

	closing chan struct{}
	stopped chan struct{}
}

// New creates a new Dispatcher and starts its goroutine.
func New(name string) *Dispatcher {
	d := &Dispatcher{
		id:      xid.New().String(),
		name:    name,
		notify:  make(chan struct{}, 1),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

// ID returns the unique id of this dispatcher.
func (d *Dispatcher) ID() string {
	return d.id
}

// Name returns the name of the owner of this dispatcher.
func (d *Dispatcher) Name() string {
	return d.name
}

// String returns a string representation of this dispatcher.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("Dispatcher(%s,%s)", d.name, d.id)
}

// Invoke submits the given function and waits until it has been executed on
// the dispatcher goroutine. If ctx is done before the function starts, the
// function is skipped and the context error is returned. Once the function
// has started, Invoke waits for it and returns its result even if ctx is
// done in the meantime.
func (d *Dispatcher) Invoke(ctx context.Context, fn func() error) error {
	t := &task{
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}
	if err := d.enqueue(t); err != nil {
		return err
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		if t.state.CompareAndSwap(taskQueued, taskCanceled) {
			// NOTE: the task stays queued and is skipped when dequeued.
			return ctx.Err()
		}
		return <-t.done
	}
}

// Post submits the given function without waiting for it to run.
func (d *Dispatcher) Post(fn func()) error {
	return d.enqueue(&task{
		ctx: context.Background(),
		fn: func() error {
			fn()
			return nil
		},
	})
}

// InvokeValue submits the given function to the dispatcher and returns its
// result once it has been executed.
func InvokeValue[T any](ctx context.Context, d *Dispatcher, fn func() (T, error)) (T, error) {
	var result T
	err := d.Invoke(ctx, func() error {
		value, err := fn()
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// Len returns the number of queued tasks.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// IsDisposed returns whether this dispatcher has been disposed.
func (d *Dispatcher) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose stops the dispatcher. The running task, if any, completes; queued
// tasks fail with ErrDispatcherDisposed. Dispose waits for the goroutine to
// exit and is safe to call more than once, but must not be called from a task
// running on this dispatcher.
func (d *Dispatcher) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		<-d.stopped
		return
	}
	d.disposed = true
	close(d.closing)
	d.mu.Unlock()

	<-d.stopped
}

func (d *Dispatcher) enqueue(t *task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return fmt.Errorf("%s: %w", d, ErrDispatcherDisposed)
	}

	d.queue = append(d.queue, t)
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return nil
}

func (d *Dispatcher) dequeue() *task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil
	}

	t := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return t
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case <-d.closing:
			d.drain()
			return
		default:
		}

		t := d.dequeue()
		if t == nil {
			select {
			case <-d.notify:
			case <-d.closing:
			}
			continue
		}

		d.execute(t)
	}
}

func (d *Dispatcher) execute(t *task) {
	if !t.state.CompareAndSwap(taskQueued, taskRunning) {
		return
	}

	var err error
	if ctxErr := t.ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else {
		err = d.call(t.fn)
	}

	if t.done != nil {
		t.done <- err
	}
}

// call runs fn, converting a panic into an error so that one failing task
// does not take down the goroutine that serves the owner.
func (d *Dispatcher) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v: %w", d, r, ErrTaskPanicked)
		}
	}()

	return fn()
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, t := range queue {
		if t.done != nil {
			t.done <- fmt.Errorf("%s: %w", d, ErrDispatcherDisposed)
		}
	}
}
