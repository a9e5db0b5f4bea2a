// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pool provides the worker pool and the bounded future queues
// that carry buffers and serialized blocks between the pipeline stages.
//
// The pool itself does not preserve submission order; ordering is
// imposed by pushing futures onto a queue in submission order and
// awaiting them in pop order.
package pool

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

const (
	// MaxQueueSize is the capacity of the pipeline queues, in futures.
	// Together with the maximum uncompressed blob size it bounds the
	// bytes held by a stalled pipeline.
	MaxQueueSize = 20

	defaultWorkers = 4
)

// Pool is a fixed set of workers executing submitted tasks.
type Pool struct {
	workers *ants.Pool
}

var (
	process     *Pool
	processOnce sync.Once
)

// Default returns the lazily initialized process-wide pool with
// min(4, GOMAXPROCS) workers.
func Default() *Pool {
	processOnce.Do(func() {
		p, err := New(min(defaultWorkers, runtime.GOMAXPROCS(0)))
		if err != nil {
			panic(fmt.Errorf("cannot initialize process pool: %w", err))
		}

		process = p
	})

	return process
}

// New creates a pool with the given number of workers.
func New(size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	workers, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &Pool{workers: workers}, nil
}

// Release stops the workers. Tasks submitted afterwards fail their
// futures immediately.
func (p *Pool) Release() {
	p.workers.Release()
}

// Future carries the eventual result of a task. A future is resolved
// exactly once; Get blocks until then and re-raises the task's error
// on the calling goroutine.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
}

// Get blocks until the future is resolved.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Resolved creates an already-resolved future. Used for end-of-stream
// sentinels and for results produced synchronously.
func Resolved[T any](value T) *Future[T] {
	f := &Future[T]{value: value, done: make(chan struct{})}
	close(f.done)

	return f
}

// Failed creates an already-failed future.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{err: err, done: make(chan struct{})}
	close(f.done)

	return f
}

// Submit schedules a task on the pool and returns the future of its
// result. A task that panics fails its future instead of taking the
// process down; a failed future never disappears silently — the
// consumer either observes it with Get or the pipeline drains it at
// teardown.
func Submit[T any](p *Pool, task func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	err := p.workers.Submit(func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("worker task panicked: %v", r)
			}
		}()

		f.value, f.err = task()
	})
	if err != nil {
		f.err = err
		close(f.done)
	}

	return f
}
