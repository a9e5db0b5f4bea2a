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

package osmio

import (
	"context"
	"io"
	"log/slog"

	"m4o.io/osmio/internal/pool"
	"m4o.io/osmio/internal/xmlio"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func init() {
	registerInputFormat(FormatXML, newXMLInput)
}

// xmlInput drives the streaming XML parser on a single background
// goroutine. Parsing is inherently serial, so buffers enter the queue
// as already-resolved futures; the queue contract stays the same as
// for PBF.
type xmlInput struct {
	header *model.Header
	queue  *pool.Queue[*pool.Future[*mem.Buffer]]
	cancel context.CancelFunc
	done   chan struct{}
}

func newXMLInput(_ File, r io.Reader) (inputDriver, error) {
	ctx, cancel := context.WithCancel(context.Background())

	in := &xmlInput{
		queue:  pool.NewQueue[*pool.Future[*mem.Buffer]](pool.MaxQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	headers := make(chan *model.Header, 1)

	go func() {
		defer close(in.done)
		defer in.queue.Close()

		parser := xmlio.NewParser(
			func(h *model.Header) { headers <- h },
			func(buf *mem.Buffer) error {
				return in.queue.Push(ctx, pool.Resolved(buf))
			},
		)

		if err := parser.Parse(r); err != nil {
			if ctx.Err() == nil {
				_ = in.queue.Push(ctx, pool.Failed[*mem.Buffer](err))
			}

			return
		}

		_ = in.queue.Push(ctx, pool.Resolved[*mem.Buffer](nil))
	}()

	// the parser resolves the header before the first buffer, and on
	// failure or empty input at the latest when it returns
	in.header = <-headers

	return in, nil
}

func (in *xmlInput) Header() *model.Header {
	return in.header
}

func (in *xmlInput) Read() (*mem.Buffer, error) {
	future, ok := in.queue.Pop()
	if !ok {
		return nil, nil
	}

	return future.Get()
}

func (in *xmlInput) Close() error {
	in.cancel()

	in.queue.Drain(func(f *pool.Future[*mem.Buffer]) {
		if _, err := f.Get(); err != nil {
			slog.Debug("discarding failed parse during close", "error", err)
		}
	})

	<-in.done

	return nil
}
