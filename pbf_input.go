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
	"fmt"
	"io"
	"log/slog"

	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/internal/pbfio"
	"m4o.io/osmio/internal/pool"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func init() {
	registerInputFormat(FormatPBF, newPBFInput)
}

// pbfInput is the PBF read pipeline: a framing goroutine reads blobs
// and submits one decode task per data blob; futures are pushed onto
// the queue in framing order, so consumers see buffers in file order
// even though decoding completes out of order.
type pbfInput struct {
	header *model.Header
	queue  *pool.Queue[*pool.Future[*mem.Buffer]]
	cancel context.CancelFunc
	done   chan struct{}
}

func newPBFInput(_ File, r io.Reader) (inputDriver, error) {
	// the header blob is decoded synchronously, before any data blob
	bh, err := pbfio.ReadBlobHeader(r)
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty PBF file", ErrFormat)
	} else if err != nil {
		return nil, err
	}

	if bh.Type != pb.BlobTypeHeader {
		return nil, fmt.Errorf("%w: first blob is %q, expected %q", ErrFormat, bh.Type, pb.BlobTypeHeader)
	}

	blob, err := pbfio.ReadBlob(r, bh)
	if err != nil {
		return nil, err
	}

	payload, err := pbfio.UnpackBlob(blob)
	if err != nil {
		return nil, err
	}

	header, err := pbfio.DecodeHeader(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	in := &pbfInput{
		header: header,
		queue:  pool.NewQueue[*pool.Future[*mem.Buffer]](pool.MaxQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go in.frame(ctx, r)

	return in, nil
}

// frame is the framing loop. Any error is terminal for the stream: the
// failed future is pushed, the queue is closed, and the loop exits.
func (in *pbfInput) frame(ctx context.Context, r io.Reader) {
	defer close(in.done)
	defer in.queue.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bh, err := pbfio.ReadBlobHeader(r)
		if err == io.EOF {
			// end-of-stream sentinel
			_ = in.queue.Push(ctx, pool.Resolved[*mem.Buffer](nil))
			return
		} else if err != nil {
			_ = in.queue.Push(ctx, pool.Failed[*mem.Buffer](err))
			return
		}

		if bh.Type != pb.BlobTypeData {
			err := fmt.Errorf("%w: unexpected blob of type %q", ErrFormat, bh.Type)
			_ = in.queue.Push(ctx, pool.Failed[*mem.Buffer](err))

			return
		}

		blob, err := pbfio.ReadBlob(r, bh)
		if err != nil {
			_ = in.queue.Push(ctx, pool.Failed[*mem.Buffer](err))
			return
		}

		future := pool.Submit(pool.Default(), func() (*mem.Buffer, error) {
			return decodeDataBlob(blob)
		})

		if err := in.queue.Push(ctx, future); err != nil {
			return
		}
	}
}

// decodeDataBlob runs on a pool worker: unpack, parse, and build one
// buffer per blob.
func decodeDataBlob(blob *pb.Blob) (*mem.Buffer, error) {
	payload, err := pbfio.UnpackBlob(blob)
	if err != nil {
		return nil, err
	}

	capacity := mem.PaddedLength(max(2*len(payload), 64*1024))

	buf, err := mem.NewBuffer(capacity)
	if err != nil {
		return nil, err
	}

	if err := pbfio.DecodeBlock(payload, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func (in *pbfInput) Header() *model.Header {
	return in.header
}

func (in *pbfInput) Read() (*mem.Buffer, error) {
	future, ok := in.queue.Pop()
	if !ok {
		return nil, nil // closed and drained: end of stream
	}

	return future.Get()
}

func (in *pbfInput) Close() error {
	in.cancel()

	// await every in-flight future so none is leaked
	in.queue.Drain(func(f *pool.Future[*mem.Buffer]) {
		if _, err := f.Get(); err != nil {
			slog.Debug("discarding failed decode during close", "error", err)
		}
	})

	<-in.done

	return nil
}
