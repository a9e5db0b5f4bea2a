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

	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/internal/pbfio"
	"m4o.io/osmio/internal/pool"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func init() {
	registerOutputFormat(FormatPBF, newPBFOutput)
}

// pbfOutput is the PBF write pipeline: buffers are routed through the
// block encoder on the caller's goroutine; each flushed block becomes a
// SerializeBlob task on the pool, and the resulting futures are written
// out in submission order by a single write goroutine.
type pbfOutput struct {
	enc      *pbfio.BlockEncoder
	compress bool
	dense    bool

	queue *pool.Queue[*pool.Future[[]byte]]
	done  chan struct{}

	writeErr error
}

func newPBFOutput(file File, w io.Writer) (outputDriver, error) {
	metadata := file.IsNotFalse(OptPbfAddMetadata) && file.IsNotFalse(OptAddMetadata)
	dense := file.IsNotFalse(OptPbfDenseNodes)

	var compress bool

	switch file.Get(OptPbfCompression) {
	case "", "zlib":
		compress = true
	case "none", "false":
		compress = false
	default:
		return nil, fmt.Errorf("%w: unsupported pbf_compression %q", ErrFormat, file.Get(OptPbfCompression))
	}

	out := &pbfOutput{
		enc:      pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: dense, AddMetadata: metadata}),
		compress: compress,
		dense:    dense,
		queue:    pool.NewQueue[*pool.Future[[]byte]](pool.MaxQueueSize),
		done:     make(chan struct{}),
	}

	go out.write(w)

	return out, nil
}

// write pops block futures in order and writes their bytes. After the
// first failure it keeps draining so no future is leaked, and the
// error surfaces from Close.
func (out *pbfOutput) write(w io.Writer) {
	defer close(out.done)

	for {
		future, ok := out.queue.Pop()
		if !ok {
			return
		}

		record, err := future.Get()
		if err != nil {
			if out.writeErr == nil {
				out.writeErr = err
			}

			continue
		}

		if out.writeErr != nil {
			continue
		}

		if _, err := w.Write(record); err != nil {
			out.writeErr = err
		}
	}
}

func (out *pbfOutput) WriteHeader(header *model.Header) error {
	payload := pbfio.EncodeHeader(header, out.dense)

	record, err := pbfio.SerializeBlob(pb.BlobTypeHeader, payload, out.compress)
	if err != nil {
		return err
	}

	return out.queue.Push(context.Background(), pool.Resolved(record))
}

func (out *pbfOutput) WriteBuffer(buf *mem.Buffer) error {
	for obj := range buf.Objects() {
		var flushed []byte

		switch obj.Type() {
		case mem.TypeNode:
			flushed = out.enc.AddNode(mem.Node{Object: obj})
		case mem.TypeWay:
			flushed = out.enc.AddWay(mem.Way{Object: obj})
		case mem.TypeRelation:
			flushed = out.enc.AddRelation(mem.Relation{Object: obj})
		case mem.TypeChangeset:
			flushed = out.enc.AddChangeset(mem.Changeset{Object: obj})
		}

		if flushed != nil {
			if err := out.submit(flushed); err != nil {
				return err
			}
		}
	}

	return nil
}

// submit schedules the serialization of one primitive block payload.
func (out *pbfOutput) submit(payload []byte) error {
	compress := out.compress

	future := pool.Submit(pool.Default(), func() ([]byte, error) {
		return pbfio.SerializeBlob(pb.BlobTypeData, payload, compress)
	})

	return out.queue.Push(context.Background(), future)
}

func (out *pbfOutput) Close() error {
	var err error

	if final := out.enc.Flush(); final != nil {
		err = out.submit(final)
	}

	out.queue.Close()
	<-out.done

	if err == nil {
		err = out.writeErr
	}

	return err
}
