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

	"m4o.io/osmio/internal/pool"
	"m4o.io/osmio/internal/xmlio"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func init() {
	registerOutputFormat(FormatXML, newXMLOutput)
}

// defaultGenerator is written into the root element when the header
// does not name a writing program.
const defaultGenerator = "osmio"

// xmlOutput is the XML write pipeline. Each buffer is a self-contained
// encode task on the pool producing a string; a single write goroutine
// pops the string futures in submission order. Header and trailer are
// pushed as already-resolved futures.
type xmlOutput struct {
	file File
	opts xmlio.EncoderOptions

	queue *pool.Queue[*pool.Future[string]]
	done  chan struct{}

	writeErr error
}

func newXMLOutput(file File, w io.Writer) (outputDriver, error) {
	out := &xmlOutput{
		file:  file,
		queue: pool.NewQueue[*pool.Future[string]](pool.MaxQueueSize),
		done:  make(chan struct{}),
	}

	go out.write(w)

	return out, nil
}

func (out *xmlOutput) write(w io.Writer) {
	defer close(out.done)

	for {
		future, ok := out.queue.Pop()
		if !ok {
			return
		}

		text, err := future.Get()
		if err != nil {
			if out.writeErr == nil {
				out.writeErr = err
			}

			continue
		}

		if out.writeErr != nil {
			continue
		}

		if _, err := io.WriteString(w, text); err != nil {
			out.writeErr = err
		}
	}
}

func (out *xmlOutput) WriteHeader(header *model.Header) error {
	out.opts = xmlio.EncoderOptions{
		AddMetadata:      out.file.IsNotFalse(OptAddMetadata),
		ChangeFormat:     out.file.IsTrue(OptXMLChangeFormat),
		WriteVisibleFlag: header.HasMultipleObjectVersions || out.file.IsTrue(OptForceVisibleFlag),
		Generator:        header.WritingProgram,
	}

	if out.opts.Generator == "" {
		out.opts.Generator = defaultGenerator
	}

	return out.queue.Push(context.Background(), pool.Resolved(xmlio.EncodeHeader(header, out.opts)))
}

func (out *xmlOutput) WriteBuffer(buf *mem.Buffer) error {
	opts := out.opts

	future := pool.Submit(pool.Default(), func() (string, error) {
		return xmlio.EncodeBuffer(buf, opts)
	})

	return out.queue.Push(context.Background(), future)
}

func (out *xmlOutput) Close() error {
	err := out.queue.Push(context.Background(), pool.Resolved(xmlio.EncodeTrailer(out.opts)))

	out.queue.Close()
	<-out.done

	if err == nil {
		err = out.writeErr
	}

	return err
}
