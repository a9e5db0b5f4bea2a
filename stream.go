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
	"io"

	"github.com/destel/rill"

	"m4o.io/osmio/mem"
)

// Objects turns the Reader's buffer stream into a stream of object
// views, extracting from up to parallelism buffers concurrently while
// preserving file order. The views stay valid after their buffer has
// left the pipeline.
//
// Errors end the stream; inspect them with rill.ForEach or by checking
// each Try.
func (r *Reader) Objects(parallelism int) <-chan rill.Try[mem.Object] {
	if parallelism < 1 {
		parallelism = 1
	}

	buffers := make(chan rill.Try[*mem.Buffer])

	go func() {
		defer close(buffers)

		for {
			buf, err := r.Read()
			if err == io.EOF {
				return
			} else if err != nil {
				buffers <- rill.Try[*mem.Buffer]{Error: err}
				return
			}

			buffers <- rill.Try[*mem.Buffer]{Value: buf}
		}
	}()

	batches := rill.OrderedMap(buffers, parallelism, func(buf *mem.Buffer) ([]mem.Object, error) {
		objects := make([]mem.Object, 0, 256)
		for obj := range buf.Objects() {
			objects = append(objects, obj)
		}

		return objects, nil
	})

	return rill.Unbatch(batches)
}

// ApplyAll reads the whole stream and dispatches every object to the
// handlers in file order.
func (r *Reader) ApplyAll(handlers ...mem.Handler) error {
	for {
		buf, err := r.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if err := mem.Apply(buf, handlers...); err != nil {
			return err
		}
	}
}
