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
	"fmt"
	"io"

	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

// inputDriver is one format's read pipeline. Read returns the next
// buffer in file order, or the invalid sentinel at end of stream.
type inputDriver interface {
	Header() *model.Header
	Read() (*mem.Buffer, error)
	Close() error
}

// outputDriver is one format's write pipeline.
type outputDriver interface {
	WriteHeader(*model.Header) error
	WriteBuffer(*mem.Buffer) error
	Close() error
}

type inputFactory func(File, io.Reader) (inputDriver, error)

type outputFactory func(File, io.Writer) (outputDriver, error)

// The per-format registries are populated by init functions at process
// start and read-only afterwards.
var (
	inputFormats  = map[Format]inputFactory{}
	outputFormats = map[Format]outputFactory{}
)

func registerInputFormat(f Format, factory inputFactory) {
	inputFormats[f] = factory
}

func registerOutputFormat(f Format, factory outputFactory) {
	outputFormats[f] = factory
}

func newInputDriver(file File, r io.Reader) (inputDriver, error) {
	factory, ok := inputFormats[file.Format]
	if !ok {
		return nil, fmt.Errorf("%w: no input for format %s", ErrFormat, file.Format)
	}

	return factory(file, r)
}

func newOutputDriver(file File, w io.Writer) (outputDriver, error) {
	factory, ok := outputFormats[file.Format]
	if !ok {
		return nil, fmt.Errorf("%w: no output for format %s", ErrFormat, file.Format)
	}

	return factory(file, w)
}
