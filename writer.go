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
	"os"

	"github.com/klauspost/compress/gzip"

	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

// Writer writes buffers of OSM objects to a file. The header is
// written at construction; Write hands each buffer to the encode
// pipeline; Close flushes the last partial block and joins the write
// goroutine.
type Writer struct {
	file   File
	driver outputDriver

	dst    io.Closer // underlying file, if we opened it
	zip    io.Closer // transport compressor, if any
	closed bool
}

// NewWriter creates the named file, deriving format and compression
// from its suffixes, and writes the header.
func NewWriter(name string, header *model.Header) (*Writer, error) {
	file, err := ParseFile(name)
	if err != nil {
		return nil, err
	}

	dst, err := os.Create(file.Name)
	if err != nil {
		return nil, err
	}

	w, err := NewWriterTo(file, dst, header)
	if err != nil {
		dst.Close()
		return nil, err
	}

	w.dst = dst

	return w, nil
}

// NewWriterTo writes to an already open stream described by file.
func NewWriterTo(file File, dst io.Writer, header *model.Header) (*Writer, error) {
	w := &Writer{file: file}

	stream := dst

	switch file.Compression {
	case CompressionGzip:
		zip := gzip.NewWriter(dst)
		w.zip = zip
		stream = zip
	case CompressionBzip2:
		return nil, fmt.Errorf("%w: writing bzip2 is not supported", ErrFormat)
	}

	driver, err := newOutputDriver(file, stream)
	if err != nil {
		return nil, err
	}

	if header == nil {
		header = &model.Header{}
	}

	if err := driver.WriteHeader(header); err != nil {
		return nil, err
	}

	w.driver = driver

	return w, nil
}

// Write enqueues the buffer's objects for encoding. The buffer must
// not be modified afterwards; ownership moves to the pipeline.
func (w *Writer) Write(buf *mem.Buffer) error {
	return w.driver.WriteBuffer(buf)
}

// Close flushes pending blocks, joins the writer goroutine, and closes
// whatever the Writer itself opened. Errors from in-flight encode
// tasks surface here at the latest.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	err := w.driver.Close()

	if w.zip != nil {
		if cerr := w.zip.Close(); err == nil {
			err = cerr
		}
	}

	if w.dst != nil {
		if cerr := w.dst.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
