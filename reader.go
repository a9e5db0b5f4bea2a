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
	"compress/bzip2"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

// Reader reads an OSM file buffer by buffer. Construction resolves the
// file header before returning; Read then yields buffers in file order
// until io.EOF.
type Reader struct {
	file   File
	driver inputDriver

	src    io.Closer // underlying file, if we opened it
	unzip  io.Closer // transport decompressor, if any
	eof    bool
	closed bool
}

// NewReader opens the named file, deriving format and compression from
// its suffixes.
func NewReader(name string) (*Reader, error) {
	file, err := ParseFile(name)
	if err != nil {
		return nil, err
	}

	src, err := os.Open(file.Name)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFrom(file, src)
	if err != nil {
		src.Close()
		return nil, err
	}

	r.src = src

	return r, nil
}

// NewReaderFrom reads from an already open stream described by file.
func NewReaderFrom(file File, src io.Reader) (*Reader, error) {
	r := &Reader{file: file}

	stream := src

	switch file.Compression {
	case CompressionGzip:
		unzip, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: bad gzip stream: %v", ErrFormat, err)
		}

		r.unzip = unzip
		stream = unzip
	case CompressionBzip2:
		stream = bzip2.NewReader(src)
	}

	driver, err := newInputDriver(file, stream)
	if err != nil {
		if r.unzip != nil {
			r.unzip.Close()
		}

		return nil, err
	}

	r.driver = driver

	return r, nil
}

// Header returns the file header. It is available as soon as the
// Reader is constructed.
func (r *Reader) Header() *model.Header {
	return r.driver.Header()
}

// Read returns the next buffer in file order. The end of the stream is
// reported as io.EOF. After an error the stream is terminal: every
// further Read reports io.EOF.
func (r *Reader) Read() (*mem.Buffer, error) {
	if r.eof {
		return nil, io.EOF
	}

	buf, err := r.driver.Read()
	if err != nil {
		r.eof = true
		return nil, err
	}

	if !buf.Valid() {
		r.eof = true
		return nil, io.EOF
	}

	return buf, nil
}

// Close terminates the pipeline, joining the framing goroutine and
// draining in-flight work. It is safe to call before end-of-stream.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	err := r.driver.Close()

	if r.unzip != nil {
		if cerr := r.unzip.Close(); err == nil {
			err = cerr
		}
	}

	if r.src != nil {
		if cerr := r.src.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
