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

package pb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Blob type strings of the outer framing.
const (
	BlobTypeHeader = "OSMHeader"
	BlobTypeData   = "OSMData"
)

// ErrUnknownCompression is returned when a blob carries data compressed
// with an algorithm this package cannot name.
var ErrUnknownCompression = errors.New("unknown blob compression type")

// BlobHeader is the first message of every framing record: the blob
// type, optional index data, and the size of the following Blob.
type BlobHeader struct {
	Type      string
	IndexData []byte
	Datasize  int32
}

func (m *BlobHeader) Marshal() []byte {
	b := appendStringField(nil, 1, m.Type)

	if m.IndexData != nil {
		b = appendBytesField(b, 2, m.IndexData)
	}

	b = appendVarintField(b, 3, uint64(uint32(m.Datasize)))

	return b
}

func (m *BlobHeader) Unmarshal(data []byte) error {
	*m = BlobHeader{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.Type = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.IndexData = copyBytes(v)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.Datasize = int32(v)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]
		}
	}

	if m.Type == "" {
		return fmt.Errorf("blob header lacks required type")
	}

	return nil
}

// Compression enumerates how a blob's data bytes are packed.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
	CompressionLzma
	CompressionLz4
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionLzma:
		return "lzma"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Blob is the second message of a framing record: one possibly
// compressed chunk of data. RawSize is the uncompressed size and is
// zero for uncompressed blobs.
type Blob struct {
	RawSize     int32
	Data        []byte
	Compression Compression
}

func (m *Blob) Marshal() []byte {
	var b []byte

	switch m.Compression {
	case CompressionNone:
		b = appendBytesField(b, 1, m.Data)
	case CompressionZlib:
		b = appendVarintField(b, 2, uint64(uint32(m.RawSize)))
		b = appendBytesField(b, 3, m.Data)
	case CompressionLzma:
		b = appendVarintField(b, 2, uint64(uint32(m.RawSize)))
		b = appendBytesField(b, 4, m.Data)
	case CompressionLz4:
		b = appendVarintField(b, 2, uint64(uint32(m.RawSize)))
		b = appendBytesField(b, 6, m.Data)
	case CompressionZstd:
		b = appendVarintField(b, 2, uint64(uint32(m.RawSize)))
		b = appendBytesField(b, 7, m.Data)
	}

	return b
}

func (m *Blob) Unmarshal(data []byte) error {
	*m = Blob{Compression: -1}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		consumeData := func(c Compression) error {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.Data = copyBytes(v)
			m.Compression = c
			data = data[n:]

			return nil
		}

		switch num {
		case 1:
			if err := consumeData(CompressionNone); err != nil {
				return err
			}
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.RawSize = int32(v)
			data = data[n:]
		case 3:
			if err := consumeData(CompressionZlib); err != nil {
				return err
			}
		case 4:
			if err := consumeData(CompressionLzma); err != nil {
				return err
			}
		case 6:
			if err := consumeData(CompressionLz4); err != nil {
				return err
			}
		case 7:
			if err := consumeData(CompressionZstd); err != nil {
				return err
			}
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]
		}
	}

	if m.Compression < 0 {
		return ErrUnknownCompression
	}

	return nil
}
