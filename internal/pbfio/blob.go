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

// Package pbfio implements the PBF dialect: BlobHeader/Blob framing,
// blob compression, and the primitive block codec between protobuf
// messages and item buffers.
package pbfio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/internal/pb"
)

const (
	// MaxUncompressedBlobSize caps the uncompressed payload of a single
	// blob, per the PBF format specification.
	MaxUncompressedBlobSize = 32 * 1024 * 1024

	// MaxUsedBlobSize is the fill watermark at which the encoder
	// flushes a primitive block, leaving headroom below the hard cap.
	MaxUsedBlobSize = MaxUncompressedBlobSize * 95 / 100

	// MaxEntitiesPerBlock caps the objects per primitive group. Some
	// consumers (osmosis 0.38 among them) reject larger groups.
	MaxEntitiesPerBlock = 8000

	// maxBlobHeaderSize bounds the BlobHeader message; anything larger
	// indicates a corrupt or non-PBF stream.
	maxBlobHeaderSize = 64 * 1024
)

// ReadBlobHeader reads the 4-byte big-endian length and the BlobHeader
// message that starts every framing record. A clean end of input is
// reported as io.EOF.
func ReadBlobHeader(r io.Reader) (*pb.BlobHeader, error) {
	var size uint32

	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("%w: truncated blob header length: %v", errs.Format, err)
	}

	if size == 0 || size > maxBlobHeaderSize {
		return nil, fmt.Errorf("%w: blob header size %d out of range", errs.Format, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated blob header: %v", errs.Format, err)
	}

	header := &pb.BlobHeader{}
	if err := header.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: bad blob header: %v", errs.Format, err)
	}

	return header, nil
}

// ReadBlob reads the Blob message announced by the given header.
func ReadBlob(r io.Reader, header *pb.BlobHeader) (*pb.Blob, error) {
	size := header.Datasize
	if size <= 0 || size > MaxUncompressedBlobSize {
		return nil, fmt.Errorf("%w: blob size %d out of range", errs.Format, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated blob: %v", errs.Format, err)
	}

	blob := &pb.Blob{}
	if err := blob.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: bad blob: %v", errs.Format, err)
	}

	return blob, nil
}

// UnpackBlob returns the uncompressed payload of a blob, enforcing the
// 32 MiB cap and the declared raw size.
func UnpackBlob(blob *pb.Blob) ([]byte, error) {
	if blob.Compression == pb.CompressionNone {
		if len(blob.Data) > MaxUncompressedBlobSize {
			return nil, fmt.Errorf("%w: blob of %d bytes exceeds maximum of %d", errs.Format, len(blob.Data), MaxUncompressedBlobSize)
		}

		return blob.Data, nil
	}

	rawSize := int(blob.RawSize)
	if rawSize < 0 || rawSize > MaxUncompressedBlobSize {
		return nil, fmt.Errorf("%w: blob raw size %d exceeds maximum of %d", errs.Format, rawSize, MaxUncompressedBlobSize)
	}

	rdr, err := newUnpacker(blob)
	if err != nil {
		return nil, err
	}

	out := make([]byte, rawSize)
	if _, err := io.ReadFull(rdr, out); err != nil {
		return nil, fmt.Errorf("%w: short blob inflate: %v", errs.Format, err)
	}

	// exactly rawSize bytes must come out
	var probe [1]byte
	if n, _ := rdr.Read(probe[:]); n != 0 {
		return nil, fmt.Errorf("%w: blob inflates past declared raw size %d", errs.Format, rawSize)
	}

	return out, nil
}

func newUnpacker(blob *pb.Blob) (io.Reader, error) {
	in := bytes.NewReader(blob.Data)

	switch blob.Compression {
	case pb.CompressionZlib:
		r, err := zlib.NewReader(in)
		if err != nil {
			return nil, fmt.Errorf("%w: bad zlib data: %v", errs.Format, err)
		}

		return r, nil
	case pb.CompressionLzma:
		r, err := lzma.NewReader(in)
		if err != nil {
			return nil, fmt.Errorf("%w: bad lzma data: %v", errs.Format, err)
		}

		return r, nil
	case pb.CompressionLz4:
		return lz4.NewReader(in), nil
	case pb.CompressionZstd:
		r, err := zstd.NewReader(in)
		if err != nil {
			return nil, fmt.Errorf("%w: bad zstd data: %v", errs.Format, err)
		}

		return r.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %v", errs.Format, pb.ErrUnknownCompression)
	}
}

// SerializeBlob wraps an uncompressed payload into a complete framing
// record: length prefix, BlobHeader, and Blob, deflating the payload
// when compression is requested.
func SerializeBlob(blobType string, payload []byte, compress bool) ([]byte, error) {
	if len(payload) > MaxUncompressedBlobSize {
		return nil, fmt.Errorf("%w: block of %d bytes exceeds maximum blob size", errs.Format, len(payload))
	}

	blob := &pb.Blob{}

	if compress {
		var deflated bytes.Buffer

		w := zlib.NewWriter(&deflated)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("cannot deflate blob: %w", err)
		}

		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("cannot deflate blob: %w", err)
		}

		blob.RawSize = int32(len(payload))
		blob.Data = deflated.Bytes()
		blob.Compression = pb.CompressionZlib
	} else {
		blob.Data = payload
		blob.Compression = pb.CompressionNone
	}

	blobData := blob.Marshal()

	header := &pb.BlobHeader{Type: blobType, Datasize: int32(len(blobData))}
	headerData := header.Marshal()

	out := make([]byte, 0, 4+len(headerData)+len(blobData))
	out = binary.BigEndian.AppendUint32(out, uint32(len(headerData)))
	out = append(out, headerData...)
	out = append(out, blobData...)

	return out, nil
}
