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

// Package pb implements the protobuf messages of the OSM PBF format
// (fileformat.proto and osmformat.proto) directly on the protowire
// encoding, avoiding intermediate allocations on the packed delta
// fields that dominate planet files.
package pb

import (
	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/encoding/protowire"
)

// appendVarintField appends a varint-typed field.
func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendBytesField appends a length-delimited field.
func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendStringField appends a length-delimited string field.
func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendPackedVarint appends a packed repeated field of plain varints.
func appendPackedVarint[T constraints.Integer](b []byte, num protowire.Number, vals []T) []byte {
	if len(vals) == 0 {
		return b
	}

	payload := make([]byte, 0, len(vals))
	for _, v := range vals {
		payload = protowire.AppendVarint(payload, uint64(v))
	}

	return appendBytesField(b, num, payload)
}

// appendPackedZigZag appends a packed repeated field of zig-zag varints.
func appendPackedZigZag[T constraints.Signed](b []byte, num protowire.Number, vals []T) []byte {
	if len(vals) == 0 {
		return b
	}

	payload := make([]byte, 0, len(vals))
	for _, v := range vals {
		payload = protowire.AppendVarint(payload, protowire.EncodeZigZag(int64(v)))
	}

	return appendBytesField(b, num, payload)
}

// appendPackedBool appends a packed repeated bool field.
func appendPackedBool(b []byte, num protowire.Number, vals []bool) []byte {
	if len(vals) == 0 {
		return b
	}

	payload := make([]byte, 0, len(vals))

	for _, v := range vals {
		x := uint64(0)
		if v {
			x = 1
		}

		payload = protowire.AppendVarint(payload, x)
	}

	return appendBytesField(b, num, payload)
}

// consumePacked decodes a packed or singular varint occurrence of a
// repeated field into out, applying conv to each raw varint.
func consumePacked[T any](data []byte, typ protowire.Type, out []T, conv func(uint64) T) ([]T, int, error) {
	if typ == protowire.VarintType {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return out, 0, protowire.ParseError(n)
		}

		return append(out, conv(v)), n, nil
	}

	payload, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return out, 0, protowire.ParseError(n)
	}

	for len(payload) > 0 {
		v, m := protowire.ConsumeVarint(payload)
		if m < 0 {
			return out, 0, protowire.ParseError(m)
		}

		out = append(out, conv(v))
		payload = payload[m:]
	}

	return out, n, nil
}

func asInt64(v uint64) int64   { return int64(v) }
func asInt32(v uint64) int32   { return int32(v) }
func asUint32(v uint64) uint32 { return uint32(v) }
func asSint64(v uint64) int64  { return protowire.DecodeZigZag(v) }
func asSint32(v uint64) int32  { return int32(protowire.DecodeZigZag(v)) }
func asBool(v uint64) bool     { return v != 0 }

// skipField skips over an unknown field.
func skipField(data []byte, num protowire.Number, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	return n, nil
}

// copyBytes detaches a length-delimited value from the input buffer.
func copyBytes(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)

	return out
}
