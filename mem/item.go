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

// Package mem implements the append-only, aligned item arena that all
// OSM objects live on.  A Buffer owns a contiguous byte area holding a
// sequence of self-describing Items; each Item starts with a fixed
// header carrying its type tag and its total size including header,
// nested sub-items, and padding.  Because the layout is pointer-free,
// whole buffers can be handed between pipeline stages, copied, or
// mapped without fix-ups.
package mem

import (
	"encoding/binary"
)

// Align is the padding modulus for all items. Every item starts and
// ends on an Align boundary within its buffer.
const Align = 8

// HeaderSize is the size of the fixed item header: a uint32 size
// followed by a uint32 type tag, both little-endian.
const HeaderSize = 8

// ItemType is the type tag stored in every item header.
type ItemType uint32

const (
	TypeUndefined ItemType = iota

	TypeNode
	TypeWay
	TypeRelation
	TypeChangeset
)

// Sub-item type tags occupy a separate range so an object tag can never
// be confused with a sub-item tag.
const (
	TypeTagList ItemType = iota + 0x11
	TypeNodeRefList
	TypeRelationMemberList
	TypeRelationMember
	TypeInnerRing
	TypeOuterRing
	TypeDiscussion
	TypeComment
	TypeUserName
	TypeRole
)

// IsObject reports whether the tag denotes a top-level OSM object.
func (t ItemType) IsObject() bool {
	return t >= TypeNode && t <= TypeChangeset
}

func (t ItemType) String() string {
	switch t {
	case TypeNode:
		return "node"
	case TypeWay:
		return "way"
	case TypeRelation:
		return "relation"
	case TypeChangeset:
		return "changeset"
	case TypeTagList:
		return "tag-list"
	case TypeNodeRefList:
		return "node-ref-list"
	case TypeRelationMemberList:
		return "relation-member-list"
	case TypeRelationMember:
		return "relation-member"
	case TypeInnerRing:
		return "inner-ring"
	case TypeOuterRing:
		return "outer-ring"
	case TypeDiscussion:
		return "discussion"
	case TypeComment:
		return "comment"
	case TypeUserName:
		return "user-name"
	case TypeRole:
		return "role"
	default:
		return "undefined"
	}
}

// PaddedLength rounds n up to the next multiple of Align.
func PaddedLength(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

// Item is a non-owning view of a single item inside a Buffer. The view
// is invalidated by any operation that moves or grows the buffer.
type Item struct {
	data []byte
}

// ItemAt interprets the given bytes as an item. The slice must start at
// an item header; its length must be at least the stored item size.
func ItemAt(data []byte) Item {
	return Item{data: data}
}

// Valid reports whether the view points at a plausible item.
func (i Item) Valid() bool {
	return len(i.data) >= HeaderSize && i.Size() >= HeaderSize && i.Size() <= len(i.data)
}

// Size returns the stored size of the item in bytes, including the
// header, all nested sub-items, and padding. It is always a multiple
// of Align.
func (i Item) Size() int {
	return int(binary.LittleEndian.Uint32(i.data))
}

// Type returns the item's type tag.
func (i Item) Type() ItemType {
	return ItemType(binary.LittleEndian.Uint32(i.data[4:]))
}

// Bytes returns the item's full byte span, header included.
func (i Item) Bytes() []byte {
	return i.data[:i.Size()]
}

// Payload returns the bytes following the header.
func (i Item) Payload() []byte {
	return i.data[HeaderSize:i.Size()]
}

// Object converts the item into an object view. The caller must check
// Type().IsObject() first.
func (i Item) Object() Object {
	return Object{Item: i}
}

// subItems iterates the nested items starting at the given offset from
// the item's start.
func (i Item) subItems(from int) func(yield func(Item) bool) {
	return func(yield func(Item) bool) {
		data := i.Bytes()
		pos := from

		for pos+HeaderSize <= len(data) {
			sub := ItemAt(data[pos:])
			if !sub.Valid() {
				return
			}

			if !yield(sub) {
				return
			}

			pos += sub.Size()
		}
	}
}

func putItemHeader(data []byte, size int, t ItemType) {
	binary.LittleEndian.PutUint32(data, uint32(size))
	binary.LittleEndian.PutUint32(data[4:], uint32(t))
}
