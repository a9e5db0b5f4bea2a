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

package mem

import (
	"encoding/binary"
	"iter"

	"m4o.io/osmio/model"
)

// Fixed field offsets within an object item, from the item start.
const (
	offID        = HeaderSize
	offTimestamp = offID + 8
	offVersion   = offTimestamp + 8
	offChangeset = offVersion + 4
	offUID       = offChangeset + 4
	offFlags     = offUID + 4

	objectFixedSize = offFlags + 4 // 40
)

// Node-specific fixed fields.
const (
	offLon = objectFixedSize
	offLat = offLon + 4

	nodeFixedSize = offLat + 4 // 48
)

// Changeset-specific fixed fields.
const (
	offCreatedAt   = objectFixedSize
	offClosedAt    = offCreatedAt + 8
	offBoundsMin   = offClosedAt + 8
	offBoundsMax   = offBoundsMin + 8
	offNumChanges  = offBoundsMax + 8
	offNumComments = offNumChanges + 4

	changesetFixedSize = offNumComments + 4 // 80
)

// Object flag bits.
const (
	flagVisible = 1 << 0
	flagRemoved = 1 << 1
)

// fixedSize returns the offset of the first sub-item for the given
// object kind.
func fixedSize(t ItemType) int {
	switch t {
	case TypeNode:
		return nodeFixedSize
	case TypeChangeset:
		return changesetFixedSize
	default:
		return objectFixedSize
	}
}

// Object is a typed view over any OSM object item (node, way, relation,
// or changeset). Like Item it is non-owning.
type Object struct {
	Item
}

func (o Object) ID() model.ObjectID {
	return model.ObjectID(binary.LittleEndian.Uint64(o.data[offID:]))
}

func (o Object) Timestamp() model.Timestamp {
	return model.Timestamp(binary.LittleEndian.Uint64(o.data[offTimestamp:]))
}

func (o Object) Version() uint32 {
	return binary.LittleEndian.Uint32(o.data[offVersion:])
}

func (o Object) Changeset() int32 {
	return int32(binary.LittleEndian.Uint32(o.data[offChangeset:]))
}

func (o Object) UID() model.UID {
	return model.UID(binary.LittleEndian.Uint32(o.data[offUID:]))
}

func (o Object) flags() uint32 {
	return binary.LittleEndian.Uint32(o.data[offFlags:])
}

// Visible reports whether the object is visible. Deleted objects in
// history and change files are not.
func (o Object) Visible() bool { return o.flags()&flagVisible != 0 }

// Removed reports whether the object has been marked for removal by a
// buffer-level purge.
func (o Object) Removed() bool { return o.flags()&flagRemoved != 0 }

// Anonymous reports whether the object has no user id.
func (o Object) Anonymous() bool { return o.UID() == 0 }

// User returns the user name, or the empty string if none was recorded.
func (o Object) User() string {
	for sub := range o.subItems(fixedSize(o.Type())) {
		if sub.Type() == TypeUserName {
			return readString(sub.Payload())
		}
	}

	return ""
}

// Tags returns the object's tag list. The view is empty if the object
// carries no tags.
func (o Object) Tags() TagList {
	for sub := range o.subItems(fixedSize(o.Type())) {
		if sub.Type() == TypeTagList {
			return TagList{Item: sub}
		}
	}

	return TagList{}
}

// Node is the typed view of a node item.
type Node struct {
	Object
}

func (n Node) Location() model.Location {
	return model.Location{
		X: int32(binary.LittleEndian.Uint32(n.data[offLon:])),
		Y: int32(binary.LittleEndian.Uint32(n.data[offLat:])),
	}
}

// Way is the typed view of a way item.
type Way struct {
	Object
}

// Nodes returns the way's node reference list.
func (w Way) Nodes() NodeRefList {
	for sub := range w.subItems(objectFixedSize) {
		if sub.Type() == TypeNodeRefList {
			return NodeRefList{Item: sub}
		}
	}

	return NodeRefList{}
}

// Relation is the typed view of a relation item.
type Relation struct {
	Object
}

// Members returns the relation's member list.
func (r Relation) Members() RelationMemberList {
	for sub := range r.subItems(objectFixedSize) {
		if sub.Type() == TypeRelationMemberList {
			return RelationMemberList{Item: sub}
		}
	}

	return RelationMemberList{}
}

// Changeset is the typed view of a changeset item.
type Changeset struct {
	Object
}

func (c Changeset) CreatedAt() model.Timestamp {
	return model.Timestamp(binary.LittleEndian.Uint64(c.data[offCreatedAt:]))
}

func (c Changeset) ClosedAt() model.Timestamp {
	return model.Timestamp(binary.LittleEndian.Uint64(c.data[offClosedAt:]))
}

// Open reports whether the changeset has not been closed yet.
func (c Changeset) Open() bool { return c.ClosedAt() == 0 }

func (c Changeset) BoundsMin() model.Location {
	return model.Location{
		X: int32(binary.LittleEndian.Uint32(c.data[offBoundsMin:])),
		Y: int32(binary.LittleEndian.Uint32(c.data[offBoundsMin+4:])),
	}
}

func (c Changeset) BoundsMax() model.Location {
	return model.Location{
		X: int32(binary.LittleEndian.Uint32(c.data[offBoundsMax:])),
		Y: int32(binary.LittleEndian.Uint32(c.data[offBoundsMax+4:])),
	}
}

func (c Changeset) NumChanges() int32 {
	return int32(binary.LittleEndian.Uint32(c.data[offNumChanges:]))
}

func (c Changeset) NumComments() int32 {
	return int32(binary.LittleEndian.Uint32(c.data[offNumComments:]))
}

// Discussion returns the changeset's discussion, which may be empty.
func (c Changeset) Discussion() Discussion {
	for sub := range c.subItems(changesetFixedSize) {
		if sub.Type() == TypeDiscussion {
			return Discussion{Item: sub}
		}
	}

	return Discussion{}
}

// TagList is a view of a tag-list sub-item: NUL-terminated key and
// value strings packed back to back.
type TagList struct {
	Item
}

// Empty reports whether the list holds no tags.
func (t TagList) Empty() bool {
	return len(t.data) == 0 || t.Size() <= HeaderSize || t.data[HeaderSize] == 0
}

// All iterates the key/value pairs in list order.
//
// Keys are never empty, so a NUL byte where a key should start marks
// the padding at the end of the payload.
func (t TagList) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if len(t.data) == 0 {
			return
		}

		payload := t.Payload()
		pos := 0

		for pos < len(payload) && payload[pos] != 0 {
			key, n := readCString(payload[pos:])
			pos += n
			value, n := readCString(payload[pos:])
			pos += n

			if !yield(key, value) {
				return
			}
		}
	}
}

// Len counts the tags in the list.
func (t TagList) Len() int {
	n := 0
	for range t.All() {
		n++
	}

	return n
}

// Get returns the value for the given key, or the empty string.
func (t TagList) Get(key string) string {
	for k, v := range t.All() {
		if k == key {
			return v
		}
	}

	return ""
}

// NodeRefList is a view of a packed array of signed node ids.
type NodeRefList struct {
	Item
}

// Len returns the number of node references.
func (l NodeRefList) Len() int {
	if len(l.data) == 0 {
		return 0
	}

	return (l.Size() - HeaderSize) / 8
}

// Ref returns the i-th node id.
func (l NodeRefList) Ref(i int) model.ObjectID {
	return model.ObjectID(binary.LittleEndian.Uint64(l.data[HeaderSize+8*i:]))
}

// All iterates the node ids in order.
func (l NodeRefList) All() iter.Seq[model.ObjectID] {
	return func(yield func(model.ObjectID) bool) {
		for i := 0; i < l.Len(); i++ {
			if !yield(l.Ref(i)) {
				return
			}
		}
	}
}

// RelationMemberList is a view of a sequence of relation-member items.
type RelationMemberList struct {
	Item
}

// All iterates the members in list order.
func (l RelationMemberList) All() iter.Seq[RelationMember] {
	return func(yield func(RelationMember) bool) {
		if len(l.data) == 0 {
			return
		}

		for sub := range l.subItems(HeaderSize) {
			if sub.Type() != TypeRelationMember {
				continue
			}

			if !yield(RelationMember{Item: sub}) {
				return
			}
		}
	}
}

// Len counts the members in the list.
func (l RelationMemberList) Len() int {
	n := 0
	for range l.All() {
		n++
	}

	return n
}

// Member flag bits.
const flagFullMember = 1 << 0

// Fixed field offsets within a relation-member item.
const (
	offMemberRef   = HeaderSize
	offMemberType  = offMemberRef + 8
	offMemberFlags = offMemberType + 4

	memberFixedSize = offMemberFlags + 4 // 24
)

// RelationMember is a view of one relation member: a typed reference
// with a role, optionally followed by the fully materialized referenced
// object.
type RelationMember struct {
	Item
}

func (m RelationMember) Ref() model.ObjectID {
	return model.ObjectID(binary.LittleEndian.Uint64(m.data[offMemberRef:]))
}

func (m RelationMember) MemberType() model.ObjectType {
	return model.ObjectType(binary.LittleEndian.Uint32(m.data[offMemberType:]))
}

func (m RelationMember) flags() uint32 {
	return binary.LittleEndian.Uint32(m.data[offMemberFlags:])
}

// FullMember reports whether the member carries the referenced object
// as a nested item.
func (m RelationMember) FullMember() bool { return m.flags()&flagFullMember != 0 }

// Role returns the member's role string.
func (m RelationMember) Role() string {
	for sub := range m.subItems(memberFixedSize) {
		if sub.Type() == TypeRole {
			return readString(sub.Payload())
		}
	}

	return ""
}

// FullObject returns the nested referenced object. Only valid when
// FullMember reports true.
func (m RelationMember) FullObject() Object {
	for sub := range m.subItems(memberFixedSize) {
		if sub.Type().IsObject() {
			return sub.Object()
		}
	}

	return Object{}
}

// Discussion is a view of a changeset discussion: a sequence of
// comment items.
type Discussion struct {
	Item
}

// All iterates the comments in discussion order.
func (d Discussion) All() iter.Seq[Comment] {
	return func(yield func(Comment) bool) {
		if len(d.data) == 0 {
			return
		}

		for sub := range d.subItems(HeaderSize) {
			if sub.Type() != TypeComment {
				continue
			}

			if !yield(Comment{Item: sub}) {
				return
			}
		}
	}
}

// Len counts the comments.
func (d Discussion) Len() int {
	n := 0
	for range d.All() {
		n++
	}

	return n
}

// Fixed field offsets within a comment item.
const (
	offCommentDate = HeaderSize
	offCommentUID  = offCommentDate + 8

	commentFixedSize = offCommentUID + 8 // uid + 4 bytes padding
)

// Comment is a view of one changeset discussion comment.
type Comment struct {
	Item
}

func (c Comment) Date() model.Timestamp {
	return model.Timestamp(binary.LittleEndian.Uint64(c.data[offCommentDate:]))
}

func (c Comment) UID() model.UID {
	return model.UID(binary.LittleEndian.Uint32(c.data[offCommentUID:]))
}

// User returns the comment author's user name.
func (c Comment) User() string {
	user, _ := readPrefixedString(c.data[commentFixedSize:])
	return user
}

// Text returns the comment body.
func (c Comment) Text() string {
	_, n := readPrefixedString(c.data[commentFixedSize:])
	text, _ := readPrefixedString(c.data[commentFixedSize+n:])

	return text
}

// readCString reads a NUL-terminated string and returns it together
// with the number of bytes consumed including the terminator.
func readCString(data []byte) (string, int) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), i + 1
		}
	}

	return string(data), len(data)
}

// readString reads a uint32 length-prefixed string.
func readString(payload []byte) string {
	s, _ := readPrefixedString(payload)
	return s
}

// readPrefixedString reads a uint32 length-prefixed string and returns
// it together with the number of bytes consumed.
func readPrefixedString(data []byte) (string, int) {
	if len(data) < 4 {
		return "", len(data)
	}

	n := int(binary.LittleEndian.Uint32(data))

	return string(data[4 : 4+n]), 4 + n
}
