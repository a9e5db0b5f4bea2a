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
	"fmt"

	"m4o.io/osmio/model"
)

// Builder is a cursor that constructs a single item inside a buffer,
// including nested sub-items. Builders nest strictly LIFO: a parent
// must not be written to while a child is open, and children patch
// their final size into the parent when finished.
//
// A root builder that is abandoned instead of finished rolls the buffer
// back to its pre-construction committed mark, so a half-built item
// never becomes visible.
type Builder struct {
	buf      *Buffer
	parent   *Builder
	child    *Builder
	start    int // offset of the item header in the buffer
	size     int // exact size so far, header included, padding excluded
	finished bool
}

// NewBuilder opens a builder for an item of the given type. Pass a nil
// parent for a top-level item.
func NewBuilder(buf *Buffer, t ItemType, parent *Builder) (*Builder, error) {
	if parent != nil && parent.child != nil {
		return nil, fmt.Errorf("%w: parent builder already has an open child", ErrLogic)
	}

	start := buf.Written()

	span, err := buf.ReserveSpace(HeaderSize)
	if err != nil {
		return nil, err
	}

	putItemHeader(span, 0, t)

	b := &Builder{buf: buf, parent: parent, start: start, size: HeaderSize}
	if parent != nil {
		parent.child = b
	}

	return b, nil
}

// reserve claims n more payload bytes for this item.
func (b *Builder) reserve(n int) ([]byte, error) {
	if b.finished {
		return nil, fmt.Errorf("%w: builder already finished", ErrLogic)
	}

	if b.child != nil {
		return nil, fmt.Errorf("%w: builder has an open child", ErrLogic)
	}

	span, err := b.buf.ReserveSpace(n)
	if err != nil {
		return nil, err
	}

	b.size += n

	return span, nil
}

// AppendBytes adds raw payload bytes to the item.
func (b *Builder) AppendBytes(data []byte) error {
	span, err := b.reserve(len(data))
	if err != nil {
		return err
	}

	copy(span, data)

	return nil
}

// AppendUint32 adds a little-endian uint32 to the payload.
func (b *Builder) AppendUint32(v uint32) error {
	span, err := b.reserve(4)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(span, v)

	return nil
}

// AppendUint64 adds a little-endian uint64 to the payload.
func (b *Builder) AppendUint64(v uint64) error {
	span, err := b.reserve(8)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint64(span, v)

	return nil
}

// AppendString adds a uint32 length-prefixed string to the payload.
func (b *Builder) AppendString(s string) error {
	span, err := b.reserve(4 + len(s))
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(span, uint32(len(s)))
	copy(span[4:], s)

	return nil
}

// AppendCString adds a NUL-terminated string to the payload.
func (b *Builder) AppendCString(s string) error {
	span, err := b.reserve(len(s) + 1)
	if err != nil {
		return err
	}

	copy(span, s)
	span[len(s)] = 0

	return nil
}

// appendZeros adds n zero bytes to the payload.
func (b *Builder) appendZeros(n int) error {
	span, err := b.reserve(n)
	if err != nil {
		return err
	}

	clear(span)

	return nil
}

// Finish pads the item to the alignment, writes the final size into the
// header, and propagates the padded size to the parent. A root builder
// additionally commits the buffer and returns the item's offset.
func (b *Builder) Finish() (int, error) {
	if b.finished {
		return 0, fmt.Errorf("%w: builder already finished", ErrLogic)
	}

	if b.child != nil {
		return 0, fmt.Errorf("%w: cannot finish builder with an open child", ErrLogic)
	}

	padded := PaddedLength(b.size)
	if pad := padded - b.size; pad > 0 {
		span, err := b.buf.ReserveSpace(pad)
		if err != nil {
			return 0, err
		}

		clear(span)
	}

	putItemHeader(b.buf.data[b.start:], padded, b.itemType())
	b.finished = true

	if b.parent != nil {
		b.parent.size += padded
		b.parent.child = nil

		return b.start, nil
	}

	return b.buf.Commit()
}

// Abandon discards the item under construction. Only meaningful on a
// root builder, where it rolls the buffer back to the committed mark.
func (b *Builder) Abandon() {
	b.finished = true
	b.buf.Rollback()
}

func (b *Builder) itemType() ItemType {
	return ItemType(binary.LittleEndian.Uint32(b.buf.data[b.start+4:]))
}

// put patches bytes of the already-reserved fixed block.
func (b *Builder) put32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.buf.data[b.start+off:], v)
}

func (b *Builder) put64(off int, v uint64) {
	binary.LittleEndian.PutUint64(b.buf.data[b.start+off:], v)
}

func (b *Builder) get32(off int) uint32 {
	return binary.LittleEndian.Uint32(b.buf.data[b.start+off:])
}

// Construction stages of an object builder. Sub-items must be produced
// in canonical order, so each operation may only move the stage
// forward.
const (
	stageMeta = iota
	stageUser
	stageTags
	stageList
	stageDiscussion
)

// ObjectBuilder builds one OSM object item with its sub-items in
// canonical order: user-name first, then the tag list, then the
// object-specific list (node refs, members, discussion).
//
// Setter methods patch the fixed field block and may be called at any
// time before Finish. Adder methods append sub-items and panic with
// ErrLogic semantics when called out of canonical order or on the
// wrong object kind; buffer exhaustion is reported as an error.
type ObjectBuilder struct {
	b     *Builder
	kind  ItemType
	stage int
	list  *Builder // open list sub-builder, if any
}

// NewObjectBuilder opens a top-level object item of the given kind in
// the buffer and zero-initializes its fixed block. New objects start
// out visible, with an undefined location for nodes.
func NewObjectBuilder(buf *Buffer, kind ItemType) (*ObjectBuilder, error) {
	if !kind.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object type", ErrInvalidArgument, kind)
	}

	b, err := NewBuilder(buf, kind, nil)
	if err != nil {
		return nil, err
	}

	if err := b.appendZeros(fixedSize(kind) - HeaderSize); err != nil {
		b.Abandon()
		return nil, err
	}

	ob := &ObjectBuilder{b: b, kind: kind}
	ob.SetVisible(true)

	if kind == TypeNode {
		ob.SetLocation(model.UndefinedLocation())
	}

	if kind == TypeChangeset {
		ob.SetBounds(model.UndefinedLocation(), model.UndefinedLocation())
	}

	return ob, nil
}

func (ob *ObjectBuilder) SetID(id model.ObjectID) *ObjectBuilder {
	ob.b.put64(offID, uint64(id))
	return ob
}

func (ob *ObjectBuilder) SetTimestamp(ts model.Timestamp) *ObjectBuilder {
	ob.b.put64(offTimestamp, uint64(ts))
	return ob
}

func (ob *ObjectBuilder) SetVersion(v uint32) *ObjectBuilder {
	ob.b.put32(offVersion, v)
	return ob
}

func (ob *ObjectBuilder) SetChangeset(cs int32) *ObjectBuilder {
	ob.b.put32(offChangeset, uint32(cs))
	return ob
}

func (ob *ObjectBuilder) SetUID(uid model.UID) *ObjectBuilder {
	ob.b.put32(offUID, uint32(uid))
	return ob
}

func (ob *ObjectBuilder) SetVisible(visible bool) *ObjectBuilder {
	ob.setFlag(flagVisible, visible)
	return ob
}

func (ob *ObjectBuilder) SetRemoved(removed bool) *ObjectBuilder {
	ob.setFlag(flagRemoved, removed)
	return ob
}

func (ob *ObjectBuilder) setFlag(bit uint32, on bool) {
	flags := ob.b.get32(offFlags)
	if on {
		flags |= bit
	} else {
		flags &^= bit
	}

	ob.b.put32(offFlags, flags)
}

// SetLocation patches a node's coordinates.
func (ob *ObjectBuilder) SetLocation(l model.Location) *ObjectBuilder {
	ob.require(TypeNode)
	ob.b.put32(offLon, uint32(l.X))
	ob.b.put32(offLat, uint32(l.Y))

	return ob
}

// SetCreatedAt patches a changeset's creation timestamp.
func (ob *ObjectBuilder) SetCreatedAt(ts model.Timestamp) *ObjectBuilder {
	ob.require(TypeChangeset)
	ob.b.put64(offCreatedAt, uint64(ts))

	return ob
}

// SetClosedAt patches a changeset's closing timestamp.
func (ob *ObjectBuilder) SetClosedAt(ts model.Timestamp) *ObjectBuilder {
	ob.require(TypeChangeset)
	ob.b.put64(offClosedAt, uint64(ts))

	return ob
}

// SetBounds patches a changeset's bounding locations.
func (ob *ObjectBuilder) SetBounds(min, max model.Location) *ObjectBuilder {
	ob.require(TypeChangeset)
	ob.b.put32(offBoundsMin, uint32(min.X))
	ob.b.put32(offBoundsMin+4, uint32(min.Y))
	ob.b.put32(offBoundsMax, uint32(max.X))
	ob.b.put32(offBoundsMax+4, uint32(max.Y))

	return ob
}

// SetNumChanges patches a changeset's change counter.
func (ob *ObjectBuilder) SetNumChanges(n int32) *ObjectBuilder {
	ob.require(TypeChangeset)
	ob.b.put32(offNumChanges, uint32(n))

	return ob
}

// SetNumComments patches a changeset's comment counter.
func (ob *ObjectBuilder) SetNumComments(n int32) *ObjectBuilder {
	ob.require(TypeChangeset)
	ob.b.put32(offNumComments, uint32(n))

	return ob
}

// SetUser appends the user-name sub-item. It must be called before any
// tags or list entries are added.
func (ob *ObjectBuilder) SetUser(name string) error {
	ob.advance(stageUser)

	if name == "" {
		return nil
	}

	sub, err := NewBuilder(ob.b.buf, TypeUserName, ob.b)
	if err != nil {
		return err
	}

	if err := sub.AppendString(name); err != nil {
		return err
	}

	_, err = sub.Finish()

	return err
}

// AddTag appends one key/value pair to the object's tag list, opening
// the list on first use.
func (ob *ObjectBuilder) AddTag(key, value string) error {
	ob.advance(stageTags)

	if ob.list == nil {
		list, err := NewBuilder(ob.b.buf, TypeTagList, ob.b)
		if err != nil {
			return err
		}

		ob.list = list
	}

	if err := ob.list.AppendCString(key); err != nil {
		return err
	}

	return ob.list.AppendCString(value)
}

// AddNodeRef appends one node id to a way's node reference list.
func (ob *ObjectBuilder) AddNodeRef(ref model.ObjectID) error {
	ob.require(TypeWay)

	if err := ob.openList(stageList, TypeNodeRefList); err != nil {
		return err
	}

	return ob.list.AppendUint64(uint64(ref))
}

// AddMember appends one member to a relation's member list.
func (ob *ObjectBuilder) AddMember(t model.ObjectType, ref model.ObjectID, role string) error {
	ob.require(TypeRelation)

	if err := ob.openList(stageList, TypeRelationMemberList); err != nil {
		return err
	}

	member, err := NewBuilder(ob.b.buf, TypeRelationMember, ob.list)
	if err != nil {
		return err
	}

	if err := member.AppendUint64(uint64(ref)); err != nil {
		return err
	}

	if err := member.AppendUint32(uint32(t)); err != nil {
		return err
	}

	if err := member.AppendUint32(0); err != nil { // flags: never a full member here
		return err
	}

	if role != "" {
		roleItem, err := NewBuilder(ob.b.buf, TypeRole, member)
		if err != nil {
			return err
		}

		if err := roleItem.AppendString(role); err != nil {
			return err
		}

		if _, err := roleItem.Finish(); err != nil {
			return err
		}
	}

	_, err = member.Finish()

	return err
}

// AddComment appends one comment to a changeset's discussion.
func (ob *ObjectBuilder) AddComment(date model.Timestamp, uid model.UID, user, text string) error {
	ob.require(TypeChangeset)

	if err := ob.openList(stageDiscussion, TypeDiscussion); err != nil {
		return err
	}

	comment, err := NewBuilder(ob.b.buf, TypeComment, ob.list)
	if err != nil {
		return err
	}

	if err := comment.AppendUint64(uint64(date)); err != nil {
		return err
	}

	if err := comment.AppendUint32(uint32(uid)); err != nil {
		return err
	}

	if err := comment.AppendUint32(0); err != nil { // padding
		return err
	}

	if err := comment.AppendString(user); err != nil {
		return err
	}

	if err := comment.AppendString(text); err != nil {
		return err
	}

	_, err = comment.Finish()

	return err
}

// openList closes the tag list if it is still open and starts the
// object-specific list sub-item if necessary.
func (ob *ObjectBuilder) openList(stage int, t ItemType) error {
	ob.advance(stage)

	if ob.list == nil {
		list, err := NewBuilder(ob.b.buf, t, ob.b)
		if err != nil {
			return err
		}

		ob.list = list
	}

	return nil
}

// advance moves to the given construction stage, closing the sub-item
// of the previous stage. Moving backwards violates the canonical
// sub-item order.
func (ob *ObjectBuilder) advance(stage int) {
	if ob.stage > stage {
		panic(fmt.Errorf("%w: sub-items must be added in canonical order", ErrLogic))
	}

	if ob.stage < stage && ob.list != nil {
		if _, err := ob.list.Finish(); err != nil {
			panic(err)
		}

		ob.list = nil
	}

	ob.stage = stage
}

func (ob *ObjectBuilder) require(kind ItemType) {
	if ob.kind != kind {
		panic(fmt.Errorf("%w: operation requires a %s builder, have %s", ErrLogic, kind, ob.kind))
	}
}

// Finish closes any open sub-item, finalizes the object item, commits
// the buffer, and returns the object's offset.
func (ob *ObjectBuilder) Finish() (int, error) {
	if ob.list != nil {
		if _, err := ob.list.Finish(); err != nil {
			return 0, err
		}

		ob.list = nil
	}

	return ob.b.Finish()
}

// Abandon rolls the buffer back to the committed mark, discarding the
// partially built object.
func (ob *ObjectBuilder) Abandon() {
	ob.b.Abandon()
}
