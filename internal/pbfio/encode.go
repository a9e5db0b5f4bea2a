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

package pbfio

import (
	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/mem"
)

// EncoderOptions selects how the block encoder lays out objects.
type EncoderOptions struct {
	// DenseNodes packs nodes into DenseNodes groups instead of
	// individual Node messages.
	DenseNodes bool

	// AddMetadata emits version/timestamp/uid/user/changeset.
	AddMetadata bool
}

// groupKind identifies which primitive group the encoder is currently
// accumulating; group kinds never mix within one group.
type groupKind int

const (
	groupNone groupKind = iota
	groupDense
	groupNodes
	groupWays
	groupRelations
	groupChangesets
)

// stringTable interns strings on first sight, handing out monotonically
// increasing ids. Index 0 is reserved as the empty sentinel.
type stringTable struct {
	index   map[string]uint32
	strings [][]byte
	size    int
}

func newStringTable() *stringTable {
	return &stringTable{
		index:   map[string]uint32{"": 0},
		strings: [][]byte{{}},
	}
}

func (st *stringTable) id(s string) uint32 {
	if id, ok := st.index[s]; ok {
		return id
	}

	id := uint32(len(st.strings))
	st.index[s] = id
	st.strings = append(st.strings, []byte(s))
	st.size += len(s) + 2

	return id
}

// BlockEncoder accumulates objects into one primitive block at a time.
// Before an object is added, the block is flushed when its estimated
// size has already reached the 95% fill watermark, when the entity
// count has reached the per-group cap, or when the object belongs to a
// different group kind. The size of the incoming object is not part of
// the watermark check, so the last object added may carry a block past
// the watermark.
type BlockEncoder struct {
	opts EncoderOptions

	strings *stringTable
	kind    groupKind
	count   int
	size    int

	dense      denseState
	nodes      []*pb.Node
	ways       []*pb.Way
	relations  []*pb.Relation
	changesets []*pb.ChangeSet
}

// denseState carries the DenseNodes accumulator together with the
// previous values of every delta-encoded field.
type denseState struct {
	ids       []int64
	lats      []int64
	lons      []int64
	versions  []int32
	timestamps []int64
	changesets []int64
	uids      []int32
	userSids  []int32
	visibles  []bool
	keysVals  []int32

	anyInvisible bool

	prevID, prevLat, prevLon, prevTimestamp, prevChangeset int64
	prevUID, prevUserSid                                   int32
}

// NewBlockEncoder creates an empty encoder with the given options.
func NewBlockEncoder(opts EncoderOptions) *BlockEncoder {
	return &BlockEncoder{opts: opts, strings: newStringTable()}
}

// Empty reports whether nothing has been accumulated since the last
// flush.
func (e *BlockEncoder) Empty() bool { return e.count == 0 }

// AddNode routes one node into the accumulator and returns the
// serialized previous block if one had to be flushed first.
func (e *BlockEncoder) AddNode(n mem.Node) []byte {
	kind := groupNodes
	if e.opts.DenseNodes {
		kind = groupDense
	}

	flushed := e.flushIfNeeded(kind)

	if e.opts.DenseNodes {
		e.addDenseNode(n)
	} else {
		e.nodes = append(e.nodes, e.plainNode(n))
	}

	e.count++

	return flushed
}

// AddWay routes one way into the accumulator.
func (e *BlockEncoder) AddWay(w mem.Way) []byte {
	flushed := e.flushIfNeeded(groupWays)

	way := &pb.Way{ID: int64(w.ID()), Info: e.info(w.Object)}
	way.Keys, way.Vals = e.tagIDs(w.Tags())

	var prev int64
	for ref := range w.Nodes().All() {
		way.Refs = append(way.Refs, int64(ref)-prev)
		prev = int64(ref)
		e.size += 5
	}

	e.ways = append(e.ways, way)
	e.count++
	e.size += 24

	return flushed
}

// AddRelation routes one relation into the accumulator.
func (e *BlockEncoder) AddRelation(r mem.Relation) []byte {
	flushed := e.flushIfNeeded(groupRelations)

	rel := &pb.Relation{ID: int64(r.ID()), Info: e.info(r.Object)}
	rel.Keys, rel.Vals = e.tagIDs(r.Tags())

	var prev int64
	for m := range r.Members().All() {
		rel.RolesSid = append(rel.RolesSid, int32(e.strings.id(m.Role())))
		rel.Memids = append(rel.Memids, int64(m.Ref())-prev)
		prev = int64(m.Ref())
		rel.Types = append(rel.Types, pb.MemberType(m.MemberType()))
		e.size += 10 + len(m.Role())
	}

	e.relations = append(e.relations, rel)
	e.count++
	e.size += 24

	return flushed
}

// AddChangeset routes one changeset into the accumulator. The wire
// format carries changeset ids only.
func (e *BlockEncoder) AddChangeset(c mem.Changeset) []byte {
	flushed := e.flushIfNeeded(groupChangesets)

	e.changesets = append(e.changesets, &pb.ChangeSet{ID: int64(c.ID())})
	e.count++
	e.size += 10

	return flushed
}

// Flush serializes the accumulated primitive block and resets the
// encoder. It returns nil when nothing was accumulated.
func (e *BlockEncoder) Flush() []byte {
	if e.count == 0 {
		return nil
	}

	pg := &pb.PrimitiveGroup{}

	switch e.kind {
	case groupDense:
		pg.Dense = e.dense.finish(e.opts.AddMetadata)
	case groupNodes:
		pg.Nodes = e.nodes
	case groupWays:
		pg.Ways = e.ways
	case groupRelations:
		pg.Relations = e.relations
	case groupChangesets:
		pg.Changesets = e.changesets
	}

	blk := pb.NewPrimitiveBlock()
	blk.StringTable.S = e.strings.strings
	blk.PrimitiveGroups = []*pb.PrimitiveGroup{pg}

	payload := blk.Marshal()

	e.strings = newStringTable()
	e.kind = groupNone
	e.count = 0
	e.size = 0
	e.dense = denseState{}
	e.nodes = nil
	e.ways = nil
	e.relations = nil
	e.changesets = nil

	return payload
}

// flushIfNeeded flushes the current block when the next object cannot
// join it: different group kind, entity cap reached, or fill watermark
// crossed.
func (e *BlockEncoder) flushIfNeeded(kind groupKind) []byte {
	if e.kind == groupNone {
		e.kind = kind
		return nil
	}

	if e.kind != kind || e.count >= MaxEntitiesPerBlock || e.size+e.strings.size >= MaxUsedBlobSize {
		payload := e.Flush()
		e.kind = kind

		return payload
	}

	return nil
}

func (e *BlockEncoder) addDenseNode(n mem.Node) {
	d := &e.dense
	loc := n.Location()

	id := int64(n.ID())
	lat := int64(loc.Y) // raw coordinates equal 1e-7 units at the
	lon := int64(loc.X) // default granularity of 100 nanodegrees

	d.ids = append(d.ids, id-d.prevID)
	d.lats = append(d.lats, lat-d.prevLat)
	d.lons = append(d.lons, lon-d.prevLon)
	d.prevID, d.prevLat, d.prevLon = id, lat, lon

	if e.opts.AddMetadata {
		ts := int64(n.Timestamp())
		cs := int64(n.Changeset())
		uid := int32(n.UID())
		sid := int32(e.strings.id(n.User()))

		d.versions = append(d.versions, int32(n.Version()))
		d.timestamps = append(d.timestamps, ts-d.prevTimestamp)
		d.changesets = append(d.changesets, cs-d.prevChangeset)
		d.uids = append(d.uids, uid-d.prevUID)
		d.userSids = append(d.userSids, sid-d.prevUserSid)
		d.prevTimestamp, d.prevChangeset = ts, cs
		d.prevUID, d.prevUserSid = uid, sid

		d.visibles = append(d.visibles, n.Visible())
		if !n.Visible() {
			d.anyInvisible = true
		}
	}

	for k, v := range n.Tags().All() {
		d.keysVals = append(d.keysVals, int32(e.strings.id(k)), int32(e.strings.id(v)))
		e.size += 4 + len(k) + len(v)
	}

	d.keysVals = append(d.keysVals, 0)
	e.size += 40
}

// finish assembles the DenseNodes message. The visible array is only
// written when some node is actually invisible.
func (d *denseState) finish(metadata bool) *pb.DenseNodes {
	dn := &pb.DenseNodes{
		ID:       d.ids,
		Lat:      d.lats,
		Lon:      d.lons,
		KeysVals: d.keysVals,
	}

	if metadata {
		dn.DenseInfo = &pb.DenseInfo{
			Version:   d.versions,
			Timestamp: d.timestamps,
			Changeset: d.changesets,
			UID:       d.uids,
			UserSid:   d.userSids,
		}

		if d.anyInvisible {
			dn.DenseInfo.Visible = d.visibles
		}
	}

	return dn
}

func (e *BlockEncoder) plainNode(n mem.Node) *pb.Node {
	loc := n.Location()

	node := &pb.Node{
		ID:   int64(n.ID()),
		Info: e.info(n.Object),
		Lat:  int64(loc.Y),
		Lon:  int64(loc.X),
	}
	node.Keys, node.Vals = e.tagIDs(n.Tags())

	e.size += 40

	return node
}

func (e *BlockEncoder) info(o mem.Object) *pb.Info {
	if !e.opts.AddMetadata {
		return nil
	}

	info := &pb.Info{
		Version:   int32(o.Version()),
		Timestamp: int64(o.Timestamp()), // date granularity of 1000 ms
		Changeset: int64(o.Changeset()),
		UID:       int32(o.UID()),
		UserSid:   e.strings.id(o.User()),
	}

	if !o.Visible() {
		info.SetVisible(false)
	}

	e.size += 24 + len(o.User())

	return info
}

func (e *BlockEncoder) tagIDs(tags mem.TagList) (keys, vals []uint32) {
	for k, v := range tags.All() {
		keys = append(keys, e.strings.id(k))
		vals = append(vals, e.strings.id(v))
		e.size += 4 + len(k) + len(v)
	}

	return keys, vals
}
