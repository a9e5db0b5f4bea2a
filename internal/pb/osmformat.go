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
	"google.golang.org/protobuf/encoding/protowire"
)

// Defaults of the optional PrimitiveBlock scaling fields.
const (
	DefaultGranularity     = 100  // nanodegrees
	DefaultDateGranularity = 1000 // milliseconds
)

// HeaderBBox is the bounding box of a header block, in nanodegrees.
type HeaderBBox struct {
	Left   int64
	Right  int64
	Top    int64
	Bottom int64
}

func (m *HeaderBBox) Marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Left))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Right))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Top))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Bottom))

	return b
}

func (m *HeaderBBox) Unmarshal(data []byte) error {
	*m = HeaderBBox{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		if typ == protowire.VarintType && num >= 1 && num <= 4 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			switch num {
			case 1:
				m.Left = protowire.DecodeZigZag(v)
			case 2:
				m.Right = protowire.DecodeZigZag(v)
			case 3:
				m.Top = protowire.DecodeZigZag(v)
			case 4:
				m.Bottom = protowire.DecodeZigZag(v)
			}

			data = data[n:]

			continue
		}

		n, err := skipField(data, num, typ)
		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// HeaderBlock is the payload of the OSMHeader blob.
type HeaderBlock struct {
	Bbox                             *HeaderBBox
	RequiredFeatures                 []string
	OptionalFeatures                 []string
	WritingProgram                   string
	Source                           string
	OsmosisReplicationTimestamp      int64
	OsmosisReplicationSequenceNumber int64
	OsmosisReplicationBaseURL        string

	hasReplicationTimestamp bool
}

// HasReplicationTimestamp reports whether the decoded header carried an
// osmosis replication timestamp.
func (m *HeaderBlock) HasReplicationTimestamp() bool { return m.hasReplicationTimestamp }

// SetReplicationTimestamp records a replication timestamp for encoding.
func (m *HeaderBlock) SetReplicationTimestamp(ts int64) {
	m.OsmosisReplicationTimestamp = ts
	m.hasReplicationTimestamp = true
}

func (m *HeaderBlock) Marshal() []byte {
	var b []byte

	if m.Bbox != nil {
		b = appendBytesField(b, 1, m.Bbox.Marshal())
	}

	for _, f := range m.RequiredFeatures {
		b = appendStringField(b, 4, f)
	}

	for _, f := range m.OptionalFeatures {
		b = appendStringField(b, 5, f)
	}

	if m.WritingProgram != "" {
		b = appendStringField(b, 16, m.WritingProgram)
	}

	if m.Source != "" {
		b = appendStringField(b, 17, m.Source)
	}

	if m.hasReplicationTimestamp {
		b = appendVarintField(b, 32, uint64(m.OsmosisReplicationTimestamp))
	}

	if m.OsmosisReplicationSequenceNumber != 0 {
		b = appendVarintField(b, 33, uint64(m.OsmosisReplicationSequenceNumber))
	}

	if m.OsmosisReplicationBaseURL != "" {
		b = appendStringField(b, 34, m.OsmosisReplicationBaseURL)
	}

	return b
}

func (m *HeaderBlock) Unmarshal(data []byte) error {
	*m = HeaderBlock{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.Bbox = &HeaderBBox{}
			if err := m.Bbox.Unmarshal(v); err != nil {
				return err
			}

			data = data[n:]
		case 4, 5:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			if num == 4 {
				m.RequiredFeatures = append(m.RequiredFeatures, v)
			} else {
				m.OptionalFeatures = append(m.OptionalFeatures, v)
			}

			data = data[n:]
		case 16, 17, 34:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			switch num {
			case 16:
				m.WritingProgram = v
			case 17:
				m.Source = v
			case 34:
				m.OsmosisReplicationBaseURL = v
			}

			data = data[n:]
		case 32, 33:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			if num == 32 {
				m.OsmosisReplicationTimestamp = int64(v)
				m.hasReplicationTimestamp = true
			} else {
				m.OsmosisReplicationSequenceNumber = int64(v)
			}

			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]
		}
	}

	return nil
}

// StringTable is the per-block string intern table. Index 0 is reserved
// as the empty sentinel.
type StringTable struct {
	S [][]byte
}

func (m *StringTable) Marshal() []byte {
	var b []byte
	for _, s := range m.S {
		b = appendBytesField(b, 1, s)
	}

	return b
}

func (m *StringTable) Unmarshal(data []byte) error {
	*m = StringTable{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		if num == 1 {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.S = append(m.S, copyBytes(v))
			data = data[n:]

			continue
		}

		n, err := skipField(data, num, typ)
		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// Get returns the string at index i, or the empty string when the index
// is out of range.
func (m *StringTable) Get(i int) string {
	if i <= 0 || i >= len(m.S) {
		return ""
	}

	return string(m.S[i])
}

// Info is the metadata of a single non-dense object.
type Info struct {
	Version   int32
	Timestamp int64
	Changeset int64
	UID       int32
	UserSid   uint32
	Visible   bool

	hasVisible bool
}

// HasVisible reports whether the visible field was present.
func (m *Info) HasVisible() bool { return m.hasVisible }

// SetVisible records a visible flag for encoding.
func (m *Info) SetVisible(v bool) {
	m.Visible = v
	m.hasVisible = true
}

func (m *Info) Marshal() []byte {
	var b []byte

	if m.Version != 0 {
		b = appendVarintField(b, 1, uint64(uint32(m.Version)))
	}

	if m.Timestamp != 0 {
		b = appendVarintField(b, 2, uint64(m.Timestamp))
	}

	if m.Changeset != 0 {
		b = appendVarintField(b, 3, uint64(m.Changeset))
	}

	if m.UID != 0 {
		b = appendVarintField(b, 4, uint64(uint32(m.UID)))
	}

	if m.UserSid != 0 {
		b = appendVarintField(b, 5, uint64(m.UserSid))
	}

	if m.hasVisible {
		x := uint64(0)
		if m.Visible {
			x = 1
		}

		b = appendVarintField(b, 6, x)
	}

	return b
}

func (m *Info) Unmarshal(data []byte) error {
	*m = Info{Visible: true}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		if typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			switch num {
			case 1:
				m.Version = int32(v)
			case 2:
				m.Timestamp = int64(v)
			case 3:
				m.Changeset = int64(v)
			case 4:
				m.UID = int32(v)
			case 5:
				m.UserSid = uint32(v)
			case 6:
				m.Visible = v != 0
				m.hasVisible = true
			}

			data = data[n:]

			continue
		}

		n, err := skipField(data, num, typ)
		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// Node is a single non-dense node.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Lat  int64
	Lon  int64
}

func (m *Node) Marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.ID))
	b = appendPackedVarint(b, 2, m.Keys)
	b = appendPackedVarint(b, 3, m.Vals)

	if m.Info != nil {
		b = appendBytesField(b, 4, m.Info.Marshal())
	}

	b = protowire.AppendTag(b, 8, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Lat))
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Lon))

	return b
}

func (m *Node) Unmarshal(data []byte) error {
	*m = Node{}

	var err error

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1, 8, 9:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			switch num {
			case 1:
				m.ID = protowire.DecodeZigZag(v)
			case 8:
				m.Lat = protowire.DecodeZigZag(v)
			case 9:
				m.Lon = protowire.DecodeZigZag(v)
			}

			data = data[n:]
		case 2:
			m.Keys, n, err = consumePacked(data, typ, m.Keys, asUint32)
			if err != nil {
				return err
			}

			data = data[n:]
		case 3:
			m.Vals, n, err = consumePacked(data, typ, m.Vals, asUint32)
			if err != nil {
				return err
			}

			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.Info = &Info{}
			if err := m.Info.Unmarshal(v); err != nil {
				return err
			}

			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]
		}
	}

	return nil
}

// DenseInfo carries the metadata arrays of DenseNodes; all but Version
// are delta-encoded.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64
	Changeset []int64
	UID       []int32
	UserSid   []int32
	Visible   []bool
}

func (m *DenseInfo) Marshal() []byte {
	b := appendPackedVarint(nil, 1, m.Version)
	b = appendPackedZigZag(b, 2, m.Timestamp)
	b = appendPackedZigZag(b, 3, m.Changeset)
	b = appendPackedZigZag(b, 4, m.UID)
	b = appendPackedZigZag(b, 5, m.UserSid)
	b = appendPackedBool(b, 6, m.Visible)

	return b
}

func (m *DenseInfo) Unmarshal(data []byte) error {
	*m = DenseInfo{}

	var err error

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			m.Version, n, err = consumePacked(data, typ, m.Version, asInt32)
		case 2:
			m.Timestamp, n, err = consumePacked(data, typ, m.Timestamp, asSint64)
		case 3:
			m.Changeset, n, err = consumePacked(data, typ, m.Changeset, asSint64)
		case 4:
			m.UID, n, err = consumePacked(data, typ, m.UID, asSint32)
		case 5:
			m.UserSid, n, err = consumePacked(data, typ, m.UserSid, asSint32)
		case 6:
			m.Visible, n, err = consumePacked(data, typ, m.Visible, asBool)
		default:
			n, err = skipField(data, num, typ)
		}

		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// DenseNodes packs many nodes into parallel delta-encoded arrays.
// KeysVals interleaves key/value string ids, with 0 terminating each
// node's tags.
type DenseNodes struct {
	ID        []int64
	DenseInfo *DenseInfo
	Lat       []int64
	Lon       []int64
	KeysVals  []int32
}

func (m *DenseNodes) Marshal() []byte {
	b := appendPackedZigZag(nil, 1, m.ID)

	if m.DenseInfo != nil {
		b = appendBytesField(b, 5, m.DenseInfo.Marshal())
	}

	b = appendPackedZigZag(b, 8, m.Lat)
	b = appendPackedZigZag(b, 9, m.Lon)
	b = appendPackedVarint(b, 10, m.KeysVals)

	return b
}

func (m *DenseNodes) Unmarshal(data []byte) error {
	*m = DenseNodes{}

	var err error

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			m.ID, n, err = consumePacked(data, typ, m.ID, asSint64)
		case 5:
			v, vn := protowire.ConsumeBytes(data)
			if vn < 0 {
				return protowire.ParseError(vn)
			}

			m.DenseInfo = &DenseInfo{}
			err = m.DenseInfo.Unmarshal(v)
			n = vn
		case 8:
			m.Lat, n, err = consumePacked(data, typ, m.Lat, asSint64)
		case 9:
			m.Lon, n, err = consumePacked(data, typ, m.Lon, asSint64)
		case 10:
			m.KeysVals, n, err = consumePacked(data, typ, m.KeysVals, asInt32)
		default:
			n, err = skipField(data, num, typ)
		}

		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// Way is a single way with delta-encoded node references.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Refs []int64
}

func (m *Way) Marshal() []byte {
	b := appendVarintField(nil, 1, uint64(m.ID))
	b = appendPackedVarint(b, 2, m.Keys)
	b = appendPackedVarint(b, 3, m.Vals)

	if m.Info != nil {
		b = appendBytesField(b, 4, m.Info.Marshal())
	}

	b = appendPackedZigZag(b, 8, m.Refs)

	return b
}

func (m *Way) Unmarshal(data []byte) error {
	*m = Way{}

	var err error

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			v, vn := protowire.ConsumeVarint(data)
			if vn < 0 {
				return protowire.ParseError(vn)
			}

			m.ID = int64(v)
			n = vn
		case 2:
			m.Keys, n, err = consumePacked(data, typ, m.Keys, asUint32)
		case 3:
			m.Vals, n, err = consumePacked(data, typ, m.Vals, asUint32)
		case 4:
			v, vn := protowire.ConsumeBytes(data)
			if vn < 0 {
				return protowire.ParseError(vn)
			}

			m.Info = &Info{}
			err = m.Info.Unmarshal(v)
			n = vn
		case 8:
			m.Refs, n, err = consumePacked(data, typ, m.Refs, asSint64)
		default:
			n, err = skipField(data, num, typ)
		}

		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// MemberType is the relation member kind enumeration of osmformat.
type MemberType int32

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// Relation is a single relation with delta-encoded member ids.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	Info     *Info
	RolesSid []int32
	Memids   []int64
	Types    []MemberType
}

func (m *Relation) Marshal() []byte {
	b := appendVarintField(nil, 1, uint64(m.ID))
	b = appendPackedVarint(b, 2, m.Keys)
	b = appendPackedVarint(b, 3, m.Vals)

	if m.Info != nil {
		b = appendBytesField(b, 4, m.Info.Marshal())
	}

	b = appendPackedVarint(b, 8, m.RolesSid)
	b = appendPackedZigZag(b, 9, m.Memids)
	b = appendPackedVarint(b, 10, m.Types)

	return b
}

func (m *Relation) Unmarshal(data []byte) error {
	*m = Relation{}

	var err error

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			v, vn := protowire.ConsumeVarint(data)
			if vn < 0 {
				return protowire.ParseError(vn)
			}

			m.ID = int64(v)
			n = vn
		case 2:
			m.Keys, n, err = consumePacked(data, typ, m.Keys, asUint32)
		case 3:
			m.Vals, n, err = consumePacked(data, typ, m.Vals, asUint32)
		case 4:
			v, vn := protowire.ConsumeBytes(data)
			if vn < 0 {
				return protowire.ParseError(vn)
			}

			m.Info = &Info{}
			err = m.Info.Unmarshal(v)
			n = vn
		case 8:
			m.RolesSid, n, err = consumePacked(data, typ, m.RolesSid, asInt32)
		case 9:
			m.Memids, n, err = consumePacked(data, typ, m.Memids, asSint64)
		case 10:
			m.Types, n, err = consumePacked(data, typ, m.Types, func(v uint64) MemberType { return MemberType(v) })
		default:
			n, err = skipField(data, num, typ)
		}

		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// ChangeSet is a single changeset; the osmformat message carries only
// the id.
type ChangeSet struct {
	ID int64
}

func (m *ChangeSet) Marshal() []byte {
	return appendVarintField(nil, 1, uint64(m.ID))
}

func (m *ChangeSet) Unmarshal(data []byte) error {
	*m = ChangeSet{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			m.ID = int64(v)
			data = data[n:]

			continue
		}

		n, err := skipField(data, num, typ)
		if err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// PrimitiveGroup holds exactly one kind of object sequence.
type PrimitiveGroup struct {
	Nodes      []*Node
	Dense      *DenseNodes
	Ways       []*Way
	Relations  []*Relation
	Changesets []*ChangeSet
}

func (m *PrimitiveGroup) Marshal() []byte {
	var b []byte

	for _, n := range m.Nodes {
		b = appendBytesField(b, 1, n.Marshal())
	}

	if m.Dense != nil {
		b = appendBytesField(b, 2, m.Dense.Marshal())
	}

	for _, w := range m.Ways {
		b = appendBytesField(b, 3, w.Marshal())
	}

	for _, r := range m.Relations {
		b = appendBytesField(b, 4, r.Marshal())
	}

	for _, c := range m.Changesets {
		b = appendBytesField(b, 5, c.Marshal())
	}

	return b
}

func (m *PrimitiveGroup) Unmarshal(data []byte) error {
	*m = PrimitiveGroup{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		v, vn := protowire.ConsumeBytes(data)

		switch num {
		case 1, 2, 3, 4, 5:
			if vn < 0 {
				return protowire.ParseError(vn)
			}
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]

			continue
		}

		var err error

		switch num {
		case 1:
			node := &Node{}
			err = node.Unmarshal(v)
			m.Nodes = append(m.Nodes, node)
		case 2:
			m.Dense = &DenseNodes{}
			err = m.Dense.Unmarshal(v)
		case 3:
			way := &Way{}
			err = way.Unmarshal(v)
			m.Ways = append(m.Ways, way)
		case 4:
			rel := &Relation{}
			err = rel.Unmarshal(v)
			m.Relations = append(m.Relations, rel)
		case 5:
			cs := &ChangeSet{}
			err = cs.Unmarshal(v)
			m.Changesets = append(m.Changesets, cs)
		}

		if err != nil {
			return err
		}

		data = data[vn:]
	}

	return nil
}

// PrimitiveBlock is the payload of an OSMData blob.
type PrimitiveBlock struct {
	StringTable     StringTable
	PrimitiveGroups []*PrimitiveGroup
	Granularity     int32
	DateGranularity int32
	LatOffset       int64
	LonOffset       int64
}

// NewPrimitiveBlock creates an empty block with default scaling.
func NewPrimitiveBlock() *PrimitiveBlock {
	return &PrimitiveBlock{
		Granularity:     DefaultGranularity,
		DateGranularity: DefaultDateGranularity,
	}
}

func (m *PrimitiveBlock) Marshal() []byte {
	b := appendBytesField(nil, 1, m.StringTable.Marshal())

	for _, pg := range m.PrimitiveGroups {
		b = appendBytesField(b, 2, pg.Marshal())
	}

	if m.Granularity != 0 && m.Granularity != DefaultGranularity {
		b = appendVarintField(b, 17, uint64(uint32(m.Granularity)))
	}

	if m.DateGranularity != 0 && m.DateGranularity != DefaultDateGranularity {
		b = appendVarintField(b, 18, uint64(uint32(m.DateGranularity)))
	}

	if m.LatOffset != 0 {
		b = appendVarintField(b, 19, uint64(m.LatOffset))
	}

	if m.LonOffset != 0 {
		b = appendVarintField(b, 20, uint64(m.LonOffset))
	}

	return b
}

func (m *PrimitiveBlock) Unmarshal(data []byte) error {
	*m = PrimitiveBlock{
		Granularity:     DefaultGranularity,
		DateGranularity: DefaultDateGranularity,
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}

		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			if err := m.StringTable.Unmarshal(v); err != nil {
				return err
			}

			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			pg := &PrimitiveGroup{}
			if err := pg.Unmarshal(v); err != nil {
				return err
			}

			m.PrimitiveGroups = append(m.PrimitiveGroups, pg)
			data = data[n:]
		case 17, 18, 19, 20:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}

			switch num {
			case 17:
				m.Granularity = int32(v)
			case 18:
				m.DateGranularity = int32(v)
			case 19:
				m.LatOffset = int64(v)
			case 20:
				m.LonOffset = int64(v)
			}

			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}

			data = data[n:]
		}
	}

	return nil
}
