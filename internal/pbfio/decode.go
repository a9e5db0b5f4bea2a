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
	"fmt"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

// blockContext carries the per-block scaling parameters and string
// table while decoding one primitive block.
type blockContext struct {
	strings         *pb.StringTable
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32
}

// DecodeBlock parses an OSMData blob payload and appends its objects to
// the buffer in block order.
func DecodeBlock(payload []byte, buf *mem.Buffer) error {
	blk := &pb.PrimitiveBlock{}
	if err := blk.Unmarshal(payload); err != nil {
		return fmt.Errorf("%w: bad primitive block: %v", errs.Format, err)
	}

	if blk.Granularity <= 0 || blk.DateGranularity <= 0 {
		return fmt.Errorf("%w: non-positive granularity", errs.Format)
	}

	c := &blockContext{
		strings:         &blk.StringTable,
		granularity:     blk.Granularity,
		latOffset:       blk.LatOffset,
		lonOffset:       blk.LonOffset,
		dateGranularity: blk.DateGranularity,
	}

	for _, pg := range blk.PrimitiveGroups {
		for _, n := range pg.Nodes {
			if err := c.decodeNode(buf, n); err != nil {
				return err
			}
		}

		if pg.Dense != nil {
			if err := c.decodeDenseNodes(buf, pg.Dense); err != nil {
				return err
			}
		}

		for _, w := range pg.Ways {
			if err := c.decodeWay(buf, w); err != nil {
				return err
			}
		}

		for _, r := range pg.Relations {
			if err := c.decodeRelation(buf, r); err != nil {
				return err
			}
		}

		for _, cs := range pg.Changesets {
			if err := decodeChangeset(buf, cs); err != nil {
				return err
			}
		}
	}

	return nil
}

// location converts raw block coordinates into the fixed 1e-7 grid,
// honoring non-default offsets and granularities.
func (c *blockContext) location(rawLat, rawLon int64) model.Location {
	latNano := c.latOffset + int64(c.granularity)*rawLat
	lonNano := c.lonOffset + int64(c.granularity)*rawLon

	return model.Location{X: nanoToE7(lonNano), Y: nanoToE7(latNano)}
}

// nanoToE7 rounds nanodegrees into the 1e-7 degree grid.
func nanoToE7(nano int64) int32 {
	if nano < 0 {
		return int32((nano - 50) / 100)
	}

	return int32((nano + 50) / 100)
}

// seconds converts a raw timestamp in date-granularity units into UNIX
// seconds.
func (c *blockContext) seconds(raw int64) model.Timestamp {
	return model.Timestamp(raw * int64(c.dateGranularity) / 1000)
}

// setInfo applies non-dense object metadata to the builder.
func (c *blockContext) setInfo(ob *mem.ObjectBuilder, info *pb.Info) error {
	if info == nil {
		return nil
	}

	ob.SetVersion(uint32(info.Version))
	ob.SetTimestamp(c.seconds(info.Timestamp))
	ob.SetChangeset(int32(info.Changeset))
	ob.SetUID(model.UID(info.UID))
	ob.SetVisible(info.Visible)

	return ob.SetUser(c.strings.Get(int(info.UserSid)))
}

func (c *blockContext) addTags(ob *mem.ObjectBuilder, keys, vals []uint32) error {
	if len(keys) != len(vals) {
		return fmt.Errorf("%w: %d keys but %d values", errs.Format, len(keys), len(vals))
	}

	for i, k := range keys {
		if err := ob.AddTag(c.strings.Get(int(k)), c.strings.Get(int(vals[i]))); err != nil {
			return err
		}
	}

	return nil
}

func (c *blockContext) decodeNode(buf *mem.Buffer, n *pb.Node) error {
	ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
	if err != nil {
		return err
	}

	ob.SetID(model.ObjectID(n.ID))
	ob.SetLocation(c.location(n.Lat, n.Lon))

	if err := c.setInfo(ob, n.Info); err != nil {
		ob.Abandon()
		return err
	}

	if err := c.addTags(ob, n.Keys, n.Vals); err != nil {
		ob.Abandon()
		return err
	}

	_, err = ob.Finish()

	return err
}

func (c *blockContext) decodeDenseNodes(buf *mem.Buffer, dense *pb.DenseNodes) error {
	ids := dense.ID
	lats := dense.Lat
	lons := dense.Lon

	if len(lats) != len(ids) || len(lons) != len(ids) {
		return fmt.Errorf("%w: dense node arrays of unequal length", errs.Format)
	}

	info := dense.DenseInfo
	if info != nil {
		if len(info.Version) != len(ids) || len(info.Timestamp) != len(ids) ||
			len(info.Changeset) != len(ids) || len(info.UID) != len(ids) ||
			len(info.UserSid) != len(ids) {
			return fmt.Errorf("%w: dense info arrays of unequal length", errs.Format)
		}

		if len(info.Visible) != 0 && len(info.Visible) != len(ids) {
			return fmt.Errorf("%w: dense info visible array of unequal length", errs.Format)
		}
	}

	// running sums of the delta-encoded fields; version is not
	// delta-coded
	var id, lat, lon, timestamp, changeset int64
	var uid, userSid int32

	keysVals := dense.KeysVals
	kv := 0

	for i := range ids {
		id += ids[i]
		lat += lats[i]
		lon += lons[i]

		ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
		if err != nil {
			return err
		}

		ob.SetID(model.ObjectID(id))
		ob.SetLocation(c.location(lat, lon))

		if info != nil {
			timestamp += info.Timestamp[i]
			changeset += info.Changeset[i]
			uid += info.UID[i]
			userSid += info.UserSid[i]

			ob.SetVersion(uint32(info.Version[i]))
			ob.SetTimestamp(c.seconds(timestamp))
			ob.SetChangeset(int32(changeset))
			ob.SetUID(model.UID(uid))

			if len(info.Visible) != 0 {
				ob.SetVisible(info.Visible[i])
			}

			if err := ob.SetUser(c.strings.Get(int(userSid))); err != nil {
				ob.Abandon()
				return err
			}
		}

		// node i owns key/value pairs up to the next 0
		for kv < len(keysVals) && keysVals[kv] != 0 {
			if kv+1 >= len(keysVals) {
				ob.Abandon()
				return fmt.Errorf("%w: dangling key in dense keys_vals", errs.Format)
			}

			err := ob.AddTag(c.strings.Get(int(keysVals[kv])), c.strings.Get(int(keysVals[kv+1])))
			if err != nil {
				ob.Abandon()
				return err
			}

			kv += 2
		}

		kv++ // skip the separator

		if _, err := ob.Finish(); err != nil {
			return err
		}
	}

	return nil
}

func (c *blockContext) decodeWay(buf *mem.Buffer, w *pb.Way) error {
	ob, err := mem.NewObjectBuilder(buf, mem.TypeWay)
	if err != nil {
		return err
	}

	ob.SetID(model.ObjectID(w.ID))

	if err := c.setInfo(ob, w.Info); err != nil {
		ob.Abandon()
		return err
	}

	if err := c.addTags(ob, w.Keys, w.Vals); err != nil {
		ob.Abandon()
		return err
	}

	var ref int64
	for _, delta := range w.Refs {
		ref += delta

		if err := ob.AddNodeRef(model.ObjectID(ref)); err != nil {
			ob.Abandon()
			return err
		}
	}

	_, err = ob.Finish()

	return err
}

func (c *blockContext) decodeRelation(buf *mem.Buffer, r *pb.Relation) error {
	if len(r.RolesSid) != len(r.Memids) || len(r.Types) != len(r.Memids) {
		return fmt.Errorf("%w: relation member arrays of unequal length", errs.Format)
	}

	ob, err := mem.NewObjectBuilder(buf, mem.TypeRelation)
	if err != nil {
		return err
	}

	ob.SetID(model.ObjectID(r.ID))

	if err := c.setInfo(ob, r.Info); err != nil {
		ob.Abandon()
		return err
	}

	if err := c.addTags(ob, r.Keys, r.Vals); err != nil {
		ob.Abandon()
		return err
	}

	var ref int64
	for i, delta := range r.Memids {
		ref += delta

		t, err := memberType(r.Types[i])
		if err != nil {
			ob.Abandon()
			return err
		}

		if err := ob.AddMember(t, model.ObjectID(ref), c.strings.Get(int(r.RolesSid[i]))); err != nil {
			ob.Abandon()
			return err
		}
	}

	_, err = ob.Finish()

	return err
}

func decodeChangeset(buf *mem.Buffer, cs *pb.ChangeSet) error {
	ob, err := mem.NewObjectBuilder(buf, mem.TypeChangeset)
	if err != nil {
		return err
	}

	ob.SetID(model.ObjectID(cs.ID))

	_, err = ob.Finish()

	return err
}

func memberType(t pb.MemberType) (model.ObjectType, error) {
	switch t {
	case pb.MemberNode:
		return model.NODE, nil
	case pb.MemberWay:
		return model.WAY, nil
	case pb.MemberRelation:
		return model.RELATION, nil
	default:
		return 0, fmt.Errorf("%w: unknown relation member type %d", errs.Format, t)
	}
}
