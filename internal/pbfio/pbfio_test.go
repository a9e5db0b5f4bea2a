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

package pbfio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/internal/pbfio"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func newTestBuffer(t *testing.T) *mem.Buffer {
	t.Helper()

	buf, err := mem.NewBuffer(64 * 1024)
	require.NoError(t, err)

	return buf
}

func encodeAll(t *testing.T, enc *pbfio.BlockEncoder, buf *mem.Buffer) [][]byte {
	t.Helper()

	var blocks [][]byte

	for obj := range buf.Objects() {
		var flushed []byte

		switch obj.Type() {
		case mem.TypeNode:
			flushed = enc.AddNode(mem.Node{Object: obj})
		case mem.TypeWay:
			flushed = enc.AddWay(mem.Way{Object: obj})
		case mem.TypeRelation:
			flushed = enc.AddRelation(mem.Relation{Object: obj})
		case mem.TypeChangeset:
			flushed = enc.AddChangeset(mem.Changeset{Object: obj})
		}

		if flushed != nil {
			blocks = append(blocks, flushed)
		}
	}

	if final := enc.Flush(); final != nil {
		blocks = append(blocks, final)
	}

	return blocks
}

func decodeAll(t *testing.T, blocks [][]byte) *mem.Buffer {
	t.Helper()

	buf := newTestBuffer(t)
	for _, blk := range blocks {
		require.NoError(t, pbfio.DecodeBlock(blk, buf))
	}

	return buf
}

func TestDenseNodeRoundTrip(t *testing.T) {
	src := newTestBuffer(t)

	ts, _ := model.ParseTimestamp("2021-06-01T12:00:00Z")

	ob, err := mem.NewObjectBuilder(src, mem.TypeNode)
	require.NoError(t, err)
	ob.SetID(1).SetVersion(1).SetChangeset(77).SetTimestamp(ts).SetUID(5)
	ob.SetLocation(model.LocationFromDegrees(50.0, 10.0))
	require.NoError(t, ob.SetUser("mapper"))
	require.NoError(t, ob.AddTag("natural", "peak"))
	_, err = ob.Finish()
	require.NoError(t, err)

	enc := pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: true, AddMetadata: true})
	blocks := encodeAll(t, enc, src)
	require.Len(t, blocks, 1)

	out := decodeAll(t, blocks)

	count := 0
	for obj := range out.Objects() {
		node := mem.Node{Object: obj}
		assert.Equal(t, model.ObjectID(1), node.ID())
		assert.Equal(t, uint32(1), node.Version())
		assert.Equal(t, int32(77), node.Changeset())
		assert.Equal(t, ts, node.Timestamp())
		assert.Equal(t, model.UID(5), node.UID())
		assert.Equal(t, "mapper", node.User())
		assert.True(t, node.Visible())
		assert.Equal(t, model.Degrees(50.0), node.Location().Lat())
		assert.Equal(t, model.Degrees(10.0), node.Location().Lon())
		assert.Equal(t, "peak", node.Tags().Get("natural"))
		count++
	}

	assert.Equal(t, 1, count)
}

func TestDenseDeltaPrefixSums(t *testing.T) {
	src := newTestBuffer(t)

	ids := []model.ObjectID{100, 50, 200, 199}

	for _, id := range ids {
		ob, err := mem.NewObjectBuilder(src, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(id).SetVersion(1)
		ob.SetLocation(model.LocationFromDegrees(model.Degrees(id)/100, model.Degrees(-id)/100))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	enc := pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: true, AddMetadata: true})
	blocks := encodeAll(t, enc, src)
	require.Len(t, blocks, 1)

	// the raw wire ids are deltas whose prefix sums give back the ids
	blk := &pb.PrimitiveBlock{}
	require.NoError(t, blk.Unmarshal(blocks[0]))
	require.Len(t, blk.PrimitiveGroups, 1)

	raw := blk.PrimitiveGroups[0].Dense.ID
	sum := int64(0)
	for i, d := range raw {
		sum += d
		assert.Equal(t, int64(ids[i]), sum)
	}

	out := decodeAll(t, blocks)

	got := make([]model.ObjectID, 0, len(ids))
	for obj := range out.Objects() {
		got = append(got, obj.ID())
	}

	assert.Equal(t, ids, got)
}

func TestWayRoundTrip(t *testing.T) {
	src := newTestBuffer(t)

	ob, err := mem.NewObjectBuilder(src, mem.TypeWay)
	require.NoError(t, err)
	ob.SetID(3).SetVersion(2)
	require.NoError(t, ob.AddTag("highway", "path"))

	for _, ref := range []model.ObjectID{10, 12, 11} {
		require.NoError(t, ob.AddNodeRef(ref))
	}

	_, err = ob.Finish()
	require.NoError(t, err)

	enc := pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: true, AddMetadata: true})
	blocks := encodeAll(t, enc, src)
	out := decodeAll(t, blocks)

	for obj := range out.Objects() {
		way := mem.Way{Object: obj}
		assert.Equal(t, model.ObjectID(3), way.ID())

		refs := make([]model.ObjectID, 0, 3)
		for r := range way.Nodes().All() {
			refs = append(refs, r)
		}

		assert.Equal(t, []model.ObjectID{10, 12, 11}, refs)
	}
}

func TestRelationRoundTripPreservesOrder(t *testing.T) {
	src := newTestBuffer(t)

	ob, err := mem.NewObjectBuilder(src, mem.TypeRelation)
	require.NoError(t, err)
	ob.SetID(4).SetVersion(1)
	require.NoError(t, ob.AddMember(model.NODE, 5, "start"))
	require.NoError(t, ob.AddMember(model.WAY, 7, "via"))
	require.NoError(t, ob.AddMember(model.RELATION, 9, "end"))
	_, err = ob.Finish()
	require.NoError(t, err)

	enc := pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: true, AddMetadata: true})
	out := decodeAll(t, encodeAll(t, enc, src))

	for obj := range out.Objects() {
		rel := mem.Relation{Object: obj}

		type member struct {
			t    model.ObjectType
			ref  model.ObjectID
			role string
		}

		got := make([]member, 0, 3)
		for m := range rel.Members().All() {
			got = append(got, member{m.MemberType(), m.Ref(), m.Role()})
		}

		assert.Equal(t, []member{
			{model.NODE, 5, "start"},
			{model.WAY, 7, "via"},
			{model.RELATION, 9, "end"},
		}, got)
	}
}

func TestGroupKindChangeFlushes(t *testing.T) {
	src := newTestBuffer(t)

	nb, err := mem.NewObjectBuilder(src, mem.TypeNode)
	require.NoError(t, err)
	nb.SetID(1).SetLocation(model.LocationFromDegrees(1, 1))
	_, err = nb.Finish()
	require.NoError(t, err)

	wb, err := mem.NewObjectBuilder(src, mem.TypeWay)
	require.NoError(t, err)
	wb.SetID(2)
	require.NoError(t, wb.AddNodeRef(1))
	_, err = wb.Finish()
	require.NoError(t, err)

	enc := pbfio.NewBlockEncoder(pbfio.EncoderOptions{DenseNodes: true, AddMetadata: true})
	blocks := encodeAll(t, enc, src)

	// nodes and ways cannot share a group, so two blocks come out
	assert.Len(t, blocks, 2)
}

func TestBlobRoundTrip(t *testing.T) {
	payload := []byte("primitive block payload")

	for _, compress := range []bool{true, false} {
		record, err := pbfio.SerializeBlob(pb.BlobTypeData, payload, compress)
		require.NoError(t, err)

		r := bytes.NewReader(record)

		header, err := pbfio.ReadBlobHeader(r)
		require.NoError(t, err)
		assert.Equal(t, pb.BlobTypeData, header.Type)

		blob, err := pbfio.ReadBlob(r, header)
		require.NoError(t, err)

		out, err := pbfio.UnpackBlob(blob)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	}
}

func TestOversizedBlobRejected(t *testing.T) {
	// a blob that claims to inflate past the cap must be rejected
	blob := &pb.Blob{
		RawSize:     pbfio.MaxUncompressedBlobSize + 1,
		Data:        []byte{0},
		Compression: pb.CompressionZlib,
	}

	_, err := pbfio.UnpackBlob(blob)
	assert.ErrorIs(t, err, errs.Format)

	_, err = pbfio.SerializeBlob(pb.BlobTypeData, make([]byte, pbfio.MaxUncompressedBlobSize+1), false)
	assert.ErrorIs(t, err, errs.Format)
}

func TestRawSizeMismatchRejected(t *testing.T) {
	record, err := pbfio.SerializeBlob(pb.BlobTypeData, []byte("12345678"), true)
	require.NoError(t, err)

	r := bytes.NewReader(record)
	header, err := pbfio.ReadBlobHeader(r)
	require.NoError(t, err)

	blob, err := pbfio.ReadBlob(r, header)
	require.NoError(t, err)

	blob.RawSize-- // now the inflate overshoots the declared size

	_, err = pbfio.UnpackBlob(blob)
	assert.ErrorIs(t, err, errs.Format)
}

func TestHeaderRoundTrip(t *testing.T) {
	in := &model.Header{WritingProgram: "osmio-test", Source: "unit"}
	in.AddBoundingBox(model.BoundingBox{Left: -10, Right: 10, Top: 45, Bottom: -45})

	payload := pbfio.EncodeHeader(in, true)

	out, err := pbfio.DecodeHeader(payload)
	require.NoError(t, err)

	assert.Contains(t, out.RequiredFeatures, pbfio.FeatureSchema)
	assert.Contains(t, out.RequiredFeatures, pbfio.FeatureDenseNodes)
	assert.Equal(t, "osmio-test", out.WritingProgram)
	require.NotNil(t, out.BoundingBox())
	assert.True(t, out.BoundingBox().EqualWithin(&model.BoundingBox{Left: -10, Right: 10, Top: 45, Bottom: -45}, model.E7))
}

func TestUnknownRequiredFeatureRejected(t *testing.T) {
	hb := &pb.HeaderBlock{RequiredFeatures: []string{"Fancy-Future-Feature"}}

	_, err := pbfio.DecodeHeader(hb.Marshal())
	assert.ErrorIs(t, err, errs.Format)
}

func TestNonDefaultGranularityHonored(t *testing.T) {
	// granularity of 1000 nanodegrees with offsets
	blk := pb.NewPrimitiveBlock()
	blk.Granularity = 1000
	blk.LatOffset = 500
	blk.LonOffset = -500
	blk.StringTable.S = [][]byte{{}}
	blk.PrimitiveGroups = []*pb.PrimitiveGroup{{
		Dense: &pb.DenseNodes{
			ID:  []int64{1},
			Lat: []int64{50_000_000}, // 50.0000005 degrees after offset
			Lon: []int64{10_000_000},
		},
	}}

	buf := newTestBuffer(t)
	require.NoError(t, pbfio.DecodeBlock(blk.Marshal(), buf))

	for obj := range buf.Objects() {
		loc := mem.Node{Object: obj}.Location()
		// the 500 nanodegree offsets shift each coordinate by exactly five 1e-7 steps
		assert.Equal(t, int32(500000005), loc.Y)
		assert.Equal(t, int32(99999995), loc.X)
	}
}
