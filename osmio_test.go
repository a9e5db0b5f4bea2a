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

package osmio_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/destel/rill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmio"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func TestParseFileSuffixRules(t *testing.T) {
	cases := []struct {
		name        string
		format      osmio.Format
		compression osmio.Compression
		change      bool
	}{
		{"planet.osm", osmio.FormatXML, osmio.CompressionNone, false},
		{"diff.osc", osmio.FormatXML, osmio.CompressionNone, true},
		{"planet.pbf", osmio.FormatPBF, osmio.CompressionNone, false},
		{"planet.osm.pbf", osmio.FormatPBF, osmio.CompressionNone, false},
		{"extract.osm.gz", osmio.FormatXML, osmio.CompressionGzip, false},
		{"extract.osm.bz2", osmio.FormatXML, osmio.CompressionBzip2, false},
	}

	for _, tc := range cases {
		f, err := osmio.ParseFile(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.format, f.Format, tc.name)
		assert.Equal(t, tc.compression, f.Compression, tc.name)
		assert.Equal(t, tc.change, f.IsTrue(osmio.OptXMLChangeFormat), tc.name)
	}

	_, err := osmio.ParseFile("data.json")
	assert.ErrorIs(t, err, osmio.ErrFormat)
}

func TestParseFileOptions(t *testing.T) {
	f, err := osmio.ParseFile("out.osm.pbf?pbf_compression=none&add_metadata=false")
	require.NoError(t, err)
	assert.Equal(t, "none", f.Get(osmio.OptPbfCompression))
	assert.False(t, f.IsNotFalse(osmio.OptAddMetadata))
	assert.Equal(t, "out.osm.pbf", f.Name)
}

func buildTestBuffer(t *testing.T) *mem.Buffer {
	t.Helper()

	buf, err := mem.NewBuffer(64 * 1024)
	require.NoError(t, err)

	ts, _ := model.ParseTimestamp("2021-03-04T05:06:07Z")

	nb, err := mem.NewObjectBuilder(buf, mem.TypeNode)
	require.NoError(t, err)
	nb.SetID(1).SetVersion(1).SetChangeset(9).SetTimestamp(ts).SetUID(3)
	nb.SetLocation(model.LocationFromDegrees(50.0, 10.0))
	require.NoError(t, nb.SetUser("mapper"))
	require.NoError(t, nb.AddTag("natural", "peak"))
	_, err = nb.Finish()
	require.NoError(t, err)

	wb, err := mem.NewObjectBuilder(buf, mem.TypeWay)
	require.NoError(t, err)
	wb.SetID(2).SetVersion(2).SetTimestamp(ts)
	require.NoError(t, wb.AddTag("highway", "path"))
	for _, ref := range []model.ObjectID{10, 12, 11} {
		require.NoError(t, wb.AddNodeRef(ref))
	}
	_, err = wb.Finish()
	require.NoError(t, err)

	rb, err := mem.NewObjectBuilder(buf, mem.TypeRelation)
	require.NoError(t, err)
	rb.SetID(3).SetVersion(1).SetTimestamp(ts)
	require.NoError(t, rb.AddMember(model.NODE, 5, "start"))
	require.NoError(t, rb.AddMember(model.WAY, 7, "via"))
	require.NoError(t, rb.AddMember(model.RELATION, 9, "end"))
	_, err = rb.Finish()
	require.NoError(t, err)

	return buf
}

// assertEquivalent checks the round-trip equivalence of spec terms:
// same ids, versions, timestamps, tags, geometries, and member lists in
// the same order, and equal visible bits.
func assertEquivalent(t *testing.T, want, got *mem.Buffer) {
	t.Helper()

	wantObjs := collect(want)
	gotObjs := collect(got)
	require.Equal(t, len(wantObjs), len(gotObjs))

	for i, w := range wantObjs {
		g := gotObjs[i]

		assert.Equal(t, w.Type(), g.Type())
		assert.Equal(t, w.ID(), g.ID())
		assert.Equal(t, w.Version(), g.Version())
		assert.Equal(t, w.Timestamp(), g.Timestamp())
		assert.Equal(t, w.Visible(), g.Visible())

		wTags := tagsOf(w)
		gTags := tagsOf(g)
		assert.Equal(t, wTags, gTags)

		switch w.Type() {
		case mem.TypeNode:
			assert.Equal(t, mem.Node{Object: w}.Location(), mem.Node{Object: g}.Location())
		case mem.TypeWay:
			assert.Equal(t, refsOf(w), refsOf(g))
		case mem.TypeRelation:
			assert.Equal(t, membersOf(w), membersOf(g))
		}
	}
}

func collect(buf *mem.Buffer) []mem.Object {
	var out []mem.Object
	for obj := range buf.Objects() {
		out = append(out, obj)
	}

	return out
}

func collectAll(t *testing.T, r *osmio.Reader) []*mem.Buffer {
	t.Helper()

	var out []*mem.Buffer

	for {
		buf, err := r.Read()
		if err == io.EOF {
			return out
		}

		require.NoError(t, err)
		out = append(out, buf)
	}
}

func mergeBuffers(t *testing.T, buffers []*mem.Buffer) *mem.Buffer {
	t.Helper()

	merged, err := mem.NewBuffer(1024 * 1024)
	require.NoError(t, err)

	for _, buf := range buffers {
		require.NoError(t, merged.AddBuffer(buf))
	}

	_, err = merged.Commit()
	require.NoError(t, err)

	return merged
}

func tagsOf(o mem.Object) [][2]string {
	var out [][2]string
	for k, v := range o.Tags().All() {
		out = append(out, [2]string{k, v})
	}

	return out
}

func refsOf(o mem.Object) []model.ObjectID {
	var out []model.ObjectID
	for ref := range (mem.Way{Object: o}).Nodes().All() {
		out = append(out, ref)
	}

	return out
}

type memberTuple struct {
	t    model.ObjectType
	ref  model.ObjectID
	role string
}

func membersOf(o mem.Object) []memberTuple {
	var out []memberTuple
	for m := range (mem.Relation{Object: o}).Members().All() {
		out = append(out, memberTuple{m.MemberType(), m.Ref(), m.Role()})
	}

	return out
}

func roundTrip(t *testing.T, name string, src *mem.Buffer) *mem.Buffer {
	t.Helper()

	file, err := osmio.ParseFile(name)
	require.NoError(t, err)

	var raw bytes.Buffer

	w, err := osmio.NewWriterTo(file, &raw, &model.Header{WritingProgram: "osmio-test"})
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	return mergeBuffers(t, collectAll(t, r))
}

func TestPBFRoundTrip(t *testing.T) {
	src := buildTestBuffer(t)
	got := roundTrip(t, "roundtrip.osm.pbf", src)
	assertEquivalent(t, src, got)
}

func TestPBFRoundTripUncompressed(t *testing.T) {
	src := buildTestBuffer(t)
	got := roundTrip(t, "roundtrip.osm.pbf?pbf_compression=none", src)
	assertEquivalent(t, src, got)
}

func TestPBFRoundTripNonDense(t *testing.T) {
	src := buildTestBuffer(t)
	got := roundTrip(t, "roundtrip.osm.pbf?pbf_dense_nodes=false", src)
	assertEquivalent(t, src, got)
}

func TestXMLRoundTrip(t *testing.T) {
	src := buildTestBuffer(t)
	got := roundTrip(t, "roundtrip.osm", src)
	assertEquivalent(t, src, got)
}

func TestXMLBytesContainExpectedNode(t *testing.T) {
	buf, err := mem.NewBuffer(8192)
	require.NoError(t, err)

	nb, err := mem.NewObjectBuilder(buf, mem.TypeNode)
	require.NoError(t, err)
	nb.SetID(1).SetVersion(1)
	nb.SetLocation(model.LocationFromDegrees(50.0, 10.0))
	require.NoError(t, nb.AddTag("natural", "peak"))
	_, err = nb.Finish()
	require.NoError(t, err)

	file, err := osmio.ParseFile("out.osm")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(buf))
	require.NoError(t, w.Close())

	out := raw.String()
	assert.Contains(t, out, `<node id="1" version="1" lat="50.0000000" lon="10.0000000">`)
	assert.Contains(t, out, `<tag k="natural" v="peak"/>`)
	assert.Contains(t, out, "</node>")
}

func TestOsmChangeRoundTrip(t *testing.T) {
	buf, err := mem.NewBuffer(16 * 1024)
	require.NoError(t, err)

	add := func(id model.ObjectID, version uint32, visible bool) {
		ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(id).SetVersion(version).SetVisible(visible)
		ob.SetLocation(model.LocationFromDegrees(1, 2))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	add(1, 1, true)  // create
	add(2, 4, true)  // modify
	add(3, 9, false) // delete

	file, err := osmio.ParseFile("diff.osc")
	require.NoError(t, err)

	var raw bytes.Buffer
	hdr := &model.Header{HasMultipleObjectVersions: true}

	w, err := osmio.NewWriterTo(file, &raw, hdr)
	require.NoError(t, err)
	require.NoError(t, w.Write(buf))
	require.NoError(t, w.Close())

	out := raw.String()
	assert.Contains(t, out, "<osmChange")
	assert.Contains(t, out, "<create>")
	assert.Contains(t, out, "<modify>")
	assert.Contains(t, out, "<delete>")

	r, err := osmio.NewReaderFrom(file, strings.NewReader(out))
	require.NoError(t, err)
	defer r.Close()

	got := collect(mergeBuffers(t, collectAll(t, r)))
	require.Len(t, got, 3)
	assert.True(t, got[0].Visible())
	assert.True(t, got[1].Visible())
	assert.False(t, got[2].Visible())
	assert.Equal(t, uint32(9), got[2].Version())
}

func TestGzipXMLRoundTrip(t *testing.T) {
	src := buildTestBuffer(t)

	file, err := osmio.ParseFile("extract.osm.gz")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	// gzip magic
	require.GreaterOrEqual(t, raw.Len(), 2)
	assert.Equal(t, byte(0x1f), raw.Bytes()[0])
	assert.Equal(t, byte(0x8b), raw.Bytes()[1])

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	assertEquivalent(t, src, mergeBuffers(t, collectAll(t, r)))
}

func TestOrderingAcrossManyBlocks(t *testing.T) {
	const nodes = 20000 // forces several primitive blocks

	src, err := mem.NewBuffer(8 * 1024 * 1024)
	require.NoError(t, err)

	for i := 1; i <= nodes; i++ {
		ob, err := mem.NewObjectBuilder(src, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(model.ObjectID(i)).SetVersion(1)
		ob.SetLocation(model.LocationFromDegrees(1, 2))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	file, err := osmio.ParseFile("many.osm.pbf")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	buffers := collectAll(t, r)
	assert.Greater(t, len(buffers), 1, "expected several blobs")

	next := model.ObjectID(1)
	for _, buf := range buffers {
		for obj := range buf.Objects() {
			require.Equal(t, next, obj.ID())
			next++
		}
	}

	assert.Equal(t, model.ObjectID(nodes+1), next)
}

func TestObjectsStreamPreservesOrder(t *testing.T) {
	const nodes = 9000

	src, err := mem.NewBuffer(4 * 1024 * 1024)
	require.NoError(t, err)

	for i := 1; i <= nodes; i++ {
		ob, err := mem.NewObjectBuilder(src, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(model.ObjectID(i)).SetVersion(1)
		ob.SetLocation(model.LocationFromDegrees(1, 2))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	file, err := osmio.ParseFile("stream.osm.pbf")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	next := model.ObjectID(1)
	err = rill.ForEach(r.Objects(4), 1, func(obj mem.Object) error {
		assert.Equal(t, next, obj.ID())
		next++

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.ObjectID(nodes+1), next)
}

func TestTruncatedPBFSurfacesError(t *testing.T) {
	src := buildTestBuffer(t)

	file, err := osmio.ParseFile("trunc.osm.pbf")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	// chop the stream inside the last blob
	data := raw.Bytes()[:raw.Len()-7]

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	var sawErr error
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			sawErr = err
			break
		}
	}

	require.Error(t, sawErr)
	assert.ErrorIs(t, sawErr, osmio.ErrFormat)

	// the stream is terminal after the error
	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReaderCloseBeforeEndOfStream(t *testing.T) {
	const nodes = 30000

	src, err := mem.NewBuffer(16 * 1024 * 1024)
	require.NoError(t, err)

	for i := 1; i <= nodes; i++ {
		ob, err := mem.NewObjectBuilder(src, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(model.ObjectID(i)).SetVersion(1)
		ob.SetLocation(model.LocationFromDegrees(1, 2))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	file, err := osmio.ParseFile("early.osm.pbf")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Close())

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)

	// read one buffer, then abandon the rest
	_, err = r.Read()
	require.NoError(t, err)

	require.NoError(t, r.Close())
}

func TestWriterRejectsLzma(t *testing.T) {
	file, err := osmio.ParseFile("out.osm.pbf?pbf_compression=lzma")
	require.NoError(t, err)

	var raw bytes.Buffer
	_, err = osmio.NewWriterTo(file, &raw, nil)
	assert.ErrorIs(t, err, osmio.ErrFormat)
}

func TestPBFHeaderRoundTrip(t *testing.T) {
	hdr := &model.Header{WritingProgram: "osmio-test", Source: "unit"}
	hdr.AddBoundingBox(model.BoundingBox{Left: -10, Right: 10, Top: 50, Bottom: -50})

	file, err := osmio.ParseFile("hdr.osm.pbf")
	require.NoError(t, err)

	var raw bytes.Buffer
	w, err := osmio.NewWriterTo(file, &raw, hdr)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := osmio.NewReaderFrom(file, bytes.NewReader(raw.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	got := r.Header()
	require.NotNil(t, got)
	assert.Equal(t, "osmio-test", got.WritingProgram)
	require.NotNil(t, got.BoundingBox())
	assert.True(t, got.BoundingBox().EqualWithin(hdr.BoundingBox(), model.E7))

	buffers := collectAll(t, r)
	assert.Empty(t, buffers)
}
