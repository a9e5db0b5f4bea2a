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

package xmlio_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/internal/xmlio"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

func parseAll(t *testing.T, doc string) (*model.Header, []*mem.Buffer) {
	t.Helper()

	var header *model.Header
	var buffers []*mem.Buffer

	p := xmlio.NewParser(
		func(h *model.Header) { header = h },
		func(b *mem.Buffer) error { buffers = append(buffers, b); return nil },
	)

	require.NoError(t, p.Parse(strings.NewReader(doc)))
	require.NotNil(t, header)

	return header, buffers
}

func objects(buffers []*mem.Buffer) []mem.Object {
	var out []mem.Object

	for _, buf := range buffers {
		for obj := range buf.Objects() {
			out = append(out, obj)
		}
	}

	return out
}

const osmDoc = `<?xml version='1.0' encoding='UTF-8'?>
<osm version="0.6" generator="test-gen">
  <bounds minlon="9.0000000" minlat="49.0000000" maxlon="11.0000000" maxlat="51.0000000"/>
  <node id="1" version="1" timestamp="2012-01-01T00:00:00Z" uid="5" user="mapper" changeset="21" lat="50.0000000" lon="10.0000000">
    <tag k="natural" v="peak"/>
  </node>
  <way id="2" version="2">
    <nd ref="10"/>
    <nd ref="12"/>
    <nd ref="11"/>
    <tag k="highway" v="path"/>
  </way>
  <relation id="3" version="1">
    <member type="node" ref="5" role="start"/>
    <member type="way" ref="7" role="via"/>
    <member type="relation" ref="9" role="end"/>
  </relation>
</osm>
`

func TestParseOsmDocument(t *testing.T) {
	header, buffers := parseAll(t, osmDoc)

	assert.Equal(t, "test-gen", header.WritingProgram)
	require.NotNil(t, header.BoundingBox())
	assert.Equal(t, model.Degrees(9), header.BoundingBox().Left)
	assert.Equal(t, model.Degrees(51), header.BoundingBox().Top)

	objs := objects(buffers)
	require.Len(t, objs, 3)

	node := mem.Node{Object: objs[0]}
	assert.Equal(t, model.ObjectID(1), node.ID())
	assert.Equal(t, "mapper", node.User())
	assert.Equal(t, model.UID(5), node.UID())
	assert.Equal(t, int32(21), node.Changeset())
	assert.Equal(t, model.Degrees(50), node.Location().Lat())
	assert.Equal(t, "peak", node.Tags().Get("natural"))

	way := mem.Way{Object: objs[1]}
	refs := make([]model.ObjectID, 0, 3)
	for r := range way.Nodes().All() {
		refs = append(refs, r)
	}
	assert.Equal(t, []model.ObjectID{10, 12, 11}, refs)
	assert.Equal(t, "path", way.Tags().Get("highway"))

	rel := mem.Relation{Object: objs[2]}
	assert.Equal(t, 3, rel.Members().Len())
}

func TestParseOsmChangeForcesInvisibleDeletes(t *testing.T) {
	doc := `<osmChange version="0.6" generator="t">
  <create>
    <node id="1" version="1" lat="1.0000000" lon="2.0000000"/>
  </create>
  <modify>
    <node id="2" version="3" lat="1.0000000" lon="2.0000000"/>
  </modify>
  <delete>
    <node id="3" version="4" visible="true" lat="1.0000000" lon="2.0000000"/>
  </delete>
</osmChange>
`

	header, buffers := parseAll(t, doc)
	assert.True(t, header.HasMultipleObjectVersions)

	objs := objects(buffers)
	require.Len(t, objs, 3)

	assert.True(t, objs[0].Visible())
	assert.True(t, objs[1].Visible())
	assert.False(t, objs[2].Visible(), "delete block must force visible=false")
}

func TestParseRejectsGarbage(t *testing.T) {
	p := xmlio.NewParser(nil, func(*mem.Buffer) error { return nil })
	err := p.Parse(strings.NewReader("this is not xml at all <<<"))
	assert.ErrorIs(t, err, errs.Format)

	p = xmlio.NewParser(nil, func(*mem.Buffer) error { return nil })
	err = p.Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, errs.Format)
}

func buildNodeBuffer(t *testing.T) *mem.Buffer {
	t.Helper()

	buf, err := mem.NewBuffer(8192)
	require.NoError(t, err)

	ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
	require.NoError(t, err)
	ob.SetID(1).SetVersion(1)
	ob.SetLocation(model.LocationFromDegrees(50.0, 10.0))
	require.NoError(t, ob.AddTag("natural", "peak"))
	_, err = ob.Finish()
	require.NoError(t, err)

	return buf
}

func TestEncodeNodeExactFormat(t *testing.T) {
	out, err := xmlio.EncodeBuffer(buildNodeBuffer(t), xmlio.EncoderOptions{AddMetadata: true})
	require.NoError(t, err)

	assert.Contains(t, out, `<node id="1" version="1" lat="50.0000000" lon="10.0000000">`)
	assert.Contains(t, out, `<tag k="natural" v="peak"/>`)
	assert.Contains(t, out, "</node>")
}

func TestEncodeHeaderAndTrailer(t *testing.T) {
	header := &model.Header{}
	header.AddBoundingBox(model.BoundingBox{Left: 9, Bottom: 49, Right: 11, Top: 51})

	out := xmlio.EncodeHeader(header, xmlio.EncoderOptions{Generator: "osmio/1.0"})
	assert.Contains(t, out, "<?xml version='1.0' encoding='UTF-8'?>")
	assert.Contains(t, out, `<osm version="0.6" generator="osmio/1.0">`)
	assert.Contains(t, out, `<bounds minlon="9.0000000" minlat="49.0000000" maxlon="11.0000000" maxlat="51.0000000"/>`)

	assert.Equal(t, "</osm>\n", xmlio.EncodeTrailer(xmlio.EncoderOptions{}))
	assert.Equal(t, "</osmChange>\n", xmlio.EncodeTrailer(xmlio.EncoderOptions{ChangeFormat: true}))
}

func TestEscapingRoundTrip(t *testing.T) {
	nasty := "a&b\"c'd<e>f\ng\rh\ti"

	buf, err := mem.NewBuffer(8192)
	require.NoError(t, err)

	ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
	require.NoError(t, err)
	ob.SetID(1).SetVersion(1)
	ob.SetLocation(model.LocationFromDegrees(1, 2))
	require.NoError(t, ob.AddTag("note", nasty))
	_, err = ob.Finish()
	require.NoError(t, err)

	body, err := xmlio.EncodeBuffer(buf, xmlio.EncoderOptions{AddMetadata: true})
	require.NoError(t, err)
	assert.Contains(t, body, "&amp;")
	assert.Contains(t, body, "&quot;")
	assert.Contains(t, body, "&#xA;")

	doc := xmlio.EncodeHeader(&model.Header{}, xmlio.EncoderOptions{Generator: "t"}) +
		body + xmlio.EncodeTrailer(xmlio.EncoderOptions{})

	_, buffers := parseAll(t, doc)
	objs := objects(buffers)
	require.Len(t, objs, 1)
	assert.Equal(t, nasty, objs[0].Tags().Get("note"))
}

func TestChangeFormatTransitions(t *testing.T) {
	buf, err := mem.NewBuffer(16384)
	require.NoError(t, err)

	add := func(id model.ObjectID, version uint32, visible bool) {
		ob, err := mem.NewObjectBuilder(buf, mem.TypeNode)
		require.NoError(t, err)
		ob.SetID(id).SetVersion(version).SetVisible(visible)
		ob.SetLocation(model.LocationFromDegrees(1, 2))
		_, err = ob.Finish()
		require.NoError(t, err)
	}

	add(1, 1, true) // create
	add(2, 1, true) // create, same wrapper continues
	add(3, 2, true) // modify
	add(4, 9, false) // delete

	out, err := xmlio.EncodeBuffer(buf, xmlio.EncoderOptions{AddMetadata: true, ChangeFormat: true})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "<create>"))
	assert.Equal(t, 1, strings.Count(out, "</create>"))
	assert.Equal(t, 1, strings.Count(out, "<modify>"))
	assert.Equal(t, 1, strings.Count(out, "<delete>"))
	assert.Equal(t, 1, strings.Count(out, "</delete>"))

	// all wrappers are closed at the end of the buffer
	assert.Less(t, strings.LastIndex(out, "</delete>"), len(out))
	assert.True(t, strings.HasSuffix(out, "</delete>\n"))
}

func TestChangesetRoundTrip(t *testing.T) {
	buf, err := mem.NewBuffer(16384)
	require.NoError(t, err)

	created, _ := model.ParseTimestamp("2020-05-01T10:00:00Z")
	closed, _ := model.ParseTimestamp("2020-05-01T11:00:00Z")
	commented, _ := model.ParseTimestamp("2020-05-02T09:30:00Z")

	ob, err := mem.NewObjectBuilder(buf, mem.TypeChangeset)
	require.NoError(t, err)
	ob.SetID(42).SetUID(7)
	ob.SetCreatedAt(created).SetClosedAt(closed)
	ob.SetBounds(model.LocationFromDegrees(-1, -2), model.LocationFromDegrees(1, 2))
	ob.SetNumChanges(12).SetNumComments(1)
	require.NoError(t, ob.SetUser("mapper"))
	require.NoError(t, ob.AddTag("comment", "survey"))
	require.NoError(t, ob.AddComment(commented, 9, "reviewer", "nice work"))
	_, err = ob.Finish()
	require.NoError(t, err)

	body, err := xmlio.EncodeBuffer(buf, xmlio.EncoderOptions{AddMetadata: true})
	require.NoError(t, err)

	doc := xmlio.EncodeHeader(&model.Header{}, xmlio.EncoderOptions{Generator: "t"}) +
		body + xmlio.EncodeTrailer(xmlio.EncoderOptions{})

	_, buffers := parseAll(t, doc)
	objs := objects(buffers)
	require.Len(t, objs, 1)

	cs := mem.Changeset{Object: objs[0]}
	assert.Equal(t, model.ObjectID(42), cs.ID())
	assert.Equal(t, created, cs.CreatedAt())
	assert.Equal(t, closed, cs.ClosedAt())
	assert.Equal(t, int32(12), cs.NumChanges())
	assert.Equal(t, "mapper", cs.User())
	assert.Equal(t, "survey", cs.Tags().Get("comment"))

	require.Equal(t, 1, cs.Discussion().Len())
	for c := range cs.Discussion().All() {
		assert.Equal(t, commented, c.Date())
		assert.Equal(t, model.UID(9), c.UID())
		assert.Equal(t, "reviewer", c.User())
		assert.Equal(t, "nice work", c.Text())
	}
}
