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

package xmlio

import (
	"strconv"
	"strings"

	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

// EncoderOptions selects the XML dialect and verbosity.
type EncoderOptions struct {
	// AddMetadata emits version/timestamp/uid/user/changeset.
	AddMetadata bool

	// ChangeFormat emits osmChange with create/modify/delete wrappers.
	ChangeFormat bool

	// WriteVisibleFlag emits visible="true|false" on every object. It
	// is implied for history files and ignored in change format.
	WriteVisibleFlag bool

	// Generator is written into the root element.
	Generator string
}

// blockEncoder serializes one buffer into UTF-8 text. Each buffer is a
// self-contained task; the per-worker operation state never spans
// buffers because wrapper tags are closed at the end of each one.
type blockEncoder struct {
	mem.NoopHandler

	out  strings.Builder
	opts EncoderOptions

	lastOp operation
}

// EncodeBuffer renders all objects of the buffer in order.
func EncodeBuffer(buf *mem.Buffer, opts EncoderOptions) (string, error) {
	enc := &blockEncoder{opts: opts}
	if opts.ChangeFormat {
		enc.opts.WriteVisibleFlag = false
	}

	if err := mem.Apply(buf, enc); err != nil {
		return "", err
	}

	if opts.ChangeFormat {
		enc.openCloseOpTag(opNone)
	}

	return enc.out.String(), nil
}

// EncodeHeader renders the XML declaration, the root element, and the
// header's bounding boxes.
func EncodeHeader(header *model.Header, opts EncoderOptions) string {
	var out strings.Builder

	out.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")

	if opts.ChangeFormat {
		out.WriteString(`<osmChange version="0.6" generator="`)
		writeEscaped(&out, opts.Generator)
		out.WriteString("\">\n")
	} else {
		out.WriteString(`<osm version="0.6" generator="`)
		writeEscaped(&out, opts.Generator)
		out.WriteString("\">\n")
	}

	for _, box := range header.BoundingBoxes {
		out.WriteString("  <bounds minlon=\"")
		out.WriteString(formatCoordinate(box.Left))
		out.WriteString("\" minlat=\"")
		out.WriteString(formatCoordinate(box.Bottom))
		out.WriteString("\" maxlon=\"")
		out.WriteString(formatCoordinate(box.Right))
		out.WriteString("\" maxlat=\"")
		out.WriteString(formatCoordinate(box.Top))
		out.WriteString("\"/>\n")
	}

	return out.String()
}

// EncodeTrailer renders the closing root element.
func EncodeTrailer(opts EncoderOptions) string {
	if opts.ChangeFormat {
		return "</osmChange>\n"
	}

	return "</osm>\n"
}

// formatCoordinate prints degrees with exactly 7 fractional digits,
// independent of locale.
func formatCoordinate(d model.Degrees) string {
	return strconv.FormatFloat(float64(d), 'f', 7, 64)
}

// writeEscaped writes s with the XML entities and the three control
// characters escaped.
func writeEscaped(out *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '"':
			out.WriteString("&quot;")
		case '\'':
			out.WriteString("&apos;")
		case '<':
			out.WriteString("&lt;")
		case '>':
			out.WriteString("&gt;")
		case '\n':
			out.WriteString("&#xA;")
		case '\r':
			out.WriteString("&#xD;")
		case '\t':
			out.WriteString("&#x9;")
		default:
			out.WriteRune(r)
		}
	}
}

func (e *blockEncoder) prefixSpaces() int {
	if e.opts.ChangeFormat {
		return 4
	}

	return 2
}

func (e *blockEncoder) writePrefix() {
	e.writeSpaces(e.prefixSpaces())
}

func (e *blockEncoder) writeSpaces(n int) {
	for range n {
		e.out.WriteByte(' ')
	}
}

// operationOf derives the osmChange wrapper for an object: deleted
// objects are invisible, version one means created, anything else is a
// modification.
func operationOf(o mem.Object) operation {
	if !o.Visible() {
		return opDelete
	}

	if o.Version() == 1 {
		return opCreate
	}

	return opModify
}

// openCloseOpTag emits wrapper close and open tags at operation
// transitions only.
func (e *blockEncoder) openCloseOpTag(op operation) {
	if op == e.lastOp {
		return
	}

	switch e.lastOp {
	case opCreate:
		e.out.WriteString("  </create>\n")
	case opModify:
		e.out.WriteString("  </modify>\n")
	case opDelete:
		e.out.WriteString("  </delete>\n")
	}

	switch op {
	case opCreate:
		e.out.WriteString("  <create>\n")
	case opModify:
		e.out.WriteString("  <modify>\n")
	case opDelete:
		e.out.WriteString("  <delete>\n")
	}

	e.lastOp = op
}

// writeMeta emits the attributes shared by nodes, ways, and relations.
func (e *blockEncoder) writeMeta(o mem.Object) {
	e.out.WriteString(" id=\"")
	e.out.WriteString(strconv.FormatInt(int64(o.ID()), 10))
	e.out.WriteByte('"')

	if !e.opts.AddMetadata {
		return
	}

	if o.Version() != 0 {
		e.out.WriteString(" version=\"")
		e.out.WriteString(strconv.FormatUint(uint64(o.Version()), 10))
		e.out.WriteByte('"')
	}

	if o.Timestamp().Valid() {
		e.out.WriteString(" timestamp=\"")
		e.out.WriteString(o.Timestamp().ISO())
		e.out.WriteByte('"')
	}

	if !o.Anonymous() {
		e.out.WriteString(" uid=\"")
		e.out.WriteString(strconv.FormatInt(int64(o.UID()), 10))
		e.out.WriteString("\" user=\"")
		writeEscaped(&e.out, o.User())
		e.out.WriteByte('"')
	}

	if o.Changeset() != 0 {
		e.out.WriteString(" changeset=\"")
		e.out.WriteString(strconv.FormatInt(int64(o.Changeset()), 10))
		e.out.WriteByte('"')
	}

	if e.opts.WriteVisibleFlag {
		if o.Visible() {
			e.out.WriteString(" visible=\"true\"")
		} else {
			e.out.WriteString(" visible=\"false\"")
		}
	}
}

func (e *blockEncoder) writeTags(tags mem.TagList, spaces int) {
	for k, v := range tags.All() {
		e.writeSpaces(spaces)
		e.out.WriteString("  <tag k=\"")
		writeEscaped(&e.out, k)
		e.out.WriteString("\" v=\"")
		writeEscaped(&e.out, v)
		e.out.WriteString("\"/>\n")
	}
}

func (e *blockEncoder) Node(n mem.Node) error {
	if e.opts.ChangeFormat {
		e.openCloseOpTag(operationOf(n.Object))
	}

	e.writePrefix()
	e.out.WriteString("<node")
	e.writeMeta(n.Object)

	if loc := n.Location(); loc.Defined() {
		e.out.WriteString(" lat=\"")
		e.out.WriteString(formatCoordinate(loc.Lat()))
		e.out.WriteString("\" lon=\"")
		e.out.WriteString(formatCoordinate(loc.Lon()))
		e.out.WriteByte('"')
	}

	tags := n.Tags()
	if tags.Empty() {
		e.out.WriteString("/>\n")
		return nil
	}

	e.out.WriteString(">\n")
	e.writeTags(tags, e.prefixSpaces())
	e.writePrefix()
	e.out.WriteString("</node>\n")

	return nil
}

func (e *blockEncoder) Way(w mem.Way) error {
	if e.opts.ChangeFormat {
		e.openCloseOpTag(operationOf(w.Object))
	}

	e.writePrefix()
	e.out.WriteString("<way")
	e.writeMeta(w.Object)

	tags := w.Tags()
	refs := w.Nodes()

	if tags.Empty() && refs.Len() == 0 {
		e.out.WriteString("/>\n")
		return nil
	}

	e.out.WriteString(">\n")

	for ref := range refs.All() {
		e.writePrefix()
		e.out.WriteString("  <nd ref=\"")
		e.out.WriteString(strconv.FormatInt(int64(ref), 10))
		e.out.WriteString("\"/>\n")
	}

	e.writeTags(tags, e.prefixSpaces())
	e.writePrefix()
	e.out.WriteString("</way>\n")

	return nil
}

func (e *blockEncoder) Relation(r mem.Relation) error {
	if e.opts.ChangeFormat {
		e.openCloseOpTag(operationOf(r.Object))
	}

	e.writePrefix()
	e.out.WriteString("<relation")
	e.writeMeta(r.Object)

	tags := r.Tags()
	members := r.Members()

	if tags.Empty() && members.Len() == 0 {
		e.out.WriteString("/>\n")
		return nil
	}

	e.out.WriteString(">\n")

	for m := range members.All() {
		e.writePrefix()
		e.out.WriteString("  <member type=\"")
		e.out.WriteString(m.MemberType().String())
		e.out.WriteString("\" ref=\"")
		e.out.WriteString(strconv.FormatInt(int64(m.Ref()), 10))
		e.out.WriteString("\" role=\"")
		writeEscaped(&e.out, m.Role())
		e.out.WriteString("\"/>\n")
	}

	e.writeTags(tags, e.prefixSpaces())
	e.writePrefix()
	e.out.WriteString("</relation>\n")

	return nil
}

func (e *blockEncoder) Changeset(c mem.Changeset) error {
	e.out.WriteString(" <changeset id=\"")
	e.out.WriteString(strconv.FormatInt(int64(c.ID()), 10))
	e.out.WriteByte('"')

	if c.CreatedAt().Valid() {
		e.out.WriteString(" created_at=\"")
		e.out.WriteString(c.CreatedAt().ISO())
		e.out.WriteByte('"')
	}

	if c.ClosedAt().Valid() {
		e.out.WriteString(" closed_at=\"")
		e.out.WriteString(c.ClosedAt().ISO())
		e.out.WriteString("\" open=\"false\"")
	} else {
		e.out.WriteString(" open=\"true\"")
	}

	if !c.Anonymous() {
		e.out.WriteString(" user=\"")
		writeEscaped(&e.out, c.User())
		e.out.WriteString("\" uid=\"")
		e.out.WriteString(strconv.FormatInt(int64(c.UID()), 10))
		e.out.WriteByte('"')
	}

	if c.BoundsMin().Defined() && c.BoundsMax().Defined() {
		e.out.WriteString(" min_lat=\"")
		e.out.WriteString(formatCoordinate(c.BoundsMin().Lat()))
		e.out.WriteString("\" min_lon=\"")
		e.out.WriteString(formatCoordinate(c.BoundsMin().Lon()))
		e.out.WriteString("\" max_lat=\"")
		e.out.WriteString(formatCoordinate(c.BoundsMax().Lat()))
		e.out.WriteString("\" max_lon=\"")
		e.out.WriteString(formatCoordinate(c.BoundsMax().Lon()))
		e.out.WriteByte('"')
	}

	e.out.WriteString(" num_changes=\"")
	e.out.WriteString(strconv.FormatInt(int64(c.NumChanges()), 10))
	e.out.WriteString("\" comments_count=\"")
	e.out.WriteString(strconv.FormatInt(int64(c.NumComments()), 10))
	e.out.WriteByte('"')

	tags := c.Tags()
	discussion := c.Discussion()

	if tags.Empty() && discussion.Len() == 0 {
		e.out.WriteString("/>\n")
		return nil
	}

	e.out.WriteString(">\n")
	e.writeTags(tags, 0)

	if discussion.Len() > 0 {
		e.out.WriteString("  <discussion>\n")

		for comment := range discussion.All() {
			e.out.WriteString("   <comment uid=\"")
			e.out.WriteString(strconv.FormatInt(int64(comment.UID()), 10))
			e.out.WriteString("\" user=\"")
			writeEscaped(&e.out, comment.User())
			e.out.WriteString("\" date=\"")
			e.out.WriteString(comment.Date().ISO())
			e.out.WriteString("\">\n    <text>")
			writeEscaped(&e.out, comment.Text())
			e.out.WriteString("</text>\n   </comment>\n")
		}

		e.out.WriteString("  </discussion>\n")
	}

	e.out.WriteString(" </changeset>\n")

	return nil
}
