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

// Package xmlio implements the OSM 0.6 XML and osmChange dialects: a
// streaming decoder that accumulates objects into item buffers, and a
// per-buffer encoder producing UTF-8 text.
package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

const (
	// BufferSize is the initial capacity of each accumulation buffer.
	BufferSize = 10 * 1024 * 1024

	// MaxEntitiesPerBuffer bounds the objects per emitted buffer.
	MaxEntitiesPerBuffer = 8000

	// flushWatermark hands a buffer off before it grows past its
	// initial capacity.
	flushWatermark = BufferSize * 9 / 10
)

// operation is the osmChange wrapper the parser is currently inside.
type operation int

const (
	opNone operation = iota
	opCreate
	opModify
	opDelete
)

// pendingObject collects one object's attributes and children until its
// end element, at which point it is built into the buffer with the
// sub-items in canonical order.
type pendingObject struct {
	kind    mem.ItemType
	id      model.ObjectID
	version uint32
	ts      model.Timestamp
	cs      int32
	uid     model.UID
	user    string
	visible bool
	loc     model.Location

	createdAt   model.Timestamp
	closedAt    model.Timestamp
	boundsMin   model.Location
	boundsMax   model.Location
	numChanges  int32
	numComments int32

	tags    [][2]string
	refs    []model.ObjectID
	members []pendingMember
	comments []pendingComment
}

type pendingMember struct {
	t    model.ObjectType
	ref  model.ObjectID
	role string
}

type pendingComment struct {
	date model.Timestamp
	uid  model.UID
	user string
	text string
}

// Parser is a streaming decoder for OSM XML and osmChange documents.
// It accumulates objects into buffers and hands each full buffer to the
// emit callback; the header callback fires once, before the first
// buffer.
type Parser struct {
	header func(*model.Header)
	emit   func(*mem.Buffer) error

	buf   *mem.Buffer
	count int

	hdr      model.Header
	hdrSent  bool
	sawRoot  bool
	isChange bool

	op      operation
	cur     *pendingObject
	comment *pendingComment
	inText  bool
}

// NewParser creates a parser delivering the header and full buffers to
// the given callbacks.
func NewParser(header func(*model.Header), emit func(*mem.Buffer) error) *Parser {
	return &Parser{header: header, emit: emit}
}

// Parse runs the document to completion. It always fires the header
// callback, even for an empty or failing document.
func (p *Parser) Parse(r io.Reader) error {
	defer p.sendHeader()

	decoder := xml.NewDecoder(r)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			if !p.sawRoot {
				return fmt.Errorf("%w: no osm or osmChange root element", errs.Format)
			}

			return p.flush()
		} else if err != nil {
			return fmt.Errorf("%w: %v", errs.Format, err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if err := p.startElement(tok); err != nil {
				return err
			}
		case xml.EndElement:
			if err := p.endElement(tok); err != nil {
				return err
			}
		case xml.CharData:
			if p.inText && p.comment != nil {
				p.comment.text += string(tok)
			}
		}
	}
}

func (p *Parser) sendHeader() {
	if p.hdrSent {
		return
	}

	p.hdrSent = true

	if p.header != nil {
		p.header(&p.hdr)
	}
}

func (p *Parser) startElement(tok xml.StartElement) error {
	switch tok.Name.Local {
	case "osm":
		p.sawRoot = true
		p.scanRoot(tok.Attr)
	case "osmChange":
		p.sawRoot = true
		p.isChange = true
		p.hdr.HasMultipleObjectVersions = true
		p.scanRoot(tok.Attr)
	case "bounds":
		p.scanBounds(tok.Attr)
	case "create":
		p.op = opCreate
	case "modify":
		p.op = opModify
	case "delete":
		p.op = opDelete
	case "node":
		p.cur = p.newObject(mem.TypeNode, tok.Attr)
	case "way":
		p.cur = p.newObject(mem.TypeWay, tok.Attr)
	case "relation":
		p.cur = p.newObject(mem.TypeRelation, tok.Attr)
	case "changeset":
		p.cur = p.newObject(mem.TypeChangeset, tok.Attr)
	case "tag":
		if p.cur != nil {
			var k, v string

			for _, attr := range tok.Attr {
				switch attr.Name.Local {
				case "k":
					k = attr.Value
				case "v":
					v = attr.Value
				}
			}

			p.cur.tags = append(p.cur.tags, [2]string{k, v})
		}
	case "nd":
		if p.cur != nil && p.cur.kind == mem.TypeWay {
			for _, attr := range tok.Attr {
				if attr.Name.Local == "ref" {
					ref, err := strconv.ParseInt(attr.Value, 10, 64)
					if err != nil {
						return fmt.Errorf("%w: bad nd ref %q", errs.Format, attr.Value)
					}

					p.cur.refs = append(p.cur.refs, model.ObjectID(ref))
				}
			}
		}
	case "member":
		if p.cur != nil && p.cur.kind == mem.TypeRelation {
			if err := p.scanMember(tok.Attr); err != nil {
				return err
			}
		}
	case "discussion":
		// comments follow
	case "comment":
		if p.cur != nil && p.cur.kind == mem.TypeChangeset {
			p.comment = &pendingComment{}

			for _, attr := range tok.Attr {
				switch attr.Name.Local {
				case "date":
					p.comment.date, _ = model.ParseTimestamp(attr.Value)
				case "uid":
					uid, _ := strconv.ParseInt(attr.Value, 10, 32)
					p.comment.uid = model.UID(uid)
				case "user":
					p.comment.user = attr.Value
				}
			}
		}
	case "text":
		p.inText = true
	default:
		// unknown elements are skipped, like unknown attributes
	}

	return nil
}

func (p *Parser) endElement(tok xml.EndElement) error {
	switch tok.Name.Local {
	case "node", "way", "relation", "changeset":
		if p.cur == nil {
			return fmt.Errorf("%w: unbalanced </%s>", errs.Format, tok.Name.Local)
		}

		if err := p.build(p.cur); err != nil {
			return err
		}

		p.cur = nil
	case "create", "modify", "delete":
		p.op = opNone
	case "comment":
		if p.cur != nil && p.comment != nil {
			p.cur.comments = append(p.cur.comments, *p.comment)
			p.comment = nil
		}
	case "text":
		p.inText = false
	case "osm", "osmChange":
		// trailer; EOF follows
	}

	return nil
}

func (p *Parser) scanRoot(attrs []xml.Attr) {
	for _, attr := range attrs {
		if attr.Name.Local == "generator" {
			p.hdr.WritingProgram = attr.Value
		}
	}
}

func (p *Parser) scanBounds(attrs []xml.Attr) {
	var box model.BoundingBox

	for _, attr := range attrs {
		deg, err := model.ParseDegrees(attr.Value)
		if err != nil {
			continue
		}

		switch attr.Name.Local {
		case "minlon":
			box.Left = deg
		case "minlat":
			box.Bottom = deg
		case "maxlon":
			box.Right = deg
		case "maxlat":
			box.Top = deg
		}
	}

	p.hdr.AddBoundingBox(box)
}

func (p *Parser) scanMember(attrs []xml.Attr) error {
	member := pendingMember{}

	for _, attr := range attrs {
		switch attr.Name.Local {
		case "type":
			t, ok := model.ObjectTypeValues[attr.Value]
			if !ok {
				return fmt.Errorf("%w: unknown member type %q", errs.Format, attr.Value)
			}

			member.t = t
		case "ref":
			ref, err := strconv.ParseInt(attr.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad member ref %q", errs.Format, attr.Value)
			}

			member.ref = model.ObjectID(ref)
		case "role":
			member.role = attr.Value
		}
	}

	p.cur.members = append(p.cur.members, member)

	return nil
}

// newObject captures the attributes of an object start element.
func (p *Parser) newObject(kind mem.ItemType, attrs []xml.Attr) *pendingObject {
	obj := &pendingObject{
		kind:      kind,
		visible:   true,
		loc:       model.UndefinedLocation(),
		boundsMin: model.UndefinedLocation(),
		boundsMax: model.UndefinedLocation(),
	}

	var lat, lon model.Degrees
	var haveLat, haveLon bool
	var minLat, minLon, maxLat, maxLon model.Degrees
	var haveBounds bool

	for _, attr := range attrs {
		switch attr.Name.Local {
		case "id":
			id, _ := strconv.ParseInt(attr.Value, 10, 64)
			obj.id = model.ObjectID(id)
		case "version":
			v, _ := strconv.ParseUint(attr.Value, 10, 32)
			obj.version = uint32(v)
		case "timestamp":
			obj.ts, _ = model.ParseTimestamp(attr.Value)
		case "changeset":
			cs, _ := strconv.ParseInt(attr.Value, 10, 32)
			obj.cs = int32(cs)
		case "uid":
			uid, _ := strconv.ParseInt(attr.Value, 10, 32)
			obj.uid = model.UID(uid)
		case "user":
			obj.user = attr.Value
		case "visible":
			obj.visible = attr.Value != "false"
		case "lat":
			lat, _ = model.ParseDegrees(attr.Value)
			haveLat = true
		case "lon":
			lon, _ = model.ParseDegrees(attr.Value)
			haveLon = true
		case "created_at":
			obj.createdAt, _ = model.ParseTimestamp(attr.Value)
		case "closed_at":
			obj.closedAt, _ = model.ParseTimestamp(attr.Value)
		case "min_lat":
			minLat, _ = model.ParseDegrees(attr.Value)
			haveBounds = true
		case "min_lon":
			minLon, _ = model.ParseDegrees(attr.Value)
			haveBounds = true
		case "max_lat":
			maxLat, _ = model.ParseDegrees(attr.Value)
			haveBounds = true
		case "max_lon":
			maxLon, _ = model.ParseDegrees(attr.Value)
			haveBounds = true
		case "num_changes":
			n, _ := strconv.ParseInt(attr.Value, 10, 32)
			obj.numChanges = int32(n)
		case "comments_count":
			n, _ := strconv.ParseInt(attr.Value, 10, 32)
			obj.numComments = int32(n)
		}
	}

	if kind == mem.TypeNode && haveLat && haveLon {
		obj.loc = model.LocationFromDegrees(lat, lon)
	}

	if kind == mem.TypeChangeset && haveBounds {
		obj.boundsMin = model.LocationFromDegrees(minLat, minLon)
		obj.boundsMax = model.LocationFromDegrees(maxLat, maxLon)
	}

	// inside an osmChange delete block the visible flag is false no
	// matter what the source attribute says
	if p.op == opDelete {
		obj.visible = false
	}

	return obj
}

// build writes one pending object into the buffer, flushing first when
// the buffer is at capacity.
func (p *Parser) build(obj *pendingObject) error {
	if p.buf == nil {
		buf, err := mem.NewBuffer(BufferSize)
		if err != nil {
			return err
		}

		p.buf = buf
	} else if p.count >= MaxEntitiesPerBuffer || p.buf.Committed() >= flushWatermark {
		if err := p.flush(); err != nil {
			return err
		}

		buf, err := mem.NewBuffer(BufferSize)
		if err != nil {
			return err
		}

		p.buf = buf
	}

	// the header must be resolved before the first object buffer
	p.sendHeader()

	ob, err := mem.NewObjectBuilder(p.buf, obj.kind)
	if err != nil {
		return err
	}

	ob.SetID(obj.id).SetVersion(obj.version).SetTimestamp(obj.ts)
	ob.SetChangeset(obj.cs).SetUID(obj.uid).SetVisible(obj.visible)

	switch obj.kind {
	case mem.TypeNode:
		ob.SetLocation(obj.loc)
	case mem.TypeChangeset:
		ob.SetCreatedAt(obj.createdAt).SetClosedAt(obj.closedAt)
		ob.SetBounds(obj.boundsMin, obj.boundsMax)
		ob.SetNumChanges(obj.numChanges).SetNumComments(obj.numComments)
	}

	if err := p.buildSubItems(ob, obj); err != nil {
		ob.Abandon()
		return err
	}

	if _, err := ob.Finish(); err != nil {
		return err
	}

	p.count++

	return nil
}

func (p *Parser) buildSubItems(ob *mem.ObjectBuilder, obj *pendingObject) error {
	if err := ob.SetUser(obj.user); err != nil {
		return err
	}

	for _, tag := range obj.tags {
		if err := ob.AddTag(tag[0], tag[1]); err != nil {
			return err
		}
	}

	for _, ref := range obj.refs {
		if err := ob.AddNodeRef(ref); err != nil {
			return err
		}
	}

	for _, m := range obj.members {
		if err := ob.AddMember(m.t, m.ref, m.role); err != nil {
			return err
		}
	}

	for _, c := range obj.comments {
		if err := ob.AddComment(c.date, c.uid, c.user, c.text); err != nil {
			return err
		}
	}

	return nil
}

// flush hands the current buffer to the consumer.
func (p *Parser) flush() error {
	if p.buf == nil || p.buf.Committed() == 0 {
		return nil
	}

	buf := p.buf
	p.buf = nil
	p.count = 0

	return p.emit(buf)
}
