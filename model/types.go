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

package model

// ObjectID is the primary key of an OSM object. Negative ids are used
// for objects that have not been uploaded yet.
type ObjectID int64

// UID is the primary key for a user. Zero means anonymous.
type UID int32

// ObjectType is an enumeration of the OSM object kinds.
type ObjectType int32

const (
	// NODE denotes a node.
	NODE ObjectType = iota

	// WAY denotes a way.
	WAY

	// RELATION denotes a relation.
	RELATION

	// CHANGESET denotes a changeset.
	CHANGESET
)

var objectTypeNames = map[ObjectType]string{
	NODE:      "node",
	WAY:       "way",
	RELATION:  "relation",
	CHANGESET: "changeset",
}

// ObjectTypeValues maps the XML type attribute values used for relation
// members to object types.
var ObjectTypeValues = map[string]ObjectType{
	"node":      NODE,
	"way":       WAY,
	"relation":  RELATION,
	"changeset": CHANGESET,
}

func (t ObjectType) String() string {
	if s, ok := objectTypeNames[t]; ok {
		return s
	}

	return "unknown"
}
