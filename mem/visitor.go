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

// Handler receives one callback per concrete item kind during a buffer
// walk. Embed NoopHandler to implement only the methods of interest.
type Handler interface {
	Node(Node) error
	Way(Way) error
	Relation(Relation) error
	Changeset(Changeset) error
	TagList(TagList) error
	NodeRefList(NodeRefList) error
	RelationMemberList(RelationMemberList) error
}

// NoopHandler implements Handler with no-ops for every item kind.
type NoopHandler struct{}

func (NoopHandler) Node(Node) error                             { return nil }
func (NoopHandler) Way(Way) error                               { return nil }
func (NoopHandler) Relation(Relation) error                     { return nil }
func (NoopHandler) Changeset(Changeset) error                   { return nil }
func (NoopHandler) TagList(TagList) error                       { return nil }
func (NoopHandler) NodeRefList(NodeRefList) error               { return nil }
func (NoopHandler) RelationMemberList(RelationMemberList) error { return nil }

// Apply walks all committed items of the buffer in order and dispatches
// each to every handler in declaration order. Dispatch is a switch on
// the stored type tag; no allocation happens on the walk. The first
// handler error stops the walk.
func Apply(b *Buffer, handlers ...Handler) error {
	for item := range b.Items() {
		if err := dispatch(item, handlers); err != nil {
			return err
		}
	}

	return nil
}

// ApplyItem dispatches a single item to every handler in order.
func ApplyItem(item Item, handlers ...Handler) error {
	return dispatch(item, handlers)
}

func dispatch(item Item, handlers []Handler) error {
	for _, h := range handlers {
		var err error

		switch item.Type() {
		case TypeNode:
			err = h.Node(Node{Object: item.Object()})
		case TypeWay:
			err = h.Way(Way{Object: item.Object()})
		case TypeRelation:
			err = h.Relation(Relation{Object: item.Object()})
		case TypeChangeset:
			err = h.Changeset(Changeset{Object: item.Object()})
		case TypeTagList:
			err = h.TagList(TagList{Item: item})
		case TypeNodeRefList:
			err = h.NodeRefList(NodeRefList{Item: item})
		case TypeRelationMemberList:
			err = h.RelationMemberList(RelationMemberList{Item: item})
		default:
			// other item kinds only occur nested inside objects
		}

		if err != nil {
			return err
		}
	}

	return nil
}
