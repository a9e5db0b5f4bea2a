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

import (
	"time"
)

// Header describes the file-level metadata of an OSM file: bounding
// boxes, the program that wrote it, and osmosis replication state.
type Header struct {
	BoundingBoxes                    []BoundingBox `json:"bounding_boxes,omitempty"`
	RequiredFeatures                 []string      `json:"required_features,omitempty"`
	OptionalFeatures                 []string      `json:"optional_features,omitempty"`
	WritingProgram                   string        `json:"writing_program,omitempty"`
	Source                           string        `json:"source,omitempty"`
	OsmosisReplicationTimestamp      time.Time     `json:"osmosis_replication_timestamp,omitempty"`
	OsmosisReplicationSequenceNumber int64         `json:"osmosis_replication_sequence_number,omitempty"`
	OsmosisReplicationBaseURL        string        `json:"osmosis_replication_base_url,omitempty"`

	// HasMultipleObjectVersions is true for history and change files.
	HasMultipleObjectVersions bool `json:"has_multiple_object_versions,omitempty"`
}

// AddBoundingBox appends a bounding box to the header.
func (h *Header) AddBoundingBox(b BoundingBox) {
	h.BoundingBoxes = append(h.BoundingBoxes, b)
}

// BoundingBox returns the first bounding box, or nil if the header has none.
func (h *Header) BoundingBox() *BoundingBox {
	if len(h.BoundingBoxes) == 0 {
		return nil
	}

	return &h.BoundingBoxes[0]
}
