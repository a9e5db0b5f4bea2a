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
	"math"
	"time"

	"m4o.io/osmio/internal/errs"
	"m4o.io/osmio/internal/pb"
	"m4o.io/osmio/model"
)

// Features this implementation understands in the required_features
// list of an OSMHeader blob.
const (
	FeatureSchema     = "OsmSchema-V0.6"
	FeatureDenseNodes = "DenseNodes"
	FeatureHistorical = "HistoricalInformation"
)

const nanodegreesPerDegree = 1e9

// DecodeHeader parses an OSMHeader blob payload. Required features this
// implementation does not understand fail the stream.
func DecodeHeader(payload []byte) (*model.Header, error) {
	hb := &pb.HeaderBlock{}
	if err := hb.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("%w: bad header block: %v", errs.Format, err)
	}

	header := &model.Header{
		RequiredFeatures:                 hb.RequiredFeatures,
		OptionalFeatures:                 hb.OptionalFeatures,
		WritingProgram:                   hb.WritingProgram,
		Source:                           hb.Source,
		OsmosisReplicationSequenceNumber: hb.OsmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        hb.OsmosisReplicationBaseURL,
	}

	for _, f := range hb.RequiredFeatures {
		switch f {
		case FeatureSchema, FeatureDenseNodes:
		case FeatureHistorical:
			header.HasMultipleObjectVersions = true
		default:
			return nil, fmt.Errorf("%w: cannot read file with required feature %q", errs.Format, f)
		}
	}

	if hb.Bbox != nil {
		header.AddBoundingBox(model.BoundingBox{
			Left:   model.Degrees(float64(hb.Bbox.Left) / nanodegreesPerDegree),
			Right:  model.Degrees(float64(hb.Bbox.Right) / nanodegreesPerDegree),
			Top:    model.Degrees(float64(hb.Bbox.Top) / nanodegreesPerDegree),
			Bottom: model.Degrees(float64(hb.Bbox.Bottom) / nanodegreesPerDegree),
		})
	}

	if hb.HasReplicationTimestamp() {
		header.OsmosisReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0).UTC()
	}

	return header, nil
}

// EncodeHeader builds the OSMHeader blob payload for the given header.
func EncodeHeader(header *model.Header, dense bool) []byte {
	hb := &pb.HeaderBlock{
		WritingProgram:                   header.WritingProgram,
		Source:                           header.Source,
		OsmosisReplicationSequenceNumber: header.OsmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        header.OsmosisReplicationBaseURL,
	}

	hb.RequiredFeatures = append(hb.RequiredFeatures, FeatureSchema)

	if dense {
		hb.RequiredFeatures = append(hb.RequiredFeatures, FeatureDenseNodes)
	}

	if header.HasMultipleObjectVersions {
		hb.RequiredFeatures = append(hb.RequiredFeatures, FeatureHistorical)
	}

	hb.OptionalFeatures = header.OptionalFeatures

	if box := header.BoundingBox(); box != nil {
		hb.Bbox = &pb.HeaderBBox{
			Left:   int64(math.Round(float64(box.Left) * nanodegreesPerDegree)),
			Right:  int64(math.Round(float64(box.Right) * nanodegreesPerDegree)),
			Top:    int64(math.Round(float64(box.Top) * nanodegreesPerDegree)),
			Bottom: int64(math.Round(float64(box.Bottom) * nanodegreesPerDegree)),
		}
	}

	if !header.OsmosisReplicationTimestamp.IsZero() {
		hb.SetReplicationTimestamp(header.OsmosisReplicationTimestamp.Unix())
	}

	return hb.Marshal()
}
