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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmio/model"
)

func TestLocationRoundTrip(t *testing.T) {
	l := model.LocationFromDegrees(50.0, 10.0)

	assert.Equal(t, int32(500000000), l.Y)
	assert.Equal(t, int32(100000000), l.X)
	assert.Equal(t, model.Degrees(50.0), l.Lat())
	assert.Equal(t, model.Degrees(10.0), l.Lon())
	assert.True(t, l.Valid())
}

func TestLocationUndefined(t *testing.T) {
	l := model.UndefinedLocation()

	assert.False(t, l.Defined())
	assert.False(t, l.Valid())
	assert.Equal(t, "(undefined)", l.String())
}

func TestLocationRounding(t *testing.T) {
	l := model.LocationFromDegrees(-33.87654321, 151.20654321)

	assert.Equal(t, int32(-338765432), l.Y)
	assert.Equal(t, int32(1512065432), l.X)
}

func TestToDegreesGranularity(t *testing.T) {
	// default granularity of 100 nanodegrees
	d := model.ToDegrees(0, 100, 500000000)
	assert.Equal(t, model.Degrees(50.0), d)

	// non-default granularity and offset
	d = model.ToDegrees(1000000000, 1000, 49000000)
	assert.InDelta(t, 50.0, float64(d), 1e-9)
}

func TestToCoordinateInverse(t *testing.T) {
	const granularity = 100

	for _, deg := range []model.Degrees{0, 50.0, -33.8765432, 179.9999999} {
		c := model.ToCoordinate(0, granularity, deg)
		back := model.ToDegrees(0, granularity, c)
		assert.InDelta(t, float64(deg), float64(back), 1e-7)
	}
}

func TestTimestampISO(t *testing.T) {
	ts, err := model.ParseTimestamp("2011-01-02T10:20:30Z")
	require.NoError(t, err)
	assert.True(t, ts.Valid())
	assert.Equal(t, "2011-01-02T10:20:30Z", ts.ISO())

	var zero model.Timestamp
	assert.False(t, zero.Valid())
}

func TestBoundingBoxExpand(t *testing.T) {
	b := model.InitialBoundingBox()
	b.ExpandWithLatLng(50, 10)
	b.ExpandWithLatLng(-10, -20)

	assert.Equal(t, model.Degrees(50), b.Top)
	assert.Equal(t, model.Degrees(-10), b.Bottom)
	assert.Equal(t, model.Degrees(-20), b.Left)
	assert.Equal(t, model.Degrees(10), b.Right)
	assert.True(t, b.Contains(0, 0))
	assert.False(t, b.Contains(60, 0))
}

func TestObjectTypeNames(t *testing.T) {
	assert.Equal(t, "node", model.NODE.String())
	assert.Equal(t, "way", model.WAY.String())
	assert.Equal(t, "relation", model.RELATION.String())
	assert.Equal(t, model.WAY, model.ObjectTypeValues["way"])
}
