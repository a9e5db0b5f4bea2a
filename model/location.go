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
	"fmt"
	"math"
)

// undefinedCoordinate marks a coordinate that was never set.
const undefinedCoordinate = math.MinInt32

// Location is a point on the planet in fixed-point coordinates with a
// resolution of 1e-7 degrees. The zero-capable sentinel value
// (math.MinInt32, math.MinInt32) denotes an undefined location.
type Location struct {
	X int32 // longitude in 1e-7 degrees
	Y int32 // latitude in 1e-7 degrees
}

// UndefinedLocation returns the sentinel location.
func UndefinedLocation() Location {
	return Location{X: undefinedCoordinate, Y: undefinedCoordinate}
}

// LocationFromDegrees builds a Location from floating point coordinates,
// rounding into the 1e-7 grid.
func LocationFromDegrees(lat, lon Degrees) Location {
	return Location{X: lon.E7(), Y: lat.E7()}
}

// Defined reports whether the location was set.
func (l Location) Defined() bool {
	return l.X != undefinedCoordinate && l.Y != undefinedCoordinate
}

// Valid reports whether the location is defined and within the world bounds.
func (l Location) Valid() bool {
	return l.Defined() &&
		l.Lon() >= -180 && l.Lon() <= 180 &&
		l.Lat() >= -90 && l.Lat() <= 90
}

// Lat returns the latitude in degrees.
func (l Location) Lat() Degrees { return Degrees(l.Y) / TenMillionths }

// Lon returns the longitude in degrees.
func (l Location) Lon() Degrees { return Degrees(l.X) / TenMillionths }

func (l Location) String() string {
	if !l.Defined() {
		return "(undefined)"
	}

	return fmt.Sprintf("(%s, %s)", ftoa(float64(l.Lon())), ftoa(float64(l.Lat())))
}
