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

// Timestamp is a UNIX timestamp in seconds. The zero value means the
// timestamp is absent.
type Timestamp int64

// NewTimestamp converts a time.Time into a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// ParseTimestamp parses an ISO-8601 UTC timestamp of the form
// "2006-01-02T15:04:05Z".
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}

	return Timestamp(t.Unix()), nil
}

// Valid reports whether the timestamp is set.
func (t Timestamp) Valid() bool { return t != 0 }

// Time returns the timestamp as a time.Time in UTC.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

// ISO formats the timestamp as "2006-01-02T15:04:05Z".
func (t Timestamp) ISO() string {
	return t.Time().Format("2006-01-02T15:04:05Z")
}

func (t Timestamp) String() string {
	if !t.Valid() {
		return "(unset)"
	}

	return t.ISO()
}
