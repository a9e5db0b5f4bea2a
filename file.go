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

// Package osmio reads and writes OpenStreetMap data in the OSM XML,
// osmChange, and PBF dialects. Objects live on item buffers (package
// mem); the Reader and Writer move whole buffers through a worker-pool
// pipeline, so consumers see data in file order while the expensive
// per-block codec work happens in parallel.
package osmio

import (
	"fmt"
	"net/url"
	"strings"

	"m4o.io/osmio/internal/errs"
)

// Format is the serialization dialect of an OSM file.
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatPBF
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatPBF:
		return "pbf"
	default:
		return "unknown"
	}
}

// Compression is the transport compression around a whole file, not to
// be confused with the per-blob compression inside PBF.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
)

// File option keys.
const (
	OptAddMetadata      = "add_metadata"      // emit version/timestamp/uid/user/changeset
	OptXMLChangeFormat  = "xml_change_format" // XML encoder emits osmChange
	OptForceVisibleFlag = "force_visible_flag"
	OptPbfDenseNodes    = "pbf_dense_nodes"
	OptPbfCompression   = "pbf_compression"
	OptPbfAddMetadata   = "pbf_add_metadata"
)

// File describes an OSM file: its name, format, transport compression,
// and format options. ParseFile fills in Format and Compression from the
// file name's suffixes; readers and writers use the fields as set and do
// not look at the name. A ".osc" suffix sets xml_change_format to "true",
// replacing any value given for it in the name's options.
type File struct {
	Name        string
	Format      Format
	Compression Compression

	options map[string]string
}

// ParseFile derives a File from a file name using suffix rules, never
// content sniffing. Options may be appended URL-style:
// "planet.osm.pbf?pbf_compression=none&add_metadata=false".
func ParseFile(name string) (File, error) {
	f := File{Name: name}

	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		f.Name = name[:idx]

		values, err := url.ParseQuery(name[idx+1:])
		if err != nil {
			return f, fmt.Errorf("%w: bad file options: %v", errs.Format, err)
		}

		for key := range values {
			f.Set(key, values.Get(key))
		}
	}

	base := f.Name

	switch {
	case strings.HasSuffix(base, ".gz"):
		f.Compression = CompressionGzip
		base = strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".bz2"):
		f.Compression = CompressionBzip2
		base = strings.TrimSuffix(base, ".bz2")
	}

	switch {
	case strings.HasSuffix(base, ".pbf"):
		f.Format = FormatPBF

		if f.Compression != CompressionNone {
			return f, fmt.Errorf("%w: PBF files do not support transport compression", errs.Format)
		}
	case strings.HasSuffix(base, ".osm"):
		f.Format = FormatXML
	case strings.HasSuffix(base, ".osc"):
		f.Format = FormatXML
		f.Set(OptXMLChangeFormat, "true")
	default:
		return f, fmt.Errorf("%w: cannot detect file format of %q", errs.Format, f.Name)
	}

	return f, nil
}

// Set stores a format option.
func (f *File) Set(key, value string) {
	if f.options == nil {
		f.options = make(map[string]string)
	}

	f.options[key] = value
}

// Get returns the option value, or the empty string.
func (f *File) Get(key string) string {
	return f.options[key]
}

// IsTrue reports whether the option is explicitly "true".
func (f *File) IsTrue(key string) bool {
	return f.Get(key) == "true"
}

// IsNotFalse reports whether the option is unset or anything but
// "false". Used for options that default to on.
func (f *File) IsNotFalse(key string) bool {
	return f.Get(key) != "false"
}
