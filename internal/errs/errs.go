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

// Package errs holds the error sentinels shared by the format codecs
// and re-exported from the root package.
package errs

import "errors"

// Format is the sentinel for malformed input: bad XML structure, bad
// protobuf wire data, oversized blobs, or unknown required features.
var Format = errors.New("format error")
