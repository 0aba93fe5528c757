// Copyright 2015 Google Inc. All Rights Reserved.
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

package fuse

import (
	"io"
	"log"
	"os"
)

// newDebugLogger returns a logger that writes to stderr when enabled is
// true, and discards everything otherwise. This is plain
// construction-time configuration (see Config.Debug), not a package-level
// flag registered at import time — a library should not have side effects
// from merely being imported.
func newDebugLogger(enabled bool) *log.Logger {
	var w io.Writer = io.Discard
	if enabled {
		w = os.Stderr
	}

	const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	return log.New(w, "fuse: ", flags)
}
