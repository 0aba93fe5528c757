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
	"fmt"
	"math"

	"github.com/kernelwire/fusecore/internal/fusekernel"
)

// DefaultCapabilities is the capability bitmap a Config advertises to the
// kernel unless overridden.
const DefaultCapabilities = fusekernel.InitAsyncRead |
	fusekernel.InitAtomicTrunc |
	fusekernel.InitAutoInvalData |
	fusekernel.InitAsyncDIO |
	fusekernel.InitParallelDirOps |
	fusekernel.InitHandleKillpriv

// DefaultMaxWrite is the largest WRITE payload this module will negotiate
// unless the caller lowers it.
const DefaultMaxWrite = 16 * 1024 * 1024

// Config holds the options a caller may set before starting a Session. Its
// zero value is not ready to use; construct one with NewConfig.
type Config struct {
	// Capability bitmap offered to the kernel. The session only ever turns
	// on bits the kernel also offered and that this module recognizes
	// (see ReadonlyFlags); FUSE_BIG_WRITES is always added regardless.
	Flags fusekernel.InitFlags

	// Upper bound on kernel readahead. Defaults to the kernel picking
	// (math.MaxUint32), i.e. bounded only by whatever the kernel itself
	// requests.
	MaxReadahead uint32

	// Max bytes per WRITE request, and therefore (via BUFFER_HEADER_SIZE +
	// MaxWrite) the size of the session's post-handshake receive buffer.
	MaxWrite uint32

	// Max concurrent background requests the kernel will keep in flight.
	MaxBackground uint16

	// Background-request count at which the kernel marks the filesystem
	// congested. Zero means derive it as 3/4 of MaxBackground.
	CongestionThreshold uint16

	// Timestamp granularity in nanoseconds; must be a power of 10.
	TimeGran uint32

	// Debug, if true, enables the session's debug logger (see debug.go).
	Debug bool
}

// NewConfig returns a Config populated with the defaults from the
// configuration surface: default capability bitmap, kernel-chosen
// readahead, 16 MiB max write, no background limit, derived congestion
// threshold, and nanosecond time granularity.
func NewConfig() Config {
	return Config{
		Flags:        DefaultCapabilities,
		MaxReadahead: math.MaxUint32,
		MaxWrite:     DefaultMaxWrite,
		TimeGran:     1,
	}
}

// resolvedCongestionThreshold returns the configured
// CongestionThreshold, or 3/4 of MaxBackground if it is zero. It returns an
// error if a non-zero CongestionThreshold exceeds MaxBackground — this is a
// programming error in the caller's configuration, caught at Session
// construction time rather than left to surprise the kernel.
func (c Config) resolvedCongestionThreshold() (uint16, error) {
	if c.CongestionThreshold == 0 {
		return uint16(uint32(c.MaxBackground) * 3 / 4), nil
	}

	if c.CongestionThreshold > c.MaxBackground {
		return 0, fmt.Errorf(
			"invalid argument: congestion_threshold (%d) exceeds max_background (%d)",
			c.CongestionThreshold, c.MaxBackground)
	}

	return c.CongestionThreshold, nil
}
