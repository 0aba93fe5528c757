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

import "github.com/kernelwire/fusecore/internal/fusekernel"

// ConnectionInfo is the connection metadata fixed by the INIT handshake.
// It is immutable after construction and safe to share across every
// handler reading from or writing to the Session it came from.
type ConnectionInfo struct {
	out fusekernel.InitOut
}

// ProtoMajor and ProtoMinor report the negotiated ABI version.
func (c ConnectionInfo) ProtoMajor() uint32 { return c.out.Major }
func (c ConnectionInfo) ProtoMinor() uint32 { return c.out.Minor }

// Flags returns the full negotiated capability bitmap, including any bits
// the kernel set that this module doesn't recognize (preserved verbatim
// per the handshake's read-only-flags rule).
func (c ConnectionInfo) Flags() fusekernel.InitFlags {
	return fusekernel.InitFlags(c.out.Flags)
}

// NoOpenSupport reports whether the kernel indicated it does not need
// OPEN calls (Linux >= 3.16's FUSE_NO_OPEN_SUPPORT).
func (c ConnectionInfo) NoOpenSupport() bool {
	return c.Flags()&fusekernel.InitNoOpenSupport != 0
}

// NoOpendirSupport reports whether the kernel indicated it does not need
// OPENDIR calls (Linux >= 5.1's FUSE_NO_OPENDIR_SUPPORT).
func (c ConnectionInfo) NoOpendirSupport() bool {
	return c.Flags()&fusekernel.InitNoOpendirSupport != 0
}

func (c ConnectionInfo) MaxReadahead() uint32 { return c.out.MaxReadahead }
func (c ConnectionInfo) MaxWrite() uint32     { return c.out.MaxWrite }
func (c ConnectionInfo) MaxBackground() uint16 {
	return c.out.MaxBackground
}
func (c ConnectionInfo) CongestionThreshold() uint16 {
	return c.out.CongestionThreshold
}
func (c ConnectionInfo) TimeGran() uint32 { return c.out.TimeGran }

// MaxPages returns the negotiated max_pages and whether it was negotiated
// at all — only kernels that set FUSE_MAX_PAGES on their INIT request
// receive (and thus have) a max_pages value.
func (c ConnectionInfo) MaxPages() (pages uint16, ok bool) {
	if c.Flags()&fusekernel.InitMaxPages == 0 {
		return 0, false
	}
	return c.out.MaxPages, true
}
