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

// Package fusekernel mirrors the wire format of the Linux/macOS FUSE kernel
// protocol: the fixed-layout structs exchanged with /dev/fuse, the opcode
// and capability-flag constants, and the version bounds this module
// understands.
//
// Struct fields use the host's native byte order and padding, matching the
// layout the kernel's C structs produce; they are meant to be overlaid
// directly onto bytes read from or about to be written to the kernel via
// unsafe.Pointer, never serialized through encoding/binary.
package fusekernel

import "fmt"

// Protocol is a (major, minor) FUSE ABI version pair.
type Protocol struct {
	Major uint32
	Minor uint32
}

func (p Protocol) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// LT returns whether p is older than other.
func (p Protocol) LT(other Protocol) bool {
	if p.Major != other.Major {
		return p.Major < other.Major
	}
	return p.Minor < other.Minor
}

// GE returns whether p is at least as new as other.
func (p Protocol) GE(other Protocol) bool {
	return !p.LT(other)
}

const (
	// ProtoVersionMinMajor and ProtoVersionMinMinor give the oldest kernel
	// ABI this module will negotiate with. Kernels reporting an older
	// version are rejected with EPROTO during the handshake.
	ProtoVersionMinMajor = 7
	ProtoVersionMinMinor = 23

	// ProtoVersionMaxMajor and ProtoVersionMaxMinor give the newest ABI
	// this module speaks. The negotiated protocol is never newer than
	// this, regardless of what the kernel offers.
	ProtoVersionMaxMajor = 7
	ProtoVersionMaxMinor = 31
)
