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

package buffer

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/kernelwire/fusecore/internal/fusekernel"
)

// MaxWriteSize is the capacity of every OutMessage's inline payload, and
// so the largest reply or notification body one can hold. 16 MiB matches
// the default most FUSE implementations negotiate. The max_write a session
// advertises comes from Config.MaxWrite and is not clamped to this value.
const MaxWriteSize = 16 * 1024 * 1024

// OutMessageHeaderSize is the size of the leading fusekernel.OutHeader in
// every OutMessage. Reset brings a message back down to exactly this size.
const OutMessageHeaderSize = int(unsafe.Sizeof(fusekernel.OutHeader{}))

// OutMessage builds a single contiguous (or, when Sglist is used,
// vectored) reply/notification frame: a fusekernel.OutHeader followed by a
// growable payload.
//
// Must be obtained with NewOutMessage or have Reset called before use.
type OutMessage struct {
	payloadOffset int

	header  [OutMessageHeaderSize]byte
	payload [MaxWriteSize]byte

	// Sglist, if non-nil, holds additional segments to be written after
	// OutHeaderBytes via a single vectored write instead of being copied
	// into payload. Used for large READ/WRITE replies that source their
	// data from a caller-owned buffer, to avoid an extra copy.
	Sglist [][]byte
}

// Make sure that the header field is aligned correctly for
// fusekernel.OutHeader type punning.
func init() {
	a := unsafe.Alignof(OutMessage{})
	o := unsafe.Offsetof(OutMessage{}.header)
	e := unsafe.Alignof(fusekernel.OutHeader{})

	if a%e != 0 || o%e != 0 {
		log.Panicf("bad alignment or offset: %d, %d, need %d", a, o, e)
	}
}

// Make sure that the header and payload are contiguous.
func init() {
	a := unsafe.Offsetof(OutMessage{}.header) + uintptr(OutMessageHeaderSize)
	b := unsafe.Offsetof(OutMessage{}.payload)

	if a != b {
		log.Panicf("header ends at offset %d, but payload starts at offset %d", a, b)
	}
}

// NewOutMessage returns a message whose payload has room to grow by at
// least extra bytes without reallocating. Since payload is a fixed-size
// array, extra is only used to fail fast with a clear panic if a caller
// asks for more than MaxWriteSize up front.
func NewOutMessage(extra uintptr) (m OutMessage) {
	if extra > MaxWriteSize {
		panic(fmt.Sprintf("OutMessage payload of %d bytes exceeds MaxWriteSize", extra))
	}
	return
}

// Reset resets m so it is ready to be reused. Afterward its contents are
// solely a zeroed fusekernel.OutHeader.
func (m *OutMessage) Reset() {
	m.payloadOffset = 0
	m.Sglist = nil
	clear(m.header[:])
}

// OutHeader returns a pointer to the header at the start of the message.
func (m *OutMessage) OutHeader() *fusekernel.OutHeader {
	return (*fusekernel.OutHeader)(unsafe.Pointer(&m.header[0]))
}

// Grow grows m's buffer by n bytes, zeroing the new segment, and returns a
// pointer to its start. It panics if n would overflow MaxWriteSize.
func (m *OutMessage) Grow(n int) unsafe.Pointer {
	p := m.GrowNoZero(n)
	clear(unsafe.Slice((*byte)(p), n))
	return p
}

// GrowNoZero is equivalent to Grow, but the new segment's contents are
// whatever was left over from the message's previous use. Use with
// caution.
func (m *OutMessage) GrowNoZero(n int) unsafe.Pointer {
	if m.payloadOffset+n > len(m.payload) {
		panic(fmt.Sprintf("cannot grow by %d bytes; only %d remain", n, len(m.payload)-m.payloadOffset))
	}

	p := unsafe.Pointer(&m.payload[m.payloadOffset])
	m.payloadOffset += n
	return p
}

// ShrinkTo shrinks m to size n, which must be between OutMessageHeaderSize
// and Len() inclusive.
func (m *OutMessage) ShrinkTo(n int) {
	if n < OutMessageHeaderSize || n > m.Len() {
		panic(fmt.Sprintf("ShrinkTo(%d) out of range [%d, %d]", n, OutMessageHeaderSize, m.Len()))
	}
	m.payloadOffset = n - OutMessageHeaderSize
}

// Append grows m by len(src) and copies src into the new segment.
func (m *OutMessage) Append(src []byte) {
	p := m.GrowNoZero(len(src))
	copy(unsafe.Slice((*byte)(p), len(src)), src)
}

// AppendString is like Append, but for string input; used for
// NUL-terminated names in notifications (the caller appends the NUL
// separately).
func (m *OutMessage) AppendString(src string) {
	p := m.GrowNoZero(len(src))
	copy(unsafe.Slice((*byte)(p), len(src)), src)
}

// Len returns the current size of the message, including the header.
func (m *OutMessage) Len() int {
	return OutMessageHeaderSize + m.payloadOffset
}

// Bytes returns a reference to the message's current contiguous contents,
// including the header. It does not include any segments queued in
// Sglist — callers that care about those must write Bytes() and Sglist
// separately (see OutHeaderBytes), or use a vectored write.
func (m *OutMessage) Bytes() []byte {
	return unsafe.Slice(&m.header[0], m.Len())
}

// OutHeaderBytes is an alias for Bytes, named to make call sites that write
// only the header-plus-inline-payload segment of a vectored reply (the rest
// coming from Sglist) read clearly.
func (m *OutMessage) OutHeaderBytes() []byte {
	return m.Bytes()
}
