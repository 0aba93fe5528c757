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
	"bytes"
	"fmt"
	"io"
	"unsafe"

	"github.com/kernelwire/fusecore/internal/fusekernel"
)

var inHeaderSize = unsafe.Sizeof(fusekernel.InHeader{})

// InMessage holds one frame read from the kernel, including its leading
// fusekernel.InHeader. Consume and ConsumeBytes walk forward through the
// bytes following the header without copying; the returned pointers and
// slices are aliases into buf and are only valid until the next call to
// Init.
//
// Must be created with NewInMessage.
type InMessage struct {
	buf      []byte
	consumed uintptr
}

// NewInMessage returns a message with no backing storage; the first call to
// Init will allocate it.
func NewInMessage() *InMessage {
	return &InMessage{}
}

// Init reads one message from r into m's buffer, which is grown to size
// bytes if necessary, and resets the read cursor to just past the header.
// It returns whatever error r.Read returned, or an error of its own if the
// read leaves fewer than the header's worth of bytes.
func (m *InMessage) Init(r io.Reader, size int) error {
	if cap(m.buf) < size {
		m.buf = make([]byte, size)
	} else {
		m.buf = m.buf[:size]
	}

	n, err := r.Read(m.buf)
	if err != nil {
		return err
	}

	m.buf = m.buf[:n]
	m.consumed = inHeaderSize

	if uintptr(n) < inHeaderSize {
		return fmt.Errorf("read %d bytes, need at least %d for the header", n, inHeaderSize)
	}

	return nil
}

// Header returns a reference to the header read in the most recent call to
// Init.
func (m *InMessage) Header() *fusekernel.InHeader {
	return (*fusekernel.InHeader)(unsafe.Pointer(&m.buf[0]))
}

// Len returns the number of unconsumed bytes remaining after the header.
func (m *InMessage) Len() uintptr {
	return uintptr(len(m.buf)) - m.consumed
}

// Consume returns a pointer to the next n bytes after the read cursor,
// advancing it by n. It returns nil, without advancing, if fewer than n
// bytes remain.
func (m *InMessage) Consume(n uintptr) unsafe.Pointer {
	if m.Len() < n {
		return nil
	}
	if n == 0 {
		// Nothing to alias, and m.buf[m.consumed] may be one past the end.
		return unsafe.Pointer(unsafe.SliceData(m.buf[m.consumed:]))
	}

	p := unsafe.Pointer(&m.buf[m.consumed])
	m.consumed += n
	return p
}

// ConsumeBytes is equivalent to Consume, but returns a slice rather than a
// pointer. The result is nil if Consume would fail.
func (m *InMessage) ConsumeBytes(n uintptr) []byte {
	p := m.Consume(n)
	if p == nil {
		return nil
	}

	return unsafe.Slice((*byte)(p), int(n))
}

// ConsumeName consumes a NUL-terminated name from the remaining bytes,
// returning it without the trailing NUL. It returns an error if no NUL is
// found before the end of the message.
func (m *InMessage) ConsumeName() (string, error) {
	rest := m.buf[m.consumed:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", fmt.Errorf("name is not NUL-terminated")
	}

	name := string(rest[:i])
	m.consumed += uintptr(i) + 1
	return name, nil
}

// Remaining returns a slice of everything left after the read cursor,
// without advancing it. Decode does not use it: the size-prefixed payloads
// of WRITE, SETXATTR and NOTIFY_REPLY are taken with ConsumeBytes.
func (m *InMessage) Remaining() []byte {
	return m.buf[m.consumed:]
}
