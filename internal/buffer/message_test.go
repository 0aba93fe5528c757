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
	"testing"
	"unsafe"

	"github.com/kernelwire/fusecore/internal/fusekernel"
)

func TestInMessageHeaderRoundTrip(t *testing.T) {
	want := fusekernel.InHeader{
		Length: uint32(unsafeSizeofInHeader()) + 4,
		Opcode: fusekernel.OpGetattr,
		Unique: 123,
		NodeId: 456,
		Uid:    1,
		Gid:    2,
		Pid:    3,
	}

	raw := append([]byte(nil), structBytes(&want)...)
	raw = append(raw, []byte{1, 2, 3, 4}...)

	m := NewInMessage()
	if err := m.Init(bytes.NewReader(raw), len(raw)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := *m.Header()
	if got != want {
		t.Fatalf("Header() = %+v, want %+v", got, want)
	}

	if m.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", m.Len())
	}
}

func TestInMessageConsume(t *testing.T) {
	header := fusekernel.InHeader{Opcode: fusekernel.OpWrite}
	raw := append([]byte(nil), structBytes(&header)...)
	raw = append(raw, []byte("hello")...)

	m := NewInMessage()
	if err := m.Init(bytes.NewReader(raw), len(raw)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := m.ConsumeBytes(5)
	if string(got) != "hello" {
		t.Fatalf("ConsumeBytes(5) = %q, want %q", got, "hello")
	}

	if m.Consume(1) != nil {
		t.Fatalf("Consume(1) past end should fail")
	}
}

func TestInMessageConsumeName(t *testing.T) {
	header := fusekernel.InHeader{Opcode: fusekernel.OpLookup}
	raw := append([]byte(nil), structBytes(&header)...)
	raw = append(raw, []byte("foo.txt\x00")...)

	m := NewInMessage()
	if err := m.Init(bytes.NewReader(raw), len(raw)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	name, err := m.ConsumeName()
	if err != nil {
		t.Fatalf("ConsumeName: %v", err)
	}
	if name != "foo.txt" {
		t.Fatalf("ConsumeName() = %q, want %q", name, "foo.txt")
	}
}

func TestInMessageConsumeNameUnterminated(t *testing.T) {
	header := fusekernel.InHeader{Opcode: fusekernel.OpLookup}
	raw := append([]byte(nil), structBytes(&header)...)
	raw = append(raw, []byte("no-nul")...)

	m := NewInMessage()
	if err := m.Init(bytes.NewReader(raw), len(raw)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := m.ConsumeName(); err == nil {
		t.Fatalf("ConsumeName should fail on an unterminated name")
	}
}

func TestInMessageTooShortForHeader(t *testing.T) {
	m := NewInMessage()
	err := m.Init(bytes.NewReader([]byte{1, 2, 3}), 3)
	if err == nil {
		t.Fatalf("Init should fail on a buffer shorter than InHeader")
	}
}

func TestOutMessageAppendAndReset(t *testing.T) {
	m := NewOutMessage(0)

	header := m.OutHeader()
	header.Unique = 99

	m.Append([]byte("payload"))

	if m.Len() != OutMessageHeaderSize+len("payload") {
		t.Fatalf("Len() = %d, want %d", m.Len(), OutMessageHeaderSize+len("payload"))
	}

	body := m.Bytes()[OutMessageHeaderSize:]
	if string(body) != "payload" {
		t.Fatalf("body = %q, want %q", body, "payload")
	}

	m.Reset()
	if m.Len() != OutMessageHeaderSize {
		t.Fatalf("after Reset, Len() = %d, want %d", m.Len(), OutMessageHeaderSize)
	}
	if m.OutHeader().Unique != 0 {
		t.Fatalf("after Reset, header should be zeroed")
	}
}

func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

func unsafeSizeofInHeader() uintptr {
	return unsafe.Sizeof(fusekernel.InHeader{})
}
