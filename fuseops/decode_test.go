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

package fuseops_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/kernelwire/fusecore/fuseops"
	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

func newInMessage(t *testing.T, opcode fusekernel.Opcode, body []byte) *buffer.InMessage {
	t.Helper()

	header := fusekernel.InHeader{Opcode: opcode, Unique: 1, NodeId: 1}
	raw := append([]byte(nil), structBytes(&header)...)
	raw = append(raw, body...)

	m := buffer.NewInMessage()
	if err := m.Init(bytes.NewReader(raw), len(raw)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func TestDecodeLookup(t *testing.T) {
	m := newInMessage(t, fusekernel.OpLookup, append([]byte("child"), 0))

	op, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	lookup, ok := op.(*fuseops.LookupOp)
	if !ok {
		t.Fatalf("Decode returned %T, want *fuseops.LookupOp", op)
	}
	if lookup.Name != "child" {
		t.Fatalf("Name = %q, want %q", lookup.Name, "child")
	}
	if lookup.Opcode() != fusekernel.OpLookup {
		t.Fatalf("Opcode() = %v, want LOOKUP", lookup.Opcode())
	}
}

func TestDecodeWrite(t *testing.T) {
	arg := fusekernel.WriteIn{Fh: 7, Offset: 128, Size: 5}
	body := append([]byte(nil), structBytes(&arg)...)
	body = append(body, []byte("hello")...)

	m := newInMessage(t, fusekernel.OpWrite, body)

	op, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	write, ok := op.(*fuseops.WriteOp)
	if !ok {
		t.Fatalf("Decode returned %T, want *fuseops.WriteOp", op)
	}
	if write.Arg.Fh != 7 || write.Arg.Offset != 128 {
		t.Fatalf("Arg = %+v, unexpected", write.Arg)
	}
	if string(write.Data) != "hello" {
		t.Fatalf("Data = %q, want %q", write.Data, "hello")
	}
}

func TestDecodeWriteTruncated(t *testing.T) {
	arg := fusekernel.WriteIn{Fh: 7, Size: 100}
	body := append([]byte(nil), structBytes(&arg)...)
	body = append(body, []byte("short")...)

	m := newInMessage(t, fusekernel.OpWrite, body)

	if _, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31}); err == nil {
		t.Fatalf("Decode should fail when WRITE declares more bytes than the buffer holds")
	}
}

func TestDecodeForgetRootZeroLengthBody(t *testing.T) {
	// A FORGET carries a fixed ForgetIn, not a zero-length body; this
	// exercises the boundary where the argument struct alone fits exactly
	// within a minimal frame.
	arg := fusekernel.ForgetIn{Nlookup: 1}
	m := newInMessage(t, fusekernel.OpForget, structBytes(&arg))

	op, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	forget, ok := op.(*fuseops.ForgetOp)
	if !ok {
		t.Fatalf("Decode returned %T, want *fuseops.ForgetOp", op)
	}
	if forget.Arg.Nlookup != 1 {
		t.Fatalf("Nlookup = %d, want 1", forget.Arg.Nlookup)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	m := newInMessage(t, fusekernel.Opcode(9999), nil)

	op, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	unknown, ok := op.(*fuseops.UnknownOp)
	if !ok {
		t.Fatalf("Decode returned %T, want *fuseops.UnknownOp", op)
	}
	if unknown.Code != 9999 {
		t.Fatalf("Code = %d, want 9999", unknown.Code)
	}
}

func TestDecodeGetattrTooShort(t *testing.T) {
	m := newInMessage(t, fusekernel.OpGetattr, []byte{1, 2})

	if _, err := fuseops.Decode(m, fusekernel.Protocol{Major: 7, Minor: 31}); err == nil {
		t.Fatalf("Decode should fail when the GetattrIn argument is truncated")
	}
}
