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
	"context"
	"fmt"
	"reflect"
	"syscall"
	"unsafe"

	"github.com/jacobsa/reqtrace"

	"github.com/kernelwire/fusecore/fuseops"
	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

var unsafeSizeofInitIn = unsafe.Sizeof(fusekernel.InitIn{})

// Request is a zero-copy view over one decoded kernel message, obtained
// from Session.ReadRequest. Exactly one of Reply, ReplyError, or NoReply
// must be called for every Request; doing so returns the underlying
// buffers to the Session's message pool.
type Request struct {
	session *Session
	ctx     context.Context
	report  reqtrace.ReportFunc

	inMsg  *buffer.InMessage
	unique uint64
	opcode fusekernel.Opcode

	// Result of the first Op call, returned by every later one.
	decoded bool
	op      fuseops.Op
	opErr   error

	done bool
}

// Context returns a context cancelled if the kernel sends an INTERRUPT
// naming this request before it is replied to.
func (r *Request) Context() context.Context { return r.ctx }

// Op decodes the request's body into a typed operation variant. It may be
// called more than once; later calls return the result of the first
// decode, which still borrows from the same underlying buffer.
func (r *Request) Op() (fuseops.Op, error) {
	if !r.decoded {
		r.op, r.opErr = fuseops.Decode(r.inMsg, r.session.protocol)
		r.decoded = true
	}
	return r.op, r.opErr
}

// Reply encodes body as the successful reply to this request and writes
// it to the kernel in a single call. body is either nil, for a reply with
// no body, or a pointer to one of the fusekernel wire reply structs (e.g.
// *fusekernel.AttrOut). A non-nil body that is not a pointer panics; a
// pointer to any other type is encoded byte for byte without being
// checked.
//
// Some opcodes (FORGET, BATCH_FORGET) never receive a reply; call NoReply
// for those instead.
func (r *Request) Reply(body any) error {
	if r.done {
		return fmt.Errorf("request %d already replied to", r.unique)
	}
	r.done = true
	defer r.release()

	out := r.session.provider.getOutMessage(0)
	defer r.session.provider.putOutMessage(out)

	if body != nil {
		appendWireStruct(out, body)
	}

	header := out.OutHeader()
	header.Unique = r.unique
	header.Status = 0
	header.Length = uint32(out.Len())

	r.session.debugLog("-> unique=%d opcode=%v status=0 len=%d", r.unique, r.opcode, header.Length)

	err := r.session.write(out)
	r.report(err)
	return err
}

// ReplyRaw is like Reply, but for opcodes whose successful reply carries a
// variable-length byte payload after (or, for READ/READDIR/READDIRPLUS,
// instead of) a fixed-size wire struct: header is encoded first via the
// same path Reply uses and may be nil (READLINK has no struct at all,
// only the raw target bytes), then data is appended verbatim — the
// generic equivalent of writing o.Data or o.Target directly into the
// reply buffer with a single per-op encoder method.
func (r *Request) ReplyRaw(header any, data []byte) error {
	if r.done {
		return fmt.Errorf("request %d already replied to", r.unique)
	}
	r.done = true
	defer r.release()

	out := r.session.provider.getOutMessage(uintptr(len(data)))
	defer r.session.provider.putOutMessage(out)

	if header != nil {
		appendWireStruct(out, header)
	}
	if len(data) > 0 {
		out.Append(data)
	}

	hdr := out.OutHeader()
	hdr.Unique = r.unique
	hdr.Status = 0
	hdr.Length = uint32(out.Len())

	r.session.debugLog("-> unique=%d opcode=%v status=0 len=%d", r.unique, r.opcode, hdr.Length)

	err := r.session.write(out)
	r.report(err)
	return err
}

// ReplyError encodes errno as the failed reply to this request.
func (r *Request) ReplyError(errno syscall.Errno) error {
	if r.done {
		return fmt.Errorf("request %d already replied to", r.unique)
	}
	r.done = true
	defer r.release()

	err := r.session.writeErrorReply(r.unique, errno)
	if err != nil {
		r.report(err)
	} else {
		r.report(errno)
	}
	return err
}

// NoReply marks a request that the protocol documents as never receiving
// a reply (FORGET, BATCH_FORGET) as handled, releasing its buffer.
func (r *Request) NoReply() {
	if r.done {
		return
	}
	r.done = true
	r.report(nil)
	r.release()
}

func (r *Request) release() {
	r.session.finishOp(r.opcode, r.unique)
	r.session.provider.putInMessage(r.inMsg)
}

// appendWireStruct serializes a pointer to a fixed-size wire struct into
// out's payload by reading sizeof(T) bytes starting at the pointer's
// address — the encoding dual of buffer.InMessage.Consume's decode. It
// panics if body is not a non-nil pointer.
func appendWireStruct(out *buffer.OutMessage, body any) {
	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic(fmt.Sprintf("Reply: body must be a non-nil pointer, got %T", body))
	}

	size := v.Elem().Type().Size()
	src := unsafe.Slice((*byte)(v.UnsafePointer()), int(size))
	out.Append(src)
}

// write sends a fully-populated OutMessage (or one with queued Sglist
// segments) to the kernel as a single write, treating a short write as a
// hard error.
func (s *Session) write(out *buffer.OutMessage) error {
	if len(out.Sglist) == 0 {
		n, err := s.w.Write(out.Bytes())
		if err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
		if n != out.Len() {
			return fmt.Errorf("short write: wrote %d of %d bytes", n, out.Len())
		}
		return nil
	}

	bufs := append([][]byte{out.OutHeaderBytes()}, out.Sglist...)
	total := 0
	for _, b := range bufs {
		total += len(b)
	}

	frame := make([]byte, 0, total)
	for _, b := range bufs {
		frame = append(frame, b...)
	}

	n, err := s.w.Write(frame)
	if err != nil {
		return fmt.Errorf("writing reply: %w", err)
	}
	if n != total {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, total)
	}
	return nil
}

// writeErrorReply sends a reply frame carrying only a header whose Status
// is the negated errno, with no body.
func (s *Session) writeErrorReply(unique uint64, errno syscall.Errno) error {
	out := s.provider.getOutMessage(0)
	defer s.provider.putOutMessage(out)

	header := out.OutHeader()
	header.Unique = unique
	header.Status = -int32(errno)
	header.Length = uint32(out.Len())

	s.debugLog("-> unique=%d status=-%v len=%d", unique, errno, header.Length)

	return s.write(out)
}

// writeInitReply sends the INIT reply body following the request header.
func (s *Session) writeInitReply(unique uint64, body *fusekernel.InitOut) error {
	out := s.provider.getOutMessage(unsafe.Sizeof(*body))
	defer s.provider.putOutMessage(out)

	appendWireStruct(out, body)

	header := out.OutHeader()
	header.Unique = unique
	header.Status = 0
	header.Length = uint32(out.Len())

	return s.write(out)
}
