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

// Package conformance drives fuse.Session end to end over an in-memory
// fake kernel channel, covering the literal handshake and request-loop
// scenarios a real /dev/fuse would produce: version negotiation,
// downgrade, rejection of too-old kernels, the ENODEV/ENOENT read-error
// contract, and unknown-opcode handling.
package conformance_test

import (
	"io"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	. "github.com/jacobsa/ogletest"

	fuse "github.com/kernelwire/fusecore"
	"github.com/kernelwire/fusecore/fuseops"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

func TestSession(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// fakeChannel: a stand-in for /dev/fuse, one frame or one error per Read
////////////////////////////////////////////////////////////////////////

type fakeChannel struct {
	frames  [][]byte
	errs    []error
	idx     int
	Written [][]byte
}

func (c *fakeChannel) pushFrame(b []byte) {
	c.frames = append(c.frames, b)
	c.errs = append(c.errs, nil)
}

func (c *fakeChannel) pushErr(err error) {
	c.frames = append(c.frames, nil)
	c.errs = append(c.errs, err)
}

func (c *fakeChannel) Read(p []byte) (int, error) {
	if c.idx >= len(c.frames) {
		return 0, io.EOF
	}

	frame, err := c.frames[c.idx], c.errs[c.idx]
	c.idx++

	if err != nil {
		return 0, err
	}
	return copy(p, frame), nil
}

func (c *fakeChannel) Write(p []byte) (int, error) {
	c.Written = append(c.Written, append([]byte(nil), p...))
	return len(p), nil
}

////////////////////////////////////////////////////////////////////////
// Frame encoding helpers
////////////////////////////////////////////////////////////////////////

func rawBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

func encodeFrame(h fusekernel.InHeader, body []byte) []byte {
	h.Length = uint32(int(unsafe.Sizeof(h)) + len(body))
	buf := append([]byte(nil), rawBytes(&h)...)
	buf = append(buf, body...)
	return buf
}

func encodeName(name string) []byte {
	return append([]byte(name), 0)
}

func decodeOutHeader(b []byte) fusekernel.OutHeader {
	return *(*fusekernel.OutHeader)(unsafe.Pointer(&b[0]))
}

func decodeInitOut(b []byte) fusekernel.InitOut {
	return *(*fusekernel.InitOut)(unsafe.Pointer(&b[unsafe.Sizeof(fusekernel.OutHeader{})]))
}

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type SessionTest struct {
	channel *fakeChannel
}

func init() { RegisterTestSuite(&SessionTest{}) }

var _ SetUpInterface = &SessionTest{}

func (t *SessionTest) SetUp(ti *TestInfo) {
	t.channel = &fakeChannel{}
}

////////////////////////////////////////////////////////////////////////
// Scenario 1: handshake, modern kernel
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) HandshakeModernKernel() {
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 1},
		rawBytes(&fusekernel.InitIn{
			Major:        7,
			Minor:        31,
			MaxReadahead: 131072,
			Flags:        uint32(fusekernel.InitMaxPages | fusekernel.InitAsyncRead),
		}),
	))

	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	info := session.ConnectionInfo()
	ExpectEq(7, info.ProtoMajor())
	ExpectEq(31, info.ProtoMinor())
	ExpectEq(131072, info.MaxReadahead())
	ExpectEq(16777216, info.MaxWrite())

	pages, ok := info.MaxPages()
	ExpectTrue(ok)
	ExpectEq(4096, pages)

	wantFlags := fusekernel.InitAsyncRead | fusekernel.InitBigWrites | fusekernel.InitMaxPages
	ExpectEq(uint32(wantFlags), uint32(info.Flags()))

	ExpectEq(16781312, session.BufSize())

	AssertEq(1, len(t.channel.Written))
	out := decodeOutHeader(t.channel.Written[0])
	ExpectEq(1, out.Unique)
	ExpectEq(0, out.Status)
}

////////////////////////////////////////////////////////////////////////
// Scenario 2: handshake, future kernel, then downgrade
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) HandshakeFutureKernelThenDowngrade() {
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 1},
		rawBytes(&fusekernel.InitIn{Major: 8, Minor: 0}),
	))
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 2},
		rawBytes(&fusekernel.InitIn{Major: 7, Minor: 31}),
	))

	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)
	ExpectEq(7, session.ConnectionInfo().ProtoMajor())
	ExpectEq(31, session.ConnectionInfo().ProtoMinor())

	AssertEq(2, len(t.channel.Written))

	firstOut := decodeInitOut(t.channel.Written[0])
	ExpectEq(fusekernel.ProtoVersionMaxMajor, firstOut.Major)
	ExpectEq(fusekernel.ProtoVersionMaxMinor, firstOut.Minor)
	ExpectEq(0, firstOut.Flags)

	secondHeader := decodeOutHeader(t.channel.Written[1])
	ExpectEq(2, secondHeader.Unique)
}

////////////////////////////////////////////////////////////////////////
// Scenario 3: handshake, too-old kernel
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) HandshakeTooOldKernel() {
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 1},
		rawBytes(&fusekernel.InitIn{Major: 7, Minor: 20}),
	))
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 2},
		rawBytes(&fusekernel.InitIn{Major: 7, Minor: 31}),
	))

	_, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	AssertEq(2, len(t.channel.Written))
	out := decodeOutHeader(t.channel.Written[0])
	ExpectEq(1, out.Unique)
	ExpectEq(-int32(fuse.EPROTO), out.Status)
}

////////////////////////////////////////////////////////////////////////
// Scenario 4: ENODEV shutdown
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) ENODEVShutdown() {
	t.channel.pushFrame(initFrame())
	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	t.channel.pushErr(unix.ENODEV)

	req, err := session.ReadRequest()
	ExpectEq(nil, req)
	ExpectEq(io.EOF, err)
	ExpectTrue(session.Exited())
}

////////////////////////////////////////////////////////////////////////
// Scenario 5: ENOENT retry
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) ENOENTRetry() {
	t.channel.pushFrame(initFrame())
	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	t.channel.pushErr(unix.ENOENT)
	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpLookup, Unique: 5, NodeId: 1},
		encodeName("foo"),
	))

	req, err := session.ReadRequest()
	AssertEq(nil, err)
	AssertNe(nil, req)

	op, err := req.Op()
	AssertEq(nil, err)

	lookup, ok := op.(*fuseops.LookupOp)
	AssertTrue(ok)
	ExpectEq("foo", lookup.Name)

	req.NoReply()
}

////////////////////////////////////////////////////////////////////////
// Scenario 6: unknown opcode
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) UnknownOpcode() {
	t.channel.pushFrame(initFrame())
	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.Opcode(9999), Unique: 7},
		nil,
	))

	req, err := session.ReadRequest()
	AssertEq(nil, err)

	op, err := req.Op()
	AssertEq(nil, err)

	unknown, ok := op.(*fuseops.UnknownOp)
	AssertTrue(ok)
	ExpectEq(9999, unknown.Code)

	AssertEq(nil, req.ReplyError(fuse.ENOSYS))

	AssertEq(2, len(t.channel.Written)) // INIT reply, then this one
	out := decodeOutHeader(t.channel.Written[1])
	ExpectEq(7, out.Unique)
	ExpectEq(-int32(fuse.ENOSYS), out.Status)
	ExpectEq(16, out.Length)
}

////////////////////////////////////////////////////////////////////////
// Scenario 7: raw-payload reply (READLINK)
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) ReplyRawVariableLengthPayload() {
	t.channel.pushFrame(initFrame())
	session, err := fuse.Init(t.channel, t.channel, fuse.NewConfig())
	AssertEq(nil, err)

	t.channel.pushFrame(encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpReadlink, Unique: 9, NodeId: 1},
		nil,
	))

	req, err := session.ReadRequest()
	AssertEq(nil, err)

	op, err := req.Op()
	AssertEq(nil, err)
	_, ok := op.(*fuseops.ReadlinkOp)
	AssertTrue(ok)

	AssertEq(nil, req.ReplyRaw(nil, []byte("/etc/target")))

	AssertEq(2, len(t.channel.Written)) // INIT reply, then this one
	frame := t.channel.Written[1]
	out := decodeOutHeader(frame)
	ExpectEq(9, out.Unique)
	ExpectEq(0, out.Status)

	body := frame[unsafe.Sizeof(fusekernel.OutHeader{}):]
	ExpectEq("/etc/target", string(body))
}

func initFrame() []byte {
	return encodeFrame(
		fusekernel.InHeader{Opcode: fusekernel.OpInit, Unique: 1},
		rawBytes(&fusekernel.InitIn{Major: 7, Minor: 31, MaxReadahead: 131072}),
	)
}
