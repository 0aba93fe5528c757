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
	"io"
	"log"
	"sync/atomic"
	"unsafe"

	"github.com/jacobsa/reqtrace"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

// bufferHeaderSize is extra room reserved ahead of the negotiated
// max_write/bootstrap capability size, to hold the frame header and any
// argument struct in front of a request's raw payload.
const bufferHeaderSize = 0x1000

// maxMaxPages bounds the bootstrap handshake buffer: large enough to hold
// whatever capability negotiation the kernel throws at INIT time,
// regardless of what max_pages is eventually negotiated.
const maxMaxPages = 256

// pageSize is used only to size the bootstrap buffer and to compute
// max_pages from max_write; it does not need to match the exact runtime
// page size, only be a reasonable (and never overly small) stand-in, since
// the kernel tolerates a generous receive buffer.
const pageSize = 4096

// Session is the stateful core of one FUSE connection: it owns the
// handshake result, the sized receive buffer, and the exit flag. A Session
// is created by Init and is safe to share between the single task driving
// ReadRequest and any number of concurrent reply/notification emitters.
type Session struct {
	cfg Config

	debugLogger *log.Logger

	r io.Reader
	w io.Writer

	protocol fusekernel.Protocol
	info     ConnectionInfo
	bufsize  int

	clock timeutil.Clock

	exited    atomic.Bool
	readInUse atomic.Bool

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	cancelFuncs map[uint64]context.CancelFunc

	provider *messageProvider
}

// Init performs the FUSE INIT handshake over r (kernel->userspace) and w
// (userspace->kernel) and returns a ready Session. It blocks reading
// frames from r, replying to and skipping any non-INIT requests (EIO),
// answering an INIT with a newer major version than this module speaks by
// sending its own version and waiting for the kernel to retry, and
// rejecting too-old kernels with EPROTO, until a compatible INIT completes
// or a read or write fails.
func Init(r io.Reader, w io.Writer, cfg Config) (*Session, error) {
	if _, err := cfg.resolvedCongestionThreshold(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:         cfg,
		debugLogger: newDebugLogger(cfg.Debug),
		r:           r,
		w:           w,
		clock:       timeutil.RealClock(),
		cancelFuncs: make(map[uint64]context.CancelFunc),
		provider:    newMessageProvider(),
	}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)

	if err := s.init(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Session) checkInvariants() {
	// Nothing beyond what the Go type system already guarantees; the
	// invariant mutex exists so a future addition to the guarded state
	// (e.g. a cross-field constraint between cancelFuncs and some other
	// bookkeeping map) has somewhere to be checked, matching the pattern
	// the rest of this module's ancestry uses for its own stateful types.
}

// bootstrapBufSize is the oversized receive buffer used only during the
// handshake, before max_write is known.
const bootstrapBufSize = bufferHeaderSize + pageSize*maxMaxPages

func (s *Session) init() error {
	inMsg := buffer.NewInMessage()

	for {
		if err := inMsg.Init(s.r, bootstrapBufSize); err != nil {
			if isTransientReadError(err) {
				continue
			}
			return fmt.Errorf("reading init request: %w", err)
		}

		header := inMsg.Header()
		if header.Opcode != fusekernel.OpInit {
			// Any opcode before a successful INIT is rejected and skipped.
			s.debugLog("<- unexpected opcode %v before INIT; replying EIO", header.Opcode)
			if err := s.writeErrorReply(header.Unique, EIO); err != nil {
				return err
			}
			continue
		}

		in := (*fusekernel.InitIn)(inMsg.Consume(unsafeSizeofInitIn))
		if in == nil {
			return fmt.Errorf("INIT request too short")
		}

		kernel := fusekernel.Protocol{Major: in.Major, Minor: in.Minor}

		if kernel.Major > fusekernel.ProtoVersionMaxMajor {
			// Tell the kernel our version and wait for it to retry with a
			// downgraded major.
			out := s.defaultInitOut()
			if err := s.writeInitReply(header.Unique, &out); err != nil {
				return err
			}
			continue
		}

		min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
		if kernel.LT(min) {
			if err := s.writeErrorReply(header.Unique, EPROTO); err != nil {
				return err
			}
			continue
		}

		out, info := s.negotiate(kernel, in)
		if err := s.writeInitReply(header.Unique, &out); err != nil {
			return err
		}

		s.protocol = fusekernel.Protocol{Major: out.Major, Minor: out.Minor}
		s.info = info
		s.bufsize = bufferHeaderSize + int(info.MaxWrite())

		return nil
	}
}

// defaultInitOut is sent when the kernel's major version is newer than
// what this module supports, so it knows our version without any other
// field being meaningful yet.
func (s *Session) defaultInitOut() fusekernel.InitOut {
	return fusekernel.InitOut{
		Major: fusekernel.ProtoVersionMaxMajor,
		Minor: fusekernel.ProtoVersionMaxMinor,
	}
}

// negotiate computes the INIT reply and the ConnectionInfo to store. The
// reply sent over the wire carries only recognized bits that both the
// config and the kernel offered (plus BIG_WRITES and MAX_PAGES), while the
// stored ConnectionInfo additionally has the kernel's unrecognized
// (read-only) bits re-applied, so callers inspecting ConnectionInfo also
// see those. Recognized bits the kernel offered but the config did not are
// in neither.
func (s *Session) negotiate(kernel fusekernel.Protocol, in *fusekernel.InitIn) (fusekernel.InitOut, ConnectionInfo) {
	minor := kernel.Minor
	if minor > fusekernel.ProtoVersionMaxMinor {
		minor = fusekernel.ProtoVersionMaxMinor
	}

	kernelFlags := fusekernel.InitFlags(in.Flags)
	readonly := fusekernel.ReadonlyFlags(kernelFlags)

	capable := s.cfg.Flags & kernelFlags &^ readonly
	flags := capable | fusekernel.InitBigWrites

	maxReadahead := s.cfg.MaxReadahead
	if in.MaxReadahead < maxReadahead {
		maxReadahead = in.MaxReadahead
	}

	congestionThreshold, _ := s.cfg.resolvedCongestionThreshold()

	out := fusekernel.InitOut{
		Major:               fusekernel.ProtoVersionMaxMajor,
		Minor:               minor,
		MaxReadahead:        maxReadahead,
		Flags:               uint32(flags),
		MaxBackground:       s.cfg.MaxBackground,
		CongestionThreshold: congestionThreshold,
		MaxWrite:            s.cfg.MaxWrite,
		TimeGran:            s.cfg.TimeGran,
	}

	if kernelFlags&fusekernel.InitMaxPages != 0 {
		out.Flags |= uint32(fusekernel.InitMaxPages)
		maxPages := (uint64(out.MaxWrite) - 1) / pageSize + 1
		if maxPages > 0xffff {
			maxPages = 0xffff
		}
		out.MaxPages = uint16(maxPages)
	}

	// Re-apply the unrecognized kernel bits to the stored copy only, after
	// the wire value above has already been fixed.
	stored := out
	stored.Flags |= uint32(readonly)

	return out, ConnectionInfo{out: stored}
}

// ReadRequest blocks until the next framed request arrives from the
// kernel, or a terminal condition occurs. It returns (nil, io.EOF)
// once the kernel has cleanly unmounted (ENODEV), at which point the
// session's exit flag is set and no further requests will ever be
// returned. Per the kernel's protocol, ReadRequest must not be called from
// more than one task at a time; a concurrent call returns an error rather
// than silently interleaving reads.
func (s *Session) ReadRequest() (*Request, error) {
	if !s.readInUse.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("ReadRequest called concurrently; the kernel requires a single reader")
	}
	defer s.readInUse.Store(false)

	if s.exited.Load() {
		return nil, io.EOF
	}

	inMsg := s.provider.getInMessage()

	for {
		err := inMsg.Init(s.r, s.bufsize)
		if err == nil {
			if inMsg.Header().Opcode != fusekernel.OpInterrupt {
				break
			}
			// INTERRUPT is answered here by cancelling the named request's
			// context; it is never returned to the caller.
			if in := (*fusekernel.InterruptIn)(inMsg.Consume(unsafe.Sizeof(fusekernel.InterruptIn{}))); in != nil {
				s.HandleInterrupt(in.Unique)
			}
			continue
		}

		if isTransientReadError(err) {
			continue
		}

		if isShutdownReadError(err) {
			s.exited.Store(true)
			s.provider.putInMessage(inMsg)
			return nil, io.EOF
		}

		s.provider.putInMessage(inMsg)
		return nil, fmt.Errorf("reading request: %w", err)
	}

	header := inMsg.Header()
	s.debugLog("<- opcode=%v unique=%d", header.Opcode, header.Unique)

	ctx, report := s.beginOp(header.Opcode, header.Unique)

	req := &Request{
		session: s,
		ctx:     ctx,
		report:  report,
		inMsg:   inMsg,
		unique:  header.Unique,
		opcode:  header.Opcode,
	}

	return req, nil
}

// beginOp sets up a cancellable, trace-spanned context for one in-flight
// request and returns the reqtrace.ReportFunc that closes the span; it is
// the caller's responsibility to invoke it exactly once, with the
// request's final outcome, when the request is answered. FORGET never
// receives a reply and its unique id may be reused immediately by the
// kernel (notably on macOS), so it is excluded from the cancellation
// bookkeeping, but its span is still opened and must still be closed.
func (s *Session) beginOp(opcode fusekernel.Opcode, unique uint64) (context.Context, reqtrace.ReportFunc) {
	ctx, report := reqtrace.StartSpan(context.Background(), opcode.String())

	if opcode == fusekernel.OpForget {
		return ctx, report
	}

	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancelFuncs[unique] = cancel
	s.mu.Unlock()

	return ctx, report
}

// finishOp releases the cancellation bookkeeping for a completed request.
func (s *Session) finishOp(opcode fusekernel.Opcode, unique uint64) {
	if opcode == fusekernel.OpForget {
		return
	}

	s.mu.Lock()
	cancel, ok := s.cancelFuncs[unique]
	if ok {
		delete(s.cancelFuncs, unique)
	}
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// HandleInterrupt cancels the context associated with the request whose
// unique id is target, if it is still in flight. If the request has
// already been replied to, this is a no-op: fuse.txt documents that an
// interrupt can never race ahead of the request it names.
func (s *Session) HandleInterrupt(target uint64) {
	s.mu.Lock()
	cancel, ok := s.cancelFuncs[target]
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// ConnectionInfo returns the negotiated connection metadata. It is only
// valid to call after Init has returned successfully, which is the only
// way to obtain a *Session.
func (s *Session) ConnectionInfo() ConnectionInfo { return s.info }

// BufSize returns the size of the receive buffer used for every request
// after the handshake: BUFFER_HEADER_SIZE + negotiated max_write.
func (s *Session) BufSize() int { return s.bufsize }

// Exited reports whether the kernel has unmounted (ENODEV observed by
// ReadRequest). Once true, it never becomes false again.
func (s *Session) Exited() bool { return s.exited.Load() }

func (s *Session) debugLog(format string, v ...interface{}) {
	if s.debugLogger == nil {
		return
	}
	s.debugLogger.Printf(format, v...)
}
