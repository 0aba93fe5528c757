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

// Dumpfs drives a fuse.Session over an already-open kernel channel and
// logs every request it decodes. It replies ENOSYS to most of them; FORGET
// and BATCH_FORGET get no reply, STATFS gets a zeroed reply, READLINK a
// fixed stub target, and FALLOCATE is applied to --scratch_file when one
// is given (ENOSYS otherwise). It is a
// diagnostic tool for watching what a real kernel actually sends, not a
// usable file system: acquiring the channel (invoking a setuid mount
// helper, or otherwise obtaining an open /dev/fuse descriptor) is left to
// the caller, matching this module's decision not to own mount-point
// acquisition.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	fallocate "github.com/detailyang/go-fallocate"

	fuse "github.com/kernelwire/fusecore"
	"github.com/kernelwire/fusecore/fuseops"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

var fFD = flag.Uint64("fd", 0, "Already-open /dev/fuse file descriptor, from a mount helper.")
var fDebug = flag.Bool("debug", false, "Enable debug logging.")
var fScratch = flag.String("scratch_file", "", "Backing file for the FALLOCATE demo handler.")

func main() {
	flag.Parse()

	if *fFD == 0 {
		log.Fatalf("You must set --fd to an already-open /dev/fuse descriptor.")
	}

	chanFile := os.NewFile(uintptr(*fFD), "/dev/fuse")

	cfg := fuse.NewConfig()
	cfg.Debug = *fDebug

	session, err := fuse.Init(chanFile, chanFile, cfg)
	if err != nil {
		log.Fatalf("Init: %v", err)
	}

	log.Printf("negotiated protocol %d.%d, max_write=%d",
		session.ConnectionInfo().ProtoMajor(),
		session.ConnectionInfo().ProtoMinor(),
		session.ConnectionInfo().MaxWrite())

	var scratch *os.File
	if *fScratch != "" {
		scratch, err = os.OpenFile(*fScratch, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			log.Fatalf("opening scratch file: %v", err)
		}
		defer scratch.Close()
	}

	for {
		req, err := session.ReadRequest()
		if err != nil {
			if session.Exited() {
				log.Printf("kernel unmounted; exiting")
				return
			}
			log.Fatalf("ReadRequest: %v", err)
		}

		dispatch(req, scratch)
	}
}

func dispatch(req *fuse.Request, scratch *os.File) {
	op, err := req.Op()
	if err != nil {
		log.Printf("decode error: %v", err)
		logReplyErr(req.ReplyError(fuse.EIO))
		return
	}

	log.Printf("%v", describe(op))

	switch o := op.(type) {
	case *fuseops.ForgetOp, *fuseops.BatchForgetOp:
		req.NoReply()

	case *fuseops.FallocateOp:
		if scratch == nil {
			logReplyErr(req.ReplyError(fuse.ENOSYS))
			return
		}
		if err := fallocate.Fallocate(scratch, int64(o.Arg.Offset), int64(o.Arg.Length)); err != nil {
			logReplyErr(req.ReplyError(fuse.EIO))
			return
		}
		logReplyErr(req.Reply(nil))

	case *fuseops.StatfsOp:
		logReplyErr(req.Reply(&fusekernel.StatfsOut{}))

	case *fuseops.ReadlinkOp:
		// No backing filesystem here; demonstrates the raw-payload reply
		// path with a fixed stub target.
		logReplyErr(req.ReplyRaw(nil, []byte("dumpfs-stub-target")))

	default:
		logReplyErr(req.ReplyError(fuse.ENOSYS))
	}
}

func logReplyErr(err error) {
	if err != nil {
		log.Printf("reply: %v", err)
	}
}

func describe(op fuseops.Op) string {
	switch o := op.(type) {
	case *fuseops.LookupOp:
		return fmt.Sprintf("LOOKUP name=%q", o.Name)
	case *fuseops.WriteOp:
		return fmt.Sprintf("WRITE fh=%d offset=%d len=%d", o.Arg.Fh, o.Arg.Offset, len(o.Data))
	case *fuseops.UnknownOp:
		return fmt.Sprintf("UNKNOWN code=%d", o.Code)
	default:
		return op.Opcode().String()
	}
}
