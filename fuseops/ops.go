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

package fuseops

import "github.com/kernelwire/fusecore/internal/fusekernel"

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

// LookupOp is a LOOKUP request: find the child named Name of the inode
// named by the request header's NodeId.
type LookupOp struct {
	baseOp
	Name string
}

type GetattrOp struct {
	baseOp
	Arg *fusekernel.GetattrIn
}

type SetattrOp struct {
	baseOp
	Arg *fusekernel.SetAttrIn
}

// ForgetOp is a FORGET request. It never receives a reply.
type ForgetOp struct {
	baseOp
	Arg *fusekernel.ForgetIn
}

// BatchForgetOp batches multiple forgets in one frame. It never receives a
// reply.
type BatchForgetOp struct {
	baseOp
	Items []fusekernel.ForgetOne
}

////////////////////////////////////////////////////////////////////////
// Inode creation
////////////////////////////////////////////////////////////////////////

type MknodOp struct {
	baseOp
	Arg  *fusekernel.MknodIn
	Name string
}

type MkdirOp struct {
	baseOp
	Arg  *fusekernel.MkdirIn
	Name string
}

type SymlinkOp struct {
	baseOp
	Name   string
	Target string
}

type CreateOp struct {
	baseOp
	Arg  *fusekernel.CreateIn
	Name string
}

type LinkOp struct {
	baseOp
	Arg     *fusekernel.LinkIn
	NewName string
}

////////////////////////////////////////////////////////////////////////
// Unlinking / renaming
////////////////////////////////////////////////////////////////////////

type UnlinkOp struct {
	baseOp
	Name string
}

type RmdirOp struct {
	baseOp
	Name string
}

type RenameOp struct {
	baseOp
	Newdir  uint64
	Flags   uint32
	OldName string
	NewName string
}

////////////////////////////////////////////////////////////////////////
// Symlinks
////////////////////////////////////////////////////////////////////////

// ReadlinkOp is a READLINK request; it carries no arguments beyond the
// request header's NodeId.
type ReadlinkOp struct {
	baseOp
}

////////////////////////////////////////////////////////////////////////
// Directory handles
////////////////////////////////////////////////////////////////////////

type OpendirOp struct {
	baseOp
	Arg *fusekernel.OpenIn
}

type ReaddirOp struct {
	baseOp
	Arg  *fusekernel.ReadIn
	Plus bool
}

type ReleasedirOp struct {
	baseOp
	Arg *fusekernel.ReleaseIn
}

type FsyncdirOp struct {
	baseOp
	Arg *fusekernel.FsyncIn
}

////////////////////////////////////////////////////////////////////////
// File handles
////////////////////////////////////////////////////////////////////////

type OpenOp struct {
	baseOp
	Arg *fusekernel.OpenIn
}

type ReadOp struct {
	baseOp
	Arg *fusekernel.ReadIn
}

type WriteOp struct {
	baseOp
	Arg  *fusekernel.WriteIn
	Data []byte
}

type FsyncOp struct {
	baseOp
	Arg *fusekernel.FsyncIn
}

type FlushOp struct {
	baseOp
	Arg *fusekernel.FlushIn
}

type ReleaseOp struct {
	baseOp
	Arg *fusekernel.ReleaseIn
}

type FallocateOp struct {
	baseOp
	Arg *fusekernel.FallocateIn
}

type LseekOp struct {
	baseOp
	Arg *fusekernel.LseekIn
}

////////////////////////////////////////////////////////////////////////
// Extended attributes
////////////////////////////////////////////////////////////////////////

type SetxattrOp struct {
	baseOp
	Arg   *fusekernel.SetXAttrIn
	Name  string
	Value []byte
}

type GetxattrOp struct {
	baseOp
	Arg  *fusekernel.GetXAttrIn
	Name string
}

type ListxattrOp struct {
	baseOp
	Arg *fusekernel.GetXAttrIn
}

type RemovexattrOp struct {
	baseOp
	Name string
}

////////////////////////////////////////////////////////////////////////
// Locking
////////////////////////////////////////////////////////////////////////

type GetlkOp struct {
	baseOp
	Arg *fusekernel.LkIn
}

type SetlkOp struct {
	baseOp
	Arg *fusekernel.LkIn
}

type SetlkwOp struct {
	baseOp
	Arg *fusekernel.LkIn
}

////////////////////////////////////////////////////////////////////////
// Misc
////////////////////////////////////////////////////////////////////////

type AccessOp struct {
	baseOp
	Arg *fusekernel.AccessIn
}

// StatfsOp carries no arguments beyond the request header.
type StatfsOp struct {
	baseOp
}

type BmapOp struct {
	baseOp
	Arg *fusekernel.BmapIn
}

type IoctlOp struct {
	baseOp
	Arg  *fusekernel.IoctlIn
	Data []byte
}

type PollOp struct {
	baseOp
	Arg *fusekernel.PollIn
}

// NotifyReplyOp carries the payload the kernel sends back in response to
// a prior NOTIFY_RETRIEVE notification.
type NotifyReplyOp struct {
	baseOp
	Arg  *fusekernel.NotifyRetrieveIn
	Data []byte
}

// DestroyOp signals the kernel is tearing down the connection; there is
// nothing else to decode.
type DestroyOp struct {
	baseOp
}

////////////////////////////////////////////////////////////////////////
// Internal (handled by Session before reaching user code)
////////////////////////////////////////////////////////////////////////

// InterruptOp asks that the in-flight request named by FuseID be
// cancelled. Session.ReadRequest handles this opcode internally (see
// Session.HandleInterrupt) and does not surface it as a user-visible
// request, but the type is exported so a caller decoding raw frames
// outside of a Session can still recognize it.
type InterruptOp struct {
	baseOp
	FuseID uint64
}
