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

package fusekernel

// Every request from the kernel begins with an InHeader. Length is the
// total size of the request, including this header; a reader uses it to
// know how many bytes make up one frame.
type InHeader struct {
	Length  uint32
	Opcode  Opcode
	Unique  uint64
	NodeId  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// Every reply begins with an OutHeader. Status is a negated errno (0 on
// success); Unique echoes the InHeader.Unique of the request it answers, or
// is 0 for an asynchronous notification.
type OutHeader struct {
	Length uint32
	Status int32
	Unique uint64
}

// Owner mirrors the uid/gid pair embedded in several kernel structs.
type Owner struct {
	Uid uint32
	Gid uint32
}

// Attr is the kernel's view of inode metadata, as used by GETATTR/SETATTR
// replies and LOOKUP/CREATE/MKDIR entry replies.
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Nlink     uint32
	Owner
	Rdev    uint32
	Blksize uint32
	Padding uint32
}

// File mode bits, as stored in Attr.Mode (S_IF* from sys/stat.h).
const (
	S_IFMT   = 0170000
	S_IFSOCK = 0140000
	S_IFLNK  = 0120000
	S_IFREG  = 0100000
	S_IFBLK  = 0060000
	S_IFDIR  = 0040000
	S_IFCHR  = 0020000
	S_IFIFO  = 0010000
)

// Dirent.Typ values, the d_type nibble of a directory entry.
const (
	DT_UNKNOWN = 0
	DT_FIFO    = 1
	DT_CHR     = 2
	DT_DIR     = 4
	DT_BLK     = 6
	DT_REG     = 8
	DT_LNK     = 10
	DT_SOCK    = 12
	DT_WHT     = 14
)

// InitIn is the body of a FUSE_INIT request.
type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

// InitOut is the body of a FUSE_INIT reply. TimeGran and MaxPages are only
// meaningful, and only read by the kernel, for ABI >= 7.23 and when the
// kernel advertised FUSE_MAX_PAGES respectively; callers that negotiate an
// older minor must leave them zero.
type InitOut struct {
	Major                uint32
	Minor                uint32
	MaxReadahead         uint32
	Flags                uint32
	MaxBackground        uint16
	CongestionThreshold  uint16
	MaxWrite             uint32
	TimeGran             uint32
	MaxPages             uint16
	Padding              uint16
	Unused               [8]uint32
}

type GetattrIn struct {
	GetattrFlags uint32
	Dummy        uint32
	Fh           uint64
}

const FUSE_GETATTR_FH = 1 << 0

type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

type EntryOut struct {
	NodeId         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

// SetAttrInCommon is the platform-common prefix of a SETATTR request; the
// FATTR_* bits in Valid select which fields the kernel actually wants
// applied.
type SetAttrInCommon struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     uint64
	Mtime     uint64
	Unused2   uint64
	Atimensec uint32
	Mtimensec uint32
	Unused3   uint32
	Mode      uint32
	Unused4   uint32
	Owner
	Unused5 uint32
}

type SetAttrIn struct {
	SetAttrInCommon
}

const (
	FATTR_MODE      = 1 << 0
	FATTR_UID       = 1 << 1
	FATTR_GID       = 1 << 2
	FATTR_SIZE      = 1 << 3
	FATTR_ATIME     = 1 << 4
	FATTR_MTIME     = 1 << 5
	FATTR_FH        = 1 << 6
	FATTR_ATIME_NOW = 1 << 7
	FATTR_MTIME_NOW = 1 << 8
	FATTR_LOCKOWNER = 1 << 9
	FATTR_CTIME     = 1 << 10
)

type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
	// followed by: name, NUL
}

type MkdirIn struct {
	Mode  uint32
	Umask uint32
	// followed by: name, NUL
}

type RenameIn struct {
	Newdir uint64
	// followed by: oldname, NUL, newname, NUL
}

type Rename2In struct {
	Newdir  uint64
	Flags   uint32
	Padding uint32
	// followed by: oldname, NUL, newname, NUL
}

type LinkIn struct {
	Oldnodeid uint64
	// followed by: newname, NUL
}

type OpenIn struct {
	Flags  uint32
	Unused uint32
}

const (
	FOPEN_DIRECT_IO   = 1 << 0
	FOPEN_KEEP_CACHE  = 1 << 1
	FOPEN_NONSEEKABLE = 1 << 2
	FOPEN_CACHE_DIR   = 1 << 3
	FOPEN_STREAM      = 1 << 4
)

type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

type CreateIn struct {
	Flags   uint32
	Mode    uint32
	Umask   uint32
	Padding uint32
	// followed by: name, NUL
}

type CreateOut struct {
	EntryOut
	OpenOut
}

type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

const (
	ReleaseFlushRequired = 1 << 0
	ReleaseFlockUnlock   = 1 << 1
)

type FlushIn struct {
	Fh        uint64
	Unused    uint32
	Padding   uint32
	LockOwner uint64
}

// ReadIn is the modern (ABI >= 7.9) form, carrying the lock owner and a
// read-specific flags word in addition to the handle/offset/size.
type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

const (
	ReadLockOwner = 1 << 1
)

type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
	// followed by: Size bytes of data
}

const (
	WriteCache     = 1 << 0
	WriteLockOwner = 1 << 1
	WriteKillPriv  = 1 << 2
)

type WriteOut struct {
	Size    uint32
	Padding uint32
}

type StatfsOut struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	NameLen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

type SetXAttrIn struct {
	Size    uint32
	Flags   uint32
	// followed by: name, NUL, value (Size bytes)
}

type GetXAttrIn struct {
	Size    uint32
	Padding uint32
	// followed by: name, NUL
}

type GetXAttrOut struct {
	Size    uint32
	Padding uint32
	// followed by: value (Size bytes), when the request's Size != 0
}

type AccessIn struct {
	Mask    uint32
	Padding uint32
}

const (
	X_OK = 1
	W_OK = 2
	R_OK = 4
	F_OK = 0
)

// ForgetIn is the body of a FUSE_FORGET request, which never receives a
// reply.
type ForgetIn struct {
	Nlookup uint64
}

type ForgetOne struct {
	NodeId  uint64
	Nlookup uint64
}

type BatchForgetIn struct {
	Count uint32
	Dummy uint32
	// followed by: Count ForgetOne structs
}

type InterruptIn struct {
	Unique uint64
}

type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

type BmapOut struct {
	Block uint64
}

const (
	FUSE_IOCTL_COMPAT       = 1 << 0
	FUSE_IOCTL_UNRESTRICTED = 1 << 1
	FUSE_IOCTL_RETRY        = 1 << 2
	FUSE_IOCTL_32BIT        = 1 << 3
	FUSE_IOCTL_DIR          = 1 << 4
	FUSE_IOCTL_MAX_IOV      = 256
)

type IoctlIn struct {
	Fh      uint64
	Flags   uint32
	Cmd     uint32
	Arg     uint64
	InSize  uint32
	OutSize uint32
}

type IoctlOut struct {
	Result  int32
	Flags   uint32
	InIovs  uint32
	OutIovs uint32
}

type PollIn struct {
	Fh      uint64
	Kh      uint64
	Flags   uint32
	Padding uint32
}

type PollOut struct {
	Revents uint32
	Padding uint32
}

type NotifyPollWakeupOut struct {
	Kh uint64
}

type FileLock struct {
	Start uint64
	End   uint64
	Typ   uint32
	Pid   uint32
}

type LkIn struct {
	Fh      uint64
	Owner   uint64
	Lk      FileLock
	LkFlags uint32
	Padding uint32
}

const LkFlock = 1 << 0

type LkOut struct {
	Lk FileLock
}

type Dirent struct {
	Ino     uint64
	Off     uint64
	NameLen uint32
	Typ     uint32
	// followed by: name, padded to an 8-byte boundary (no NUL)
}

// NotifyInvalInodeOut is an asynchronous invalidate-inode notification
// payload; it has no matching request.
type NotifyInvalInodeOut struct {
	Ino    uint64
	Off    int64
	Length int64
}

type NotifyInvalEntryOut struct {
	Parent  uint64
	NameLen uint32
	Padding uint32
	// followed by: name, NUL
}

type NotifyInvalDeleteOut struct {
	Parent  uint64
	Child   uint64
	NameLen uint32
	Padding uint32
	// followed by: name, NUL
}

type NotifyStoreOut struct {
	Nodeid uint64
	Offset uint64
	Size   uint32
	Padding uint32
	// followed by: Size bytes of data
}

type NotifyRetrieveOut struct {
	NotifyUnique uint64
	Nodeid       uint64
	Offset       uint64
	Size         uint32
	Padding      uint32
}

type NotifyRetrieveIn struct {
	Dummy1 uint32
	Dummy2 uint32
	Offset uint64
	Size   uint32
	Dummy3 uint32
	Dummy4 uint64
	Dummy5 uint64
	// followed by: Size bytes of data
}

type FallocateIn struct {
	Fh      uint64
	Offset  uint64
	Length  uint64
	Mode    uint32
	Padding uint32
}

type LseekIn struct {
	Fh      uint64
	Offset  uint64
	Whence  uint32
	Padding uint32
}

type LseekOut struct {
	Offset uint64
}
