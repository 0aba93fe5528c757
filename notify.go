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
	"fmt"

	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

// Notifications are unsolicited messages from userspace to the kernel:
// OutHeader.Unique is always 0, and OutHeader.Status carries the
// fusekernel.NotifyCode identifying which kind of notification it is
// rather than an errno. Unlike replies, a notification is not associated
// with any in-flight Request and may be sent at any time, from any
// goroutine, concurrently with Session.ReadRequest.

// InvalidateInode asks the kernel to drop any cached data for ino in the
// half-open byte range [off, off+length), or the entire inode if length
// is negative.
func (s *Session) InvalidateInode(ino uint64, off, length int64) error {
	out := s.provider.getOutMessage(0)
	defer s.provider.putOutMessage(out)

	appendWireStruct(out, &fusekernel.NotifyInvalInodeOut{
		Ino:    ino,
		Off:    off,
		Length: length,
	})

	return s.sendNotification(out, fusekernel.NotifyInvalInode)
}

// InvalidateEntry asks the kernel to drop the dentry named name under the
// directory parent, forcing a fresh LOOKUP next time it is needed.
func (s *Session) InvalidateEntry(parent uint64, name string) error {
	out := s.provider.getOutMessage(0)
	defer s.provider.putOutMessage(out)

	appendWireStruct(out, &fusekernel.NotifyInvalEntryOut{
		Parent:  parent,
		NameLen: uint32(len(name)),
	})
	out.AppendString(name)
	out.Append([]byte{0})

	return s.sendNotification(out, fusekernel.NotifyInvalEntry)
}

// Store pushes data into the kernel's page cache for ino at the given
// offset, without the kernel issuing a READ to fetch it.
func (s *Session) Store(ino uint64, offset uint64, data []byte) error {
	if uint64(len(data)) > ^uint32(0) {
		return fmt.Errorf("Store: %d bytes exceeds uint32 size field", len(data))
	}

	out := s.provider.getOutMessage(uintptr(len(data)))
	defer s.provider.putOutMessage(out)

	appendWireStruct(out, &fusekernel.NotifyStoreOut{
		Nodeid: ino,
		Offset: offset,
		Size:   uint32(len(data)),
	})
	out.Append(data)

	return s.sendNotification(out, fusekernel.NotifyStore)
}

// Retrieve asks the kernel to send back up to size bytes of its cached
// data for ino starting at offset, as a subsequent NOTIFY_REPLY request
// (fuseops.NotifyReplyOp) carrying the same notifyUnique value. The
// caller is responsible for matching the reply to this call; the Session
// does not track outstanding retrievals itself.
func (s *Session) Retrieve(notifyUnique, ino, offset uint64, size uint32) error {
	out := s.provider.getOutMessage(0)
	defer s.provider.putOutMessage(out)

	appendWireStruct(out, &fusekernel.NotifyRetrieveOut{
		NotifyUnique: notifyUnique,
		Nodeid:       ino,
		Offset:       offset,
		Size:         size,
	})

	return s.sendNotification(out, fusekernel.NotifyRetrieve)
}

// sendNotification stamps out's header with the negated notification code
// (in the slot a reply would use for Status) and a zero Unique, then
// writes it.
func (s *Session) sendNotification(out *buffer.OutMessage, code fusekernel.NotifyCode) error {
	header := out.OutHeader()
	header.Unique = 0
	header.Status = -int32(code)
	header.Length = uint32(out.Len())

	s.debugLog("-> notify %v len=%d", code, header.Length)

	return s.write(out)
}
