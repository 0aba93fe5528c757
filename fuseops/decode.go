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

import (
	"fmt"
	"unsafe"

	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/fusekernel"
)

// Decode reads the opcode-specific argument struct and any trailing
// name(s) or payload from msg, whose read cursor must already be
// positioned just past the InHeader (i.e. by a fresh
// buffer.InMessage.Init call), and returns the corresponding Op.
//
// Unrecognized opcodes produce an *UnknownOp rather than an error — an
// unknown opcode is a normal outcome the caller answers with ENOSYS, not
// a framing failure.
func Decode(msg *buffer.InMessage, protocol fusekernel.Protocol) (Op, error) {
	h := msg.Header()
	op, err := decode(msg, h.Opcode)
	if err != nil {
		return nil, fmt.Errorf("decoding %v: %w", h.Opcode, err)
	}
	return op, nil
}

func fetch[T any](msg *buffer.InMessage) (*T, error) {
	var zero T
	p := msg.Consume(unsafe.Sizeof(zero))
	if p == nil {
		return nil, fmt.Errorf("short buffer: need %d bytes", unsafe.Sizeof(zero))
	}
	return (*T)(p), nil
}

func decode(msg *buffer.InMessage, opcode fusekernel.Opcode) (Op, error) {
	base := baseOp{opcode: opcode}

	switch opcode {
	case fusekernel.OpLookup:
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &LookupOp{baseOp: base, Name: name}, nil

	case fusekernel.OpGetattr:
		arg, err := fetch[fusekernel.GetattrIn](msg)
		if err != nil {
			return nil, err
		}
		return &GetattrOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpSetattr:
		arg, err := fetch[fusekernel.SetAttrIn](msg)
		if err != nil {
			return nil, err
		}
		return &SetattrOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpForget:
		arg, err := fetch[fusekernel.ForgetIn](msg)
		if err != nil {
			return nil, err
		}
		return &ForgetOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpBatchForget:
		hdr, err := fetch[fusekernel.BatchForgetIn](msg)
		if err != nil {
			return nil, err
		}
		items := make([]fusekernel.ForgetOne, 0, hdr.Count)
		for i := uint32(0); i < hdr.Count; i++ {
			item, err := fetch[fusekernel.ForgetOne](msg)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
		return &BatchForgetOp{baseOp: base, Items: items}, nil

	case fusekernel.OpReadlink:
		return &ReadlinkOp{baseOp: base}, nil

	case fusekernel.OpSymlink:
		// Wire order is the new entry's name, then the link target string.
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		target, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &SymlinkOp{baseOp: base, Name: name, Target: target}, nil

	case fusekernel.OpMknod:
		arg, err := fetch[fusekernel.MknodIn](msg)
		if err != nil {
			return nil, err
		}
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &MknodOp{baseOp: base, Arg: arg, Name: name}, nil

	case fusekernel.OpMkdir:
		arg, err := fetch[fusekernel.MkdirIn](msg)
		if err != nil {
			return nil, err
		}
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &MkdirOp{baseOp: base, Arg: arg, Name: name}, nil

	case fusekernel.OpUnlink:
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &UnlinkOp{baseOp: base, Name: name}, nil

	case fusekernel.OpRmdir:
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &RmdirOp{baseOp: base, Name: name}, nil

	case fusekernel.OpRename:
		arg, err := fetch[fusekernel.RenameIn](msg)
		if err != nil {
			return nil, err
		}
		oldName, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		newName, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &RenameOp{baseOp: base, Newdir: arg.Newdir, OldName: oldName, NewName: newName}, nil

	case fusekernel.OpRename2:
		arg, err := fetch[fusekernel.Rename2In](msg)
		if err != nil {
			return nil, err
		}
		oldName, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		newName, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &RenameOp{baseOp: base, Newdir: arg.Newdir, Flags: arg.Flags, OldName: oldName, NewName: newName}, nil

	case fusekernel.OpLink:
		arg, err := fetch[fusekernel.LinkIn](msg)
		if err != nil {
			return nil, err
		}
		newName, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &LinkOp{baseOp: base, Arg: arg, NewName: newName}, nil

	case fusekernel.OpOpen:
		arg, err := fetch[fusekernel.OpenIn](msg)
		if err != nil {
			return nil, err
		}
		return &OpenOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpRead:
		arg, err := fetch[fusekernel.ReadIn](msg)
		if err != nil {
			return nil, err
		}
		return &ReadOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpWrite:
		arg, err := fetch[fusekernel.WriteIn](msg)
		if err != nil {
			return nil, err
		}
		data := msg.ConsumeBytes(uintptr(arg.Size))
		if data == nil {
			return nil, fmt.Errorf("WRITE declares %d bytes, buffer has %d remaining", arg.Size, msg.Len())
		}
		return &WriteOp{baseOp: base, Arg: arg, Data: data}, nil

	case fusekernel.OpStatfs:
		return &StatfsOp{baseOp: base}, nil

	case fusekernel.OpRelease:
		arg, err := fetch[fusekernel.ReleaseIn](msg)
		if err != nil {
			return nil, err
		}
		return &ReleaseOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpFsync:
		arg, err := fetch[fusekernel.FsyncIn](msg)
		if err != nil {
			return nil, err
		}
		return &FsyncOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpSetxattr:
		arg, err := fetch[fusekernel.SetXAttrIn](msg)
		if err != nil {
			return nil, err
		}
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		value := msg.ConsumeBytes(uintptr(arg.Size))
		if value == nil {
			return nil, fmt.Errorf("SETXATTR declares %d bytes, buffer has %d remaining", arg.Size, msg.Len())
		}
		return &SetxattrOp{baseOp: base, Arg: arg, Name: name, Value: value}, nil

	case fusekernel.OpGetxattr:
		arg, err := fetch[fusekernel.GetXAttrIn](msg)
		if err != nil {
			return nil, err
		}
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &GetxattrOp{baseOp: base, Arg: arg, Name: name}, nil

	case fusekernel.OpListxattr:
		arg, err := fetch[fusekernel.GetXAttrIn](msg)
		if err != nil {
			return nil, err
		}
		return &ListxattrOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpRemovexattr:
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &RemovexattrOp{baseOp: base, Name: name}, nil

	case fusekernel.OpFlush:
		arg, err := fetch[fusekernel.FlushIn](msg)
		if err != nil {
			return nil, err
		}
		return &FlushOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpOpendir:
		arg, err := fetch[fusekernel.OpenIn](msg)
		if err != nil {
			return nil, err
		}
		return &OpendirOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpReaddir, fusekernel.OpReaddirplus:
		arg, err := fetch[fusekernel.ReadIn](msg)
		if err != nil {
			return nil, err
		}
		return &ReaddirOp{baseOp: base, Arg: arg, Plus: opcode == fusekernel.OpReaddirplus}, nil

	case fusekernel.OpReleasedir:
		arg, err := fetch[fusekernel.ReleaseIn](msg)
		if err != nil {
			return nil, err
		}
		return &ReleasedirOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpFsyncdir:
		arg, err := fetch[fusekernel.FsyncIn](msg)
		if err != nil {
			return nil, err
		}
		return &FsyncdirOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpGetlk, fusekernel.OpSetlk, fusekernel.OpSetlkw:
		arg, err := fetch[fusekernel.LkIn](msg)
		if err != nil {
			return nil, err
		}
		switch opcode {
		case fusekernel.OpGetlk:
			return &GetlkOp{baseOp: base, Arg: arg}, nil
		case fusekernel.OpSetlk:
			return &SetlkOp{baseOp: base, Arg: arg}, nil
		default:
			return &SetlkwOp{baseOp: base, Arg: arg}, nil
		}

	case fusekernel.OpAccess:
		arg, err := fetch[fusekernel.AccessIn](msg)
		if err != nil {
			return nil, err
		}
		return &AccessOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpCreate:
		arg, err := fetch[fusekernel.CreateIn](msg)
		if err != nil {
			return nil, err
		}
		name, err := msg.ConsumeName()
		if err != nil {
			return nil, err
		}
		return &CreateOp{baseOp: base, Arg: arg, Name: name}, nil

	case fusekernel.OpInterrupt:
		arg, err := fetch[fusekernel.InterruptIn](msg)
		if err != nil {
			return nil, err
		}
		return &InterruptOp{baseOp: base, FuseID: arg.Unique}, nil

	case fusekernel.OpBmap:
		arg, err := fetch[fusekernel.BmapIn](msg)
		if err != nil {
			return nil, err
		}
		return &BmapOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpDestroy:
		return &DestroyOp{baseOp: base}, nil

	case fusekernel.OpIoctl:
		arg, err := fetch[fusekernel.IoctlIn](msg)
		if err != nil {
			return nil, err
		}
		data := msg.ConsumeBytes(uintptr(arg.InSize))
		if arg.InSize > 0 && data == nil {
			return nil, fmt.Errorf("IOCTL declares %d input bytes, buffer has %d remaining", arg.InSize, msg.Len())
		}
		return &IoctlOp{baseOp: base, Arg: arg, Data: data}, nil

	case fusekernel.OpPoll:
		arg, err := fetch[fusekernel.PollIn](msg)
		if err != nil {
			return nil, err
		}
		return &PollOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpNotifyReply:
		arg, err := fetch[fusekernel.NotifyRetrieveIn](msg)
		if err != nil {
			return nil, err
		}
		data := msg.ConsumeBytes(uintptr(arg.Size))
		if data == nil {
			return nil, fmt.Errorf("NOTIFY_REPLY declares %d bytes, buffer has %d remaining", arg.Size, msg.Len())
		}
		return &NotifyReplyOp{baseOp: base, Arg: arg, Data: data}, nil

	case fusekernel.OpFallocate:
		arg, err := fetch[fusekernel.FallocateIn](msg)
		if err != nil {
			return nil, err
		}
		return &FallocateOp{baseOp: base, Arg: arg}, nil

	case fusekernel.OpLseek:
		arg, err := fetch[fusekernel.LseekIn](msg)
		if err != nil {
			return nil, err
		}
		return &LseekOp{baseOp: base, Arg: arg}, nil

	default:
		return &UnknownOp{baseOp: base, Code: uint32(opcode)}, nil
	}
}
