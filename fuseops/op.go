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

// Package fuseops implements the request-view component: decoding a
// complete kernel request buffer into a typed operation variant. Each
// opcode's argument struct and raw payloads (WRITE data, SETXATTR values,
// and the like) are borrowed directly from the request buffer passed to
// Decode. Names are not borrowed: they are copied into Go strings, BATCH_FORGET
// entries are copied into a new slice, and each decoded op is itself a
// new allocation.
//
// This is deliberately not a filesystem-semantics layer: op structs carry
// the kernel's own wire arguments (inode numbers, raw mode bits, handle
// numbers) rather than resolved entities. Giving those numbers meaning —
// maintaining an inode table, interpreting a handle — is the embedding
// program's job.
package fuseops

import "github.com/kernelwire/fusecore/internal/fusekernel"

// Op is implemented by every decoded operation variant. Opcode identifies
// which concrete type the Op actually is; callers type-switch on the
// concrete type to get at opcode-specific fields.
type Op interface {
	Opcode() fusekernel.Opcode
}

// baseOp is embedded by every concrete op type to supply Opcode().
type baseOp struct {
	opcode fusekernel.Opcode
}

func (o baseOp) Opcode() fusekernel.Opcode { return o.opcode }

// UnknownOp is returned for any opcode this package does not recognize.
// Per the dispatch contract, the correct response is ENOSYS.
type UnknownOp struct {
	baseOp
	Code uint32
}
