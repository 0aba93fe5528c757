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

// Package fuse is the core of a userspace FUSE session: it negotiates the
// protocol handshake with the kernel, frames and decodes the binary
// request stream into typed operations, and encodes replies and
// notifications back to the kernel.
//
// The primary elements of interest are:
//
//   - Session, which owns the handshake and the kernel request loop.
//
//   - Request, the zero-copy view over one decoded kernel message,
//     obtained from Session.ReadRequest and replied to with Request.Reply
//     or Request.ReplyError.
//
//   - The fuseops package, which defines the per-opcode operation variant
//     a Request decodes into.
//
// This package does not open, mount, or close the kernel device, and it
// has no opinion on filesystem semantics (inodes, directory contents,
// file data) — both are the embedding program's responsibility. It is
// handed an already-connected io.Reader/io.Writer pair and a Config, and
// from there drives the wire protocol.
package fuse
