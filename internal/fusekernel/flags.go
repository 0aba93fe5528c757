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

// InitFlags is the capability bitmap exchanged during the INIT handshake,
// carried in InitIn.Flags (what the kernel supports) and InitOut.Flags
// (what the session turns on).
type InitFlags uint32

const (
	InitAsyncRead         InitFlags = 1 << 0
	InitPosixLocks        InitFlags = 1 << 1
	InitFileOps           InitFlags = 1 << 2
	InitAtomicTrunc       InitFlags = 1 << 3
	InitExportSupport     InitFlags = 1 << 4
	InitBigWrites         InitFlags = 1 << 5
	InitDontMask          InitFlags = 1 << 6
	InitSpliceWrite       InitFlags = 1 << 7
	InitSpliceMove        InitFlags = 1 << 8
	InitSpliceRead        InitFlags = 1 << 9
	InitFlockLocks        InitFlags = 1 << 10
	InitHasIoctlDir       InitFlags = 1 << 11
	InitAutoInvalData     InitFlags = 1 << 12
	InitDoReaddirplus     InitFlags = 1 << 13
	InitReaddirplusAuto   InitFlags = 1 << 14
	InitAsyncDIO          InitFlags = 1 << 15
	InitWritebackCache    InitFlags = 1 << 16
	InitNoOpenSupport     InitFlags = 1 << 17
	InitParallelDirOps    InitFlags = 1 << 18
	InitHandleKillpriv    InitFlags = 1 << 19
	InitPosixACL          InitFlags = 1 << 20
	InitAbortError        InitFlags = 1 << 21
	InitMaxPages          InitFlags = 1 << 22
	InitCacheSymlinks     InitFlags = 1 << 23
	InitNoOpendirSupport  InitFlags = 1 << 24
	InitExplicitInvalData InitFlags = 1 << 25
)

// allRecognizedFlags is the OR of every bit this module understands. Bits
// set by the kernel outside of this mask are unrecognized capabilities; the
// session preserves them verbatim in the stored ConnectionInfo (so a caller
// can still see what the kernel offered) but never turns them on in the
// reply, since turning on a capability the session doesn't implement would
// misbehave.
const allRecognizedFlags = InitAsyncRead | InitPosixLocks | InitFileOps |
	InitAtomicTrunc | InitExportSupport | InitBigWrites | InitDontMask |
	InitSpliceWrite | InitSpliceMove | InitSpliceRead | InitFlockLocks |
	InitHasIoctlDir | InitAutoInvalData | InitDoReaddirplus |
	InitReaddirplusAuto | InitAsyncDIO | InitWritebackCache |
	InitNoOpenSupport | InitParallelDirOps | InitHandleKillpriv |
	InitPosixACL | InitAbortError | InitMaxPages | InitCacheSymlinks |
	InitNoOpendirSupport | InitExplicitInvalData

// ReadonlyFlags returns the subset of offered that this module does not
// recognize. Per the handshake algorithm these bits are never reflected
// back to the kernel in the INIT reply, but are re-applied to the locally
// stored connection info afterward so callers can still observe them.
func ReadonlyFlags(offered InitFlags) InitFlags {
	return offered &^ allRecognizedFlags
}
