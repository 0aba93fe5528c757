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
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Errors corresponding to kernel error numbers, the values user code
// returns from an operation handler to encode a filesystem-level failure
// in the reply header's error field.
const (
	EIO       = syscall.EIO
	ENOENT    = syscall.ENOENT
	ENOSYS    = syscall.ENOSYS
	ENOTEMPTY = syscall.ENOTEMPTY
	EPROTO    = syscall.EPROTO
)

// errnoOf extracts a syscall.Errno from err, if it (or something it wraps)
// is one.
func errnoOf(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// isTransientReadError reports whether err, returned from a read on the
// kernel channel, should be retried rather than treated as fatal: ENOENT
// (kernel-interrupted request) and EINTR (interrupted syscall).
func isTransientReadError(err error) bool {
	errno, ok := errnoOf(err)
	if !ok {
		return false
	}
	return errno == unix.ENOENT || errno == unix.EINTR
}

// isShutdownReadError reports whether err signals that the kernel has
// unmounted the filesystem (ENODEV), the documented clean-shutdown signal.
func isShutdownReadError(err error) bool {
	errno, ok := errnoOf(err)
	return ok && errno == unix.ENODEV
}
