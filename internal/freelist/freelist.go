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

// Package freelist implements a trivial singly-linked free list of
// unsafe.Pointer values, used to recycle *buffer.InMessage and
// *buffer.OutMessage between requests instead of allocating one per
// request.
//
// A Freelist does not allocate or know about the type of the pointers it
// holds; the caller casts Get's result back to its concrete type. This
// mirrors the shape message_provider.go already expects
// (freelist.Freelist as a field type, Get/Put as the only operations) and
// keeps the pooled types' definitions out of this package entirely.
//
// Freelist is not itself safe for concurrent use; callers serialize access
// with their own mutex, as message_provider.go does.
package freelist

import "unsafe"

// node is stored at the start of each free block, reusing the block's own
// memory as link storage rather than allocating wrapper nodes.
type node struct {
	next unsafe.Pointer
}

// Freelist is a LIFO free list. The zero value is an empty list.
type Freelist struct {
	head unsafe.Pointer
}

// Get removes and returns the most recently Put pointer, or nil if the
// list is empty.
func (f *Freelist) Get() unsafe.Pointer {
	if f.head == nil {
		return nil
	}

	p := f.head
	f.head = (*node)(p).next
	return p
}

// Put adds p to the list. p must not be used by the caller again until a
// subsequent Get returns it.
func (f *Freelist) Put(p unsafe.Pointer) {
	if p == nil {
		return
	}

	(*node)(p).next = f.head
	f.head = p
}
