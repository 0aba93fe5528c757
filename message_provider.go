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
	"sync"
	"unsafe"

	"github.com/kernelwire/fusecore/internal/buffer"
	"github.com/kernelwire/fusecore/internal/freelist"
)

// messageProvider recycles *buffer.InMessage and *buffer.OutMessage values
// across requests so that steady-state operation does not allocate one of
// each per request. Both free lists are guarded by the same mutex; neither
// list is itself safe for concurrent use.
type messageProvider struct {
	mu          sync.Mutex
	inMessages  freelist.Freelist
	outMessages freelist.Freelist
}

func newMessageProvider() *messageProvider {
	return &messageProvider{}
}

func (p *messageProvider) getInMessage() *buffer.InMessage {
	p.mu.Lock()
	ptr := p.inMessages.Get()
	p.mu.Unlock()

	if ptr == nil {
		return buffer.NewInMessage()
	}
	return (*buffer.InMessage)(ptr)
}

func (p *messageProvider) putInMessage(m *buffer.InMessage) {
	p.mu.Lock()
	p.inMessages.Put(unsafe.Pointer(m))
	p.mu.Unlock()
}

func (p *messageProvider) getOutMessage(extra uintptr) *buffer.OutMessage {
	p.mu.Lock()
	ptr := p.outMessages.Get()
	p.mu.Unlock()

	if ptr == nil {
		m := buffer.NewOutMessage(extra)
		return &m
	}

	m := (*buffer.OutMessage)(ptr)
	m.Reset()
	return m
}

func (p *messageProvider) putOutMessage(m *buffer.OutMessage) {
	p.mu.Lock()
	p.outMessages.Put(unsafe.Pointer(m))
	p.mu.Unlock()
}
