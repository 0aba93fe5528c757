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

import "unsafe"

// EntryOutSize and AttrOutSize exist, rather than a bare unsafe.Sizeof at
// each call site, because older kernel minors used a shorter form of these
// structs lacking the nanosecond fields. This module only negotiates minor
// >= 23, where the long form always applies, so both return the long
// form's size whatever p is. No code in this module calls them.
func EntryOutSize(p Protocol) uintptr {
	return unsafe.Sizeof(EntryOut{})
}

func AttrOutSize(p Protocol) uintptr {
	return unsafe.Sizeof(AttrOut{})
}
