// Copyright 2025 Poiesic Systems
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

package storage

import (
	"github.com/poiesic/bulkload/core"
)

// MarshalCheckpointEntry serializes a CheckpointEntry to bytes.
func MarshalCheckpointEntry(entry core.CheckpointEntry) []byte {
	buf := make([]byte, core.CheckpointEntryMUS.Size(entry))
	core.CheckpointEntryMUS.Marshal(entry, buf)
	return buf
}

// UnmarshalCheckpointEntry deserializes a CheckpointEntry from bytes.
func UnmarshalCheckpointEntry(data []byte) (core.CheckpointEntry, error) {
	entry, n, err := core.CheckpointEntryMUS.Unmarshal(data)
	if err != nil {
		return core.CheckpointEntry{}, err
	}
	if n != len(data) {
		return core.CheckpointEntry{}, ErrMalformedData
	}
	return entry, nil
}

// MarshalRunBinding serializes a RunBinding to bytes.
func MarshalRunBinding(binding core.RunBinding) []byte {
	buf := make([]byte, core.RunBindingMUS.Size(binding))
	core.RunBindingMUS.Marshal(binding, buf)
	return buf
}

// UnmarshalRunBinding deserializes a RunBinding from bytes.
func UnmarshalRunBinding(data []byte) (core.RunBinding, error) {
	binding, n, err := core.RunBindingMUS.Unmarshal(data)
	if err != nil {
		return core.RunBinding{}, err
	}
	if n != len(data) {
		return core.RunBinding{}, ErrMalformedData
	}
	return binding, nil
}
