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

import "errors"

var (
	// ErrSessionClosed indicates that the session has been closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNoHosts indicates that no contact points were configured.
	ErrNoHosts = errors.New("no database hosts configured")

	// ErrStorageClosed indicates that the checkpoint storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidRunID indicates an empty or malformed checkpoint run ID.
	ErrInvalidRunID = errors.New("invalid run ID")

	// ErrDatasetMismatch indicates a checkpoint run is being resumed with a
	// different dataset than the one it was started with.
	ErrDatasetMismatch = errors.New("dataset does not match checkpoint run")

	// ErrMalformedData indicates a stored value with bytes left over after
	// decoding.
	ErrMalformedData = errors.New("malformed data")

	// ErrTruncatedData indicates that stored data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
