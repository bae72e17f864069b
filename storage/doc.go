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

// Package storage provides the storage abstraction layer for bulkload.
//
// The ingestion engine talks to the target database only through the
// SessionProvider and Session interfaces defined here. It never shares a
// Session between workers: every worker asks the provider for its own.
//
// # Implementations
//
//   - scylla: gocql-backed sessions for ScyllaDB and Cassandra
//   - mock: function-field test doubles
//   - badger: a local CheckpointRepository journaling committed ranges
//
// # Usage
//
//	provider, err := scylla.NewProvider(scylla.Config{Hosts: []string{"127.0.0.1"}}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session, err := provider.NewSession(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
// # Thread Safety
//
// SessionProvider and CheckpointRepository implementations must be safe for
// concurrent use. A Session is used by one worker at a time, although
// ExecuteConcurrent itself fans out internally.
package storage
