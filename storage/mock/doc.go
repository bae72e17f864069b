// Package mock provides test doubles for the storage interfaces.
//
// MockSession records every parameter tuple it executes and lets tests inject
// failures through function fields. MockProvider hands out MockSessions and
// aggregates what they committed.
package mock
