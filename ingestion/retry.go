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

package ingestion

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// MaxBackoff caps the delay between two attempts of a batch.
const MaxBackoff = time.Hour

// Backoff returns the delay slept after the given number of failed attempts:
// base * 2^failures, capped at MaxBackoff.
func Backoff(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		return 0
	}
	if failures < 0 {
		failures = 0
	}
	if failures >= 63 || base > MaxBackoff>>failures {
		return MaxBackoff
	}
	return base << failures
}

// retryPolicy controls how a failed batch is retried.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	timer       retry.Timer // nil means the real clock
}

// do runs operation until it succeeds or maxAttempts attempts have failed.
// onFailure is called after every failed attempt with the 1-based attempt
// number. No delay follows the final attempt. Returns the error from the last
// attempt, or the context error if ctx ends while waiting.
func (p retryPolicy) do(ctx context.Context, operation func() error, onFailure func(attempt int, err error)) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(p.maxAttempts, 1))),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return Backoff(p.baseDelay, int(n))
		}),
		retry.OnRetry(func(n uint, err error) {
			if onFailure != nil {
				onFailure(int(n)+1, err)
			}
		}),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}
	return retry.Do(operation, opts...)
}
