// Copyright 2026 The Recordcore Authors
// This file is part of recordcore.
//
// Recordcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Recordcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with recordcore. If not, see <http://www.gnu.org/licenses/>.

package kv

import (
	"context"
	"math/rand"
	"time"

	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/internal/applog"
)

var retryLog = applog.Named("kv.retry")

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 1 * time.Second
)

// WithRetry runs fn in a read-write transaction, retrying transient KV
// errors with exponential backoff and jitter:
// delay = min(initial*2^attempt, max) + jitter in [0, 0.5*delay].
// A transaction replays fn entirely from scratch on every attempt, which is
// safe because maintainers only ever write keys derived from record content.
func WithRetry(ctx context.Context, store Store, cfg TxConfig, fn func(Transaction) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.RetryLimit; attempt++ {
		err := store.Update(ctx, cfg, fn)
		if err == nil {
			return nil
		}
		if !apperr.Retryable(err) {
			return err
		}
		lastErr = err
		delay := backoffDelay(attempt)
		retryLog.Debugw("retrying transaction", "attempt", attempt, "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func backoffDelay(attempt int) time.Duration {
	d := initialBackoff * time.Duration(1<<uint(attempt))
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}
