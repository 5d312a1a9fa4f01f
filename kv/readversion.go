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
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ReadVersionCache is a process-wide shared resource: the last-committed
// version is updated after each successful commit, and `cached`/`stale(N)`
// policies may be served a recent-but-not-latest version instead of
// round-tripping to the server.
type ReadVersionCache struct {
	mu      sync.Mutex
	latest  int64
	history *lru.Cache[int64, int64] // sequence number -> read version
	seq     int64
}

// NewReadVersionCache builds a cache retaining up to historySize prior
// versions for CachePolicyStale lookups.
func NewReadVersionCache(historySize int) *ReadVersionCache {
	if historySize < 1 {
		historySize = 1
	}
	c, _ := lru.New[int64, int64](historySize)
	return &ReadVersionCache{history: c}
}

// Observe records a newly committed read version.
func (c *ReadVersionCache) Observe(version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = version
	c.seq++
	c.history.Add(c.seq, version)
}

// Get resolves a read version per policy. CachePolicyServer always returns
// (0, false), telling the caller to fetch a fresh version from the store.
func (c *ReadVersionCache) Get(policy CachePolicy, staleN int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch policy {
	case CachePolicyCached:
		if c.seq == 0 {
			return 0, false
		}
		return c.latest, true
	case CachePolicyStale:
		target := c.seq - staleN
		if target < 1 {
			target = 1
		}
		if v, ok := c.history.Get(target); ok {
			return v, true
		}
		return 0, false
	default:
		return 0, false
	}
}
