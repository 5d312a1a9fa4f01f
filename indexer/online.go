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

package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/internal/applog"
	"github.com/erigontech/recordcore/internal/metrics"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

var buildLog = applog.Named("onlineindexer")

// RecordSource is the narrow read contract the builder needs over the
// primary record space: records in primary-key order, strictly after
// afterPK (nil meaning "from the start").
type RecordSource interface {
	Scan(ctx context.Context, tx kv.Transaction, afterPK kv.Tuple, limit int) ([]record.Record, error)
}

// StateStore persists each index's build state, enforcing
// index.State.CanTransition on every write.
type StateStore struct {
	sub kv.Subspace
}

// NewStateStore builds a StateStore rooted at sub.
func NewStateStore(sub kv.Subspace) *StateStore {
	return &StateStore{sub: sub}
}

func (s *StateStore) key(indexName string) []byte {
	return s.sub.Pack(kv.Tuple{indexName})
}

// Get returns the persisted state for indexName, defaulting to
// StateDisabled if no row exists yet.
func (s *StateStore) Get(ctx context.Context, tx kv.Transaction, indexName string) (index.State, error) {
	raw, err := tx.Get(ctx, s.key(indexName), false)
	if err != nil {
		return index.StateDisabled, err
	}
	if raw == nil {
		return index.StateDisabled, nil
	}
	t, err := kv.Unpack(raw)
	if err != nil {
		return index.StateDisabled, err
	}
	return index.State(t[0].(int64)), nil
}

// Set transitions indexName to next, rejecting an illegal transition.
func (s *StateStore) Set(ctx context.Context, tx kv.Transaction, indexName string, next index.State) error {
	cur, err := s.Get(ctx, tx, indexName)
	if err != nil {
		return err
	}
	if !cur.CanTransition(next) {
		return &apperr.InvalidStructure{Reason: fmt.Sprintf("illegal index state transition %d -> %d for %q", cur, next, indexName)}
	}
	return tx.Set(s.key(indexName), kv.Pack(kv.Tuple{int64(next)}))
}

// progressStore persists the last primary key a build has processed, so an
// interrupted build resumes without rescanning.
type progressStore struct {
	sub kv.Subspace
}

func (p *progressStore) key(indexName string) []byte {
	return p.sub.Pack(kv.Tuple{indexName})
}

func (p *progressStore) get(ctx context.Context, tx kv.Transaction, indexName string) (kv.Tuple, error) {
	raw, err := tx.Get(ctx, p.key(indexName), false)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return kv.Unpack(raw)
}

func (p *progressStore) set(ctx context.Context, tx kv.Transaction, indexName string, pk kv.Tuple) error {
	return tx.Set(p.key(indexName), kv.Pack(pk))
}

func (p *progressStore) clear(ctx context.Context, tx kv.Transaction, indexName string) error {
	return tx.Clear(p.key(indexName))
}

// Builder drives a resumable backfill of one maintainer over a RecordSource:
// it scans in primary-key order, batching batchSize records per
// transaction and running up to concurrency batches in parallel per round,
// then advances the index's build state once the backlog is exhausted.
type Builder struct {
	desc        index.Descriptor
	maintainer  index.Maintainer
	source      RecordSource
	tracker     *Tracker
	states      *StateStore
	progress    *progressStore
	store       kv.Store
	txConfig    kv.TxConfig
	batchSize   int
	concurrency int
}

// NewBuilder builds an online Builder. progressSub and stateSub are
// typically children of a shared metadata subspace, distinct per deployment
// rather than per index (the rows within are keyed by index name).
func NewBuilder(desc index.Descriptor, maintainer index.Maintainer, source RecordSource, tracker *Tracker,
	stateSub, progressSub kv.Subspace, store kv.Store, txConfig kv.TxConfig, batchSize, concurrency int) *Builder {
	if batchSize <= 0 {
		batchSize = 256
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Builder{
		desc:        desc,
		maintainer:  maintainer,
		source:      source,
		tracker:     tracker,
		states:      NewStateStore(stateSub),
		progress:    &progressStore{sub: progressSub},
		store:       store,
		txConfig:    txConfig,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Run drives the build to completion: repeated rounds of
// batchSize*concurrency records, split into concurrency parallel batch
// transactions, until the source is exhausted, then advances
// write_only -> readable_write -> readable. Run is safe to call again after
// a prior call was interrupted (process killed, context canceled): it picks
// up from the last persisted primary key.
func (b *Builder) Run(ctx context.Context) error {
	name := b.desc.Name
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var afterPK kv.Tuple
		err := b.store.View(ctx, b.txConfig, func(tx kv.Transaction) error {
			var err error
			afterPK, err = b.progress.get(ctx, tx, name)
			return err
		})
		if err != nil {
			return err
		}

		var batch []record.Record
		err = b.store.View(ctx, b.txConfig, func(tx kv.Transaction) error {
			var err error
			batch, err = b.source.Scan(ctx, tx, afterPK, b.batchSize*b.concurrency)
			return err
		})
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			return b.finish(ctx, name)
		}

		lastPK, err := b.runRound(ctx, batch)
		if err != nil {
			return err
		}

		err = b.store.Update(ctx, b.txConfig, func(tx kv.Transaction) error {
			return b.progress.set(ctx, tx, name, lastPK)
		})
		if err != nil {
			return err
		}
		buildLog.Infow("round committed", "index", name, "records", len(batch))
	}
}

// runRound splits batch into up to concurrency disjoint chunks and commits
// each in its own transaction concurrently. Progress is not persisted here:
// the caller writes it once, after every chunk in the round has committed,
// so a mid-round crash simply replays the whole round (ScanItem is
// idempotent, so replay is safe).
func (b *Builder) runRound(ctx context.Context, batch []record.Record) (kv.Tuple, error) {
	chunks := chunk(batch, b.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			return b.store.Update(gctx, b.txConfig, func(tx kv.Transaction) error {
				for _, rec := range c {
					if err := b.maintainer.ScanItem(gctx, tx, rec, b.tracker); err != nil {
						return err
					}
				}
				metrics.IndexerRecordsScanned.WithLabelValues(b.desc.Name).Add(float64(len(c)))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batch[len(batch)-1].PrimaryKey(), nil
}

func chunk(batch []record.Record, n int) [][]record.Record {
	if n <= 1 || len(batch) <= n {
		return [][]record.Record{batch}
	}
	size := (len(batch) + n - 1) / n
	var out [][]record.Record
	for i := 0; i < len(batch); i += size {
		end := i + size
		if end > len(batch) {
			end = len(batch)
		}
		out = append(out, batch[i:end])
	}
	return out
}

// finish advances the index past its backlog scan: write_only moves to
// readable_write then immediately to readable, since the builder has no
// separate "verify no further writes land stale" phase of its own — that
// window is covered by the maintainer's own idempotent Update being applied
// to every write concurrently with the backfill. Progress is cleared so a
// later rebuild starts clean.
func (b *Builder) finish(ctx context.Context, name string) error {
	return b.store.Update(ctx, b.txConfig, func(tx kv.Transaction) error {
		cur, err := b.states.Get(ctx, tx, name)
		if err != nil {
			return err
		}
		if cur == index.StateWriteOnly {
			if err := b.states.Set(ctx, tx, name, index.StateReadableWrite); err != nil {
				return err
			}
			cur = index.StateReadableWrite
		}
		if cur == index.StateReadableWrite {
			if err := b.states.Set(ctx, tx, name, index.StateReadable); err != nil {
				return err
			}
		}
		buildLog.Infow("build complete", "index", name)
		return b.progress.clear(ctx, tx, name)
	})
}
