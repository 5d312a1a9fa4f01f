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

package graph

import (
	"context"
	"sort"

	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/internal/applog"
	"github.com/erigontech/recordcore/internal/metrics"
	"github.com/erigontech/recordcore/kv"
)

var algoLog = applog.Named("graphalgorithm")

// scratchKey returns the per-node scratch-subspace key an algorithm stores
// its working score under, kept separate from the adjacency subspace so a
// PageRank run never collides with the edges it reads.
func scratchKey(sub kv.Subspace, node string) []byte {
	return sub.Sub(kv.Tuple{"scratch"}).Pack(kv.Tuple{node})
}

func readScore(ctx context.Context, tx kv.Transaction, sub kv.Subspace, node string) (float64, error) {
	raw, err := tx.Get(ctx, scratchKey(sub, node), false)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	t, err := kv.Unpack(raw)
	if err != nil {
		return 0, err
	}
	return t[0].(float64), nil
}

func writeScore(tx kv.Transaction, sub kv.Subspace, node string, score float64) error {
	return tx.Set(scratchKey(sub, node), kv.Pack(kv.Tuple{score}))
}

// collectGraph loads every node and out-edge under predicate from the
// adjacency maintainer's forward subspace. This keeps PageRank/label
// propagation's per-superstep math in memory while still committing scores
// to the KV store in bounded batches; a graph too large to fit in memory
// this way would need a streaming variant, out of scope here.
func collectGraph(ctx context.Context, tx kv.Transaction, m *AdjacencyMaintainer, predicate string) (nodes []string, outEdges map[string][]string, err error) {
	sub := m.desc.Subspace.Sub(kv.Tuple{"fwd", predicate})
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, nil, err
	}
	outEdges = make(map[string][]string)
	seen := make(map[string]struct{})
	for _, kvPair := range pairs {
		t, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, nil, err
		}
		src, dst := t[0].(string), t[1].(string)
		outEdges[src] = append(outEdges[src], dst)
		seen[src] = struct{}{}
		seen[dst] = struct{}{}
	}
	nodes = make([]string, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes, outEdges, nil
}

// PageRankOptions configures one PageRank run.
type PageRankOptions struct {
	Predicate      string
	Damping        float64 // default 0.85
	MaxIterations  int     // default 20
	ConvergenceEps float64 // stop once max|delta| falls below this
	BatchSize      int     // nodes committed per scratch-subspace write pass, default 256
}

func (o *PageRankOptions) setDefaults() {
	if o.Damping == 0 {
		o.Damping = 0.85
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 20
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 256
	}
}

// PageRank runs the classic power-iteration PageRank over m's adjacency
// graph for predicate, writing final scores to the scratch subspace and
// returning them. It stops at MaxIterations or once the largest per-node
// score delta falls under ConvergenceEps, whichever comes first.
func PageRank(ctx context.Context, tx kv.Transaction, m *AdjacencyMaintainer, opts PageRankOptions) (map[string]float64, error) {
	opts.setDefaults()
	nodes, outEdges, err := collectGraph(ctx, tx, m, opts.Predicate)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, apperr.NewGraphAlgorithmError(apperr.IndexNotConfigured, "no edges under predicate %q", opts.Predicate)
	}

	n := float64(len(nodes))
	scores := make(map[string]float64, len(nodes))
	for _, node := range nodes {
		scores[node] = 1.0 / n
	}
	outDegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		outDegree[node] = len(outEdges[node])
	}
	inEdges := make(map[string][]string)
	for src, dsts := range outEdges {
		for _, dst := range dsts {
			inEdges[dst] = append(inEdges[dst], src)
		}
	}

	base := (1 - opts.Damping) / n
	iterationsRun := 0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterationsRun++
		next := make(map[string]float64, len(nodes))
		var danglingMass float64
		for _, node := range nodes {
			if outDegree[node] == 0 {
				danglingMass += scores[node]
			}
		}
		for _, node := range nodes {
			sum := 0.0
			for _, src := range inEdges[node] {
				sum += scores[src] / float64(outDegree[src])
			}
			next[node] = base + opts.Damping*(sum+danglingMass/n)
		}
		maxDelta := 0.0
		for _, node := range nodes {
			d := next[node] - scores[node]
			if d < 0 {
				d = -d
			}
			if d > maxDelta {
				maxDelta = d
			}
		}
		scores = next
		if opts.ConvergenceEps > 0 && maxDelta < opts.ConvergenceEps {
			break
		}
	}
	metrics.GraphAlgorithmIterations.WithLabelValues("pagerank").Observe(float64(iterationsRun))
	algoLog.Infow("pagerank converged", "predicate", opts.Predicate, "nodes", len(nodes), "iterations", iterationsRun)

	if err := commitScores(ctx, tx, m.desc.Subspace, scores, opts.BatchSize); err != nil {
		return nil, err
	}
	return scores, nil
}

// commitScores writes every (node, score) pair to the scratch subspace,
// batchSize nodes at a time, checking ctx between batches so a canceled
// run stops promptly on a large graph. All writes go through the single
// tx the caller opened for this run, so they run sequentially rather than
// across goroutines: a kv.Transaction is not safe for concurrent
// mutation (unlike indexer/online.go's builder, which gets its
// concurrency by opening one transaction per chunk instead of sharing
// one).
func commitScores(ctx context.Context, tx kv.Transaction, sub kv.Subspace, scores map[string]float64, batchSize int) error {
	nodes := make([]string, 0, len(scores))
	for node := range scores {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for start := 0; start < len(nodes); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		for _, node := range nodes[start:end] {
			if err := writeScore(tx, sub, node, scores[node]); err != nil {
				return err
			}
		}
	}
	return nil
}

// LabelPropagationOptions configures one community-detection run.
type LabelPropagationOptions struct {
	Predicate     string
	MaxIterations int // default 20
}

// LabelPropagation assigns every node its own label, then repeatedly
// relabels each node to the most frequent label among its neighbors
// (ties broken by the lexicographically smallest label) until no node
// changes or MaxIterations is reached. Treats edges as undirected for
// neighbor purposes, which is the usual community-detection convention.
func LabelPropagation(ctx context.Context, tx kv.Transaction, m *AdjacencyMaintainer, opts LabelPropagationOptions) (map[string]string, error) {
	if opts.MaxIterations == 0 {
		opts.MaxIterations = 20
	}
	nodes, outEdges, err := collectGraph(ctx, tx, m, opts.Predicate)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, apperr.NewGraphAlgorithmError(apperr.IndexNotConfigured, "no edges under predicate %q", opts.Predicate)
	}

	neighbors := make(map[string][]string, len(nodes))
	for src, dsts := range outEdges {
		for _, dst := range dsts {
			neighbors[src] = append(neighbors[src], dst)
			neighbors[dst] = append(neighbors[dst], src)
		}
	}

	labels := make(map[string]string, len(nodes))
	for _, node := range nodes {
		labels[node] = node
	}

	iterationsRun := 0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterationsRun++
		changed := false
		for _, node := range nodes {
			counts := make(map[string]int)
			for _, nb := range neighbors[node] {
				counts[labels[nb]]++
			}
			if len(counts) == 0 {
				continue
			}
			best, bestCount := "", -1
			candidates := make([]string, 0, len(counts))
			for l := range counts {
				candidates = append(candidates, l)
			}
			sort.Strings(candidates)
			for _, l := range candidates {
				if counts[l] > bestCount {
					best, bestCount = l, counts[l]
				}
			}
			if labels[node] != best {
				labels[node] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	metrics.GraphAlgorithmIterations.WithLabelValues("label_propagation").Observe(float64(iterationsRun))
	algoLog.Infow("label propagation converged", "predicate", opts.Predicate, "nodes", len(nodes), "iterations", iterationsRun)
	return labels, nil
}
