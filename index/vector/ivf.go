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

package vector

import (
	"context"
	"sort"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// IVFMaintainer partitions vectors into nlist clusters via K-means. Inserts
// before training park in cluster 0; a retrain pass (Retrain) reassigns
// every vector and is meant to run under a write-only transition so
// concurrent reads never observe a half-reassigned cluster set.
type IVFMaintainer struct {
	desc index.Descriptor
}

func NewIVF(desc index.Descriptor) *IVFMaintainer { return &IVFMaintainer{desc: desc} }

func (m *IVFMaintainer) Descriptor() index.Descriptor { return m.desc }

func (m *IVFMaintainer) centroidsSub() kv.Subspace  { return m.desc.Subspace.Sub(kv.Tuple{"centroids"}) }
func (m *IVFMaintainer) listsSub(cluster int) kv.Subspace {
	return m.desc.Subspace.Sub(kv.Tuple{"lists", int64(cluster)})
}
func (m *IVFMaintainer) assignmentsSub() kv.Subspace { return m.desc.Subspace.Sub(kv.Tuple{"assignments"}) }
func (m *IVFMaintainer) metadataKey() []byte         { return m.desc.Subspace.Pack(kv.Tuple{"metadata"}) }

type ivfMetadata struct {
	nlist       int
	dims        int
	trained     bool
	vectorCount int64
}

func (m *IVFMaintainer) readMetadata(ctx context.Context, tx kv.Transaction) (ivfMetadata, error) {
	data, err := tx.Get(ctx, m.metadataKey(), false)
	if err != nil {
		return ivfMetadata{}, err
	}
	if data == nil {
		nlist := m.desc.Capability.NList
		if nlist == 0 {
			nlist = 1
		}
		return ivfMetadata{nlist: nlist, dims: m.desc.Capability.Dimensions}, nil
	}
	t, err := kv.Unpack(data)
	if err != nil || len(t) != 4 {
		return ivfMetadata{}, apperr.NewCodecError(apperr.CorruptedTuple, "ivf metadata record malformed")
	}
	nlist, _ := t[0].(int64)
	dims, _ := t[1].(int64)
	trained, _ := t[2].(bool)
	count, _ := t[3].(int64)
	return ivfMetadata{nlist: int(nlist), dims: int(dims), trained: trained, vectorCount: count}, nil
}

func (m *IVFMaintainer) writeMetadata(tx kv.Transaction, md ivfMetadata) error {
	t := kv.Tuple{int64(md.nlist), int64(md.dims), md.trained, md.vectorCount}
	return tx.Set(m.metadataKey(), kv.Pack(t))
}

func (m *IVFMaintainer) readCentroid(ctx context.Context, tx kv.Transaction, cluster int) ([]float64, error) {
	data, err := tx.Get(ctx, m.centroidsSub().Pack(kv.Tuple{int64(cluster)}), false)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	t, err := kv.Unpack(data)
	if err != nil {
		return nil, err
	}
	return unpackVector(t), nil
}

func (m *IVFMaintainer) vectorOf(rec record.Record) ([]float64, kv.Tuple, bool, error) {
	if len(m.desc.FieldNames) != 1 {
		return nil, nil, false, nil
	}
	v, ok := rec.Field(m.desc.FieldNames[0])
	if !ok || v == nil {
		return nil, nil, false, nil
	}
	arr, ok := v.(record.Array)
	if !ok {
		return nil, nil, false, &apperr.InvalidStructure{Reason: "vector field is not an array"}
	}
	floats := make([]float64, len(arr))
	for i, el := range arr {
		f, ok := toFloat64(el)
		if !ok {
			return nil, nil, false, &apperr.InvalidStructure{Reason: "vector element is not numeric"}
		}
		floats[i] = f
	}
	if m.desc.Capability.Dimensions != 0 && len(floats) != m.desc.Capability.Dimensions {
		return nil, nil, false, &apperr.DimensionMismatch{Expected: m.desc.Capability.Dimensions, Got: len(floats)}
	}
	return floats, rec.PrimaryKey(), true, nil
}

// assignCluster returns the nearest trained centroid, or 0 if untrained.
func (m *IVFMaintainer) assignCluster(ctx context.Context, tx kv.Transaction, md ivfMetadata, vec []float64) (int, error) {
	if !md.trained {
		return 0, nil
	}
	best, bestDist := 0, -1.0
	for c := 0; c < md.nlist; c++ {
		centroid, err := m.readCentroid(ctx, tx, c)
		if err != nil {
			return 0, err
		}
		if centroid == nil {
			continue
		}
		d, err := Distance(Metric(m.desc.Capability.Metric), vec, centroid)
		if err != nil {
			return 0, err
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, nil
}

func (m *IVFMaintainer) clearVector(ctx context.Context, tx kv.Transaction, pk kv.Tuple) error {
	data, err := tx.Get(ctx, m.assignmentsSub().Pack(pk), false)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	t, err := kv.Unpack(data)
	if err != nil || len(t) != 1 {
		return apperr.NewCodecError(apperr.CorruptedTuple, "ivf assignment record malformed")
	}
	cluster, _ := t[0].(int64)
	if err := tx.Clear(m.assignmentsSub().Pack(pk)); err != nil {
		return err
	}
	return tx.Clear(m.listsSub(int(cluster)).Pack(pk))
}

func (m *IVFMaintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	md, err := m.readMetadata(ctx, tx)
	if err != nil {
		return err
	}
	if old != nil {
		if _, pk, ok, err := m.vectorOf(old); err != nil {
			return err
		} else if ok {
			if err := m.clearVector(ctx, tx, pk); err != nil {
				return err
			}
			md.vectorCount--
		}
	}
	if new != nil {
		vec, pk, ok, err := m.vectorOf(new)
		if err != nil {
			return err
		}
		if ok {
			cluster, err := m.assignCluster(ctx, tx, md, vec)
			if err != nil {
				return err
			}
			if err := tx.Set(m.listsSub(cluster).Pack(pk), kv.Pack(packVector(vec))); err != nil {
				return err
			}
			if err := tx.Set(m.assignmentsSub().Pack(pk), kv.Pack(kv.Tuple{int64(cluster)})); err != nil {
				return err
			}
			md.vectorCount++
		}
	}
	return m.writeMetadata(tx, md)
}

func (m *IVFMaintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	return m.Update(ctx, tx, nil, rec)
}

func (m *IVFMaintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	_, pk, ok, err := m.vectorOf(rec)
	if err != nil || !ok {
		return nil, err
	}
	return [][]byte{m.assignmentsSub().Pack(pk)}, nil
}

// Search takes the nprobe nearest clusters to query and merges their
// contents into a top-k heap.
func (m *IVFMaintainer) Search(ctx context.Context, tx kv.Transaction, query []float64, k, nprobe int) ([]Candidate, error) {
	md, err := m.readMetadata(ctx, tx)
	if err != nil {
		return nil, err
	}
	if m.desc.Capability.Dimensions != 0 && len(query) != m.desc.Capability.Dimensions {
		return nil, &apperr.DimensionMismatch{Expected: m.desc.Capability.Dimensions, Got: len(query)}
	}
	if !md.trained {
		return m.scanCluster(ctx, tx, 0, query, k)
	}

	type clusterDist struct {
		cluster int
		dist    float64
	}
	var dists []clusterDist
	for c := 0; c < md.nlist; c++ {
		centroid, err := m.readCentroid(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		if centroid == nil {
			continue
		}
		d, err := Distance(Metric(m.desc.Capability.Metric), query, centroid)
		if err != nil {
			return nil, err
		}
		dists = append(dists, clusterDist{c, d})
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].dist < dists[j].dist })
	if nprobe > len(dists) {
		nprobe = len(dists)
	}

	h := newTopKHeap(k)
	for _, cd := range dists[:nprobe] {
		cands, err := m.scanCluster(ctx, tx, cd.cluster, query, k)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			h.Offer(c)
		}
	}
	return h.Sorted(), nil
}

func (m *IVFMaintainer) scanCluster(ctx context.Context, tx kv.Transaction, cluster int, query []float64, k int) ([]Candidate, error) {
	sub := m.listsSub(cluster)
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	h := newTopKHeap(k)
	for _, kvPair := range pairs {
		pk, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		valTuple, err := kv.Unpack(kvPair.Value)
		if err != nil {
			return nil, err
		}
		dist, err := Distance(Metric(m.desc.Capability.Metric), query, unpackVector(valTuple))
		if err != nil {
			return nil, err
		}
		h.Offer(Candidate{PK: kv.Tuple(pk), Distance: dist})
	}
	return h.Sorted(), nil
}

// Retrain runs K-means over every currently-stored vector and reassigns
// each to its nearest new centroid. Callers should transition the index to
// write_only before calling Retrain, and back to readable once it returns,
// so no reader observes a half-reassigned cluster set.
func (m *IVFMaintainer) Retrain(ctx context.Context, tx kv.Transaction, maxIterations int) error {
	md, err := m.readMetadata(ctx, tx)
	if err != nil {
		return err
	}
	scanClusters := md.nlist
	if scanClusters < 1 {
		scanClusters = 1
	}
	var vectors [][]float64
	var pks []kv.Tuple
	for c := 0; c < scanClusters; c++ {
		sub := m.listsSub(c)
		begin, end := sub.Range()
		pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
		if err != nil {
			return err
		}
		for _, kvPair := range pairs {
			pk, err := sub.Unpack(kvPair.Key)
			if err != nil {
				return err
			}
			valTuple, err := kv.Unpack(kvPair.Value)
			if err != nil {
				return err
			}
			vectors = append(vectors, unpackVector(valTuple))
			pks = append(pks, kv.Tuple(pk))
		}
	}
	if len(vectors) == 0 {
		return nil
	}
	nlist := md.nlist
	if nlist <= 0 {
		nlist = DefaultNList(len(vectors))
	}
	centroids, assignments := KMeans(vectors, nlist, maxIterations, Metric(m.desc.Capability.Metric))

	for c := 0; c < scanClusters; c++ {
		sub := m.listsSub(c)
		begin, end := sub.Range()
		if err := tx.ClearRange(begin, end); err != nil {
			return err
		}
	}
	for c, centroid := range centroids {
		if err := tx.Set(m.centroidsSub().Pack(kv.Tuple{int64(c)}), kv.Pack(packVector(centroid))); err != nil {
			return err
		}
	}
	for i, pk := range pks {
		cluster := assignments[i]
		if err := tx.Set(m.listsSub(cluster).Pack(pk), kv.Pack(packVector(vectors[i]))); err != nil {
			return err
		}
		if err := tx.Set(m.assignmentsSub().Pack(pk), kv.Pack(kv.Tuple{int64(cluster)})); err != nil {
			return err
		}
	}
	md.nlist = len(centroids)
	md.trained = true
	md.dims = len(vectors[0])
	return m.writeMetadata(tx, md)
}
