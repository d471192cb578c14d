// Package annindex implements the approximate-nearest-neighbor index: a
// multi-table random-projection LSH built once over the full store at open
// time, with multi-probe lookup and data-size-driven, deterministic
// construction.
package annindex

import "math/rand"

// seed is fixed so construction is deterministic across runs on the same
// data.
const seed = 42

// leniencyBucketThreshold is the "small-data regime" switch: a table with
// at most this many distinct buckets uses the lenient hash threshold.
const leniencyBucketThreshold = 4

// Index is the in-memory, immutable-after-construction random-projection
// LSH index. It is safe for concurrent reads from many goroutines once
// construction has finished.
type Index struct {
	dimensions int
	numTables  int
	numBits    int
	// projections[t][p] is the p-th projection vector for table t.
	projections [][][]float32
	// tables[t] maps a packed P-bit hash to the indices that hashed there.
	tables []map[uint32][]int
	// count is the number of records inserted, used as N for the
	// empty-candidate-set safety fallback.
	count int
}

// Params returns the deterministic (P, T) parameters derived from the data
// size N: with L = floor(log2(N)), P is L+1 clamped to [2,16] bits per
// table, and T is L/2+1 clamped to [1,8] tables.
func Params(n int) (bits, tables int) {
	l := 0
	for (1 << uint(l+1)) <= n {
		l++
	}
	bits = clamp(l+1, 2, 16)
	tables = clamp(l/2+1, 1, 8)
	return bits, tables
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// New returns an empty index sized for n records: it derives P and T from
// n and draws the fixed-seed Gaussian projections; the tables are filled by
// subsequent Insert calls. dimensions must match every vector later passed
// to Insert/Search.
func New(dimensions, n int) *Index {
	bits, tables := Params(n)
	rng := rand.New(rand.NewSource(seed))

	projections := make([][][]float32, tables)
	for t := 0; t < tables; t++ {
		projections[t] = make([][]float32, bits)
		for p := 0; p < bits; p++ {
			vec := make([]float32, dimensions)
			for d := 0; d < dimensions; d++ {
				vec[d] = float32(rng.NormFloat64())
			}
			projections[t][p] = vec
		}
	}

	tableMaps := make([]map[uint32][]int, tables)
	for t := range tableMaps {
		tableMaps[t] = make(map[uint32][]int)
	}

	return &Index{
		dimensions:  dimensions,
		numTables:   tables,
		numBits:     bits,
		projections: projections,
		tables:      tableMaps,
	}
}

// Insert adds vector at position index to every hash table.
func (idx *Index) Insert(vector []float32, index int) {
	for t := 0; t < idx.numTables; t++ {
		h := idx.hash(vector, t)
		idx.tables[t][h] = append(idx.tables[t][h], index)
	}
	idx.count++
}

// Search returns up to k candidate indices for query, unioning the direct
// bucket and every single-bit-flip neighbor across all tables. If no table
// yields a candidate, it falls back to the full index range [0, N) as a
// safety net, where N is the number of records Insert has been called with.
func (idx *Index) Search(query []float32, k int) []int {
	seen := make(map[int]struct{})
	candidates := make([]int, 0, k)

	add := func(bucket []int) {
		for _, i := range bucket {
			if _, ok := seen[i]; !ok {
				seen[i] = struct{}{}
				candidates = append(candidates, i)
			}
		}
	}

	for t := 0; t < idx.numTables; t++ {
		h := idx.hash(query, t)
		add(idx.tables[t][h])
		for j := 0; j < idx.numBits; j++ {
			probe := h ^ (1 << uint(j))
			add(idx.tables[t][probe])
		}
	}

	if len(candidates) == 0 {
		full := make([]int, idx.count)
		for i := range full {
			full[i] = i
		}
		return full
	}

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// hash computes the P-bit packed hash of vector for table t, using the
// small-data lenient threshold when the table currently holds few distinct
// buckets.
func (idx *Index) hash(vector []float32, t int) uint32 {
	threshold := float32(0.0)
	if len(idx.tables[t]) <= leniencyBucketThreshold {
		threshold = -0.1
	}

	var h uint32
	for p := 0; p < idx.numBits; p++ {
		if dot(vector, idx.projections[t][p]) >= threshold {
			h |= 1 << uint(p)
		}
	}
	return h
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
