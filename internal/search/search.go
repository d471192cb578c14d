// Package search implements the exact/ann/hybrid search strategies: it
// orchestrates the persistent store and the ANN index, normalizes the
// query, scores candidates (optionally in parallel via an errgroup-backed
// worker pool), ranks, and truncates.
package search

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rahulunair/vekta/internal/annindex"
	"github.com/rahulunair/vekta/internal/record"
	"github.com/rahulunair/vekta/internal/store"
	"github.com/rahulunair/vekta/internal/vectormath"
	"github.com/rahulunair/vekta/internal/vektaerr"
)

// Method selects the candidate-collection strategy.
type Method string

const (
	Exact  Method = "exact"
	ANN    Method = "ann"
	Hybrid Method = "hybrid"
)

// Result is one ranked match.
type Result struct {
	Label      string
	UniqueID   string
	Similarity float64
	Metadata   record.Metadata
}

// Timings reports advisory wall-clock durations for a search call.
type Timings struct {
	Search time.Duration
	Sort   time.Duration
	Total  time.Duration
}

// Config controls a single search call.
type Config struct {
	Method              Method
	TopK                int
	SimilarityThreshold float64
}

// Engine orchestrates search against a store and, for ann/hybrid methods,
// an ANN index built once over the store's full contents at construction
// time. The ANN index is immutable after construction and safe to read
// from many goroutines concurrently.
type Engine struct {
	store *store.Store
	index *annindex.Index
}

// New builds an Engine. If method is ann or hybrid, it builds the ANN
// index over every record currently in s.
func New(s *store.Store, method Method) (*Engine, error) {
	e := &Engine{store: s}

	if method == ANN || method == Hybrid {
		n, err := s.Count()
		if err != nil {
			return nil, err
		}
		dims := 0
		if n > 0 {
			first, _, err := s.GetByIndex(0)
			if err != nil {
				return nil, err
			}
			dims = len(first.Vector)
		}
		idx := annindex.New(dims, n)
		for i := 0; i < n; i++ {
			entry, found, err := s.GetByIndex(i)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			idx.Insert(entry.Vector, i)
		}
		e.index = idx
	}

	return e, nil
}

// Search runs cfg.Method against a normalized copy of the query vector
// (queryVector itself is not modified) and returns ranked results truncated
// to cfg.TopK.
func (e *Engine) Search(queryVector []float32, cfg Config) ([]Result, Timings, error) {
	start := time.Now()

	query := append([]float32(nil), queryVector...)
	vectormath.Normalize(query)

	var (
		candidates []Result
		err        error
	)
	switch cfg.Method {
	case Exact:
		candidates, err = e.exactSearch(query)
	case ANN:
		candidates, err = e.annSearch(query, cfg.TopK)
	case Hybrid:
		candidates, err = e.hybridSearch(query, cfg.TopK)
	default:
		candidates, err = e.exactSearch(query)
	}
	if err != nil {
		return nil, Timings{}, err
	}

	if cfg.SimilarityThreshold > 0 {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.Similarity >= cfg.SimilarityThreshold {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	sortStart := time.Now()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if cfg.TopK > 0 && len(candidates) > cfg.TopK {
		candidates = candidates[:cfg.TopK]
	}
	sortDuration := time.Since(sortStart)

	total := time.Since(start)
	return candidates, Timings{
		Search: total - sortDuration,
		Sort:   sortDuration,
		Total:  total,
	}, nil
}

func (e *Engine) exactSearch(query []float32) ([]Result, error) {
	n, err := e.store.Count()
	if err != nil {
		return nil, err
	}
	return e.scoreIndices(query, indexRange(n))
}

func (e *Engine) annSearch(query []float32, topK int) ([]Result, error) {
	if e.index == nil {
		return nil, vektaerr.Wrap("search.annSearch", vektaerr.ErrStore)
	}
	candidates := e.index.Search(query, topK)
	return e.scoreIndices(query, candidates)
}

func (e *Engine) hybridSearch(query []float32, topK int) ([]Result, error) {
	annResults, err := e.annSearch(query, topK)
	if err != nil {
		return nil, err
	}
	if len(annResults) >= topK {
		return annResults, nil
	}
	exactResults, err := e.exactSearch(query)
	if err != nil {
		return nil, err
	}
	// Duplicate indices across the two passes are tolerated: ranking by
	// similarity is stable under duplicates, and truncation happens after
	// sort.
	return append(annResults, exactResults...), nil
}

// scoreIndices computes cosine similarity against each of the given
// positional indices, fanning work out across a bounded worker pool.
// Candidates whose cosine returned a dimension-mismatch signal are dropped.
func (e *Engine) scoreIndices(query []float32, indices []int) ([]Result, error) {
	results := make([]Result, len(indices))
	valid := make([]bool, len(indices))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(indices) {
		workers = len(indices)
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan int)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for pos := range work {
				entry, found, err := e.store.GetByIndex(indices[pos])
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				sim, ok := vectormath.Cosine(query, entry.Vector)
				if !ok {
					continue
				}
				results[pos] = Result{
					Label:      entry.Label,
					UniqueID:   entry.UniqueID,
					Similarity: sim,
					Metadata:   entry.Metadata,
				}
				valid[pos] = true
			}
			return nil
		})
	}
	for pos := range indices {
		work <- pos
	}
	close(work)
	if err := g.Wait(); err != nil {
		return nil, vektaerr.Wrap("search.scoreIndices", err)
	}

	out := make([]Result, 0, len(results))
	for i, v := range valid {
		if v {
			out = append(out, results[i])
		}
	}
	return out, nil
}

func indexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
