package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahulunair/vekta/internal/record"
	"github.com/rahulunair/vekta/internal/search"
	"github.com/rahulunair/vekta/internal/store"
	"github.com/rahulunair/vekta/internal/vektaerr"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for the nearest stored vectors to a query read from stdin",
	RunE:  runSearch,
}

type queryEcho struct {
	Label    string          `json:"label"`
	UniqueID string          `json:"unique_id"`
	Vector   []float32       `json:"vector"`
	Metadata record.Metadata `json:"metadata"`
}

type resultJSON struct {
	Label      string          `json:"label"`
	UniqueID   string          `json:"unique_id"`
	Similarity float64         `json:"similarity"`
	Metadata   record.Metadata `json:"metadata"`
}

type timingsJSON struct {
	SearchDurationMs int64 `json:"search_duration_ms"`
	SortDurationMs   int64 `json:"sort_duration_ms"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

type searchOutput struct {
	Query                 queryEcho    `json:"query"`
	DatabaseRecordCount   int          `json:"database_record_count"`
	Results               []resultJSON `json:"results"`
	ActualResultsCount    int          `json:"actual_results_count"`
	RequestedResultsCount int          `json:"requested_results_count"`
	Timings               timingsJSON  `json:"timings"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return vektaerr.Wrap("search", fmt.Errorf("%w: %v", vektaerr.ErrBadInput, err))
	}
	if len(line) == 0 {
		return vektaerr.Wrap("search", fmt.Errorf("%w: empty stdin", vektaerr.ErrBadInput))
	}

	query, err := record.Parse(line, cfg.Dimensions)
	if err != nil {
		return err
	}
	query.Normalize()
	if query.UniqueID == "" {
		id, err := record.UniqueIDFor(query.Label, query.Vector, query.Metadata)
		if err != nil {
			return err
		}
		query.UniqueID = id
	}

	s, err := store.Open(cfg.Path, cfg.LabelSize)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.Count()
	if err != nil {
		return err
	}

	eng, err := search.New(s, cfg.SearchMethod)
	if err != nil {
		return err
	}

	results, timings, err := eng.Search(query.Vector, search.Config{
		Method:              cfg.SearchMethod,
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})
	if err != nil {
		return err
	}

	previewLen := 5
	if len(query.Vector) < previewLen {
		previewLen = len(query.Vector)
	}

	out := searchOutput{
		Query: queryEcho{
			Label:    query.Label,
			UniqueID: query.UniqueID,
			Vector:   query.Vector[:previewLen],
			Metadata: query.Metadata,
		},
		DatabaseRecordCount:   count,
		ActualResultsCount:    len(results),
		RequestedResultsCount: cfg.TopK,
		Timings: timingsJSON{
			SearchDurationMs: timings.Search.Milliseconds(),
			SortDurationMs:   timings.Sort.Milliseconds(),
			TotalDurationMs:  timings.Total.Milliseconds(),
		},
	}
	out.Results = make([]resultJSON, len(results))
	for i, r := range results {
		out.Results[i] = resultJSON{
			Label:      r.Label,
			UniqueID:   r.UniqueID,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
