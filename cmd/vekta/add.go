package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahulunair/vekta/internal/record"
	"github.com/rahulunair/vekta/internal/store"
	"github.com/rahulunair/vekta/internal/vektaerr"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add NDJSON vector records from stdin",
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()

	s, err := store.Open(cfg.Path, cfg.LabelSize)
	if err != nil {
		return err
	}
	defer s.Close()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var added, skipped int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		entry, err := record.Parse(line, cfg.Dimensions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip: %v\n", err)
			skipped++
			continue
		}
		entry.Normalize()

		label, err := s.Add(entry)
		if err != nil {
			if errors.Is(err, vektaerr.ErrLabelTooLong) {
				fmt.Fprintf(os.Stderr, "skip: %v\n", err)
				skipped++
				continue
			}
			return err
		}
		if label != entry.Label {
			fmt.Fprintf(os.Stderr, "warning: label %q already in store, stored as %q\n", entry.Label, label)
		}
		log.Debug().Str("label", label).Int("dimensions", len(entry.Vector)).Msg("stored entry")

		fmt.Printf("added %s\n", label)
		added++
	}
	if err := scanner.Err(); err != nil {
		return vektaerr.Wrap("add", fmt.Errorf("%w: %v", vektaerr.ErrStore, err))
	}

	fmt.Printf("done: %d added, %d skipped\n", added, skipped)
	return nil
}
