package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahulunair/vekta/internal/annindex"
	"github.com/rahulunair/vekta/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print resolved configuration",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()
	cfg.Print(fmt.Printf)

	s, err := store.Open(cfg.Path, cfg.LabelSize)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.Count()
	if err != nil {
		return err
	}
	bits, tables := annindex.Params(count)
	fmt.Printf("ann_bits=%d\n", bits)
	fmt.Printf("ann_tables=%d\n", tables)
	fmt.Printf("ann_num_projections=%d\n", bits*tables)
	return nil
}
