package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahulunair/vekta/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored label",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()

	s, err := store.Open(cfg.Path, cfg.LabelSize)
	if err != nil {
		return err
	}
	defer s.Close()

	labels, err := s.IterLabels()
	if err != nil {
		return err
	}
	for _, l := range labels {
		fmt.Println(l)
	}
	return nil
}
