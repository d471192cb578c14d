// Command vekta is the CLI front end for the vekta vector database: NDJSON
// ingestion on add, label listing, single-query search, and resolved
// configuration dump — dispatched as cobra subcommands the way the
// teacher's cmd/sqvect CLI structures its command tree.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rahulunair/vekta/internal/config"
)

var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:     "vekta",
	Short:   "A local, single-node vector database",
	Version: "0.1",
}

func init() {
	rootCmd.AddCommand(addCmd, listCmd, searchCmd, configCmd)
}

func main() {
	cfg, cfgErr := config.Load()
	level := zerolog.InfoLevel
	if cfgErr == nil && cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigOrExit() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
