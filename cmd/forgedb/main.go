// Command forgedb is the CLI front end for the forgedb storage
// engine: an interactive REPL when invoked with no subcommand, and a
// one-shot argument-mode dispatcher (one subcommand per REPL verb)
// otherwise — mirroring the reference implementation's "Script Mode
// (For Web Visualizer)" vs. interactive-loop split.
//
// EDUCATIONAL NOTES:
// ------------------
// cobra gives us that split almost for free: a root command with a
// Run func drops into the REPL when no subcommand is given, while
// `forgedb insert ...` runs once and exits. --db is a persistent flag
// shared by every subcommand, the same role the teacher CLI's
// `flag.String("db", "claude.db", ...)` played.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/forgedb/internal/applog"
	"github.com/cabewaldrop/forgedb/internal/engine"
)

const (
	version = "0.1.0"
	banner  = `
  ____                    ____  ____
 |  _ \ ___  _ __ __ _  __|  _ \| __ )
 | |_) / _ \| '__/ _' |/ _' | | |  _ \
 |  __/ (_) | | | (_| | (_| |_| | |_) |
 |_|   \___/|_|  \__, |\__,_|____/|____/
                  |___/
  A Single-File Paged Key/Value Store - Version %s
  Type '.help' for usage hints or 'exit' to quit.
`
)

var (
	dbPath      string
	verbose     bool
	showVersion bool
)

func main() {
	root := &cobra.Command{
		Use:     "forgedb",
		Short:   "A paged, single-writer key/value storage engine",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("forgedb version %s\n", version)
				return nil
			}
			return runREPL()
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "forgedb.db", "path to the database file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror structured logs to stderr")
	root.Flags().BoolVar(&showVersion, "version", false, "show version and exit")

	root.AddCommand(
		newInsertCmd(),
		newDeleteCmd(),
		newSelectCmd(),
		newRangeCmd(),
		newLookupCmd(),
		newTreeCmd(),
		newJSONCmd(),
		newStatsCmd(),
		newPoolCmd(),
		newFreelistCmd(),
		newBloomCmd(),
		newFreeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine opens the configured database file with a logger wired
// per --verbose.
func openEngine() (*engine.Engine, error) {
	logger, err := applog.New(applog.Config{Path: dbPath + ".log", Verbose: verbose})
	if err != nil {
		logger = applog.Nop()
	}
	return engine.Open(dbPath, engine.WithLogger(logger))
}
