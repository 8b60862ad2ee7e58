package main

// Argument-mode dispatch: one cobra subcommand per REPL verb, each a
// thin wrapper that opens the database, performs one call against
// internal/engine, prints the result, and exits — the "Script Mode"
// the reference implementation offers for the web visualiser,
// supplemented here since spec.md names it without specifying shape.

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabewaldrop/forgedb/internal/storage"
)

func newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <id> <username> <email>",
		Short: "insert a row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			row := storage.Row{ID: id, Username: args[1], Email: args[2]}
			if err := eng.Insert(row); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					return fmt.Errorf("duplicate key: %d already exists", id)
				}
				return err
			}
			fmt.Printf("inserted %d\n", id)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a row by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Remove(id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("not found: %d", id)
				}
				return err
			}
			fmt.Printf("deleted %d\n", id)
			return nil
		},
	}
}

func newSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "print every row in ascending key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			rows, err := eng.All()
			if err != nil {
				return err
			}
			printRows(rows)
			return nil
		},
	}
}

func newRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <lo> <hi>",
		Short: "print rows with lo <= id <= hi",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := parseID(args[0])
			if err != nil {
				return err
			}
			hi, err := parseID(args[1])
			if err != nil {
				return err
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			rows, err := eng.Range(lo, hi)
			if err != nil {
				return err
			}
			printRows(rows)
			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "print the row stored under id, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			row, ok, err := eng.Find(id)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("not found: %d\n", id)
				return nil
			}
			printRows([]storage.Row{row})
			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "print the tree's structural dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			dump, err := eng.TreeDump()
			if err != nil {
				return err
			}
			for _, n := range dump {
				fmt.Printf("page %d [%s] root=%v keys=%v children=%v next=%d\n", n.Page, n.Type, n.IsRoot, n.Keys, n.Children, n.NextLeaf)
			}
			return nil
		},
	}
}

func newJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json",
		Short: "print the tree's structural dump as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out, err := eng.JSONDump()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print the file header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			s := eng.Stats()
			fmt.Printf("magic=0x%X page_size=%d total_pages=%d free_pages=%d first_free_page=%d\n",
				s.Magic, s.PageSize, s.TotalPages, s.FreePages, s.FirstFreePage)
			return nil
		},
	}
}

func newPoolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "print buffer pool hit/miss/eviction stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			s := eng.PoolStats()
			fmt.Printf("hits=%d misses=%d evictions=%d frames=%d/%d\n", s.Hits, s.Misses, s.Evictions, s.Frames, s.MaxFrames)
			return nil
		},
	}
}

func newFreelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "freelist",
		Short: "print the free list's page numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			pages, err := eng.FreeList()
			if err != nil {
				return err
			}
			fmt.Printf("free pages: %v\n", pages)
			return nil
		},
	}
}

func newBloomCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "bloom",
		Short: "print Bloom filter stats, or rebuild it with --rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if rebuild {
				if err := eng.BloomRebuild(); err != nil {
					return err
				}
				fmt.Println("bloom filter rebuilt")
				return nil
			}
			s := eng.BloomStats()
			fmt.Printf("bits_set=%d total_bits=%d fill=%.4f%% estimated_fp=%.4f%%\n",
				s.BitsSet, s.TotalBits, s.FillRatio*100, s.EstimateFP*100)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild the filter from the leaf chain instead of reporting stats")
	return cmd
}

func newFreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free <page>",
		Short: "return a page to the free list (page > 1 only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseID(args[0])
			if err != nil {
				return err
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.FreePage(n); err != nil {
				return err
			}
			fmt.Printf("freed page %d\n", n)
			return nil
		},
	}
}
