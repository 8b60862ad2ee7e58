package main

// repl implements the interactive Read-Eval-Print loop, the REPL
// collaborator spec.md §6 describes: it parses user text into engine
// calls and formats results. Dot-commands (.tree, .json, .stats, ...)
// are diagnostics; everything else is one of the five data verbs.

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cabewaldrop/forgedb/internal/engine"
	"github.com/cabewaldrop/forgedb/internal/storage"
)

func runREPL() error {
	fmt.Printf(banner, version)

	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer eng.Close()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("forgedb> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		if strings.HasPrefix(line, ".") {
			handleDotCommand(eng, line)
			continue
		}

		if err := handleVerb(eng, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func handleVerb(eng *engine.Engine, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "insert":
		if len(fields) != 4 {
			return errors.New("usage: insert <id> <username> <email>")
		}
		id, err := parseID(fields[1])
		if err != nil {
			return err
		}
		row := storage.Row{ID: id, Username: fields[2], Email: fields[3]}
		if err := eng.Insert(row); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("duplicate key: %d already exists", id)
			}
			return err
		}
		fmt.Printf("inserted %d\n", id)
		return nil

	case "delete":
		if len(fields) != 2 {
			return errors.New("usage: delete <id>")
		}
		id, err := parseID(fields[1])
		if err != nil {
			return err
		}
		if err := eng.Remove(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("not found: %d", id)
			}
			return err
		}
		fmt.Printf("deleted %d\n", id)
		return nil

	case "select":
		rows, err := eng.All()
		if err != nil {
			return err
		}
		printRows(rows)
		return nil

	case "range":
		if len(fields) != 3 {
			return errors.New("usage: range <lo> <hi>")
		}
		lo, err := parseID(fields[1])
		if err != nil {
			return err
		}
		hi, err := parseID(fields[2])
		if err != nil {
			return err
		}
		rows, err := eng.Range(lo, hi)
		if err != nil {
			return err
		}
		printRows(rows)
		return nil

	case "lookup":
		if len(fields) != 2 {
			return errors.New("usage: lookup <id>")
		}
		id, err := parseID(fields[1])
		if err != nil {
			return err
		}
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

	default:
		return fmt.Errorf("unrecognised command: %s", fields[0])
	}
}

func handleDotCommand(eng *engine.Engine, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".help":
		fmt.Println("\nData commands:")
		fmt.Println("  insert <id> <username> <email>")
		fmt.Println("  delete <id>")
		fmt.Println("  select")
		fmt.Println("  range <lo> <hi>")
		fmt.Println("  lookup <id>")
		fmt.Println("\nDiagnostics:")
		fmt.Println("  .tree  .json  .stats  .pool  .freelist  .bloom  .bloom rebuild  .free <n>")
		fmt.Println()

	case ".tree":
		dump, err := eng.TreeDump()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		for _, n := range dump {
			fmt.Printf("page %d [%s] root=%v keys=%v children=%v next=%d\n", n.Page, n.Type, n.IsRoot, n.Keys, n.Children, n.NextLeaf)
		}

	case ".json":
		out, err := eng.JSONDump()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Println(out)

	case ".stats":
		s := eng.Stats()
		fmt.Printf("magic=0x%X page_size=%d total_pages=%d free_pages=%d first_free_page=%d\n",
			s.Magic, s.PageSize, s.TotalPages, s.FreePages, s.FirstFreePage)

	case ".pool":
		s := eng.PoolStats()
		fmt.Printf("hits=%d misses=%d evictions=%d frames=%d/%d\n", s.Hits, s.Misses, s.Evictions, s.Frames, s.MaxFrames)

	case ".freelist":
		pages, err := eng.FreeList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Printf("free pages: %v\n", pages)

	case ".bloom":
		if len(fields) == 2 && fields[1] == "rebuild" {
			if err := eng.BloomRebuild(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			fmt.Println("bloom filter rebuilt")
			return
		}
		s := eng.BloomStats()
		fmt.Printf("bits_set=%d total_bits=%d fill=%.4f%% estimated_fp=%.4f%%\n",
			s.BitsSet, s.TotalBits, s.FillRatio*100, s.EstimateFP*100)

	case ".free":
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, "usage: .free <page>")
			return
		}
		n, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad page number: %v\n", err)
			return
		}
		if err := eng.FreePage(uint32(n)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Printf("freed page %d\n", n)

	default:
		fmt.Fprintf(os.Stderr, "unrecognised command: %s\n", fields[0])
	}
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(n), nil
}

func printRows(rows []storage.Row) {
	for _, r := range rows {
		fmt.Printf("%d|%s|%s\n", r.ID, r.Username, r.Email)
	}
}
