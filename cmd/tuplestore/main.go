// Command tuplestore is an interactive SQL front end over the storage
// engine: a readline-backed REPL that parses statements, lowers them to
// an operator tree, and prints the resulting rows.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/xwb1989/sqlparser"

	"github.com/tuplestore/tuplestore/engine"
)

func main() {
	schemaPath := flag.String("schema", "", "path to a schema file describing the tables to load")
	dataDir := flag.String("data", ".", "directory holding each table's heap file")
	numPages := flag.Int("buffer-pages", 128, "number of pages held in the buffer pool")
	histFile := flag.String("history", filepath.Join(os.TempDir(), "tuplestore_history"), "readline history file")
	flag.Parse()

	if *schemaPath == "" {
		log.Fatal("missing required -schema flag")
	}

	bp, err := engine.NewBufferPool(*numPages)
	if err != nil {
		log.Fatalf("creating buffer pool: %v", err)
	}
	cat, err := engine.LoadSchemaFile(*schemaPath, *dataDir, bp)
	if err != nil {
		log.Fatalf("loading schema: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tuplestore> ",
		HistoryFile:     *histFile,
		AutoComplete:    completerFor(cat),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("starting readline: %v", err)
	}
	defer rl.Close()

	runREPL(rl, cat, bp)
}

func completerFor(cat *engine.Catalog) readline.AutoCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("select"),
		readline.PcItem("insert", readline.PcItem("into")),
		readline.PcItem("delete", readline.PcItem("from")),
	}
	for _, name := range cat.ListTables() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func runREPL(rl *readline.Instance, cat *engine.Catalog, bp *engine.BufferPool) {
	p := newPlanner(cat, bp)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "readline: %v\n", err)
			return
		}
		if isBlank(line) {
			continue
		}
		runStatement(p, bp, line)
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

func runStatement(p *planner, bp *engine.BufferPool, line string) {
	stmt, err := sqlparser.Parse(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		return
	}

	op, err := p.Plan(stmt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan error: %v\n", err)
		return
	}

	tid := engine.NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		fmt.Fprintf(os.Stderr, "begin transaction: %v\n", err)
		return
	}

	iter, err := op.Iterator(tid)
	if err != nil {
		bp.AbortTransaction(tid)
		fmt.Fprintf(os.Stderr, "executing statement: %v\n", err)
		return
	}

	desc := op.Descriptor()
	fmt.Println(desc.HeaderString(true))
	rowCount := 0
	for {
		tup, err := iter()
		if err != nil {
			bp.AbortTransaction(tid)
			fmt.Fprintf(os.Stderr, "executing statement: %v\n", err)
			return
		}
		if tup == nil {
			break
		}
		fmt.Println(tup.PrettyPrintString(true))
		rowCount++
	}
	bp.CommitTransaction(tid)
	fmt.Printf("(%d row(s))\n", rowCount)
}
