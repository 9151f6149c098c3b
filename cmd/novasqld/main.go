// novasqld is a thin demo binary: it attaches a novasql database and
// exercises create/insert/select/delete/stats through a fixed set of
// verbs read one line at a time. There is no SQL parser here — parsing
// is out of scope — just enough line-oriented dispatch to drive the
// engine interactively, in-process.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tuannm99/novasql/internal/catalog"
	"github.com/tuannm99/novasql/internal/dbconfig"
	"github.com/tuannm99/novasql/internal/engine"
	"github.com/tuannm99/novasql/internal/heapfile"
	"github.com/tuannm99/novasql/internal/query"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to a novasqld.yaml config file (optional)")
	flag.Parse()

	cfg := dbconfig.Default()
	if cfgPath != "" {
		loaded, err := dbconfig.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Server.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	db, err := engine.Attach(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attach: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Detach() }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "novasqld> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("attached to %s\n", db.DataDir())
	fmt.Println(`verbs: create <rel> <name:type:len>...
       insert <rel> <attr=value>...
       select <rel> <attr>... [where <attr> <op> <value>] into <result>
       delete <rel> where <attr> <op> <value>
       stats
       quit`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if err := dispatch(db, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func dispatch(db *engine.Database, line string) error {
	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "create":
		return runCreate(db, args)
	case "insert":
		return runInsert(db, args)
	case "select":
		return runSelect(db, args)
	case "delete":
		return runDelete(db, args)
	case "stats":
		return runStats(db)
	default:
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func runCreate(db *engine.Database, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: create <rel> <name:type:len>...")
	}
	rel := args[0]
	attrs := make([]catalog.AttrInput, 0, len(args)-1)
	for _, spec := range args[1:] {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return fmt.Errorf("bad attribute spec %q, want name:type:len", spec)
		}
		typ, err := parseType(parts[1])
		if err != nil {
			return err
		}
		length, err := strconv.Atoi(parts[2])
		if err != nil {
			return fmt.Errorf("bad length in %q: %w", spec, err)
		}
		attrs = append(attrs, catalog.AttrInput{Name: parts[0], Type: typ, Len: int32(length)})
	}
	return db.Catalog().CreateRel(rel, attrs)
}

func runInsert(db *engine.Database, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: insert <rel> <attr=value>...")
	}
	rel := args[0]
	vals := make([]query.AttrValue, 0, len(args)-1)
	for _, kv := range args[1:] {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("bad attr=value pair %q", kv)
		}
		vals = append(vals, query.AttrValue{RelName: rel, AttrName: name, Value: value})
	}
	return query.Insert(db.Pool(), db.Catalog(), rel, vals)
}

func runSelect(db *engine.Database, args []string) error {
	// select <rel> <attr>... [where <attr> <op> <value>] into <result>
	intoIdx := indexOf(args, "into")
	if intoIdx < 0 || intoIdx+1 >= len(args) {
		return errors.New("usage: select <rel> <attr>... [where <attr> <op> <value>] into <result>")
	}
	result := args[intoIdx+1]
	body := args[:intoIdx]

	whereIdx := indexOf(body, "where")
	var projTokens []string
	var filter *query.Filter
	if whereIdx < 0 {
		projTokens = body
	} else {
		projTokens = body[:whereIdx]
		clause := body[whereIdx+1:]
		if len(clause) != 3 {
			return errors.New("usage: ... where <attr> <op> <value>")
		}
		op, err := parseOp(clause[1])
		if err != nil {
			return err
		}
		filter = &query.Filter{RelName: projTokens[0], AttrName: clause[0], Op: op, Value: clause[2]}
	}
	if len(projTokens) < 2 {
		return errors.New("select needs a relation and at least one attribute")
	}
	rel := projTokens[0]
	projs := make([]query.AttrRef, 0, len(projTokens)-1)
	for _, a := range projTokens[1:] {
		projs = append(projs, query.AttrRef{RelName: rel, AttrName: a})
	}
	return query.Select(db.Pool(), db.Catalog(), result, projs, filter)
}

func runDelete(db *engine.Database, args []string) error {
	// delete <rel> where <attr> <op> <value>
	if len(args) != 5 || args[1] != "where" {
		return errors.New("usage: delete <rel> where <attr> <op> <value>")
	}
	op, err := parseOp(args[3])
	if err != nil {
		return err
	}
	return query.Delete(db.Pool(), db.Catalog(), args[0], args[2], op, args[4])
}

func runStats(db *engine.Database) error {
	s, err := db.Catalog().Stats()
	if err != nil {
		return err
	}
	fmt.Printf("relations: %d\n", s.RelationCount)
	return nil
}

func parseType(s string) (heapfile.DataType, error) {
	switch strings.ToLower(s) {
	case "string", "str":
		return heapfile.STRING, nil
	case "int", "integer":
		return heapfile.INTEGER, nil
	case "float":
		return heapfile.FLOAT, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}

func parseOp(s string) (heapfile.Operator, error) {
	switch s {
	case "<":
		return heapfile.LT, nil
	case "<=":
		return heapfile.LTE, nil
	case "=":
		return heapfile.EQ, nil
	case ">=":
		return heapfile.GTE, nil
	case ">":
		return heapfile.GT, nil
	case "!=":
		return heapfile.NE, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
