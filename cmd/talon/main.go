// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command talon is a minimal shell over an Engine: it takes no SQL
// parser (spec §4.3 "AST input" leaves producing ast.Statement values
// from text to an external collaborator), so it drives the handful of
// catalog and maintenance statements it can build directly from a
// line of input — \dt, \d, \analyze, \explain — enough to poke at a
// database file without embedding talon in a larger program. Flag
// parsing follows the teacher's cmd/sqlite3def shape (go-flags, a
// usage string, -f/--db, --version), grounded on
// sqldef-sqldef/cmd/sqlite3def/sqlite3def.go.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"

	talon "github.com/talondb/talon"
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/ast"
)

var version = "dev"

type options struct {
	DBFile    string `short:"f" long:"db" description:"bolt database file" value-name:"path" required:"true"`
	StatsRoot string `long:"stats-root" description:"directory ANALYZE writes column statistics under"`
	Help      bool   `long:"help" description:"show this help"`
	Version   bool   `long:"version" description:"show this version"`
}

func parseOptions(args []string) *options {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "-f db.bolt"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	return &opts
}

func main() {
	opts := parseOptions(os.Args[1:])

	engine, err := talon.Open(opts.DBFile)
	if err != nil {
		log.Fatalf("opening %s: %v", opts.DBFile, err)
	}
	defer engine.Close()

	var ctxOpts []sql.ContextOption
	if opts.StatsRoot != "" {
		ctxOpts = append(ctxOpts, sql.WithStatsRoot(opts.StatsRoot))
	}

	fmt.Println("talon — type \\dt, \\d <table>, \\analyze <table>, \\explain <table>, \\q")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("talon> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == `\q` {
			break
		}
		stmt, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if err := run(engine, sql.NewContext(context.Background(), ctxOpts...), stmt); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// parseLine recognizes exactly the backslash-commands this shell
// supports, lowering each straight to the ast.Statement the binder
// expects.
func parseLine(line string) (ast.Statement, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case `\dt`:
		return &ast.ShowStmt{Kind: ast.ShowTables}, nil
	case `\d`:
		if len(fields) != 2 {
			return nil, fmt.Errorf(`usage: \d <table>`)
		}
		return &ast.ShowStmt{Kind: ast.ShowColumns, Table: fields[1]}, nil
	case `\analyze`:
		if len(fields) != 2 {
			return nil, fmt.Errorf(`usage: \analyze <table>`)
		}
		return &ast.AnalyzeStmt{Table: fields[1]}, nil
	case `\explain`:
		if len(fields) != 2 {
			return nil, fmt.Errorf(`usage: \explain <table>`)
		}
		return &ast.ExplainStmt{Stmt: &ast.ShowStmt{Kind: ast.ShowColumns, Table: fields[1]}}, nil
	default:
		return nil, fmt.Errorf("unrecognized command %q (this build has no SQL parser wired in)", fields[0])
	}
}

func run(engine *talon.Engine, ctx *sql.Context, stmt ast.Statement) error {
	schema, iter, err := engine.Query(ctx, stmt)
	if err != nil {
		return err
	}
	printSchemaHeader(schema)
	for {
		tuple, err := iter.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		printRow(tuple)
	}
}

func printSchemaHeader(schema sql.SchemaRef) {
	fmt.Println(strings.Join(schema.Names(), "\t"))
}

func printRow(tuple sql.Tuple) {
	parts := make([]string, len(tuple.Values))
	for i, v := range tuple.Values {
		parts[i] = v.String()
	}
	fmt.Println(strings.Join(parts, "\t"))
}
