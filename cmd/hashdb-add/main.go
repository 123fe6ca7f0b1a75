// Command hashdb-add bulk-loads entries into a SQLite-backed hash
// database, reading comma-separated "md5,sha1,sha256,filename,comment"
// records from standard input (trailing fields may be empty or omitted).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-while/go-hashdb/internal/config"
	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/sqlitedb"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "path to the SQLite-backed hash database")
		create     = flag.Bool("create", false, "create the database if it does not already exist")
		configPath = flag.String("config", "", "optional YAML config overriding batch size and pragmas")
	)
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <path> [-create] < entries.csv\n", os.Args[0])
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("hashdb-add: %v", err)
		}
	}

	var db *sqlitedb.Db
	var err error
	if *create {
		if _, statErr := os.Stat(*dbPath); statErr != nil {
			db, err = sqlitedb.CreateWithPragmas(*dbPath, cfg.Pragmas())
		} else {
			db, err = sqlitedb.OpenWithPragmas(*dbPath, cfg.Pragmas())
		}
	} else {
		db, err = sqlitedb.OpenWithPragmas(*dbPath, cfg.Pragmas())
	}
	if err != nil {
		log.Fatalf("hashdb-add: %v", err)
	}
	defer db.Close()

	var added, failed, inBatch int64
	beginBatch := func() {
		if err := db.BeginTransaction(); err != nil {
			log.Fatalf("hashdb-add: begin_transaction: %v", err)
		}
	}
	endBatch := func() {
		if inBatch == 0 {
			return
		}
		if err := db.CommitTransaction(); err != nil {
			log.Fatalf("hashdb-add: commit_transaction: %v", err)
		}
		inBatch = 0
	}

	beginBatch()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := addLine(db, line); err != nil {
			log.Printf("hashdb-add: %v", err)
			failed++
			continue
		}
		added++
		inBatch++
		if inBatch >= int64(cfg.BatchSize) {
			endBatch()
			beginBatch()
		}
	}
	endBatch()
	if err := scanner.Err(); err != nil {
		log.Fatalf("hashdb-add: reading stdin: %v", err)
	}

	fmt.Printf("added:  %d\n", added)
	fmt.Printf("failed: %d\n", failed)
}

func addLine(db hashdb.HashDb, line string) error {
	fields := strings.Split(line, ",")
	for len(fields) < 5 {
		fields = append(fields, "")
	}
	md5 := strings.TrimSpace(fields[0])
	sha1 := strPtr(strings.TrimSpace(fields[1]))
	sha256 := strPtr(strings.TrimSpace(fields[2]))
	filename := strings.TrimSpace(fields[3])
	comment := strPtr(strings.TrimSpace(fields[4]))
	return db.AddEntry(filename, md5, sha1, sha256, comment)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
