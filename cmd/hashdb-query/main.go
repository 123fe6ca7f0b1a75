// Command hashdb-query opens any supported hash database variant and
// answers lookups for one or more hashes given on the command line or,
// with -stdin, one per line of standard input.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-while/go-hashdb/internal/config"
	"github.com/go-while/go-hashdb/internal/dbopen"
	"github.com/go-while/go-hashdb/internal/hashdb"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "path to the hash database (source file or SQLite file; for an index-only database, the source path its index was built from)")
		indexOnly  = flag.Bool("index-only", false, "open in index-only mode even if the source file is present")
		verbose    = flag.Bool("verbose", false, "print every associated name, not just presence")
		fromStdin  = flag.Bool("stdin", false, "read one hash per line from standard input")
		configPath = flag.String("config", "", "optional YAML config")
	)
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <path> [-verbose] [-index-only] [hash ...]\n", os.Args[0])
		os.Exit(1)
	}

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("hashdb-query: %v", err)
		}
	}

	db, err := dbopen.Open(*dbPath, hashdb.OpenFlags{IndexOnly: *indexOnly}, cfg)
	if err != nil {
		log.Fatalf("hashdb-query: opening %s: %v", *dbPath, err)
	}
	defer db.Close()

	log.Printf("opened %q as %s", *dbPath, db.DisplayName())

	hashes := flag.Args()
	if *fromStdin {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				hashes = append(hashes, line)
			}
		}
	}

	exitCode := 0
	for _, h := range hashes {
		if !query(db, h, *verbose) {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func query(db hashdb.HashDb, hash string, verbose bool) bool {
	if !verbose {
		found, err := db.Lookup(hash, hashdb.Quick, nil)
		if err != nil {
			fmt.Printf("%s ERROR %v\n", hash, err)
			return false
		}
		if found {
			fmt.Printf("%s FOUND\n", hash)
		} else {
			fmt.Printf("%s NOTFOUND\n", hash)
		}
		return found
	}

	info, found, err := db.LookupVerbose(hash)
	if err != nil {
		fmt.Printf("%s ERROR %v\n", hash, err)
		return false
	}
	if !found {
		fmt.Printf("%s NOTFOUND\n", hash)
		return false
	}
	fmt.Printf("%s FOUND md5=%s sha1=%s sha256=%s\n", hash, info.MD5, info.SHA1, info.SHA256)
	for _, name := range info.Names {
		fmt.Printf("  name: %s\n", name)
	}
	for _, c := range info.Comments {
		fmt.Printf("  comment: %s\n", c)
	}
	return true
}
