// Command hashdb-build produces a sorted binary-search index (and its
// index-of-index acceleration table) for an NSRL, md5sum, HashKeeper, or
// EnCase hash set.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"golang.org/x/term"

	"github.com/go-while/go-hashdb/internal/config"
	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/binsearch"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

var Prof *prof.Profiler

func main() {
	var (
		sourcePath = flag.String("source", "", "path to the NSRL/md5sum/HashKeeper/EnCase hash set")
		hashType   = flag.String("hash", "md5", "index hash kind: md5 or sha1")
		configPath = flag.String("config", "", "optional YAML config overriding sort memory budget")
		pprofAddr  = flag.String("pprof", "", "enable pprof/mem profiling HTTP server on the given address")
	)
	flag.Parse()

	if *sourcePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -source <path> [-hash md5|sha1] [-config <path>]\n", os.Args[0])
		os.Exit(1)
	}

	if *pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(*pprofAddr)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
		go func() {
			log.Printf("pprof server listening on %s", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	var kind hashdb.HashKind
	switch *hashType {
	case "md5":
		kind = hashdb.HashKindMD5
	case "sha1":
		kind = hashdb.HashKindSHA1
	default:
		log.Fatalf("hashdb-build: unsupported -hash %q, want md5 or sha1", *hashType)
	}

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("hashdb-build: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	f, err := os.Open(*sourcePath)
	if err != nil {
		log.Fatalf("hashdb-build: opening source: %v", err)
	}
	dbType, err := formats.Detect(f)
	f.Close()
	if err != nil {
		log.Fatalf("hashdb-build: detecting source format: %v", err)
	}
	if dbType == formats.DBTypeInvalid {
		log.Fatalf("hashdb-build: %s does not match any known hash-set format", *sourcePath)
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if isTTY {
		fmt.Printf("Building %s index for %s (%s)...\n", kind, *sourcePath, dbType.Tag())
	}

	db, err := binsearch.Open(*sourcePath, dbType)
	if err != nil {
		log.Fatalf("hashdb-build: %v", err)
	}
	defer db.Close()
	db.SortMemoryBudget = cfg.SortMemoryBudget

	start := time.Now()
	report, err := db.MakeIndex(kind)
	if err != nil {
		log.Fatalf("hashdb-build: make_index failed: %v", err)
	}
	elapsed := time.Since(start)

	fmt.Printf("entries read:       %d\n", report.EntriesRead)
	fmt.Printf("entries indexed:    %d\n", report.EntriesIndexed)
	fmt.Printf("duplicates skipped: %d\n", report.DuplicatesSkipped)
	fmt.Printf("invalid lines:      %d\n", report.InvalidLines)
	fmt.Printf("elapsed:            %s\n", elapsed)
	fmt.Printf("index:              %s\n", binsearch.IndexPath(*sourcePath, kind))
	if report.IndexOfIndexBuilt {
		fmt.Printf("index-of-index:     %s\n", binsearch.IndexOfIndexPath(*sourcePath, kind))
	} else {
		log.Printf("index-of-index not built, lookups will fall back to a full-range search: %s", report.IndexOfIndexError)
	}
}
