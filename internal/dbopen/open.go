// Package dbopen implements the single construction entry point that
// sniffs a path and returns the right concrete hashdb.HashDb variant
// (spec §4.1 "Construction flow for open").
package dbopen

import (
	"bytes"
	"io"
	"os"

	"github.com/go-while/go-hashdb/internal/config"
	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/binsearch"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
	"github.com/go-while/go-hashdb/internal/hashdb/indexonly"
	"github.com/go-while/go-hashdb/internal/hashdb/sqlitedb"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// Open sniffs path's first 16 bytes and dispatches to the matching
// backend: SQLite signature, then the NSRL/md5sum/EnCase/HashKeeper text
// and binary detectors in formats.Detect's order. IndexOnly forces the
// degenerate variant even when a recognizable source file is present.
// cfg may be nil, in which case every backend uses its package defaults.
func Open(path string, flags hashdb.OpenFlags, cfg *config.Config) (hashdb.HashDb, error) {
	const op = "open"

	if flags.IndexOnly {
		return indexonly.Open(path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// The source file may simply not exist while a standalone
			// index does (spec §6 edge case); fall back to index-only
			// before giving up.
			if d, ierr := indexonly.Open(path); ierr == nil {
				return d, nil
			}
			return nil, &hashdb.Error{Kind: hashdb.ErrNotFound, Op: op, Msg: "database path not found", Err: err}
		}
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "opening database path", Err: err}
	}

	head := make([]byte, 16)
	n, rerr := f.Read(head)
	if rerr != nil && rerr != io.EOF {
		f.Close()
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "reading database header", Err: rerr}
	}
	head = head[:n]

	if len(head) >= len(sqliteMagic) && bytes.Equal(head[:len(sqliteMagic)], sqliteMagic) {
		f.Close()
		if cfg != nil {
			return sqlitedb.OpenWithPragmas(path, cfg.Pragmas())
		}
		return sqlitedb.Open(path)
	}

	dbType, derr := formats.Detect(f)
	f.Close()
	if derr != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "detecting database format", Err: derr}
	}
	if dbType == formats.DBTypeInvalid {
		return nil, &hashdb.Error{Kind: hashdb.ErrUnknownType, Op: op, Msg: "no known format claimed this file"}
	}

	db, err := binsearch.Open(path, dbType)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		db.SortMemoryBudget = cfg.SortMemoryBudget
	}
	return db, nil
}

// Create constructs a brand-new, empty SQLite-backed database at path:
// the only variant spec §4.1 allows create() on.
func Create(path string, cfg *config.Config) (hashdb.HashDb, error) {
	if cfg != nil {
		return sqlitedb.CreateWithPragmas(path, cfg.Pragmas())
	}
	return sqlitedb.Create(path)
}
