// Package indexonly implements the degenerate database variant used when
// a binary-search index's source file is absent, or index-only mode was
// explicitly requested (spec §4.3, §6 edge case "source file missing,
// index present").
package indexonly

import (
	"sync"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/binsearch"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

// Db behaves like binsearch.Db except it never holds a source file handle:
// Full lookups degrade to Quick, and MakeIndex is always rejected since
// there is no source database to build from.
type Db struct {
	mu sync.Mutex

	sourcePath  string
	displayName string
	readers     map[hashdb.HashKind]*binsearch.Reader
}

// Open probes for an md5 and/or sha1 index derived from sourcePath. At
// least one must exist; the display name prefers whichever index header
// recorded one, falling back to the path-derived name (spec §4.5).
func Open(sourcePath string) (*Db, error) {
	d := &Db{
		sourcePath:  sourcePath,
		displayName: hashdb.DeriveName(sourcePath),
		readers:     make(map[hashdb.HashKind]*binsearch.Reader),
	}

	for _, kind := range []hashdb.HashKind{hashdb.HashKindMD5, hashdb.HashKindSHA1} {
		// No source database is present to check a declared type against.
		r, err := binsearch.OpenReader(sourcePath, kind, formats.DBTypeInvalid)
		if err != nil {
			continue
		}
		d.readers[kind] = r
		if name := r.Header().DisplayName; name != "" {
			d.displayName = name
		}
	}

	if len(d.readers) == 0 {
		return nil, &hashdb.Error{Kind: hashdb.ErrMissingFile, Op: "open", Msg: "no index file found for index-only database"}
	}
	return d, nil
}

func (d *Db) DisplayName() string { return d.displayName }

func (d *Db) HasIndex(kind hashdb.HashKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.readers[kind]; ok {
		return true
	}
	r, err := binsearch.OpenReader(d.sourcePath, kind, formats.DBTypeInvalid)
	if err != nil {
		return false
	}
	d.readers[kind] = r
	return true
}

// MakeIndex is always rejected: an index-only handle has no source
// database to build from (spec §9 resolved open question).
func (d *Db) MakeIndex(kind hashdb.HashKind) (*hashdb.IndexBuildReport, error) {
	return nil, &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "make_index", Msg: "index-only databases cannot build an index"}
}

func (d *Db) reader(kind hashdb.HashKind) (*binsearch.Reader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.readers[kind]; ok {
		return r, nil
	}
	r, err := binsearch.OpenReader(d.sourcePath, kind, formats.DBTypeInvalid)
	if err != nil {
		return nil, err
	}
	d.readers[kind] = r
	return r, nil
}

func (d *Db) Lookup(hash string, mode hashdb.LookupMode, cb hashdb.LookupCallback) (bool, error) {
	const op = "lookup"

	kind := hashdb.DetectHashKind(hash)
	if kind == hashdb.HashKindInvalid {
		return false, &hashdb.Error{Kind: hashdb.ErrInvalidHash, Op: op, Msg: "unrecognized hash length"}
	}
	if kind == hashdb.HashKindSHA256 {
		return false, &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: op, Msg: "binary-search indexes only support md5 or sha1"}
	}
	hashUpper, err := hashdb.ValidateHash(op, hash, kind)
	if err != nil {
		return false, err
	}

	r, err := d.reader(kind)
	if err != nil {
		return false, err
	}
	_, _, found, err := r.Find(hashUpper)
	if err != nil {
		return false, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "binary search", Err: err}
	}
	if !found {
		return false, nil
	}

	// The source file that would resolve a name does not exist: every
	// Full lookup degrades to Quick, the callback (if any) firing once
	// with an empty name.
	if mode == hashdb.Full && cb != nil {
		cb(hashUpper, "")
	}
	return true, nil
}

func (d *Db) LookupVerbose(hash string) (*hashdb.HashInfo, bool, error) {
	found, err := d.Lookup(hash, hashdb.Full, nil)
	if err != nil || !found {
		return nil, found, err
	}
	info := &hashdb.HashInfo{}
	switch hashdb.DetectHashKind(hash) {
	case hashdb.HashKindMD5:
		info.MD5 = hash
	case hashdb.HashKindSHA1:
		info.SHA1 = hash
	}
	return info, true, nil
}

func (d *Db) AcceptsUpdates() bool { return false }

func (d *Db) AddEntry(filename, md5 string, sha1, sha256, comment *string) error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "add_entry", Msg: "index-only databases are read-only"}
}

func (d *Db) BeginTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "begin_transaction", Msg: "index-only databases are read-only"}
}

func (d *Db) CommitTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "commit_transaction", Msg: "index-only databases are read-only"}
}

func (d *Db) RollbackTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "rollback_transaction", Msg: "index-only databases are read-only"}
}

func (d *Db) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for k, r := range d.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.readers, k)
	}
	return firstErr
}
