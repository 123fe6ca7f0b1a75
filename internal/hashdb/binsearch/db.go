package binsearch

import (
	"os"
	"strings"
	"sync"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

// Db is the binary-search-backed HashDb variant shared by the NSRL,
// md5sum, HashKeeper, and EnCase source formats: a read-only source file
// plus zero or more sorted indexes built by MakeIndex and opened lazily on
// first lookup, one per hash kind (spec
// §4.3, §5).
type Db struct {
	mu sync.Mutex

	sourcePath  string
	dbType      formats.DBType
	displayName string
	source      formats.EntryAtSource

	readers map[hashdb.HashKind]*Reader

	// SortMemoryBudget bounds MakeIndex's external merge sort. Zero
	// selects DefaultSortMemoryBudget; set after Open, before MakeIndex,
	// from config.Config.SortMemoryBudget.
	SortMemoryBudget int64
}

// Open constructs a binary-search-backed handle over an already-detected
// source database.
func Open(sourcePath string, dbType formats.DBType) (*Db, error) {
	const op = "open"
	source, err := formats.OpenSource(sourcePath, dbType)
	if err != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "opening source database", Err: err}
	}
	return &Db{
		sourcePath:  sourcePath,
		dbType:      dbType,
		displayName: deriveDisplayName(sourcePath, dbType),
		source:      source,
		readers:     make(map[hashdb.HashKind]*Reader),
	}, nil
}

// deriveDisplayName tries the source format's own embedded name (EnCase
// only) before falling back to a name derived from the file path (spec
// §4.5, supplemented feature 1).
func deriveDisplayName(sourcePath string, dbType formats.DBType) string {
	if dbType == formats.DBTypeEnCase {
		if f, err := os.Open(sourcePath); err == nil {
			name, nerr := formats.EnCaseDatabaseName(f)
			f.Close()
			if nerr == nil && name != "" {
				return name
			}
		}
	}
	return hashdb.DeriveName(sourcePath)
}

func (d *Db) DisplayName() string { return d.displayName }

func (d *Db) HasIndex(kind hashdb.HashKind) bool {
	_, err := os.Stat(IndexPath(d.sourcePath, kind))
	return err == nil
}

func (d *Db) MakeIndex(kind hashdb.HashKind) (*hashdb.IndexBuildReport, error) {
	report, err := BuildIndex(d.sourcePath, d.dbType, kind, d.displayName, d.SortMemoryBudget)

	d.mu.Lock()
	if r, ok := d.readers[kind]; ok {
		r.Close()
		delete(d.readers, kind)
	}
	d.mu.Unlock()

	return report, err
}

func (d *Db) reader(kind hashdb.HashKind) (*Reader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.readers[kind]; ok {
		return r, nil
	}
	r, err := OpenReader(d.sourcePath, kind, d.dbType)
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

	offset, recIdx, found, err := r.Find(hashUpper)
	if err != nil {
		return false, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "binary search", Err: err}
	}
	if !found {
		return false, nil
	}
	if mode == hashdb.Quick || cb == nil {
		return true, nil
	}

	offsets, err := r.AllOffsets(hashUpper, recIdx)
	if err != nil {
		return true, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "collecting duplicate records", Err: err}
	}
	// An empty AllOffsets would mean the match itself vanished between
	// Find and AllOffsets; fall back to the single offset Find reported.
	if len(offsets) == 0 {
		offsets = []int64{offset}
	}

	for _, off := range offsets {
		// EntryAt seeks the shared source file handle, so concurrent Full
		// lookups on one Db must not interleave their seeks and reads.
		d.mu.Lock()
		names, nerr := d.source.EntryAt(off, hashUpper)
		d.mu.Unlock()
		if nerr != nil {
			continue
		}
		for _, name := range names {
			switch cb(hashUpper, name) {
			case hashdb.Stop:
				return true, nil
			case hashdb.CallbackError:
				return true, &hashdb.Error{Kind: hashdb.ErrInvalidArgument, Op: op, Msg: "callback aborted lookup"}
			}
		}
	}
	return true, nil
}

func (d *Db) LookupVerbose(hash string) (*hashdb.HashInfo, bool, error) {
	var names []string
	found, err := d.Lookup(hash, hashdb.Full, func(h, name string) hashdb.CallbackResult {
		if name != "" {
			names = append(names, name)
		}
		return hashdb.Continue
	})
	if err != nil || !found {
		return nil, found, err
	}

	info := &hashdb.HashInfo{Names: names}
	switch hashdb.DetectHashKind(hash) {
	case hashdb.HashKindMD5:
		info.MD5 = strings.ToUpper(hash)
	case hashdb.HashKindSHA1:
		info.SHA1 = strings.ToUpper(hash)
	}
	return info, true, nil
}

func (d *Db) AcceptsUpdates() bool { return false }

func (d *Db) AddEntry(filename, md5 string, sha1, sha256, comment *string) error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "add_entry", Msg: "binary-search backed databases are read-only"}
}

func (d *Db) BeginTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "begin_transaction", Msg: "binary-search backed databases are read-only"}
}

func (d *Db) CommitTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "commit_transaction", Msg: "binary-search backed databases are read-only"}
}

func (d *Db) RollbackTransaction() error {
	return &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "rollback_transaction", Msg: "binary-search backed databases are read-only"}
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
	if err := d.source.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
