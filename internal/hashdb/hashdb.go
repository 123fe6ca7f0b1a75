package hashdb

// OpenFlags controls how Open constructs a handle.
type OpenFlags struct {
	// IndexOnly forces construction of the degenerate index-only variant
	// even when the source database file is present.
	IndexOnly bool
	// BestEffort is carried on the flags but no backend reads it: a
	// missing .idx2 acceleration table is tolerated whether or not it is
	// set, and it relaxes no other condition of Open.
	BestEffort bool
}

// HashDb is the uniform capability surface exposed by every concrete
// backend variant (NSRL, md5sum, HashKeeper, EnCase, SQLite, index-only).
// Lookups on one handle may run concurrently from multiple goroutines: each
// handle guards its lazily opened readers, shared source file position, and
// SQLite statements with a sync.Mutex. That lock is not re-entrant and is
// not held for the whole of every method: it is released before a Lookup
// callback runs, and MakeIndex and Close are not serialized against a
// Lookup already in progress on the same handle.
type HashDb interface {
	// DisplayName returns the database's derived or header-recorded name.
	DisplayName() string

	// HasIndex reports whether an index file exists for kind without
	// attempting to build one. The index-only variant also opens it; the
	// binary-search variant only checks that the file is present.
	HasIndex(kind HashKind) bool

	// MakeIndex builds a sorted external index (and its index-of-index)
	// for kind from the source database. Unsupported on the SQLite and
	// index-only variants.
	MakeIndex(kind HashKind) (*IndexBuildReport, error)

	// Lookup answers presence (Quick) or invokes cb once per associated
	// name (Full). Returns ErrNotFound via the returned bool being false,
	// or err non-nil on ErrInvalidHash/ErrCorrupt/etc.
	Lookup(hash string, mode LookupMode, cb LookupCallback) (found bool, err error)

	// LookupVerbose returns every digest, name, and comment on record for
	// hash, or found=false if the hash is not known.
	LookupVerbose(hash string) (info *HashInfo, found bool, err error)

	// AcceptsUpdates reports whether AddEntry/transactions are supported.
	AcceptsUpdates() bool

	// AddEntry inserts a new record. Only the SQLite variant supports
	// this; other variants return ErrUnsupportedOperation.
	AddEntry(filename, md5 string, sha1, sha256, comment *string) error

	BeginTransaction() error
	CommitTransaction() error
	RollbackTransaction() error

	Close() error
}

// IndexBuildReport summarizes a MakeIndex run (§ supplemented features).
type IndexBuildReport struct {
	EntriesRead       int64
	EntriesIndexed    int64
	DuplicatesSkipped int64
	InvalidLines      int64

	// IndexOfIndexBuilt reports whether the .idx2 acceleration table was
	// built successfully. A missing/failed .idx2 is one of the few
	// silently-tolerated conditions (lookups degrade to a full-range
	// binary search instead); it does not fail MakeIndex.
	IndexOfIndexBuilt bool
	IndexOfIndexError string
}
