// Package sqlitedb implements the mutable, SQLite-backed hash database
// variant: the only variant that supports add_entry and transactions
// (spec §4.4).
package sqlitedb

import (
	"database/sql"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-while/go-hashdb/internal/hashdb"
)

// Db wraps a single SQLite connection with the six prepared statements
// add_entry and lookup_verbose run under, plus advisory transaction state.
type Db struct {
	mu sync.Mutex

	path        string
	displayName string
	conn        *sql.DB

	txInProgress bool

	stmtInsertHash    *sql.Stmt
	stmtInsertName    *sql.Stmt
	stmtInsertComment *sql.Stmt
	stmtSelectByMD5   *sql.Stmt
	stmtSelectNames   *sql.Stmt
	stmtSelectComments *sql.Stmt
}

// Create opens path as a brand-new, empty database, creating its schema
// and recording the schema version.
func Create(path string) (*Db, error) {
	return CreateWithPragmas(path, nil)
}

// CreateWithPragmas is Create, applying pragmaOverrides instead of the
// package defaults when non-nil (wired from config.Config.Pragmas).
func CreateWithPragmas(path string, pragmaOverrides []string) (*Db, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrInvalidArgument, Op: "create", Msg: "database file already exists"}
	}
	return open(path, true, pragmaOverrides)
}

// Open attaches to an existing SQLite-backed database.
func Open(path string) (*Db, error) {
	return OpenWithPragmas(path, nil)
}

// OpenWithPragmas is Open, applying pragmaOverrides instead of the
// package defaults when non-nil (wired from config.Config.Pragmas).
func OpenWithPragmas(path string, pragmaOverrides []string) (*Db, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrMissingFile, Op: "open", Msg: "sqlite database file not found", Err: err}
	}
	return open(path, false, pragmaOverrides)
}

func open(path string, creating bool, pragmaOverrides []string) (*Db, error) {
	const op = "open"

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "opening sqlite connection", Err: err}
	}
	// A single connection avoids SQLITE_BUSY churn from concurrent
	// writers within this process; cross-process contention is still
	// handled by the retry layer.
	conn.SetMaxOpenConns(1)

	activePragmas := pragmas
	if pragmaOverrides != nil {
		activePragmas = pragmaOverrides
	}
	for _, p := range activePragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "applying pragma: " + p, Err: err}
		}
	}
	for _, stmt := range ddl {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, &hashdb.Error{Kind: hashdb.ErrCreateFailed, Op: op, Msg: "creating schema", Err: err}
		}
	}
	if creating {
		if _, err := conn.Exec(`INSERT INTO db_properties(name, value) VALUES(?, ?)`, "schema_version", schemaVersion); err != nil {
			conn.Close()
			return nil, &hashdb.Error{Kind: hashdb.ErrCreateFailed, Op: op, Msg: "writing schema version", Err: err}
		}
	}

	d := &Db{path: path, displayName: hashdb.DeriveName(path), conn: conn}
	if err := d.prepareStatements(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *Db) prepareStatements() error {
	const op = "open"
	type prep struct {
		dst   **sql.Stmt
		query string
	}
	stmts := []prep{
		{&d.stmtInsertHash, `INSERT OR IGNORE INTO hashes (md5) VALUES (?)`},
		{&d.stmtInsertName, `INSERT OR IGNORE INTO file_names (name, hash_id) VALUES (?, ?)`},
		{&d.stmtInsertComment, `INSERT OR IGNORE INTO comments (comment, hash_id) VALUES (?, ?)`},
		{&d.stmtSelectByMD5, `SELECT id, sha1, sha2_256 FROM hashes WHERE md5 = ? LIMIT 1`},
		{&d.stmtSelectNames, `SELECT name FROM file_names WHERE hash_id = ?`},
		{&d.stmtSelectComments, `SELECT comment FROM comments WHERE hash_id = ?`},
	}
	for _, s := range stmts {
		stmt, err := d.conn.Prepare(s.query)
		if err != nil {
			return &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "preparing statement", Err: err}
		}
		*s.dst = stmt
	}
	return nil
}

func (d *Db) DisplayName() string { return d.displayName }

func (d *Db) HasIndex(kind hashdb.HashKind) bool { return false }

func (d *Db) MakeIndex(kind hashdb.HashKind) (*hashdb.IndexBuildReport, error) {
	return nil, &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: "make_index", Msg: "sqlite-backed databases look up directly, they do not use a binary-search index"}
}

func hexToBlob(hash string) ([]byte, error) {
	b, err := hex.DecodeString(hash)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func blobToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

func (d *Db) Lookup(hash string, mode hashdb.LookupMode, cb hashdb.LookupCallback) (bool, error) {
	info, found, err := d.LookupVerbose(hash)
	if err != nil || !found {
		return found, err
	}
	if mode == hashdb.Quick || cb == nil {
		return true, nil
	}
	for _, name := range info.Names {
		switch cb(strings.ToUpper(hash), name) {
		case hashdb.Stop:
			return true, nil
		case hashdb.CallbackError:
			return true, &hashdb.Error{Kind: hashdb.ErrInvalidArgument, Op: "lookup", Msg: "callback aborted lookup"}
		}
	}
	return true, nil
}

func (d *Db) LookupVerbose(hash string) (*hashdb.HashInfo, bool, error) {
	const op = "lookup_verbose"
	kind := hashdb.DetectHashKind(hash)
	if kind == hashdb.HashKindInvalid {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrInvalidHash, Op: op, Msg: "unrecognized hash length"}
	}
	if kind != hashdb.HashKindMD5 {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrUnsupportedOperation, Op: op, Msg: "sqlite lookups are keyed by md5"}
	}
	md5Upper, err := hashdb.ValidateHash(op, hash, hashdb.HashKindMD5)
	if err != nil {
		return nil, false, err
	}
	blob, err := hexToBlob(md5Upper)
	if err != nil {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrInvalidHash, Op: op, Msg: "decoding md5 hex", Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var id int64
	var sha1Blob, sha256Blob []byte
	err = retryableQueryRowScan(d.stmtSelectByMD5, []interface{}{blob}, &id, &sha1Blob, &sha256Blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "selecting hash row", Err: err}
	}

	names, err := d.collect(d.stmtSelectNames, id)
	if err != nil {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "selecting associated names", Err: err}
	}
	comments, err := d.collect(d.stmtSelectComments, id)
	if err != nil {
		return nil, false, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "selecting associated comments", Err: err}
	}

	return &hashdb.HashInfo{
		ID:       id,
		MD5:      md5Upper,
		SHA1:     blobToHex(sha1Blob),
		SHA256:   blobToHex(sha256Blob),
		Names:    names,
		Comments: comments,
	}, true, nil
}

func (d *Db) collect(stmt *sql.Stmt, id int64) ([]string, error) {
	rows, err := retryableQuery(stmt, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (d *Db) AcceptsUpdates() bool { return true }

// AddEntry implements the insert-or-reuse flow of spec §4.4: find or
// create the hashes row for md5, then insert-or-ignore the optional
// filename and comment associations.
func (d *Db) AddEntry(filename, md5 string, sha1, sha256, comment *string) error {
	const op = "add_entry"

	md5Upper, err := hashdb.ValidateHash(op, md5, hashdb.HashKindMD5)
	if err != nil {
		return err
	}
	md5Blob, err := hexToBlob(md5Upper)
	if err != nil {
		return &hashdb.Error{Kind: hashdb.ErrInvalidHash, Op: op, Msg: "decoding md5 hex", Err: err}
	}

	var sha1Blob, sha256Blob []byte
	if sha1 != nil {
		v, err := hashdb.ValidateHash(op, *sha1, hashdb.HashKindSHA1)
		if err != nil {
			return err
		}
		sha1Blob, _ = hexToBlob(v)
	}
	if sha256 != nil {
		v, err := hashdb.ValidateHash(op, *sha256, hashdb.HashKindSHA256)
		if err != nil {
			return err
		}
		sha256Blob, _ = hexToBlob(v)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var id int64
	var existingSHA1, existingSHA256 []byte
	err = retryableQueryRowScan(d.stmtSelectByMD5, []interface{}{md5Blob}, &id, &existingSHA1, &existingSHA256)
	switch {
	case err == sql.ErrNoRows:
		res, execErr := retryableExec(d.stmtInsertHash, md5Blob)
		if execErr != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "inserting hash row", Err: execErr}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "reading inserted row id", Err: err}
		}
	case err != nil:
		return &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "selecting hash row", Err: err}
	}

	if len(existingSHA1) == 0 && len(sha1Blob) > 0 {
		if _, err := d.conn.Exec(`UPDATE hashes SET sha1 = ? WHERE id = ?`, sha1Blob, id); err != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "updating sha1", Err: err}
		}
	}
	if len(existingSHA256) == 0 && len(sha256Blob) > 0 {
		if _, err := d.conn.Exec(`UPDATE hashes SET sha2_256 = ? WHERE id = ?`, sha256Blob, id); err != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "updating sha256", Err: err}
		}
	}

	if filename != "" {
		if _, err := retryableExec(d.stmtInsertName, filename, id); err != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "inserting file name association", Err: err}
		}
	}
	if comment != nil && *comment != "" {
		if _, err := retryableExec(d.stmtInsertComment, *comment, id); err != nil {
			return &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "inserting comment association", Err: err}
		}
	}
	return nil
}

func (d *Db) BeginTransaction() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.conn.Exec("BEGIN"); err != nil {
		return &hashdb.Error{Kind: hashdb.ErrIoError, Op: "begin_transaction", Msg: "starting transaction", Err: err}
	}
	d.txInProgress = true
	return nil
}

func (d *Db) CommitTransaction() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.conn.Exec("COMMIT"); err != nil {
		return &hashdb.Error{Kind: hashdb.ErrIoError, Op: "commit_transaction", Msg: "committing transaction", Err: err}
	}
	d.txInProgress = false
	return nil
}

func (d *Db) RollbackTransaction() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.conn.Exec("ROLLBACK"); err != nil {
		return &hashdb.Error{Kind: hashdb.ErrIoError, Op: "rollback_transaction", Msg: "rolling back transaction", Err: err}
	}
	d.txInProgress = false
	return nil
}

func (d *Db) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, stmt := range []*sql.Stmt{d.stmtInsertHash, d.stmtInsertName, d.stmtInsertComment, d.stmtSelectByMD5, d.stmtSelectNames, d.stmtSelectComments} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.conn.Close()
}
