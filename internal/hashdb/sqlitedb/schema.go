package sqlitedb

const schemaVersion = "1"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS db_properties (name TEXT, value TEXT)`,
	`CREATE TABLE IF NOT EXISTS hashes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		md5 BLOB UNIQUE,
		sha1 BLOB,
		sha2_256 BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS file_names (
		name TEXT NOT NULL,
		hash_id INTEGER NOT NULL,
		PRIMARY KEY(name, hash_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		comment TEXT NOT NULL,
		hash_id INTEGER NOT NULL,
		PRIMARY KEY(comment, hash_id)
	)`,
	`CREATE INDEX IF NOT EXISTS md5_index ON hashes(md5)`,
}

// pragmas trade durability for throughput: a hash database is a
// rebuildable forensic artifact, not a system of record (spec §4.4).
//
// SQLITE_FCNTL_CHUNK_SIZE is not applied: database/sql's driver
// interface (and go-sqlite3's exported surface) has no portable path to
// sqlite3_file_control, so that one knob from the original connection
// setup has no equivalent here.
var pragmas = []string{
	"PRAGMA synchronous = OFF",
	"PRAGMA encoding = \"UTF-8\"",
	"PRAGMA read_uncommitted = True",
	"PRAGMA page_size = 4096",
	"PRAGMA busy_timeout = 30000",
}
