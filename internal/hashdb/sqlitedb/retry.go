package sqlitedb

import (
	"database/sql"
	"log"
	"math/rand"
	"strings"
	"time"
)

const (
	maxRetries = 1000
	baseDelay  = 10 * time.Millisecond
	maxDelay   = 25 * time.Millisecond
)

// isRetryableError reports whether err looks like a SQLite lock conflict
// rather than a genuine failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "busy") ||
		strings.Contains(errStr, "locked")
}

func backoff(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// retryableExec runs stmt.Exec with backoff retry on lock-conflict errors.
func retryableExec(stmt *sql.Stmt, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = stmt.Exec(args...)
		if !isRetryableError(err) {
			return result, err
		}
		if attempt < maxRetries-1 {
			time.Sleep(backoff(attempt))
			log.Printf("[WARN] sqlitedb: retry attempt %d/%d for exec: %v", attempt+1, maxRetries, err)
		}
	}
	return result, err
}

// retryableQueryRowScan runs stmt.QueryRow(...).Scan(dest...) with backoff
// retry on lock-conflict errors.
func retryableQueryRowScan(stmt *sql.Stmt, args []interface{}, dest ...interface{}) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = stmt.QueryRow(args...).Scan(dest...)
		if !isRetryableError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			time.Sleep(backoff(attempt))
			log.Printf("[WARN] sqlitedb: retry attempt %d/%d for query row: %v", attempt+1, maxRetries, err)
		}
	}
	return err
}

// retryableQuery runs stmt.Query with backoff retry on lock-conflict errors.
func retryableQuery(stmt *sql.Stmt, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		rows, err = stmt.Query(args...)
		if !isRetryableError(err) {
			return rows, err
		}
		if attempt < maxRetries-1 {
			time.Sleep(backoff(attempt))
			log.Printf("[WARN] sqlitedb: retry attempt %d/%d for query: %v", attempt+1, maxRetries, err)
		}
	}
	return rows, err
}
