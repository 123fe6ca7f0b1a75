package binsearch

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

// BuildIndex builds a sorted external index (and its index-of-index) for
// kind from the source database at sourcePath, following spec §4.3.1.
// sortMemBudget bounds the external merge sort's in-memory chunk size;
// zero selects DefaultSortMemoryBudget.
func BuildIndex(sourcePath string, dbType formats.DBType, kind hashdb.HashKind, displayName string, sortMemBudget int64) (*hashdb.IndexBuildReport, error) {
	const op = "make_index"

	if kind != hashdb.HashKindMD5 && kind != hashdb.HashKindSHA1 {
		return nil, &hashdb.Error{Kind: hashdb.ErrInvalidArgument, Op: op, Msg: "binary-search indexes only support md5 or sha1"}
	}

	parser, err := formats.OpenSource(sourcePath, dbType)
	if err != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "opening source database", Err: err}
	}
	defer parser.Close()

	unsPath := unsortedIndexPath(sourcePath, kind)
	unsorted, err := os.Create(unsPath)
	if err != nil {
		return nil, &hashdb.Error{Kind: hashdb.ErrCreateFailed, Op: op, Msg: "creating temp index file", Err: err}
	}
	w := bufio.NewWriter(unsorted)

	if _, err := w.WriteString(idxHeadNameMarker + "|" + displayName + "\n"); err != nil {
		unsorted.Close()
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "writing index header", Err: err}
	}
	if _, err := w.WriteString(idxHeadTypeMarker + "|" + dbType.Tag() + "\n"); err != nil {
		unsorted.Close()
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "writing index header", Err: err}
	}

	report := &hashdb.IndexBuildReport{}
	lastHash := ""
	for {
		rec, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			unsorted.Close()
			os.Remove(unsPath)
			return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "reading source database", Err: err}
		}
		report.EntriesRead++

		hash := rec.Hash
		if kind == hashdb.HashKindMD5 && len(hash) != hashdb.MD5Len {
			continue
		}
		if kind == hashdb.HashKindSHA1 && len(hash) != hashdb.SHA1Len {
			continue
		}

		// Consecutive-duplicate suppression: only a hash identical to the
		// immediately preceding emitted hash is skipped (spec §4.3.1 step
		// 3); duplicates separated by distinct hashes are preserved.
		if hash == lastHash {
			report.DuplicatesSkipped++
			continue
		}
		lastHash = hash

		if _, err := w.WriteString(formatHashLine(hash, rec.Offset) + "\n"); err != nil {
			unsorted.Close()
			os.Remove(unsPath)
			return nil, &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "writing index entry", Err: err}
		}
		report.EntriesIndexed++
	}
	report.InvalidLines = parser.Invalid()

	if err := w.Flush(); err != nil {
		unsorted.Close()
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "flushing temp index file", Err: err}
	}
	if err := unsorted.Close(); err != nil {
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrWriteFailed, Op: op, Msg: "closing temp index file", Err: err}
	}

	if report.EntriesIndexed == 0 {
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrCorrupt, Op: op, Msg: "no valid entries", Err: errors.New("empty or wholly-invalid source")}
	}

	idxPath := IndexPath(sourcePath, kind)
	if err := externalSortLines(unsPath, idxPath, sortMemBudget); err != nil {
		os.Remove(unsPath)
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "sorting index", Err: err}
	}
	os.Remove(unsPath)

	if err := buildIndexOfIndex(sourcePath, kind); err != nil {
		// A missing/failed .idx2 degrades lookups to a full-range binary
		// search but is not fatal to the build itself (spec §4.3.1 step
		// 6, §7: "missing .idx2 file" is one of the few silently-tolerated
		// conditions) - record it on the report instead of failing.
		report.IndexOfIndexError = err.Error()
		return report, nil
	}
	report.IndexOfIndexBuilt = true

	return report, nil
}
