package binsearch

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

// Reader performs binary-search lookups against a sorted external index,
// optionally accelerated by a loaded index-of-index table (spec §4.3.2,
// §4.3.3). A nil idx2 table degrades gracefully to a full-range search.
type Reader struct {
	idxFile    *os.File
	dataStart  int64
	recLen     int64
	numRecords int64
	kind       hashdb.HashKind
	header     IndexHeader
	idx2       []uint64
}

// OpenReader opens the sorted index derived from sourcePath for kind and
// loads its index-of-index table if present. When expected is not
// DBTypeInvalid, the index header's declared source-type tag must match
// expected.Tag() or Open fails with ErrCorrupt (spec's "Index validity
// cross-check on open", grounded in binsrch_index.cpp's
// hdb_binsrch_open_idx type-checking path); callers with no source
// database to compare against (index-only mode) pass DBTypeInvalid to
// skip the check.
func OpenReader(sourcePath string, kind hashdb.HashKind, expected formats.DBType) (*Reader, error) {
	const op = "open_index"
	idxPath := IndexPath(sourcePath, kind)
	f, err := os.Open(idxPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &hashdb.Error{Kind: hashdb.ErrMissingFile, Op: op, Msg: "index file not found", Err: err}
		}
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "opening index file", Err: err}
	}

	hdr, dataStart, err := readIndexHeaders(f)
	if err != nil {
		f.Close()
		return nil, &hashdb.Error{Kind: hashdb.ErrCorrupt, Op: op, Msg: "malformed index header", Err: err}
	}
	if expected != formats.DBTypeInvalid && hdr.SourceTag != expected.Tag() {
		f.Close()
		return nil, &hashdb.Error{Kind: hashdb.ErrCorrupt, Op: op, Msg: fmt.Sprintf("index declares source type %q, expected %q", hdr.SourceTag, expected.Tag())}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &hashdb.Error{Kind: hashdb.ErrIoError, Op: op, Msg: "statting index file", Err: err}
	}

	rl := recordLen(kind)
	n := (info.Size() - dataStart) / rl

	// A missing or unreadable .idx2 is the one documented soft-degrade
	// condition (spec §7): fall back to a full-range binary search rather
	// than failing the open.
	idx2, _ := LoadIndexOfIndex(IndexOfIndexPath(sourcePath, kind))

	return &Reader{
		idxFile:    f,
		dataStart:  dataStart,
		recLen:     rl,
		numRecords: n,
		kind:       kind,
		header:     hdr,
		idx2:       idx2,
	}, nil
}

func (r *Reader) Close() error    { return r.idxFile.Close() }
func (r *Reader) Header() IndexHeader { return r.header }

func (r *Reader) recordAt(i int64) (hash string, offset int64, err error) {
	buf := make([]byte, r.recLen)
	if _, err := r.idxFile.ReadAt(buf, r.dataStart+i*r.recLen); err != nil {
		return "", 0, err
	}
	hashLen := r.kind.Len()
	if buf[hashLen] != '|' {
		return "", 0, fmt.Errorf("binsearch: malformed record at index %d", i)
	}
	offStr := string(buf[hashLen+1 : hashLen+1+offsetFieldWidth])
	off, err := strconv.ParseInt(offStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("binsearch: malformed offset at index %d: %w", i, err)
	}
	return string(buf[:hashLen]), off, nil
}

// bucketRange narrows the binary search span using the index-of-index
// table, if loaded. empty reports that the bucket is known to hold no
// records, letting the caller skip the search entirely.
func (r *Reader) bucketRange(hash string) (lo, hi int64, empty bool) {
	if r.idx2 == nil || r.numRecords == 0 {
		return 0, r.numRecords - 1, false
	}
	b, ok := bucketOf(hash)
	if !ok {
		return 0, r.numRecords - 1, false
	}
	start := r.idx2[b]
	if start == NotSet {
		return 0, 0, true
	}
	lo = (int64(start) - r.dataStart) / r.recLen
	hi = r.numRecords - 1
	for nb := b + 1; nb < idx2Buckets; nb++ {
		if r.idx2[nb] != NotSet {
			hi = (int64(r.idx2[nb])-r.dataStart)/r.recLen - 1
			break
		}
	}
	return lo, hi, false
}

// Find performs the binary search proper, returning the source offset and
// index-file record index of one matching record.
func (r *Reader) Find(hash string) (offset int64, recIdx int64, found bool, err error) {
	lo, hi, empty := r.bucketRange(hash)
	if empty {
		return 0, -1, false, nil
	}
	for lo <= hi {
		mid := lo + (hi-lo)/2
		h, off, rerr := r.recordAt(mid)
		if rerr != nil {
			return 0, -1, false, rerr
		}
		switch {
		case h == hash:
			return off, mid, true, nil
		case h < hash:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, -1, false, nil
}

// AllOffsets walks outward from a known matching record index, collecting
// the source offsets of every contiguous record carrying the same hash
// (duplicate entries surviving the build's consecutive-only suppression
// land adjacent to each other once sorted).
func (r *Reader) AllOffsets(hash string, matchIdx int64) ([]int64, error) {
	var offsets []int64
	for i := matchIdx; i >= 0; i-- {
		h, off, err := r.recordAt(i)
		if err != nil {
			return nil, err
		}
		if h != hash {
			break
		}
		offsets = append(offsets, off)
	}
	for j := matchIdx + 1; j < r.numRecords; j++ {
		h, off, err := r.recordAt(j)
		if err != nil {
			return nil, err
		}
		if h != hash {
			break
		}
		offsets = append(offsets, off)
	}
	return offsets, nil
}
