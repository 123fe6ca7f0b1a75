package binsearch

import (
	"encoding/binary"
	"os"

	"github.com/go-while/go-hashdb/internal/hashdb"
)

// idx2Buckets is the number of acceleration slots, one per distinct value
// of the first three hex nibbles of a hash (16^3).
const idx2Buckets = 4096

// NotSet marks an idx2 slot whose bucket holds no records.
const NotSet uint64 = ^uint64(0)

func recordLen(kind hashdb.HashKind) int64 {
	return int64(kind.Len()) + 1 + offsetFieldWidth + 1
}

// bucketOf maps a hash's leading three hex nibbles onto an idx2 slot.
func bucketOf(hash string) (int, bool) {
	if len(hash) < 3 {
		return 0, false
	}
	v := 0
	for i := 0; i < 3; i++ {
		n, ok := hexNibble(hash[i])
		if !ok {
			return 0, false
		}
		v = v<<4 | n
	}
	return v, true
}

func hexNibble(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	default:
		return 0, false
	}
}

// buildIndexOfIndex streams the already-sorted index at idxPath once and
// writes a 4096-slot table of the byte offset of the first record in each
// hash-prefix bucket, letting a lookup narrow its binary search to a single
// bucket's span instead of the whole file (spec §4.3.2).
func buildIndexOfIndex(sourcePath string, kind hashdb.HashKind) error {
	idxPath := IndexPath(sourcePath, kind)
	f, err := os.Open(idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, dataStart, err := readIndexHeaders(f)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	rl := recordLen(kind)
	numRecords := (info.Size() - dataStart) / rl

	table := make([]uint64, idx2Buckets)
	for i := range table {
		table[i] = NotSet
	}

	buf := make([]byte, 3)
	for i := int64(0); i < numRecords; i++ {
		off := dataStart + i*rl
		if _, err := f.ReadAt(buf, off); err != nil {
			return err
		}
		bucket, ok := bucketOf(string(buf))
		if !ok {
			continue
		}
		if table[bucket] == NotSet {
			table[bucket] = uint64(off)
		}
	}

	return writeIndexOfIndex(IndexOfIndexPath(sourcePath, kind), table)
}

func writeIndexOfIndex(path string, table []uint64) error {
	buf := make([]byte, idx2Buckets*8)
	for i, v := range table {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return os.WriteFile(path, buf, 0o644)
}

// LoadIndexOfIndex reads a previously built idx2 table into memory. Callers
// treat a missing file as the soft-degrade case in spec §7 and fall back to
// a full-range binary search.
func LoadIndexOfIndex(path string) ([]uint64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(buf) != idx2Buckets*8 {
		return nil, os.ErrInvalid
	}
	table := make([]uint64, idx2Buckets)
	for i := range table {
		table[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return table, nil
}
