// Package binsearch implements the sorted external index shared by every
// text-format hash database variant (NSRL, md5sum, HashKeeper, EnCase):
// index construction via an in-process external merge sort, the 4096-slot
// index-of-index acceleration table, and binary-search lookup.
package binsearch

import (
	"strings"

	"github.com/go-while/go-hashdb/internal/hashdb"
)

// The two header lines are tagged with fixed 41-character markers so that
// after the (line-oriented) external sort is applied to the unsorted
// build file, the markers - both lexicographically smaller than any real
// hex hash prefix - sort ahead of every data record and relative to each
// other: the all-zero type marker sorts before the name marker, whose
// final digit is '1'. The reader therefore expects the type line first
// and the name line second once the index is sorted.
const (
	idxHeadTypeMarker = "00000000000000000000000000000000000000000" // 41 zeros
	idxHeadNameMarker = "00000000000000000000000000000000000000001" // 40 zeros + 1
)

const offsetFieldWidth = 16 // zero-padded decimal byte offset field width

// IndexPath returns the derived "<source>-<md5|sha1>.idx" path for kind.
func IndexPath(sourcePath string, kind hashdb.HashKind) string {
	return sourcePath + "-" + kind.String() + ".idx"
}

// IndexOfIndexPath returns the derived "<source>-<md5|sha1>.idx2" path.
func IndexOfIndexPath(sourcePath string, kind hashdb.HashKind) string {
	return sourcePath + "-" + kind.String() + ".idx2"
}

func unsortedIndexPath(sourcePath string, kind hashdb.HashKind) string {
	return sourcePath + "-" + kind.String() + "-ns.idx"
}

func formatHashLine(hash string, offset int64) string {
	var b strings.Builder
	b.WriteString(hash)
	b.WriteByte('|')
	b.WriteString(zeroPadUint64(uint64(offset), offsetFieldWidth))
	return b.String()
}

func zeroPadUint64(v uint64, width int) string {
	s := uintToString(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func uintToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
