// Package hashdb implements a polymorphic hash-database engine: given an
// MD5 or SHA-1 hex digest it answers whether the hash is known and which
// filenames and comments are associated with it. The SQLite-backed set
// stores a SHA-256 alongside an entry's MD5 but is looked up by MD5 only;
// no variant accepts a SHA-256 lookup. Source hash
// sets are consumed in their native NSRL, md5sum, HashKeeper, and EnCase
// text/binary formats, or stored mutably in a SQLite-backed set.
package hashdb

import "strings"

// HashKind identifies which digest algorithm a lookup or index refers to.
type HashKind int

const (
	HashKindInvalid HashKind = iota
	HashKindMD5
	HashKindSHA1
	HashKindSHA256
)

const (
	MD5Len    = 32
	SHA1Len   = 40
	SHA256Len = 64
)

func (k HashKind) Len() int {
	switch k {
	case HashKindMD5:
		return MD5Len
	case HashKindSHA1:
		return SHA1Len
	case HashKindSHA256:
		return SHA256Len
	default:
		return 0
	}
}

func (k HashKind) String() string {
	switch k {
	case HashKindMD5:
		return "md5"
	case HashKindSHA1:
		return "sha1"
	case HashKindSHA256:
		return "sha256"
	default:
		return "invalid"
	}
}

// HashKindByLen maps a hex string length to the hash kind it must be, or
// HashKindInvalid if no kind has that length.
func HashKindByLen(n int) HashKind {
	switch n {
	case MD5Len:
		return HashKindMD5
	case SHA1Len:
		return HashKindSHA1
	case SHA256Len:
		return HashKindSHA256
	default:
		return HashKindInvalid
	}
}

// LookupMode selects whether a lookup needs only presence (Quick, never
// touches the source database file) or also wants every associated name
// (Full, which for binsearch-backed variants seeks into the source file).
type LookupMode int

const (
	Quick LookupMode = iota
	Full
)

// CallbackResult is returned by a Lookup callback to control iteration
// over multiple names/comments associated with one hash.
type CallbackResult int

const (
	Continue CallbackResult = iota
	Stop
	CallbackError
)

// LookupCallback is invoked once per associated name found during a Full
// lookup. Returning Stop ends iteration early without error; returning
// CallbackError aborts the lookup and surfaces as an error to the caller.
type LookupCallback func(hash string, name string) CallbackResult

// HashInfo is the result of a verbose lookup: presence plus every digest,
// name, and comment on record for the matched entry.
type HashInfo struct {
	ID       int64 // SQLite row id; zero for binsearch-backed variants
	MD5      string
	SHA1     string
	SHA256   string
	Names    []string
	Comments []string
}

// NameMax bounds the length of a derived display name (spec §4.5).
const NameMax = 512

// IsHex reports whether s consists entirely of hexadecimal digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// ValidateHash checks hash length and hex-ness against kind and returns the
// upper-cased form ready for index comparison, or an *Error of kind
// ErrInvalidHash.
func ValidateHash(op string, hash string, kind HashKind) (string, error) {
	if len(hash) != kind.Len() {
		return "", newErr(op, ErrInvalidHash, "hash length does not match hash type", nil)
	}
	if !IsHex(hash) {
		return "", newErr(op, ErrInvalidHash, "hash contains non-hex characters", nil)
	}
	return strings.ToUpper(hash), nil
}

// DetectHashKind infers the kind from hex length alone, used when a caller
// passes a bare hash without specifying which algorithm it is.
func DetectHashKind(hash string) HashKind {
	return HashKindByLen(len(hash))
}
