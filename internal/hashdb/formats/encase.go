package formats

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	encaseMagicLen    = 8
	encaseNameOffset  = 1032
	encaseNameMaxWide = 39
	encaseRecordStart = 1152
	encaseRecordLen   = 18
	encaseMD5Len      = 16
)

var encaseMagic = []byte{'H', 'A', 'S', 'H', 0x0D, 0x0A, 0xFF, 0x00}

// EnCaseTest checks for the 8-byte magic at the start of the file (spec
// §4.2, §6).
func EnCaseTest(head []byte) bool {
	if len(head) < encaseMagicLen {
		return false
	}
	return bytes.Equal(head[:encaseMagicLen], encaseMagic)
}

// EnCaseParser iterates the fixed-width 18-byte MD5 record stream of an
// EnCase hash set.
type EnCaseParser struct {
	f       *os.File
	off     int64
	invalid int64
}

func OpenEnCase(path string) (*EnCaseParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &EnCaseParser{f: f, off: encaseRecordStart}, nil
}

func (p *EnCaseParser) Close() error   { return p.f.Close() }
func (p *EnCaseParser) Invalid() int64 { return p.invalid }

func (p *EnCaseParser) Next() (Record, error) {
	buf := make([]byte, encaseRecordLen)
	off := p.off
	n, err := p.f.ReadAt(buf, off)
	if n < encaseRecordLen {
		if err == io.EOF || err == nil {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	p.off += encaseRecordLen
	hash := hex.EncodeToString(buf[:encaseMD5Len])
	return Record{Hash: toUpperHex(hash), Offset: off}, nil
}

func toUpperHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// EntryAt always returns a single empty name: EnCase records carry no
// filename, only the raw MD5 (spec §4.2), so there is nothing for a
// forward duplicate scan to recover.
func (p *EnCaseParser) EntryAt(off int64, hash string) ([]string, error) {
	return []string{""}, nil
}

// EnCaseDatabaseName decodes the UTF-16LE display name stored at offset
// 1032 of an EnCase hash set, falling back to the empty string (callers
// fall back further to DeriveName) on any decode failure (spec §4.2,
// §6, supplemented feature 4).
func EnCaseDatabaseName(f *os.File) (string, error) {
	buf := make([]byte, encaseNameMaxWide*2)
	n, err := f.ReadAt(buf, encaseNameOffset)
	if n == 0 && err != nil {
		return "", err
	}
	buf = buf[:n]

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	utf8Bytes, _, derr := transform.Bytes(decoder, buf)
	if derr != nil {
		return "", derr
	}
	if i := bytes.IndexByte(utf8Bytes, 0); i >= 0 {
		utf8Bytes = utf8Bytes[:i]
	}
	return string(utf8Bytes), nil
}
