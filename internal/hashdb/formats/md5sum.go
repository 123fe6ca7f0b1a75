package formats

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// MD5SumTest reports whether head looks like the start of an md5sum-style
// database: either the BSD "MD5 (" prefix or a plain hex digest followed
// by whitespace (spec §6).
func MD5SumTest(head []byte) bool {
	if len(head) < 5 {
		return false
	}
	if head[0] == 'M' && head[1] == 'D' && head[2] == '5' && head[3] == ' ' && head[4] == '(' {
		return true
	}
	if len(head) < 33 {
		return false
	}
	return isHexByte(head[0]) && isHexByte(head[31]) && isSpaceByte(head[32])
}

func isHexByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' }

// MD5SumParser iterates entries in an md5sum-format source file.
type MD5SumParser struct {
	f       *os.File
	r       *bufio.Reader
	off     int64
	invalid int64
}

func OpenMD5Sum(path string) (*MD5SumParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &MD5SumParser{f: f, r: bufio.NewReader(f)}, nil
}

func (p *MD5SumParser) Close() error { return p.f.Close() }
func (p *MD5SumParser) Invalid() int64 { return p.invalid }

// parseMD5SumLine extracts the hash and name from one line, supporting
// both "<md5>  [*]name" and "MD5 (name) = <md5>" shapes (spec §6).
func parseMD5SumLine(line string) (hash, name string, ok bool) {
	if len(line) >= 5 && line[0] == 'M' && line[1] == 'D' && line[2] == '5' && line[3] == ' ' && line[4] == '(' {
		end := strings.Index(line, ") = ")
		if end < 0 {
			return "", "", false
		}
		name = line[5:end]
		hash = line[end+4:]
		hash = strings.TrimSpace(hash)
		if len(hash) != 32 {
			return "", "", false
		}
		return strings.ToUpper(hash), name, true
	}

	if len(line) < 32 {
		return "", "", false
	}
	candidate := line[:32]
	if !allHex(candidate) {
		return "", "", false
	}
	if len(line) == 32 {
		return strings.ToUpper(candidate), "", true
	}
	if !isSpaceByte(line[32]) {
		return "", "", false
	}
	rest := strings.TrimLeft(line[32:], " \t")
	rest = strings.TrimPrefix(rest, "*")
	return strings.ToUpper(candidate), rest, true
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexByte(s[i]) {
			return false
		}
	}
	return true
}

func (p *MD5SumParser) Next() (Record, error) {
	for {
		lineStart := p.off
		line, hadCR, err := boundedLine(p.r)
		consumed := int64(len(line))
		if hadCR {
			consumed++
		}
		consumed++ // '\n'
		if err != nil {
			if err == io.EOF && line == "" {
				return Record{}, io.EOF
			}
			if err != io.EOF {
				return Record{}, err
			}
		}
		p.off = lineStart + consumed
		if line == "" {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			continue
		}
		hash, name, ok := parseMD5SumLine(line)
		if !ok {
			p.invalid++
			if err == io.EOF {
				return Record{}, io.EOF
			}
			continue
		}
		return Record{Hash: hash, Name: name, Offset: lineStart}, nil
	}
}

// EntryAt re-reads the record at off and every immediately-following
// record that still carries hash, recovering any source-order-consecutive
// duplicate the index build step suppressed (spec §4.3.1 step 3; original
// behavior per tsk/hashdb/md5sum.c's forward-scanning get_entry loop: "will
// be found during lookup").
func (p *MD5SumParser) EntryAt(off int64, hash string) ([]string, error) {
	return MD5SumEntryAt(p.f, off, hash)
}

// MD5SumEntryAt re-reads the record at off, then keeps reading forward
// while the hash keeps matching, collecting every distinct name found.
func MD5SumEntryAt(f *os.File, off int64, hash string) ([]string, error) {
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	var names []string
	for {
		line, _, err := boundedLine(r)
		if line == "" {
			if err == io.EOF {
				break
			}
			continue
		}
		h, name, ok := parseMD5SumLine(line)
		if !ok || h != hash {
			break
		}
		if len(names) == 0 || name != names[len(names)-1] {
			names = append(names, name)
		}
	}
	return names, nil
}
