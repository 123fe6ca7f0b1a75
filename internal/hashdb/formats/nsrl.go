package formats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// nsrlForm distinguishes the two NSRL column orderings recognized by
// inspecting the header row (spec §4.2, §6).
type nsrlForm int

const (
	nsrlFormInvalid nsrlForm = iota
	nsrlForm1                // SHA-1, FileName, FileSize, ProductCode, OpSystemCode, MD4, MD5, CRC32, SpecialCode
	nsrlForm2                // SHA-1, MD5, CRC32, FileName, FileSize, ProductCode, OpSystemCode, SpecialCode
)

// NSRLTest reports whether head begins with a quoted "SHA-1" column,
// which is the one byte-exact signature shared by both header variants.
func NSRLTest(head []byte) bool {
	const prefix = `"SHA-1"`
	if len(head) < len(prefix)+1 {
		return false
	}
	return string(head[:len(prefix)]) == prefix
}

func nsrlDetectForm(header string) nsrlForm {
	fields := splitQuotedCSV(header)
	if len(fields) < 2 {
		return nsrlFormInvalid
	}
	switch fields[1] {
	case "FileName":
		return nsrlForm1
	case "MD5":
		return nsrlForm2
	default:
		return nsrlFormInvalid
	}
}

// splitQuotedCSV splits a line of double-quoted, comma-delimited fields,
// stripping the surrounding quotes from each field. It does not handle
// escaped embedded quotes - NSRL/HashKeeper fields never carry them.
func splitQuotedCSV(line string) []string {
	var fields []string
	for len(line) > 0 {
		if line[0] != '"' {
			break
		}
		end := strings.IndexByte(line[1:], '"')
		if end < 0 {
			break
		}
		fields = append(fields, line[1:1+end])
		line = line[1+end+1:]
		if strings.HasPrefix(line, ",") {
			line = line[1:]
		} else {
			break
		}
	}
	return fields
}

// isValidNSRLLine checks that line begins with a quoted 40-hex SHA-1
// followed by `","` (the is_valid_nsrl macro in the original source).
func isValidNSRLLine(line string) bool {
	const sha1Len = 40
	if len(line) <= sha1Len+4 {
		return false
	}
	if line[0] != '"' || line[sha1Len+1] != '"' || line[sha1Len+2] != ',' || line[sha1Len+3] != '"' {
		return false
	}
	return allHex(line[1 : 1+sha1Len])
}

// NSRLParser iterates entries in an NSRL Form1 or Form2 source file.
type NSRLParser struct {
	f       *os.File
	r       *bufio.Reader
	off     int64
	invalid int64
	form    nsrlForm
}

func OpenNSRL(path string) (*NSRLParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	header, _, err := boundedLine(r)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}
	form := nsrlDetectForm(header)
	if form == nsrlFormInvalid {
		f.Close()
		return nil, fmt.Errorf("formats: unrecognized NSRL header: %q", header)
	}
	off := int64(len(header)) + 1
	return &NSRLParser{f: f, r: r, off: off, form: form}, nil
}

func (p *NSRLParser) Close() error  { return p.f.Close() }
func (p *NSRLParser) Invalid() int64 { return p.invalid }

func (p *NSRLParser) Next() (Record, error) {
	for {
		lineStart := p.off
		line, hadCR, err := boundedLine(p.r)
		consumed := int64(len(line)) + 1
		if hadCR {
			consumed++
		}
		p.off = lineStart + consumed
		if line == "" {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			continue
		}
		if !isValidNSRLLine(line) {
			p.invalid++
			if err == io.EOF {
				return Record{}, io.EOF
			}
			continue
		}
		fields := splitQuotedCSV(line)
		sha1 := strings.ToUpper(fields[0])
		var name string
		switch p.form {
		case nsrlForm1:
			if len(fields) > 1 {
				name = fields[1]
			}
		case nsrlForm2:
			if len(fields) > 3 {
				name = fields[3]
			}
		}
		return Record{Hash: sha1, Name: name, Offset: lineStart}, nil
	}
}

// EntryAt re-reads the record at off and every immediately-following
// record that still carries hash, recovering any source-order-consecutive
// duplicate the index build step suppressed (spec §4.3.1 step 3; original
// behavior per tsk3/hashdb/nsrl_index.c's forward-scanning get_entry loop).
func (p *NSRLParser) EntryAt(off int64, hash string) ([]string, error) {
	return NSRLEntryAt(p.f, off, int(p.form), hash)
}

// NSRLEntryAt re-reads the record at off, then keeps reading forward while
// the hash keeps matching, collecting every distinct name found.
func NSRLEntryAt(f *os.File, off int64, form int, hash string) ([]string, error) {
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
		if !isValidNSRLLine(line) {
			break
		}
		fields := splitQuotedCSV(line)
		if strings.ToUpper(fields[0]) != hash {
			break
		}
		var name string
		switch nsrlForm(form) {
		case nsrlForm1:
			if len(fields) > 1 {
				name = fields[1]
			}
		case nsrlForm2:
			if len(fields) > 3 {
				name = fields[3]
			}
		}
		if len(names) == 0 || name != names[len(names)-1] {
			names = append(names, name)
		}
	}
	return names, nil
}
