package binsearch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// IndexHeader is the pair of marker lines stored at the start of every
// sorted index file: the source format tag and the source's display name.
type IndexHeader struct {
	SourceTag   string
	DisplayName string
}

// readIndexHeaders parses the two fixed-marker header lines from the start
// of a sorted index file and returns the byte offset at which the
// fixed-width hash records begin. Because the header lines were sorted
// alongside the data (format.go), the type marker always precedes the name
// marker on disk regardless of the order they were written in.
func readIndexHeaders(f *os.File) (IndexHeader, int64, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return IndexHeader{}, 0, err
	}
	r := bufio.NewReader(f)

	typeLine, n1, err := readCountedLine(r)
	if err != nil {
		return IndexHeader{}, 0, fmt.Errorf("binsearch: reading type header: %w", err)
	}
	nameLine, n2, err := readCountedLine(r)
	if err != nil {
		return IndexHeader{}, 0, fmt.Errorf("binsearch: reading name header: %w", err)
	}

	tag, ok := strings.CutPrefix(typeLine, idxHeadTypeMarker+"|")
	if !ok {
		return IndexHeader{}, 0, fmt.Errorf("binsearch: malformed type header line")
	}
	name, ok := strings.CutPrefix(nameLine, idxHeadNameMarker+"|")
	if !ok {
		return IndexHeader{}, 0, fmt.Errorf("binsearch: malformed name header line")
	}

	return IndexHeader{SourceTag: tag, DisplayName: name}, n1 + n2, nil
}

// readCountedLine reads one newline-terminated line and reports how many
// bytes (including the terminator) it consumed, so callers can compute the
// exact byte offset at which the next line begins.
func readCountedLine(r *bufio.Reader) (string, int64, error) {
	raw, err := r.ReadString('\n')
	if err != nil {
		return "", 0, err
	}
	line := raw
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, int64(len(raw)), nil
}
