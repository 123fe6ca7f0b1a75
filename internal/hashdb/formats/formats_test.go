package formats

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestDetectNSRL(t *testing.T) {
	content := "\"SHA-1\",\"FileName\",\"FileSize\",\"ProductCode\",\"OpSystemCode\",\"MD4\",\"MD5\",\"CRC32\",\"SpecialCode\"\n" +
		"\"DA39A3EE5E6B4B0D3255BFEF95601890AFD80709\",\"empty.txt\",\"0\",\"1\",\"1\",\"\",\"D41D8CD98F00B204E9800998ECF8427E\",\"00000000\",\"\"\n"
	path := writeTemp(t, "nsrl.txt", content)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dbType, err := Detect(f)
	if err != nil {
		t.Fatal(err)
	}
	if dbType != DBTypeNSRL {
		t.Fatalf("expected DBTypeNSRL, got %v", dbType)
	}

	p, err := OpenNSRL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	rec, err := p.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709" {
		t.Errorf("unexpected hash: %s", rec.Hash)
	}
	if rec.Name != "empty.txt" {
		t.Errorf("unexpected name: %s", rec.Name)
	}
	if _, err := p.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestDetectMD5Sum(t *testing.T) {
	content := "d41d8cd98f00b204e9800998ecf8427e  empty.txt\n" +
		"5d41402abc4b2a76b9719d911017c592 *hello.txt\n" +
		"not a valid line\n" +
		"MD5 (another.bin) = 098f6bcd4621d373cade4e832627b4f6\n"
	path := writeTemp(t, "md5sums.txt", content)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dbType, err := Detect(f)
	if err != nil {
		t.Fatal(err)
	}
	if dbType != DBTypeMD5Sum {
		t.Fatalf("expected DBTypeMD5Sum, got %v", dbType)
	}

	p, err := OpenMD5Sum(path)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var records []Record
	for {
		rec, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, rec)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 valid records, got %d (invalid=%d)", len(records), p.Invalid())
	}
	if p.Invalid() != 1 {
		t.Fatalf("expected 1 invalid line, got %d", p.Invalid())
	}
	if records[1].Name != "hello.txt" {
		t.Errorf("expected binary-mode star stripped from name, got %q", records[1].Name)
	}
	if records[2].Hash != "098F6BCD4621D373CADE4E832627B4F6" {
		t.Errorf("unexpected hash for BSD-style line: %s", records[2].Hash)
	}
}

func TestDetectHashKeeper(t *testing.T) {
	content := "\"file_id\",\"hashset_id\",\"file_name\",\"directory\",\"hash\",\"file_size\",\"date_modified\"\n" +
		"\"1\",\"1\",\"notes.txt\",\"C:\\Users\\alice\",\"D41D8CD98F00B204E9800998ECF8427E\",\"0\",\"\"\n"
	path := writeTemp(t, "hk.csv", content)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dbType, err := Detect(f)
	if err != nil {
		t.Fatal(err)
	}
	if dbType != DBTypeHashKeeper {
		t.Fatalf("expected DBTypeHashKeeper, got %v", dbType)
	}

	p, err := OpenHashKeeper(path)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	rec, err := p.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "C:\\Users\\alice\\notes.txt" {
		t.Errorf("expected backslash-joined path, got %q", rec.Name)
	}
}

func TestDetectEnCase(t *testing.T) {
	buf := make([]byte, 1152+18)
	copy(buf[0:], []byte{'H', 'A', 'S', 'H', 0x0D, 0x0A, 0xFF, 0x00})
	copy(buf[1152:], []byte{
		0xd4, 0x1d, 0x8c, 0xd9, 0x8f, 0x00, 0xb2, 0x04,
		0xe9, 0x80, 0x09, 0x98, 0xec, 0xf8, 0x42, 0x7e,
		0x00, 0x00,
	})
	path := filepath.Join(t.TempDir(), "set.hash")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dbType, err := Detect(f)
	if err != nil {
		t.Fatal(err)
	}
	if dbType != DBTypeEnCase {
		t.Fatalf("expected DBTypeEnCase, got %v", dbType)
	}

	p, err := OpenEnCase(path)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	rec, err := p.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != "D41D8CD98F00B204E9800998ECF8427E" {
		t.Errorf("unexpected hash: %s", rec.Hash)
	}
	if _, err := p.Next(); err != io.EOF {
		t.Fatalf("expected EOF after single record, got %v", err)
	}
}
