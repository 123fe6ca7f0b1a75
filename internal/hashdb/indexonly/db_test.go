package indexonly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/binsearch"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

func buildIndexOnlyFixture(t *testing.T) string {
	t.Helper()
	content := "d41d8cd98f00b204e9800998ecf8427e  empty.txt\n" +
		"098f6bcd4621d373cade4e832627b4f6  test.txt\n"
	path := filepath.Join(t.TempDir(), "sums.md5")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := binsearch.BuildIndex(path, formats.DBTypeMD5Sum, hashdb.HashKindMD5, "fixture", 0); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	// The index-only variant must work with the source database gone.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenRequiresAnIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nothing-here.md5")
	if _, err := Open(path); err == nil {
		t.Fatalf("Open: expected error when no index file exists")
	}
}

func TestLookupDegradesToEmptyName(t *testing.T) {
	path := buildIndexOnlyFixture(t)

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var gotName string
	var calls int
	found, err := db.Lookup("d41d8cd98f00b204e9800998ecf8427e", hashdb.Full, func(hash, name string) hashdb.CallbackResult {
		calls++
		gotName = name
		return hashdb.Continue
	})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatalf("Lookup: expected hash to be found")
	}
	if calls != 1 {
		t.Fatalf("expected callback invoked exactly once, got %d", calls)
	}
	if gotName != "" {
		t.Fatalf("expected empty name on a Full lookup with no source file, got %q", gotName)
	}

	found, err = db.Lookup("ffffffffffffffffffffffffffffffff", hashdb.Quick, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Fatalf("Lookup: unexpected match for a hash never indexed")
	}
}

func TestMakeIndexRejected(t *testing.T) {
	path := buildIndexOnlyFixture(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.MakeIndex(hashdb.HashKindMD5); err == nil {
		t.Fatalf("MakeIndex: expected ErrUnsupportedOperation")
	}
	if db.AcceptsUpdates() {
		t.Fatalf("AcceptsUpdates: expected false")
	}
}
