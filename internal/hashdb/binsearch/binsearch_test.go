package binsearch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-while/go-hashdb/internal/hashdb"
	"github.com/go-while/go-hashdb/internal/hashdb/formats"
)

// md5sumFixture writes a plain md5sum-format source file with one
// source-order-consecutive duplicate (hash A: suppressed from the index
// at build time, but recoverable by scanning forward through the source
// file from the index's single entry) and one duplicate separated by a
// distinct hash (hash B: gets its own index entry, recovered via
// AllOffsets).
func md5sumFixture(t *testing.T) string {
	t.Helper()
	const (
		hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 32 chars
		hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" // 32 chars
		hashC = "cccccccccccccccccccccccccccccccc" // 32 chars
	)
	content := hashA + "  file-a1.bin\n" +
		hashA + "  file-a1-dup.bin\n" + // consecutive duplicate, suppressed from the index
		hashB + "  file-b.bin\n" +
		hashC + "  file-c1.bin\n" +
		hashB + "  file-b-again.bin\n" + // non-consecutive duplicate, indexed separately
		hashC + "  file-c2.bin\n"
	path := filepath.Join(t.TempDir(), "sums.md5")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildAndLookup(t *testing.T) {
	sourcePath := md5sumFixture(t)

	report, err := BuildIndex(sourcePath, formats.DBTypeMD5Sum, hashdb.HashKindMD5, "test-set", 0)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if report.EntriesRead != 6 {
		t.Errorf("EntriesRead = %d, want 6", report.EntriesRead)
	}
	if report.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", report.DuplicatesSkipped)
	}
	if report.EntriesIndexed != 5 {
		t.Errorf("EntriesIndexed = %d, want 5", report.EntriesIndexed)
	}

	r, err := OpenReader(sourcePath, hashdb.HashKindMD5, formats.DBTypeMD5Sum)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	hashB := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	_, recIdx, found, err := r.Find(hashB)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !found {
		t.Fatalf("Find: expected hash B to be present")
	}
	offsets, err := r.AllOffsets(hashB, recIdx)
	if err != nil {
		t.Fatalf("AllOffsets: %v", err)
	}
	if len(offsets) != 2 {
		t.Fatalf("AllOffsets: expected 2 offsets for duplicated hash B, got %d", len(offsets))
	}

	hashZ := "ZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ"
	_, _, found, err = r.Find(hashZ[:32])
	if err == nil && found {
		t.Fatalf("Find: unexpected match for a hash never indexed")
	}
}

func TestOpenReaderRejectsSourceTypeMismatch(t *testing.T) {
	sourcePath := md5sumFixture(t)
	if _, err := BuildIndex(sourcePath, formats.DBTypeMD5Sum, hashdb.HashKindMD5, "test-set", 0); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	if _, err := OpenReader(sourcePath, hashdb.HashKindMD5, formats.DBTypeHashKeeper); err == nil {
		t.Fatalf("OpenReader: expected ErrCorrupt on a source-type mismatch")
	} else if hashdb.KindOf(err) != hashdb.ErrCorrupt {
		t.Fatalf("OpenReader: expected ErrCorrupt, got %v", hashdb.KindOf(err))
	}

	if _, err := OpenReader(sourcePath, hashdb.HashKindMD5, formats.DBTypeInvalid); err != nil {
		t.Fatalf("OpenReader: DBTypeInvalid should skip the cross-check, got %v", err)
	}
}

func TestDbLookupVerboseRecoversNames(t *testing.T) {
	sourcePath := md5sumFixture(t)
	if _, err := BuildIndex(sourcePath, formats.DBTypeMD5Sum, hashdb.HashKindMD5, "test-set", 0); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	db, err := Open(sourcePath, formats.DBTypeMD5Sum)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// Hash B: two source records separated by a distinct hash, each with
	// its own index entry, recovered via AllOffsets.
	info, found, err := db.LookupVerbose("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	if err != nil {
		t.Fatalf("LookupVerbose: %v", err)
	}
	if !found {
		t.Fatalf("LookupVerbose: expected hash B to be found")
	}
	if len(info.Names) != 2 {
		t.Fatalf("expected 2 names recovered for duplicated hash B, got %d: %v", len(info.Names), info.Names)
	}

	// Hash A: two back-to-back source records, the second silently
	// suppressed from the index at build time. Both names must still
	// surface via the forward scan from the one entry the index has.
	info, found, err = db.LookupVerbose("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("LookupVerbose: %v", err)
	}
	if !found {
		t.Fatalf("LookupVerbose: expected hash A to be found")
	}
	if len(info.Names) != 2 {
		t.Fatalf("expected 2 names recovered for consecutive duplicate hash A, got %d: %v", len(info.Names), info.Names)
	}
	if info.Names[0] != "file-a1.bin" || info.Names[1] != "file-a1-dup.bin" {
		t.Fatalf("unexpected names for hash A: %v", info.Names)
	}

	found, err = db.Lookup("ffffffffffffffffffffffffffffffff", hashdb.Quick, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Fatalf("Lookup: unexpected match for a hash never indexed")
	}
}

func TestDbReadOnlyOperationsRejected(t *testing.T) {
	sourcePath := md5sumFixture(t)
	if _, err := BuildIndex(sourcePath, formats.DBTypeMD5Sum, hashdb.HashKindMD5, "test-set", 0); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	db, err := Open(sourcePath, formats.DBTypeMD5Sum)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if db.AcceptsUpdates() {
		t.Fatalf("AcceptsUpdates: expected false for a binary-search backed database")
	}
	if err := db.AddEntry("new.bin", "d41d8cd98f00b204e9800998ecf8427e", nil, nil, nil); err == nil {
		t.Fatalf("AddEntry: expected ErrUnsupportedOperation")
	}
	if err := db.BeginTransaction(); err == nil {
		t.Fatalf("BeginTransaction: expected ErrUnsupportedOperation")
	}
}
