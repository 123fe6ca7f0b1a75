package sqlitedb

import (
	"path/filepath"
	"testing"

	"github.com/go-while/go-hashdb/internal/hashdb"
)

func TestCreateAddEntryAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer db.Close()

	md5 := "d41d8cd98f00b204e9800998ecf8427e"
	sha1 := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	comment := "empty file"
	if err := db.AddEntry("empty.txt", md5, &sha1, nil, &comment); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	// A second filename for the same md5 should be associated with the
	// same hash row, not create a duplicate.
	if err := db.AddEntry("empty-copy.txt", md5, nil, nil, nil); err != nil {
		t.Fatalf("AddEntry (second name): %v", err)
	}

	info, found, err := db.LookupVerbose(md5)
	if err != nil {
		t.Fatalf("LookupVerbose: %v", err)
	}
	if !found {
		t.Fatalf("LookupVerbose: expected entry to be found")
	}
	if info.SHA1 != "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709" {
		t.Errorf("unexpected sha1: %s", info.SHA1)
	}
	if len(info.Names) != 2 {
		t.Fatalf("expected 2 associated names, got %d: %v", len(info.Names), info.Names)
	}
	if len(info.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(info.Comments))
	}

	found, err = db.Lookup("ffffffffffffffffffffffffffffffff", hashdb.Quick, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Fatalf("Lookup: unexpected match for an md5 never added")
	}
}

func TestAddEntryPreservesFirstWriteSHA1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer db.Close()

	md5 := "d41d8cd98f00b204e9800998ecf8427e"
	firstSHA1 := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	secondSHA1 := "000000000000000000000000000000000000000a"

	if err := db.AddEntry("a.txt", md5, &firstSHA1, nil, nil); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := db.AddEntry("b.txt", md5, &secondSHA1, nil, nil); err != nil {
		t.Fatalf("AddEntry (second sha1): %v", err)
	}

	info, found, err := db.LookupVerbose(md5)
	if err != nil || !found {
		t.Fatalf("LookupVerbose: found=%v err=%v", found, err)
	}
	if info.SHA1 != "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709" {
		t.Fatalf("expected first-write sha1 to be preserved, got %s", info.SHA1)
	}
}

func TestTransactionRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer db.Close()

	if err := db.BeginTransaction(); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	md5 := "d41d8cd98f00b204e9800998ecf8427e"
	if err := db.AddEntry("rolled-back.txt", md5, nil, nil, nil); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := db.RollbackTransaction(); err != nil {
		t.Fatalf("RollbackTransaction: %v", err)
	}

	_, found, err := db.LookupVerbose(md5)
	if err != nil {
		t.Fatalf("LookupVerbose: %v", err)
	}
	if found {
		t.Fatalf("LookupVerbose: expected rolled-back entry to be absent")
	}
}

func TestCreateRejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	db.Close()

	if _, err := Create(path); err == nil {
		t.Fatalf("Create: expected error when file already exists")
	}
}
