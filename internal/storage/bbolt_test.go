package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.ledgerkey")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db, dbPath
}

func testEntry(name string) KeyEntry {
	now := time.Now().UTC().Truncate(time.Second)
	return KeyEntry{
		Name:        name,
		Size:        32,
		Fingerprint: "lk1abc",
		Iterations:  4096,
		Created:     now,
		Modified:    now,
	}
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.ledgerkey")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}
}

func TestCheckEnvelope(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	if _, err := db.GetCheck(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound before SetCheck, got %v", err)
	}

	check := []byte(`{"unprotected":{}}`)
	if err := db.SetCheck(check); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}
	got, err := db.GetCheck()
	if err != nil {
		t.Fatalf("Failed to get check: %v", err)
	}
	if string(got) != string(check) {
		t.Errorf("Check mismatch: got %s, want %s", got, check)
	}
}

func TestStoreID(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	if _, err := db.GetStoreID(); err == nil {
		t.Error("Expected error before store ID is created")
	}

	id, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Store ID length = %d, want 32", len(id))
	}

	again, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if again != id {
		t.Errorf("Store ID changed: %s != %s", again, id)
	}
}

func TestKeyOperations(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	before, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}

	entry := testEntry("ledger-signing")
	if err := db.PutKey(entry, []byte("envelope-1"), false); err != nil {
		t.Fatalf("Failed to put key: %v", err)
	}

	if err := db.PutKey(entry, []byte("envelope-2"), false); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}
	if err := db.PutKey(entry, []byte("envelope-2"), true); err != nil {
		t.Fatalf("Failed to overwrite key: %v", err)
	}

	env, err := db.GetEnvelope("ledger-signing")
	if err != nil {
		t.Fatalf("Failed to get envelope: %v", err)
	}
	if string(env) != "envelope-2" {
		t.Errorf("Envelope = %s, want envelope-2", env)
	}

	got, err := db.GetEntry("ledger-signing")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if got == nil || got.Fingerprint != entry.Fingerprint || got.Size != 32 {
		t.Errorf("Entry mismatch: %+v", got)
	}

	after, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}
	if after.Before(before) {
		t.Error("Modified time should advance")
	}

	if err := db.RemoveKey("ledger-signing"); err != nil {
		t.Fatalf("Failed to remove key: %v", err)
	}
	if err := db.RemoveKey("ledger-signing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second remove, got %v", err)
	}
	if _, err := db.GetEnvelope("ledger-signing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for removed envelope, got %v", err)
	}
	got, err = db.GetEntry("ledger-signing")
	if err != nil || got != nil {
		t.Errorf("Entry should be nil after removal, got %+v, %v", got, err)
	}
}

func TestListAndReplaceAll(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	for _, name := range []string{"b", "a", "c"} {
		if err := db.PutKey(testEntry(name), []byte("env-"+name), false); err != nil {
			t.Fatalf("Failed to put %s: %v", name, err)
		}
	}

	entries, err := db.ListEntries()
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 3 || entries[0].Name != "a" || entries[2].Name != "c" {
		t.Fatalf("Entries not sorted by name: %+v", entries)
	}

	records, err := db.ListRecords()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	for i := range records {
		if string(records[i].Envelope) != "env-"+records[i].Entry.Name {
			t.Errorf("Record %s has envelope %s", records[i].Entry.Name, records[i].Envelope)
		}
		records[i].Envelope = []byte("rewrapped-" + records[i].Entry.Name)
	}

	if err := db.ReplaceAll([]byte("new-check"), records); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}
	check, _ := db.GetCheck()
	if string(check) != "new-check" {
		t.Errorf("Check = %s", check)
	}
	env, _ := db.GetEnvelope("b")
	if string(env) != "rewrapped-b" {
		t.Errorf("Envelope b = %s", env)
	}
}

func TestPersistenceAndCompact(t *testing.T) {
	db, dbPath := openTestDB(t)

	if err := db.PutKey(testEntry("keep"), []byte("keep-envelope"), false); err != nil {
		t.Fatalf("Failed to put key: %v", err)
	}
	for i := 0; i < 20; i++ {
		name := string(rune('a' + i))
		if err := db.PutKey(testEntry(name), make([]byte, 4096), false); err != nil {
			t.Fatalf("Failed to put key: %v", err)
		}
		if err := db.RemoveKey(name); err != nil {
			t.Fatalf("Failed to remove key: %v", err)
		}
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if _, err := os.Stat(dbPath + ".backup"); !os.IsNotExist(err) {
		t.Error("Backup file should be removed after compaction")
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	env, err := db2.GetEnvelope("keep")
	if err != nil {
		t.Fatalf("Failed to get envelope: %v", err)
	}
	if string(env) != "keep-envelope" {
		t.Error("Envelope not persisted correctly")
	}
}
