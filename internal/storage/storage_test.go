package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "taskauction-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := New(&Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "taskauction-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := New(&Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(tmpDir, "taskauction.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if store.DB() == nil {
		t.Error("DB() returned nil")
	}
}

func TestNewWithTildeExpansion(t *testing.T) {
	home, _ := os.UserHomeDir()
	expanded := expandPath("~/.test")
	expected := filepath.Join(home, ".test")
	if expanded != expected {
		t.Errorf("expandPath(~/.test) = %s, want %s", expanded, expected)
	}
}

func TestStorageSchema(t *testing.T) {
	store := newTestStorage(t)

	tables := []string{"auctions", "bids", "ledger_accounts"}
	for _, table := range tables {
		var name string
		err := store.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
