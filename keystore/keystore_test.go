package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "keystore_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := NewStore(filepath.Join(tmpDir, "keystore"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if store.Dir() == "" {
		t.Fatal("Store dir is empty")
	}

	t.Run("SaveAndLoad", func(t *testing.T) {
		rec := &Record{
			PublicKey: "pub1",
			Address:   "EQabc",
			CreatedAt: time.Now(),
		}
		if err := store.SaveRecord(rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}

		loaded, err := store.LoadRecord("pub1")
		if err != nil {
			t.Fatalf("Failed to load record: %v", err)
		}
		if loaded == nil {
			t.Fatal("Loaded record is nil")
		}
		if loaded.PublicKey != "pub1" {
			t.Errorf("Expected pub1, got %s", loaded.PublicKey)
		}
		if loaded.Address != "EQabc" {
			t.Errorf("Expected EQabc, got %s", loaded.Address)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		loaded, err := store.LoadRecord("nope")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if loaded != nil {
			t.Errorf("Expected nil for missing record, got %+v", loaded)
		}
	})

	t.Run("InvalidRecord", func(t *testing.T) {
		if err := store.SaveRecord(nil); err == nil {
			t.Error("Expected error for nil record")
		}
		if err := store.SaveRecord(&Record{}); err == nil {
			t.Error("Expected error for record without public key")
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := store.SaveRecord(&Record{PublicKey: "pub2", CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}

		records, err := store.ListRecords()
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 records, got %d", len(records))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.DeleteRecord("pub1"); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		loaded, err := store.LoadRecord("pub1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if loaded != nil {
			t.Error("Record still present after delete")
		}

		// Deleting a missing record is not an error
		if err := store.DeleteRecord("pub1"); err != nil {
			t.Errorf("Unexpected error deleting missing record: %v", err)
		}
	})
}
