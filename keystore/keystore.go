// Package keystore manages the on-disk keystore directory handed to the
// wallet engine, plus the key metadata records kept alongside it.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is the metadata kept for one key. The key material itself lives
// inside the engine's keystore; the bridge only tracks what it created.
type Record struct {
	PublicKey string    `json:"public_key"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a file-based key metadata store rooted at the keystore
// directory.
type Store struct {
	mu      sync.RWMutex
	baseDir string
}

// NewStore creates the keystore directory layout and returns a store.
func NewStore(baseDir string) (*Store, error) {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, "keys"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Store{
		baseDir: baseDir,
	}, nil
}

// Dir returns the keystore directory, suitable for the engine's init
// request.
func (s *Store) Dir() string {
	return s.baseDir
}

// SaveRecord saves a key record to disk.
func (s *Store) SaveRecord(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if rec.PublicKey == "" {
		return fmt.Errorf("record has no public key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	filename := filepath.Join(s.baseDir, "keys", rec.PublicKey+".json")
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}

	return nil
}

// LoadRecord loads a key record from disk. Returns nil when no record
// exists for the public key.
func (s *Store) LoadRecord(publicKey string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filename := filepath.Join(s.baseDir, "keys", publicKey+".json")
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// DeleteRecord removes a key record. Missing records are not an error.
func (s *Store) DeleteRecord(publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := filepath.Join(s.baseDir, "keys", publicKey+".json")
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}

// ListRecords loads all key records.
func (s *Store) ListRecords() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keysDir := filepath.Join(s.baseDir, "keys")
	entries, err := os.ReadDir(keysDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(keysDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read record file: %w", err)
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, nil
}
