package store

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/pavelanni/caseload/internal/model"
)

// SetMetadata upserts a key-value pair in the caseload_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO caseload_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM caseload_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSeedInfo records the last roster import.
func (s *Store) SetSeedInfo(info model.SeedInfo) error {
	pairs := []struct{ k, v string }{
		{"seed_source", info.Source},
		{"seeded_at", info.SeededAt.UTC().Format(time.RFC3339)},
		{"seed_students", strconv.Itoa(info.Students)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetSeedInfo reads the last roster import. The zero value means the store was never seeded.
func (s *Store) GetSeedInfo() (model.SeedInfo, error) {
	var info model.SeedInfo
	var err error
	if info.Source, err = s.GetMetadata("seed_source"); err != nil {
		return info, err
	}
	at, err := s.GetMetadata("seeded_at")
	if err != nil {
		return info, err
	}
	if at != "" {
		if info.SeededAt, err = time.Parse(time.RFC3339, at); err != nil {
			return info, err
		}
	}
	n, err := s.GetMetadata("seed_students")
	if err != nil {
		return info, err
	}
	if n != "" {
		if info.Students, err = strconv.Atoi(n); err != nil {
			return info, err
		}
	}
	return info, nil
}

// GetImportedFileHash returns the sha256 recorded for an imported roster source, or "".
func (s *Store) GetImportedFileHash(source string) (string, error) {
	return s.GetMetadata("import_hash:" + source)
}

// SetImportedFileHash records the sha256 of an imported roster source.
func (s *Store) SetImportedFileHash(source, hash string) error {
	return s.SetMetadata("import_hash:"+source, hash)
}
