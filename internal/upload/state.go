package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude/setlog/internal/ingest"
	_ "modernc.org/sqlite"
)

// StateDB remembers which exports reached the server so an unchanged file is
// not sent twice.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/upload.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "upload.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_exports (
		hash        TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		sessions    INTEGER NOT NULL,
		sets        INTEGER NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Seen reports whether an export with this content hash was uploaded before.
func (s *StateDB) Seen(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM uploaded_exports WHERE hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking upload state: %w", err)
	}
	return count > 0, nil
}

// Record stores a successful upload.
func (s *StateDB) Record(path, hash string, result *ingest.Result) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO uploaded_exports (hash, path, sessions, sets) VALUES (?, ?, ?, ?)`,
		hash, path, result.Sessions, result.SetsInserted,
	)
	if err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	return nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// hashContent returns the hex SHA-256 of an export.
func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
