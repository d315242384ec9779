// Package store caches verification reports in SQLite, keyed by the
// SHA-256 of the class file bytes and the highest pass that was run.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/dhamidi/justice/verifier"
)

var log = commonlog.GetLogger("justice.store")

// ErrNotFound indicates that no report is cached for a class.
var ErrNotFound = errors.New("report not found")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

const schema = `CREATE TABLE IF NOT EXISTS reports (
	digest TEXT NOT NULL,
	pass TEXT NOT NULL,
	class TEXT NOT NULL,
	report BLOB NOT NULL,
	created INTEGER NOT NULL,
	PRIMARY KEY (digest, pass)
)`

// Store is a verdict cache backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path. The parent directory is
// created if needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	log.Debugf("opened verdict cache %s", path)
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Digest returns the cache key for the bytes of a class file.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores report under the digest of the class bytes it was computed
// from, replacing an earlier report for the same digest and pass.
func (s *Store) Put(digest string, pass verifier.Pass, report *verifier.Report) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO reports (digest, pass, class, report, created) VALUES (?, ?, ?, ?, ?)",
		digest, pass.String(), report.ClassName, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", report.ClassName, err)
	}
	return nil
}

// Get returns the report cached for digest and pass, or ErrNotFound.
func (s *Store) Get(digest string, pass verifier.Pass) (*verifier.Report, error) {
	var data []byte
	err := s.db.QueryRow("SELECT report FROM reports WHERE digest = ? AND pass = ?", digest, pass.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying report: %w", err)
	}
	return UnmarshalReport(data)
}

// Entry describes one cached report.
type Entry struct {
	Digest  string
	Pass    string
	Class   string
	Created time.Time
}

// List returns the cached reports ordered by class name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT digest, pass, class, created FROM reports ORDER BY class, pass")
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Digest, &e.Pass, &e.Class, &created); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		e.Created = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes every cached report and returns how many there were.
func (s *Store) Clear() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM reports")
	if err != nil {
		return 0, fmt.Errorf("clearing reports: %w", err)
	}
	return res.RowsAffected()
}

// MarshalReport encodes a report as canonical CBOR.
func MarshalReport(r *verifier.Report) ([]byte, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("store: marshal report: %w", err)
	}
	return data, nil
}

// UnmarshalReport decodes a report written by MarshalReport.
func UnmarshalReport(data []byte) (*verifier.Report, error) {
	var r verifier.Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("store: unmarshal report: %w", err)
	}
	return &r, nil
}
