package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/trly/quadlet-gen/internal/fs"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

// ErrNoHistory is returned when a unit has never been recorded.
var ErrNoHistory = errors.New("no recorded generation")

// Entry is one recorded generation of a unit.
type Entry struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Kind        string    `db:"kind"`
	InputHash   string    `db:"input_hash"`
	ContentHash string    `db:"content_hash"`
	Content     string    `db:"content"`
	CreatedAt   time.Time `db:"created_at"`
}

// NewEntry describes the generation of content from in.
func NewEntry(in quadlet.Input, content string) (Entry, error) {
	inputHash, err := InputHash(in)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:        in.Name(),
		Kind:        string(in.Kind),
		InputHash:   inputHash,
		ContentHash: fs.ContentHash(content),
		Content:     content,
	}, nil
}

// InputHash returns the hex encoded SHA-256 of the JSON encoding of in.
func InputHash(in quadlet.Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding input %s: %w", in.Name(), err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Repository defines the data access operations for generation history.
type Repository interface {
	Record(entry *Entry) (int64, error)
	Latest(name, kind string) (Entry, error)
	List() ([]Entry, error)
	FindByName(name string) ([]Entry, error)
	Changed(name, kind, content string) (bool, error)
}

// SQLRepository implements Repository with a SQL database.
type SQLRepository struct {
	db    *sql.DB
	clock clock.Clock
}

// NewRepository creates a SQL-based history repository.
func NewRepository(db *sql.DB, clk clock.Clock) *SQLRepository {
	if clk == nil {
		clk = clock.New()
	}
	return &SQLRepository{db: db, clock: clk}
}

const selectEntries = "SELECT id, name, kind, input_hash, content_hash, content, created_at FROM generations"

// Record stores entry, stamping its creation time.
func (r *SQLRepository) Record(entry *Entry) (int64, error) {
	entry.CreatedAt = r.clock.Now().UTC()

	result, err := r.db.Exec(
		"INSERT INTO generations (name, kind, input_hash, content_hash, content, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.Name, entry.Kind, entry.InputHash, entry.ContentHash, entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("recording %s %s: %w", entry.Kind, entry.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	entry.ID = id
	return id, nil
}

// Latest returns the most recent generation of the named unit.
func (r *SQLRepository) Latest(name, kind string) (Entry, error) {
	row := r.db.QueryRow(selectEntries+" WHERE name = ? AND kind = ? ORDER BY id DESC LIMIT 1", name, kind)

	var e Entry
	err := row.Scan(&e.ID, &e.Name, &e.Kind, &e.InputHash, &e.ContentHash, &e.Content, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s %s: %w", kind, name, ErrNoHistory)
	}
	return e, err
}

// List returns every recorded generation, newest first.
func (r *SQLRepository) List() ([]Entry, error) {
	rows, err := r.db.Query(selectEntries + " ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// FindByName returns the recorded generations of the named units of any
// kind, newest first.
func (r *SQLRepository) FindByName(name string) ([]Entry, error) {
	rows, err := r.db.Query(selectEntries+" WHERE name = ? ORDER BY id DESC", name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Changed reports whether content differs from the latest recorded
// generation of the named unit. A unit without history has changed.
func (r *SQLRepository) Changed(name, kind, content string) (bool, error) {
	latest, err := r.Latest(name, kind)
	if errors.Is(err, ErrNoHistory) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return latest.ContentHash != fs.ContentHash(content), nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.InputHash, &e.ContentHash, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ Repository = (*SQLRepository)(nil)
