package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrUnknownKey is returned for keys outside the schema.
	ErrUnknownKey = errors.New("unknown settings key")
	// ErrTypeMismatch is returned when a typed accessor does not match
	// the schema type of the key.
	ErrTypeMismatch = errors.New("settings type mismatch")
)

// Store is the typed key/value settings contract consumed by the player
// core. Every Set is durable on return; SetMany lands its keys in a
// single transaction so a track switch never persists partially.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	GetString(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string) (int, error)
	GetDuration(ctx context.Context, key string) (time.Duration, error)
	SetString(ctx context.Context, key, value string) error
	SetInt(ctx context.Context, key string, value int) error
	SetDuration(ctx context.Context, key string, value time.Duration) error
	SetMany(ctx context.Context, values map[string]any) error
}

// DB is the SQLite-backed settings store.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database and seeds any
// missing keys with their schema defaults.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	for _, key := range Keys() {
		if key == KeyCurrentVolume {
			// current_volume is seeded from def_volume by the first
			// playback session rather than by the schema default, so a
			// fresh database leaves it unset.
			continue
		}
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)",
			key, Schema[key].Default,
		); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed defaults: %w", err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (s *DB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *DB) get(ctx context.Context, key string) (string, Field, error) {
	field, ok := Schema[key]
	if !ok {
		return "", Field{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return field.Default, field, nil
	}
	if err != nil {
		return "", Field{}, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, field, nil
}

// Has reports whether key has an explicitly stored value. A key the
// schema knows but nothing has written yet reads as its default and
// reports false here.
func (s *DB) Has(ctx context.Context, key string) (bool, error) {
	if _, ok := Schema[key]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settings WHERE key = ?", key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return n > 0, nil
}

// GetString returns the value of a string-typed key.
func (s *DB) GetString(ctx context.Context, key string) (string, error) {
	value, field, err := s.get(ctx, key)
	if err != nil {
		return "", err
	}
	if field.Type != TypeString {
		return "", fmt.Errorf("%w: %q is %s", ErrTypeMismatch, key, field.Type)
	}
	return value, nil
}

// GetInt returns the value of an int-typed key.
func (s *DB) GetInt(ctx context.Context, key string) (int, error) {
	value, field, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if field.Type != TypeInt {
		return 0, fmt.Errorf("%w: %q is %s", ErrTypeMismatch, key, field.Type)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt value for %q: %w", key, err)
	}
	return n, nil
}

// GetDuration returns the value of a duration-typed key. Durations are
// stored as integer milliseconds.
func (s *DB) GetDuration(ctx context.Context, key string) (time.Duration, error) {
	value, field, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if field.Type != TypeDuration {
		return 0, fmt.Errorf("%w: %q is %s", ErrTypeMismatch, key, field.Type)
	}
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt value for %q: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// encode validates value against the schema and returns its stored form.
func encode(key string, value any) (string, error) {
	field, ok := Schema[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch field.Type {
	case TypeString:
		v, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %q wants string, got %T", ErrTypeMismatch, key, value)
		}
		if len(field.Enum) > 0 && !contains(field.Enum, v) {
			return "", fmt.Errorf("invalid value %q for %q (allowed: %v)", v, key, field.Enum)
		}
		return v, nil
	case TypeInt:
		v, ok := value.(int)
		if !ok {
			return "", fmt.Errorf("%w: %q wants int, got %T", ErrTypeMismatch, key, value)
		}
		if field.Ranged && (v < field.Min || v > field.Max) {
			return "", fmt.Errorf("value %d for %q out of range [%d, %d]", v, key, field.Min, field.Max)
		}
		return strconv.Itoa(v), nil
	case TypeDuration:
		v, ok := value.(time.Duration)
		if !ok {
			return "", fmt.Errorf("%w: %q wants duration, got %T", ErrTypeMismatch, key, value)
		}
		if v < 0 {
			return "", fmt.Errorf("negative duration for %q", key)
		}
		return strconv.FormatInt(v.Milliseconds(), 10), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func (s *DB) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// SetString writes a string-typed key.
func (s *DB) SetString(ctx context.Context, key, value string) error {
	encoded, err := encode(key, value)
	if err != nil {
		return err
	}
	return s.set(ctx, key, encoded)
}

// SetInt writes an int-typed key.
func (s *DB) SetInt(ctx context.Context, key string, value int) error {
	encoded, err := encode(key, value)
	if err != nil {
		return err
	}
	return s.set(ctx, key, encoded)
}

// SetDuration writes a duration-typed key.
func (s *DB) SetDuration(ctx context.Context, key string, value time.Duration) error {
	encoded, err := encode(key, value)
	if err != nil {
		return err
	}
	return s.set(ctx, key, encoded)
}

// SetMany writes several keys in one transaction. Either all values land
// or none do; validation runs before the transaction starts.
func (s *DB) SetMany(ctx context.Context, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for key, value := range values {
		enc, err := encode(key, value)
		if err != nil {
			return err
		}
		encoded[key] = enc
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range encoded {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("failed to write %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetFromString parses raw according to the schema type of key and
// writes it. Used by the settings CLI.
func (s *DB) SetFromString(ctx context.Context, key, raw string) error {
	field, ok := Schema[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch field.Type {
	case TypeString:
		return s.SetString(ctx, key, raw)
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%q wants an integer: %w", key, err)
		}
		return s.SetInt(ctx, key, n)
	case TypeDuration:
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%q wants milliseconds: %w", key, err)
		}
		return s.SetDuration(ctx, key, time.Duration(ms)*time.Millisecond)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// GetRaw returns the stored string form of a key. Used by the settings CLI.
func (s *DB) GetRaw(ctx context.Context, key string) (string, error) {
	value, _, err := s.get(ctx, key)
	return value, err
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
