// Package store persists prediction records to a relational database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
)

// Record is one persisted classification outcome.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
	Contact    string    `json:"contact"`
	Prediction string    `json:"prediction"`
	CreatedAt  time.Time `json:"created_at"`
}

type dialect struct {
	driver string
	// dollar placeholders ($1, $2, ...) instead of ?
	dollar bool
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite"},
	"postgres": {driver: "pgx", dollar: true},
	"mysql":    {driver: "mysql"},
}

const schema = `CREATE TABLE IF NOT EXISTS predictions (
	ID VARCHAR(36) PRIMARY KEY,
	Patient_Name TEXT NOT NULL,
	Age INTEGER NOT NULL,
	Gender TEXT NOT NULL,
	Contact TEXT NOT NULL,
	Prediction TEXT NOT NULL,
	Created_At TIMESTAMP NOT NULL
)`

// Store owns the database handle for the life of the process. The
// underlying pool re-dials connections that were dropped by the server.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database of the given type ("sqlite", "postgres" or
// "mysql") and ensures the predictions table exists.
func Open(ctx context.Context, databaseType, dsn string) (*Store, error) {
	d, ok := dialects[databaseType]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	dsn, err := prepareDSN(databaseType, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", databaseType, err)
	}
	if databaseType == "sqlite" {
		// A single connection keeps in-memory databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dialect: d}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Insert writes r and commits before returning. It makes exactly one attempt.
func (s *Store) Insert(ctx context.Context, r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to begin transaction")
	}

	query := s.rebind(`INSERT INTO predictions (ID, Patient_Name, Age, Gender, Contact, Prediction, Created_At) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, r.ID, r.Name, r.Age, r.Gender, r.Contact, r.Prediction, r.CreatedAt); err != nil {
		_ = tx.Rollback()
		return apperr.Wrap(apperr.KindPersistence, err, "failed to insert record")
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to commit record")
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.rebind(`SELECT ID, Patient_Name, Age, Gender, Contact, Prediction, Created_At
		FROM predictions ORDER BY Created_At DESC, ID DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to query records")
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Age, &r.Gender, &r.Contact, &r.Prediction, &r.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to scan record")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to read records")
	}
	return records, nil
}

// Ping checks the database is reachable, re-dialing if needed.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// prepareDSN adjusts driver settings the store depends on. MySQL only
// scans TIMESTAMP columns into time.Time with parseTime enabled.
func prepareDSN(databaseType, dsn string) (string, error) {
	if databaseType != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql connection string: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (s *Store) rebind(query string) string {
	if !s.dialect.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
