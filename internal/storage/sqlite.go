package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS storage (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLiteArea keeps one row per top-level key, scoped by namespace.
type SQLiteArea struct {
	db        *sql.DB
	namespace string
}

var _ Area = (*SQLiteArea)(nil)

func OpenSQLiteArea(ctx context.Context, path, namespace string) (*SQLiteArea, error) {
	if path == "" {
		return nil, errors.New("sqlite storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "sqlite storage")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite storage")
	}
	// A single connection serializes writers and keeps the database usable
	// for in-memory paths.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sqlite schema")
	}

	return &SQLiteArea{db: db, namespace: namespace}, nil
}

func (a *SQLiteArea) Get(ctx context.Context) (map[string]any, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT key, value FROM storage WHERE namespace = ?`, a.namespace)
	if err != nil {
		return nil, errors.Wrap(err, "query storage")
	}
	defer rows.Close()

	obj := map[string]any{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, errors.Wrap(err, "scan storage row")
		}
		v, err := decodeValue(key, []byte(raw))
		if err != nil {
			return nil, err
		}
		obj[key] = v
	}

	return obj, errors.Wrap(rows.Err(), "iterate storage rows")
}

func (a *SQLiteArea) Set(ctx context.Context, values map[string]any) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO storage (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	for k, v := range values {
		data, err := encodeValue(v)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a.namespace, k, string(data)); err != nil {
			return errors.Wrapf(err, "upsert %q", k)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (a *SQLiteArea) Clear(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM storage WHERE namespace = ?`, a.namespace)

	return errors.Wrap(err, "clear storage")
}

func (a *SQLiteArea) Close() error {
	return a.db.Close()
}
