package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	tbl  TEXT NOT NULL,
	pk   TEXT NOT NULL,
	sk   TEXT NOT NULL DEFAULT '',
	ipk  TEXT NOT NULL DEFAULT '',
	isk  TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	PRIMARY KEY (tbl, pk, sk)
);
CREATE INDEX IF NOT EXISTS documents_secondary ON documents (tbl, ipk, isk);
`

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" is pinned to one connection so every query sees the same data.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		schema,
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", strings.Fields(p)[0], err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, table, pk, sk string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT pk, sk, ipk, isk, body FROM documents WHERE tbl = ? AND pk = ? AND sk = ?`,
		table, pk, sk)
	d, err := scanDoc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (s *SQLiteStore) Put(ctx context.Context, table string, d Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (tbl, pk, sk, ipk, isk, body) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tbl, pk, sk) DO UPDATE SET ipk = excluded.ipk, isk = excluded.isk, body = excluded.body`,
		table, d.PK, d.SK, d.IndexPK, d.IndexSK, string(d.Body))
	if err != nil {
		return fmt.Errorf("sqlite: put %s/%s: %w", table, d.PK, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, table string, q Query) ([]Document, error) {
	pkCol, skCol := "pk", "sk"
	if q.Index == IndexSecondary {
		pkCol, skCol = "ipk", "isk"
	}
	var b strings.Builder
	args := []any{table, q.PK}
	fmt.Fprintf(&b, `SELECT pk, sk, ipk, isk, body FROM documents WHERE tbl = ? AND %s = ?`, pkCol)
	if q.From != "" {
		fmt.Fprintf(&b, ` AND %s >= ?`, skCol)
		args = append(args, q.From)
	}
	if q.To != "" {
		fmt.Fprintf(&b, ` AND %s <= ?`, skCol)
		args = append(args, q.To)
	}
	fmt.Fprintf(&b, ` ORDER BY %s`, skCol)
	if q.Descending {
		b.WriteString(` DESC`)
	}
	b.WriteString(`, pk, sk`)
	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}
	return s.query(ctx, b.String(), args...)
}

func (s *SQLiteStore) Scan(ctx context.Context, table string, f Filter, n int) ([]Document, error) {
	var b strings.Builder
	args := []any{table}
	b.WriteString(`SELECT pk, sk, ipk, isk, body FROM documents WHERE tbl = ?`)

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(` AND json_extract(body, ?) = ?`)
		args = append(args, `$."`+k+`"`, f[k])
	}
	b.WriteString(` ORDER BY pk, sk`)
	if n > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, n)
	}
	return s.query(ctx, b.String(), args...)
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoc(r rowScanner) (Document, error) {
	var d Document
	var body string
	if err := r.Scan(&d.PK, &d.SK, &d.IndexPK, &d.IndexSK, &body); err != nil {
		return Document{}, err
	}
	d.Body = []byte(body)
	return d, nil
}
