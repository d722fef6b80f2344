package driver

import (
	"context"
	"errors"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	db, err := NewSQLite(SQLiteConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.Exec(context.Background(), `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			age INTEGER
		)
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func TestSQLiteQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	err := db.Exec(ctx, `INSERT INTO users (id, email, age) VALUES (?, ?, ?), (?, ?, ?)`,
		1, "a@example.com", 30, 2, "b@example.com", 41)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := db.Query(ctx, `SELECT id, email, age FROM users ORDER BY id`)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(rows.Columns) != 3 || rows.Columns[0] != "id" {
		t.Fatalf("unexpected columns: %v", rows.Columns)
	}
	if len(rows.Values) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows.Values))
	}
	if got := rows.Values[0][1]; got != "a@example.com" {
		t.Errorf("expected email a@example.com, got %v", got)
	}
}

func TestSQLiteQueryOne(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	if err := db.Exec(ctx, `INSERT INTO users (id, email) VALUES (?, ?)`, 1, "a@example.com"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	cols, vals, err := db.QueryOne(ctx, `SELECT id, email FROM users WHERE id = ?`, 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(cols) != 2 || len(vals) != 2 {
		t.Fatalf("unexpected shape: %v %v", cols, vals)
	}
	if vals[1] != "a@example.com" {
		t.Errorf("expected email, got %v", vals[1])
	}
}

func TestSQLiteQueryOneNoRows(t *testing.T) {
	db := newTestSQLite(t)

	_, _, err := db.QueryOne(context.Background(), `SELECT id FROM users WHERE id = ?`, 99)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestSQLitePlaceholder(t *testing.T) {
	db := newTestSQLite(t)

	got, err := db.Placeholder().ReplacePlaceholders("a = ?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a = ?" {
		t.Errorf("expected question placeholders to pass through, got %q", got)
	}
}
