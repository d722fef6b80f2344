package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danteay/dbrepo/driver"
)

// fakeLedger records the last statement and replays canned documents.
type fakeLedger struct {
	lastQuery string
	lastArgs  []any

	doc  map[string]any
	docs []map[string]any
	err  error
}

func (f *fakeLedger) QueryDocs(_ context.Context, statement string, args ...any) ([]map[string]any, error) {
	f.lastQuery, f.lastArgs = statement, args
	return f.docs, f.err
}

func (f *fakeLedger) QueryOneDoc(_ context.Context, statement string, args ...any) (map[string]any, error) {
	f.lastQuery, f.lastArgs = statement, args
	return f.doc, f.err
}

func (f *fakeLedger) Exec(_ context.Context, statement string, args ...any) error {
	f.lastQuery, f.lastArgs = statement, args
	return f.err
}

func newLedgerRepo(t *testing.T, ledger Ledger, opts ...Option) *QLDB[user] {
	t.Helper()
	repo, err := NewQLDB[user](ledger, "users", opts...)
	if err != nil {
		t.Fatalf("NewQLDB: %v", err)
	}
	return repo
}

func TestQLDBFindOne(t *testing.T) {
	ledger := &fakeLedger{doc: map[string]any{"id": "u1", "name": "Ada"}}
	repo := newLedgerRepo(t, ledger)

	got, err := repo.FindOne(context.Background(), Where("id", "u1"))
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}

	want := "SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?"
	if ledger.lastQuery != want {
		t.Errorf("statement = %q, want %q", ledger.lastQuery, want)
	}
	if got.ID != "u1" || got.Name != "Ada" {
		t.Errorf("record = %+v", got)
	}
}

func TestQLDBFindOneNotFound(t *testing.T) {
	ledger := &fakeLedger{err: driver.ErrNoRows}
	repo := newLedgerRepo(t, ledger)

	if _, err := repo.FindOne(context.Background(), Where("id", "nope")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestQLDBFindManyRejectsPaging(t *testing.T) {
	repo := newLedgerRepo(t, &fakeLedger{})

	if _, err := repo.FindMany(context.Background(), Limit(10)); !errors.Is(err, ErrBuild) {
		t.Errorf("limit: got %v, want ErrBuild", err)
	}
	if _, err := repo.FindMany(context.Background(), Offset(5)); !errors.Is(err, ErrBuild) {
		t.Errorf("offset: got %v, want ErrBuild", err)
	}
}

func TestQLDBFindMany(t *testing.T) {
	ledger := &fakeLedger{docs: []map[string]any{
		{"id": "u1", "name": "Ada"},
		{"id": "u2", "name": "Grace"},
	}}
	repo := newLedgerRepo(t, ledger)

	got, err := repo.FindMany(context.Background(), Where("name", "Ada"), OrderBy("id", false))
	if err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if len(got) != 2 || got[1].ID != "u2" {
		t.Errorf("records = %+v", got)
	}
	if !strings.Contains(ledger.lastQuery, "ORDER BY id ASC") {
		t.Errorf("statement = %q, want ordering clause", ledger.lastQuery)
	}
}

func TestQLDBInsertOne(t *testing.T) {
	ledger := &fakeLedger{}
	repo := newLedgerRepo(t, ledger, WithTimestamps(), WithGeneratedID("id"))

	if err := repo.InsertOne(context.Background(), user{Name: "Ada"}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	if ledger.lastQuery != "INSERT INTO users ?" {
		t.Errorf("statement = %q", ledger.lastQuery)
	}
	doc, ok := ledger.lastArgs[0].(map[string]any)
	if !ok {
		t.Fatalf("arg = %T, want document", ledger.lastArgs[0])
	}
	if v, _ := doc["id"].(string); v == "" {
		t.Errorf("generated id = %v", doc["id"])
	}
	if _, ok := doc["created_at"].(time.Time); !ok {
		t.Errorf("created_at = %v, want time.Time", doc["created_at"])
	}
}

func TestQLDBInsertMany(t *testing.T) {
	ledger := &fakeLedger{}
	repo := newLedgerRepo(t, ledger)

	records := []user{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}}
	if err := repo.InsertMany(context.Background(), records); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	docs, ok := ledger.lastArgs[0].([]map[string]any)
	if !ok || len(docs) != 2 {
		t.Fatalf("arg = %#v, want two documents", ledger.lastArgs[0])
	}

	if err := repo.InsertMany(context.Background(), nil); !errors.Is(err, ErrEmptyRecord) {
		t.Errorf("empty batch: got %v, want ErrEmptyRecord", err)
	}
}

func TestQLDBUpdate(t *testing.T) {
	ledger := &fakeLedger{}
	repo := newLedgerRepo(t, ledger)

	err := repo.Update(context.Background(), map[string]any{"name": "Grace"}, Where("id", "u1"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := "UPDATE users SET name = ? WHERE id = ?"
	if ledger.lastQuery != want {
		t.Errorf("statement = %q, want %q", ledger.lastQuery, want)
	}

	if err := repo.Update(context.Background(), map[string]any{"password": "x"}); !errors.Is(err, ErrBuild) {
		t.Errorf("unknown field: got %v, want ErrBuild", err)
	}
}

func TestQLDBDelete(t *testing.T) {
	ledger := &fakeLedger{}
	repo := newLedgerRepo(t, ledger)

	if err := repo.Delete(context.Background(), Where("id", "u1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := "DELETE FROM users WHERE id = ?"
	if ledger.lastQuery != want {
		t.Errorf("statement = %q, want %q", ledger.lastQuery, want)
	}
}
