package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danteay/dbrepo/driver"
)

// fakeDocStore records the last operation and replays canned documents.
type fakeDocStore struct {
	lastOp     string
	lastFilter map[string]any
	lastData   map[string]any
	lastDocs   []map[string]any
	lastOpts   driver.MongoFindOptions

	doc  map[string]any
	docs []map[string]any
	err  error
}

func (f *fakeDocStore) FindOne(_ context.Context, _ string, filter map[string]any) (map[string]any, error) {
	f.lastOp, f.lastFilter = "find_one", filter
	return f.doc, f.err
}

func (f *fakeDocStore) Find(_ context.Context, _ string, filter map[string]any, opts driver.MongoFindOptions) ([]map[string]any, error) {
	f.lastOp, f.lastFilter, f.lastOpts = "find", filter, opts
	return f.docs, f.err
}

func (f *fakeDocStore) InsertOne(_ context.Context, _ string, doc map[string]any) (any, error) {
	f.lastOp, f.lastData = "insert_one", doc
	return "oid-1", f.err
}

func (f *fakeDocStore) InsertMany(_ context.Context, _ string, docs []map[string]any) ([]any, error) {
	f.lastOp, f.lastDocs = "insert_many", docs
	ids := make([]any, len(docs))
	for i := range docs {
		ids[i] = i
	}
	return ids, f.err
}

func (f *fakeDocStore) UpdateMany(_ context.Context, _ string, filter, data map[string]any) error {
	f.lastOp, f.lastFilter, f.lastData = "update", filter, data
	return f.err
}

func (f *fakeDocStore) DeleteMany(_ context.Context, _ string, filter map[string]any) error {
	f.lastOp, f.lastFilter = "delete", filter
	return f.err
}

func newMongoRepo(t *testing.T, store DocStore, opts ...Option) *Mongo[user] {
	t.Helper()
	repo, err := NewMongo[user](store, "users", opts...)
	if err != nil {
		t.Fatalf("NewMongo: %v", err)
	}
	return repo
}

func TestNewMongoValidation(t *testing.T) {
	store := &fakeDocStore{}

	if _, err := NewMongo[struct{}](store, "users"); !errors.Is(err, ErrBuild) {
		t.Errorf("entity without columns: got %v, want ErrBuild", err)
	}
	if _, err := NewMongo[user](store, ""); !errors.Is(err, ErrBuild) {
		t.Errorf("empty collection: got %v, want ErrBuild", err)
	}
}

func TestMongoFindOne(t *testing.T) {
	store := &fakeDocStore{doc: map[string]any{"id": "u1", "name": "Ada"}}
	repo := newMongoRepo(t, store)

	got, err := repo.FindOne(context.Background(), map[string]any{"id": "u1"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got.ID != "u1" || got.Name != "Ada" {
		t.Errorf("record = %+v", got)
	}
	if store.lastFilter["id"] != "u1" {
		t.Errorf("filter = %v", store.lastFilter)
	}
}

func TestMongoFindOneNotFound(t *testing.T) {
	store := &fakeDocStore{err: driver.ErrNoRows}
	repo := newMongoRepo(t, store)

	if _, err := repo.FindOne(context.Background(), map[string]any{"id": "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMongoFindMany(t *testing.T) {
	store := &fakeDocStore{docs: []map[string]any{
		{"id": "u1", "name": "Ada"},
		{"id": "u2", "name": "Grace"},
	}}
	repo := newMongoRepo(t, store)

	got, err := repo.FindMany(context.Background(), nil,
		OrderBy("name", true), Limit(20), Offset(10))
	if err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if len(got) != 2 || got[1].ID != "u2" {
		t.Errorf("records = %+v", got)
	}
	if store.lastOpts.OrderBy != "name" || store.lastOpts.Order != driver.MongoDesc {
		t.Errorf("sort opts = %+v", store.lastOpts)
	}
	if store.lastOpts.Limit != 20 || store.lastOpts.Offset != 10 {
		t.Errorf("paging opts = %+v", store.lastOpts)
	}
}

func TestMongoFindManyRejectsSQLOptions(t *testing.T) {
	repo := newMongoRepo(t, &fakeDocStore{})

	if _, err := repo.FindMany(context.Background(), nil, Select("id")); !errors.Is(err, ErrBuild) {
		t.Errorf("select option: got %v, want ErrBuild", err)
	}
	if _, err := repo.FindMany(context.Background(), nil, GroupBy("name")); !errors.Is(err, ErrBuild) {
		t.Errorf("group option: got %v, want ErrBuild", err)
	}
}

func TestMongoInsertOne(t *testing.T) {
	store := &fakeDocStore{}
	repo := newMongoRepo(t, store, WithTimestamps(), WithGeneratedID("id"))

	id, err := repo.InsertOne(context.Background(), user{Name: "Ada"})
	if err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	if id != "oid-1" {
		t.Errorf("inserted id = %v", id)
	}
	if v, ok := store.lastData["id"].(string); !ok || v == "" {
		t.Errorf("generated id = %v", store.lastData["id"])
	}
	if _, ok := store.lastData["created_at"].(time.Time); !ok {
		t.Errorf("created_at = %v, want time.Time", store.lastData["created_at"])
	}
}

func TestMongoInsertMany(t *testing.T) {
	store := &fakeDocStore{}
	repo := newMongoRepo(t, store)

	ids, err := repo.InsertMany(context.Background(), []user{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if len(ids) != 2 || len(store.lastDocs) != 2 {
		t.Errorf("ids = %v, docs = %v", ids, store.lastDocs)
	}

	if _, err := repo.InsertMany(context.Background(), nil); !errors.Is(err, ErrEmptyRecord) {
		t.Errorf("empty batch: got %v, want ErrEmptyRecord", err)
	}
}

func TestMongoUpdate(t *testing.T) {
	store := &fakeDocStore{}
	repo := newMongoRepo(t, store, WithTimestamps())

	err := repo.Update(context.Background(), map[string]any{"id": "u1"}, map[string]any{"name": "Grace"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if store.lastData["name"] != "Grace" {
		t.Errorf("data = %v", store.lastData)
	}
	if _, ok := store.lastData["updated_at"].(time.Time); !ok {
		t.Errorf("updated_at = %v, want time.Time", store.lastData["updated_at"])
	}

	if err := repo.Update(context.Background(), nil, nil); !errors.Is(err, ErrEmptyRecord) {
		t.Errorf("empty data: got %v, want ErrEmptyRecord", err)
	}
}

func TestMongoDelete(t *testing.T) {
	store := &fakeDocStore{}
	repo := newMongoRepo(t, store)

	if err := repo.Delete(context.Background(), map[string]any{"id": "u1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.lastOp != "delete" || store.lastFilter["id"] != "u1" {
		t.Errorf("op = %q, filter = %v", store.lastOp, store.lastFilter)
	}
}
