// User Store Example
//
// This is a minimal example of wiring a dbrepo repository over an
// in-memory SQLite database.
//
// Usage:
//   go run main.go
//
// Point DATABASE_URL at a file path to persist the store between runs.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/danteay/dbrepo/driver"
	"github.com/danteay/dbrepo/repository"
)

// User is a repository entity. Column names come from the db tags.
type User struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	Email     *string    `db:"email,omitempty"`
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

func main() {
	ctx := context.Background()

	cfg, err := driver.SQLiteConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	db, err := driver.NewSQLite(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`); err != nil {
		log.Fatal(err)
	}

	users, err := repository.NewSQL[User](db, "users",
		repository.WithGeneratedID("id"),
		repository.WithTimestamps(),
	)
	if err != nil {
		log.Fatal(err)
	}

	record := User{Name: "Ada Lovelace"}
	if err := users.InsertOne(ctx, &record); err != nil {
		log.Fatal(err)
	}

	found, err := users.FindOne(ctx, repository.Where("name", "Ada Lovelace"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("found: id=%s name=%s created_at=%s\n", found.ID, found.Name, found.CreatedAt)

	if err := users.Update(ctx,
		map[string]any{"name": "Countess of Lovelace"},
		repository.Where("id", found.ID),
	); err != nil {
		log.Fatal(err)
	}

	all, err := users.FindMany(ctx, repository.OrderBy("created_at", true))
	if err != nil {
		log.Fatal(err)
	}
	for _, u := range all {
		fmt.Printf("user: id=%s name=%s\n", u.ID, u.Name)
	}
}
