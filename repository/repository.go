// Package repository implements the Repository pattern over the driver
// wrappers: CRUD-style operations bound to an entity type, independent of
// the store's native API. SQL statements are built with squirrel; document
// stores receive filter documents instead.
package repository

import (
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Common errors for repository operations.
var (
	// ErrNotFound is returned when a find matches no record.
	ErrNotFound = errors.New("repository: record not found")

	// ErrEmptyRecord is returned on attempts to insert or update with no
	// data.
	ErrEmptyRecord = errors.New("repository: empty record")

	// ErrBuild is wrapped by statement building failures, typically a
	// filter or select field that is not declared on the handled entity.
	ErrBuild = errors.New("repository: cannot build statement")
)

// Default timestamp column names.
const (
	defaultCreatedAt = "created_at"
	defaultUpdatedAt = "updated_at"
)

// config carries the knobs shared by every repository flavor.
type config struct {
	logger         *slog.Logger
	autoTimestamps bool
	createdAt      string
	updatedAt      string
	idField        string
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:    slog.Default(),
		createdAt: defaultCreatedAt,
		updatedAt: defaultUpdatedAt,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a repository.
type Option func(*config)

// WithLogger sets the structured logger used for statement debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimestamps enables automatic created_at/updated_at stamping on
// inserts and updates. Both columns must be declared on the entity.
func WithTimestamps() Option {
	return func(c *config) { c.autoTimestamps = true }
}

// WithTimestampFields enables automatic stamping using custom column
// names.
func WithTimestampFields(createdAt, updatedAt string) Option {
	return func(c *config) {
		c.autoTimestamps = true
		if createdAt != "" {
			c.createdAt = createdAt
		}
		if updatedAt != "" {
			c.updatedAt = updatedAt
		}
	}
}

// WithGeneratedID makes inserts fill the named column with a new ULID when
// the entity does not provide one.
func WithGeneratedID(field string) Option {
	return func(c *config) { c.idField = field }
}

// NewID returns a lexicographically sortable unique id for generated
// insert keys.
func NewID() string {
	return ulid.Make().String()
}

// stampCreated adds the created-at timestamp when auto stamping is on.
func (c config) stampCreated(data map[string]any, now time.Time) {
	if c.autoTimestamps && c.createdAt != "" {
		data[c.createdAt] = now
	}
}

// stampUpdated adds the updated-at timestamp when auto stamping is on.
func (c config) stampUpdated(data map[string]any, now time.Time) {
	if c.autoTimestamps && c.updatedAt != "" {
		data[c.updatedAt] = now
	}
}

// generateID fills the configured id column when the record does not carry
// one.
func (c config) generateID(data map[string]any) {
	if c.idField == "" {
		return
	}
	if v, ok := data[c.idField]; ok && v != nil && v != "" {
		return
	}
	data[c.idField] = NewID()
}
