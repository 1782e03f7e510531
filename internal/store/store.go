// Package store defines the document repository the experiment registry talks to.
// Backends (MongoDB, SQLite, in-memory) live in sub-packages and share the
// filtering and projection helpers declared here.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Document is a single ordered record. Field order is preserved end to end so
// exported files and re-imported records stay byte-identical.
type Document = bson.D

// Collection names used by the simulation emitter.
const (
	ConfigurationCollection = "configuration"
	HistoryCollection       = "history"
)

var (
	// ErrNoDocuments is returned by FindOne when nothing matches the filter.
	ErrNoDocuments = errors.New("no documents match filter")

	// ErrConnection marks failures to reach the database.
	ErrConnection = errors.New("database connection failed")
)

// Collection is the subset of a document collection the registry needs.
// Filters are field equality documents; an empty filter matches everything.
// A non-empty projection keeps only the named fields (and drops _id).
type Collection interface {
	FindOne(ctx context.Context, filter Document, projection ...string) (Document, error)
	FindMany(ctx context.Context, filter Document, projection ...string) ([]Document, error)
	Distinct(ctx context.Context, field string, filter Document) ([]any, error)
	DeleteMany(ctx context.Context, filter Document) (int64, error)
	InsertMany(ctx context.Context, docs []Document) error
}

// Database hands out collections and owns the underlying connection.
type Database interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
