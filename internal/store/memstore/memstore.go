// Package memstore provides an in-memory store.Database. Records keep their
// insertion order, which stands in for MongoDB's natural order.
package memstore

import (
	"context"
	"sync"

	"expdb/internal/store"
)

// Database is an in-memory set of named collections.
type Database struct {
	mu          sync.Mutex
	collections map[string]*Collection
	closed      bool
}

// New creates an empty in-memory database.
func New() *Database {
	return &Database{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (d *Database) Collection(name string) store.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &Collection{}
		d.collections[name] = c
	}
	return c
}

// Ping fails once the database has been closed.
func (d *Database) Ping(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return store.ErrConnection
	}
	return nil
}

// Close marks the database closed. Data stays readable for assertions in tests.
func (d *Database) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Collection holds documents in insertion order.
type Collection struct {
	mu   sync.RWMutex
	docs []store.Document
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// FindOne returns the first matching document.
func (c *Collection) FindOne(ctx context.Context, filter store.Document, projection ...string) (store.Document, error) {
	docs, err := c.FindMany(ctx, filter, projection...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNoDocuments
	}
	return docs[0], nil
}

// FindMany returns copies of all matching documents.
func (c *Collection) FindMany(ctx context.Context, filter store.Document, projection ...string) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []store.Document
	for _, doc := range c.docs {
		if store.Matches(doc, filter) {
			out = append(out, store.Project(store.Clone(doc), projection))
		}
	}
	return out, nil
}

// Distinct returns the distinct values of field among matching documents.
func (c *Collection) Distinct(ctx context.Context, field string, filter store.Document) ([]any, error) {
	docs, err := c.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return store.DistinctValues(docs, field), nil
}

// DeleteMany removes all matching documents.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0]
	var deleted int64
	for _, doc := range c.docs {
		if store.Matches(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return deleted, nil
}

// InsertMany appends copies of docs.
func (c *Collection) InsertMany(ctx context.Context, docs []store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		c.docs = append(c.docs, store.Clone(doc))
	}
	return nil
}
