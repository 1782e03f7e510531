package testutils

import (
	"context"
	"sync"

	"expdb/internal/store"
)

// MockDatabase wraps a real database and injects errors per collection.
type MockDatabase struct {
	store.Database

	mu      sync.Mutex
	mocks   map[string]*MockCollection
	pingErr error
}

// NewMockDatabase wraps db.
func NewMockDatabase(db store.Database) *MockDatabase {
	return &MockDatabase{Database: db, mocks: make(map[string]*MockCollection)}
}

// SetPingError makes Ping fail with err.
func (m *MockDatabase) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// Ping implements store.Database.
func (m *MockDatabase) Ping(ctx context.Context) error {
	m.mu.Lock()
	err := m.pingErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Database.Ping(ctx)
}

// Collection returns the wrapped collection, sharing error settings per name.
func (m *MockDatabase) Collection(name string) store.Collection {
	return m.Mock(name)
}

// Mock returns the MockCollection for name so tests can set errors on it.
func (m *MockDatabase) Mock(name string) *MockCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.mocks[name]
	if !ok {
		c = &MockCollection{Collection: m.Database.Collection(name)}
		m.mocks[name] = c
	}
	return c
}

// MockCollection wraps a collection and counts reads and writes. Non-nil error fields
// make the matching method fail without touching the wrapped collection.
type MockCollection struct {
	store.Collection

	mu        sync.Mutex
	FindErr   error
	DeleteErr error
	InsertErr error
	FindOnes  int
	FindManys int
	Inserts   int
	Deletes   int
}

// FindOne implements store.Collection.
func (m *MockCollection) FindOne(ctx context.Context, filter store.Document, projection ...string) (store.Document, error) {
	m.mu.Lock()
	m.FindOnes++
	m.mu.Unlock()
	if err := m.err(&m.FindErr); err != nil {
		return nil, err
	}
	return m.Collection.FindOne(ctx, filter, projection...)
}

// FindMany implements store.Collection.
func (m *MockCollection) FindMany(ctx context.Context, filter store.Document, projection ...string) ([]store.Document, error) {
	m.mu.Lock()
	m.FindManys++
	m.mu.Unlock()
	if err := m.err(&m.FindErr); err != nil {
		return nil, err
	}
	return m.Collection.FindMany(ctx, filter, projection...)
}

// Distinct implements store.Collection.
func (m *MockCollection) Distinct(ctx context.Context, field string, filter store.Document) ([]any, error) {
	if err := m.err(&m.FindErr); err != nil {
		return nil, err
	}
	return m.Collection.Distinct(ctx, field, filter)
}

// DeleteMany implements store.Collection.
func (m *MockCollection) DeleteMany(ctx context.Context, filter store.Document) (int64, error) {
	m.mu.Lock()
	m.Deletes++
	m.mu.Unlock()
	if err := m.err(&m.DeleteErr); err != nil {
		return 0, err
	}
	return m.Collection.DeleteMany(ctx, filter)
}

// InsertMany implements store.Collection.
func (m *MockCollection) InsertMany(ctx context.Context, docs []store.Document) error {
	m.mu.Lock()
	m.Inserts++
	m.mu.Unlock()
	if err := m.err(&m.InsertErr); err != nil {
		return err
	}
	return m.Collection.InsertMany(ctx, docs)
}

func (m *MockCollection) err(field *error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *field
}
