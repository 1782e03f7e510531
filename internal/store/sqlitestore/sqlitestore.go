// Package sqlitestore implements store.Database in a single SQLite file, for
// keeping an offline archive of experiments next to (or instead of) MongoDB.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the SQLite wasm build
	"go.mongodb.org/mongo-driver/bson"

	"expdb/internal/logger"
	"expdb/internal/store"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Database is a SQLite-backed document database.
type Database struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]bool
}

// Open opens (creating if needed) the database file at path.
func Open(ctx context.Context, path string) (*Database, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrConnection, path, err)
	}
	d := &Database{db: db, tables: make(map[string]bool)}
	if err := d.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, name := range []string{store.ConfigurationCollection, store.HistoryCollection} {
		if err := d.ensureTable(ctx, name); err != nil {
			db.Close()
			return nil, err
		}
	}
	logger.StoreOperation("sqlite", "open", "path", path)
	return d, nil
}

// Ping verifies the database file is usable.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", store.ErrConnection, err)
	}
	return nil
}

// Close closes the database file.
func (d *Database) Close(_ context.Context) error {
	return d.db.Close()
}

// Collection returns the named collection. Its table is created on first use.
func (d *Database) Collection(name string) store.Collection {
	return &Collection{parent: d, table: name}
}

func (d *Database) ensureTable(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tables[name] {
		return nil
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	if _, err := d.db.ExecContext(ctx, collectionSchema(name)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	d.tables[name] = true
	return nil
}

// Collection is one table of Extended JSON documents.
type Collection struct {
	parent *Database
	table  string
}

type row struct {
	seq int64
	doc store.Document
}

func experimentID(doc store.Document) (string, bool) {
	v, ok := store.Lookup(doc, "experiment_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// scan loads every row matching filter, narrowing on experiment_id in SQL when possible.
func (c *Collection) scan(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, filter store.Document) ([]row, error) {
	if err := c.parent.ensureTable(ctx, c.table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT seq, doc FROM %q`, c.table)
	var args []any
	if id, ok := experimentID(filter); ok {
		query += ` WHERE experiment_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY seq`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.table, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var (
			r   row
			raw string
		)
		if err := rows.Scan(&r.seq, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.table, err)
		}
		if err := bson.UnmarshalExtJSON([]byte(raw), true, &r.doc); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", c.table, r.seq, err)
		}
		if store.Matches(r.doc, filter) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// FindOne returns the first matching document in insertion order.
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

// FindMany returns every matching document in insertion order.
func (c *Collection) FindMany(ctx context.Context, filter store.Document, projection ...string) ([]store.Document, error) {
	rows, err := c.scan(ctx, c.parent.db, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, store.Project(r.doc, projection))
	}
	return docs, nil
}

// Distinct returns the distinct values of field among matching documents.
func (c *Collection) Distinct(ctx context.Context, field string, filter store.Document) ([]any, error) {
	docs, err := c.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return store.DistinctValues(docs, field), nil
}

// DeleteMany removes matching documents inside one transaction.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Document) (int64, error) {
	if err := c.parent.ensureTable(ctx, c.table); err != nil {
		return 0, err
	}

	tx, err := c.parent.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := c.scan(ctx, tx, filter)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf(`DELETE FROM %q WHERE seq = ?`, c.table)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, stmt, r.seq); err != nil {
			return 0, fmt.Errorf("delete %s row %d: %w", c.table, r.seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	logger.StoreOperation("sqlite", "delete", "collection", c.table, "deleted", len(rows))
	return int64(len(rows)), nil
}

// InsertMany appends docs inside one transaction.
func (c *Collection) InsertMany(ctx context.Context, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := c.parent.ensureTable(ctx, c.table); err != nil {
		return err
	}

	tx, err := c.parent.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %q (experiment_id, doc) VALUES (?, ?)`, c.table)
	for _, doc := range docs {
		raw, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return fmt.Errorf("encode document for %s: %w", c.table, err)
		}
		var id any
		if s, ok := experimentID(doc); ok {
			id = s
		}
		if _, err := tx.ExecContext(ctx, stmt, id, string(raw)); err != nil {
			return fmt.Errorf("insert into %s: %w", c.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.StoreOperation("sqlite", "insert", "collection", c.table, "count", len(docs))
	return nil
}
