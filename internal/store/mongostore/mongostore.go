// Package mongostore implements store.Database on top of the official MongoDB driver.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"expdb/internal/logger"
	"expdb/internal/store"
)

// Database wraps a connected client and one named database.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, selects the named database and verifies the
// connection with a ping. timeout bounds connecting and the ping only.
func Open(ctx context.Context, uri, name string, timeout time.Duration) (*Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", store.ErrConnection, uri, err)
	}

	d := &Database{client: client, db: client.Database(name)}
	if err := d.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.StoreOperation("mongo", "open", "uri", uri, "database", name)
	return d, nil
}

// Ping checks that the primary is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: ping: %v", store.ErrConnection, err)
	}
	return nil
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Collection returns a handle on the named collection.
func (d *Database) Collection(name string) store.Collection {
	return &Collection{coll: d.db.Collection(name)}
}

// Collection adapts *mongo.Collection to store.Collection.
type Collection struct {
	coll *mongo.Collection
}

func projectionDoc(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	proj := bson.D{{Key: "_id", Value: 0}}
	for _, f := range fields {
		if f == "_id" {
			proj[0].Value = 1
			continue
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}

func filterDoc(filter store.Document) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

// FindOne returns the first document in natural order matching filter.
func (c *Collection) FindOne(ctx context.Context, filter store.Document, projection ...string) (store.Document, error) {
	opts := options.FindOne()
	if proj := projectionDoc(projection); proj != nil {
		opts.SetProjection(proj)
	}

	var doc bson.D
	err := c.coll.FindOne(ctx, filterDoc(filter), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocuments
	}
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", c.coll.Name(), err)
	}
	return doc, nil
}

// FindMany returns every matching document in natural order.
func (c *Collection) FindMany(ctx context.Context, filter store.Document, projection ...string) ([]store.Document, error) {
	opts := options.Find()
	if proj := projectionDoc(projection); proj != nil {
		opts.SetProjection(proj)
	}

	cursor, err := c.coll.Find(ctx, filterDoc(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.coll.Name(), err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read cursor from %s: %w", c.coll.Name(), err)
	}
	return docs, nil
}

// Distinct returns the distinct values of field among matching documents.
func (c *Collection) Distinct(ctx context.Context, field string, filter store.Document) ([]any, error) {
	values, err := c.coll.Distinct(ctx, field, filterDoc(filter))
	if err != nil {
		return nil, fmt.Errorf("distinct %s in %s: %w", field, c.coll.Name(), err)
	}
	return values, nil
}

// DeleteMany removes all matching documents and reports how many were removed.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Document) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.coll.Name(), err)
	}
	logger.StoreOperation("mongo", "delete", "collection", c.coll.Name(), "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

// InsertMany writes docs in order.
func (c *Collection) InsertMany(ctx context.Context, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}
	if _, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert into %s: %w", c.coll.Name(), err)
	}
	logger.StoreOperation("mongo", "insert", "collection", c.coll.Name(), "count", len(docs))
	return nil
}
