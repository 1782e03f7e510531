// Package storetest holds the behaviour every store.Database backend must
// share. Backend packages call Run from their tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"expdb/internal/store"
)

// OpenFunc returns an empty database for one subtest.
type OpenFunc func(t *testing.T) store.Database

func record(id string, t any) store.Document {
	return bson.D{{Key: "experiment_id", Value: id}, {Key: "time", Value: t}}
}

func seed(t *testing.T, c store.Collection) {
	t.Helper()
	require.NoError(t, c.InsertMany(context.Background(), []store.Document{
		record("a", int32(1)),
		record("b", int32(1)),
		record("a", int32(2)),
		append(record("a", int32(3)), bson.E{Key: "tags", Value: bson.A{"x", "y"}}),
	}))
}

// Run exercises open against the store.Collection contract.
func Run(t *testing.T, open OpenFunc) {
	ctx := context.Background()

	t.Run("FindManyKeepsInsertionOrder", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		docs, err := c.FindMany(ctx, bson.D{{Key: "experiment_id", Value: "a"}})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		for i, doc := range docs {
			v, _ := store.Lookup(doc, "time")
			assert.Equal(t, int32(i+1), v)
		}

		all, err := c.FindMany(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("FindManyProjection", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		docs, err := c.FindMany(ctx, bson.D{{Key: "experiment_id", Value: "b"}}, "time")
		require.NoError(t, err)
		assert.Equal(t, []store.Document{{{Key: "time", Value: int32(1)}}}, docs)
	})

	t.Run("FindManyNoMatch", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		docs, err := c.FindMany(ctx, bson.D{{Key: "experiment_id", Value: "zzz"}})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("FindManyNonIDFilter", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		docs, err := c.FindMany(ctx, bson.D{{Key: "time", Value: int32(1)}}, "experiment_id")
		require.NoError(t, err)
		assert.Equal(t, []store.Document{
			{{Key: "experiment_id", Value: "a"}},
			{{Key: "experiment_id", Value: "b"}},
		}, docs)
	})

	t.Run("FindOne", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		doc, err := c.FindOne(ctx, bson.D{{Key: "experiment_id", Value: "a"}})
		require.NoError(t, err)
		v, _ := store.Lookup(doc, "time")
		assert.Equal(t, int32(1), v)

		_, err = c.FindOne(ctx, bson.D{{Key: "experiment_id", Value: "zzz"}})
		assert.ErrorIs(t, err, store.ErrNoDocuments)
	})

	t.Run("Distinct", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		ids, err := c.Distinct(ctx, "experiment_id", nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"a", "b"}, ids)

		tags, err := c.Distinct(ctx, "tags", bson.D{{Key: "experiment_id", Value: "a"}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"x", "y"}, tags)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		seed(t, c)

		n, err := c.DeleteMany(ctx, bson.D{{Key: "experiment_id", Value: "a"}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = c.DeleteMany(ctx, bson.D{{Key: "experiment_id", Value: "a"}})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = c.DeleteMany(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		docs, err := c.FindMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("InsertManyEmpty", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		require.NoError(t, c.InsertMany(ctx, nil))

		docs, err := c.FindMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("CollectionsAreIndependent", func(t *testing.T) {
		db := open(t)
		seed(t, db.Collection(store.HistoryCollection))

		docs, err := db.Collection(store.ConfigurationCollection).FindMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)

		again, err := db.Collection(store.HistoryCollection).FindMany(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, again, 4)
	})

	t.Run("StoredDocumentsAreCopies", func(t *testing.T) {
		c := open(t).Collection(store.HistoryCollection)
		doc := bson.D{{Key: "experiment_id", Value: "a"}, {Key: "state", Value: bson.D{{Key: "x", Value: 1.5}}}}
		require.NoError(t, c.InsertMany(ctx, []store.Document{doc}))

		doc[1].Value.(bson.D)[0].Value = 99.0
		got, err := c.FindOne(ctx, nil, "experiment_id", "state")
		require.NoError(t, err)
		assert.Equal(t, doc[:1], got[:1])
		state, _ := store.Lookup(got, "state")
		assert.Equal(t, bson.D{{Key: "x", Value: 1.5}}, state)

		got[0].Value = "mutated"
		again, err := c.FindOne(ctx, nil, "experiment_id")
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "experiment_id", Value: "a"}}, again)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, open(t).Ping(ctx))
	})
}
