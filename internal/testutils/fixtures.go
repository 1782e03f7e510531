// Package testutils provides experiment fixtures and failing stores for expdb tests.
package testutils

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"expdb/internal/store"
)

// Experiment describes one seeded experiment.
type Experiment struct {
	ID          string
	Name        string
	Description string
	TimeCreated string
	// Times are the simulated times of the history records, in emission order.
	Times []any
}

// ConfigRecord returns the configuration record of e.
func (e Experiment) ConfigRecord() store.Document {
	return bson.D{
		{Key: "experiment_id", Value: e.ID},
		{Key: "name", Value: e.Name},
		{Key: "description", Value: e.Description},
		{Key: "time_created", Value: e.TimeCreated},
	}
}

// HistoryRecords returns one history record per entry of e.Times.
func (e Experiment) HistoryRecords() []store.Document {
	docs := make([]store.Document, 0, len(e.Times))
	for _, t := range e.Times {
		docs = append(docs, bson.D{
			{Key: "experiment_id", Value: e.ID},
			{Key: "time", Value: t},
		})
	}
	return docs
}

// SampleExperiment is the experiment used throughout the registry tests.
func SampleExperiment() Experiment {
	return Experiment{
		ID:          "42",
		Name:        "Test",
		Description: "d",
		TimeCreated: "20230615.101530",
		Times:       []any{int32(100)},
	}
}

// Seed inserts the configuration and history records of each experiment.
func Seed(t *testing.T, db store.Database, experiments ...Experiment) {
	t.Helper()
	ctx := context.Background()
	for _, e := range experiments {
		if err := db.Collection(store.ConfigurationCollection).InsertMany(ctx, []store.Document{e.ConfigRecord()}); err != nil {
			t.Fatalf("seed configuration %s: %v", e.ID, err)
		}
		if err := db.Collection(store.HistoryCollection).InsertMany(ctx, e.HistoryRecords()); err != nil {
			t.Fatalf("seed history %s: %v", e.ID, err)
		}
	}
}

// All returns every document of the named collection.
func All(t *testing.T, db store.Database, collection string) []store.Document {
	t.Helper()
	docs, err := db.Collection(collection).FindMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("read %s: %v", collection, err)
	}
	return docs
}
