package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func sample() Document {
	return bson.D{
		{Key: "_id", Value: "oid"},
		{Key: "experiment_id", Value: "42"},
		{Key: "state", Value: bson.D{{Key: "x", Value: 1}}},
		{Key: "tags", Value: bson.A{"a", "b"}},
	}
}

func TestLookup(t *testing.T) {
	v, ok := Lookup(sample(), "experiment_id")
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	_, ok = Lookup(sample(), "missing")
	assert.False(t, ok)

	_, ok = Lookup(nil, "experiment_id")
	assert.False(t, ok)
}

func TestWith(t *testing.T) {
	doc := sample()

	replaced := With(doc, "experiment_id", "43")
	assert.Equal(t, "experiment_id", replaced[1].Key, "replaced in place")
	assert.Equal(t, "43", replaced[1].Value)
	assert.Equal(t, "42", doc[1].Value, "input untouched")

	appended := With(doc, "name", "n")
	assert.Len(t, appended, len(doc)+1)
	assert.Equal(t, bson.E{Key: "name", Value: "n"}, appended[len(appended)-1])
}

func TestWithout(t *testing.T) {
	doc := sample()
	out := Without(doc, "_id", "tags", "missing")

	assert.Equal(t, Document{
		{Key: "experiment_id", Value: "42"},
		{Key: "state", Value: bson.D{{Key: "x", Value: 1}}},
	}, out)
	assert.Len(t, doc, 4)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		filter   Document
		expected bool
	}{
		{name: "empty filter", filter: nil, expected: true},
		{name: "equal string", filter: bson.D{{Key: "experiment_id", Value: "42"}}, expected: true},
		{name: "different string", filter: bson.D{{Key: "experiment_id", Value: "7"}}, expected: false},
		{name: "missing field", filter: bson.D{{Key: "name", Value: "x"}}, expected: false},
		{name: "nested document", filter: bson.D{{Key: "state", Value: bson.D{{Key: "x", Value: 1}}}}, expected: true},
		{name: "type matters", filter: bson.D{{Key: "state", Value: bson.D{{Key: "x", Value: int64(1)}}}}, expected: false},
		{name: "all conditions", filter: bson.D{{Key: "experiment_id", Value: "42"}, {Key: "_id", Value: "other"}}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Matches(sample(), tt.filter))
		})
	}
}

func TestProject(t *testing.T) {
	assert.Equal(t, sample(), Project(sample(), nil))
	assert.Equal(t, Document{
		{Key: "experiment_id", Value: "42"},
		{Key: "tags", Value: bson.A{"a", "b"}},
	}, Project(sample(), []string{"tags", "experiment_id"}), "document order, not projection order")
}

func TestDistinctValues(t *testing.T) {
	docs := []Document{
		{{Key: "v", Value: "a"}},
		{{Key: "v", Value: bson.A{"b", "a"}}},
		{{Key: "other", Value: "z"}},
		{{Key: "v", Value: int32(1)}},
		{{Key: "v", Value: "b"}},
	}
	assert.Equal(t, []any{"a", "b", int32(1)}, DistinctValues(docs, "v"))
	assert.Nil(t, DistinctValues(nil, "v"))
}

func TestClone(t *testing.T) {
	doc := sample()
	doc = append(doc, bson.E{Key: "raw", Value: []byte{1, 2}}, bson.E{Key: "m", Value: bson.M{"k": bson.A{1}}})
	clone := Clone(doc)
	assert.Equal(t, doc, clone)

	clone[2].Value.(bson.D)[0].Value = 2
	clone[3].Value.(bson.A)[0] = "z"
	clone[4].Value.([]byte)[0] = 9
	clone[5].Value.(bson.M)["k"].(bson.A)[0] = 5

	assert.Equal(t, sample()[2], doc[2])
	assert.Equal(t, sample()[3], doc[3])
	assert.Equal(t, []byte{1, 2}, doc[4].Value)
	assert.Equal(t, bson.M{"k": bson.A{1}}, doc[5].Value)
	assert.Nil(t, Clone(nil))
}
