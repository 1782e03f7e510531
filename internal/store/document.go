package store

import (
	"reflect"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookup returns the value of a top-level field.
func Lookup(doc Document, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// With returns a copy of doc with key set to value, replacing the field in
// place when present and appending it otherwise.
func With(doc Document, key string, value any) Document {
	out := make(Document, 0, len(doc)+1)
	replaced := false
	for _, e := range doc {
		if e.Key == key {
			out = append(out, bson.E{Key: key, Value: value})
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, bson.E{Key: key, Value: value})
	}
	return out
}

// Without returns a copy of doc with the named fields removed.
func Without(doc Document, keys ...string) Document {
	out := make(Document, 0, len(doc))
	for _, e := range doc {
		if !slices.Contains(keys, e.Key) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether every field of filter is present in doc with an equal value.
func Matches(doc Document, filter Document) bool {
	for _, cond := range filter {
		v, ok := Lookup(doc, cond.Key)
		if !ok || !reflect.DeepEqual(v, cond.Value) {
			return false
		}
	}
	return true
}

// Project keeps only the named fields, in document order. With no fields the
// document is returned unchanged.
func Project(doc Document, fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := make(Document, 0, len(fields))
	for _, e := range doc {
		if slices.Contains(fields, e.Key) {
			out = append(out, e)
		}
	}
	return out
}

// DistinctValues collects the values of field across docs in first-seen order.
// Array values contribute their elements, as MongoDB's distinct does.
func DistinctValues(docs []Document, field string) []any {
	var values []any
	add := func(v any) {
		for _, seen := range values {
			if reflect.DeepEqual(seen, v) {
				return
			}
		}
		values = append(values, v)
	}
	for _, doc := range docs {
		v, ok := Lookup(doc, field)
		if !ok {
			continue
		}
		if arr, isArr := v.(primitive.A); isArr {
			for _, item := range arr {
				add(item)
			}
			continue
		}
		add(v)
	}
	return values
}

// Clone deep-copies a document so stored records cannot be mutated by callers.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for i, e := range doc {
		out[i] = bson.E{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case bson.D:
		return Clone(val)
	case bson.M:
		m := make(bson.M, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case primitive.A:
		a := make(primitive.A, len(val))
		for i, item := range val {
			a[i] = cloneValue(item)
		}
		return a
	case []byte:
		return append([]byte(nil), val...)
	default:
		return v
	}
}
