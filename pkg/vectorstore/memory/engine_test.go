package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-assistant-be/pkg/vectorstore"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("")
	require.NoError(t, err)
	return e
}

func record(id string, vec []float32, meta map[string]interface{}) vectorstore.Record {
	return vectorstore.Record{ID: id, Document: "doc " + id, Embedding: vec, Metadata: meta}
}

func TestAddAndGet(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Add(ctx, "content", []vectorstore.Record{
		record("a", []float32{1, 0}, map[string]interface{}{"course_title": "Go"}),
	})
	require.NoError(t, err)

	got, err := e.Get(ctx, "content", "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc a", got.Document)

	missing, err := e.Get(ctx, "content", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQueryOrdersByDistance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, "content", []vectorstore.Record{
		record("far", []float32{0, 1}, nil),
		record("near", []float32{1, 0}, nil),
		record("mid", []float32{1, 1}, nil),
	}))

	results, err := e.Query(ctx, "content", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestQueryFilters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, "content", []vectorstore.Record{
		record("a", []float32{1, 0}, map[string]interface{}{"course_title": "Go", "lesson_number": 1}),
		record("b", []float32{1, 0}, map[string]interface{}{"course_title": "Go", "lesson_number": 2}),
		record("c", []float32{1, 0}, map[string]interface{}{"course_title": "Rust", "lesson_number": 1}),
	}))

	results, err := e.Query(ctx, "content", []float32{1, 0}, 10, map[string]interface{}{"course_title": "Go"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = e.Query(ctx, "content", []float32{1, 0}, 10, map[string]interface{}{
		"$and": []map[string]interface{}{
			{"course_title": "Go"},
			{"lesson_number": 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestQueryDimensionMismatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, "content", []vectorstore.Record{
		record("a", []float32{1, 0, 0}, nil),
	}))

	_, err := e.Query(ctx, "content", []float32{1, 0}, 5, nil)
	assert.Error(t, err)
}

func TestClearEmptiesCollection(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, "content", []vectorstore.Record{record("a", []float32{1}, nil)}))
	require.NoError(t, e.Clear(ctx, "content"))

	records, err := e.List(ctx, "content")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	e, err := NewEngine(path)
	require.NoError(t, err)
	require.NoError(t, e.Add(ctx, "catalog", []vectorstore.Record{
		record("Go Course", []float32{0.5, 0.5}, map[string]interface{}{"lesson_count": 3}),
	}))

	reopened, err := NewEngine(path)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, "catalog", "Go Course")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc Go Course", got.Document)

	// Numeric metadata survives the JSON round trip for filter matching.
	results, err := reopened.Query(ctx, "catalog", []float32{0.5, 0.5}, 1, map[string]interface{}{"lesson_count": 3})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
