package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-assistant-be/internal/entity"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/pkg/embedding"
	"course-assistant-be/pkg/vectorstore"
	"course-assistant-be/pkg/vectorstore/memory"
)

// fakeEmbedder maps known texts to fixed vectors and everything else to a
// default direction, so nearest-neighbour ranking is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	vec, ok := f.vectors[text]
	if !ok {
		vec = []float32{0.1, 0.1, 0.1}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

func intPtr(n int) *int { return &n }

func sampleCourse() *entity.Course {
	return &entity.Course{
		Title:      "Machine Learning 101",
		CourseLink: "https://example.com/ml",
		Instructor: "Dr. Sarah Johnson",
		Lessons: []entity.Lesson{
			{LessonNumber: 0, LessonTitle: "Intro", LessonLink: "https://example.com/ml/0"},
			{LessonNumber: 1, LessonTitle: "Supervised", LessonLink: "https://example.com/ml/1"},
		},
	}
}

func newTestStore(t *testing.T, embedder embedding.EmbeddingProvider) (*vectorstore.Store, *memory.Engine) {
	t.Helper()
	engine, err := memory.NewEngine("")
	require.NoError(t, err)
	return vectorstore.NewStore(engine, embedder, 5, logger.NewNopLogger()), engine
}

func seedStore(t *testing.T, store *vectorstore.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AddCourseMetadata(ctx, sampleCourse()))
	require.NoError(t, store.AddCourseContent(ctx, []entity.CourseChunk{
		{Content: "Machine learning basics", CourseTitle: "Machine Learning 101", LessonNumber: intPtr(0), ChunkIndex: 0},
		{Content: "Supervised learning uses labels", CourseTitle: "Machine Learning 101", LessonNumber: intPtr(1), ChunkIndex: 1},
	}))
}

func TestAddCourseContentEmptyIssuesNoWrite(t *testing.T) {
	store, engine := newTestStore(t, &fakeEmbedder{})
	ctx := context.Background()

	require.NoError(t, store.AddCourseContent(ctx, nil))

	records, err := engine.List(ctx, vectorstore.ContentCollection)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchWithoutFilters(t *testing.T) {
	store, _ := newTestStore(t, &fakeEmbedder{})
	seedStore(t, store)

	results := store.Search(context.Background(), "what is machine learning", "", nil, 0)

	assert.Empty(t, results.Error)
	assert.False(t, results.IsEmpty())
	assert.Len(t, results.Documents, len(results.Metadata))
	assert.Len(t, results.Documents, len(results.Distances))
}

func TestSearchResolvesPartialCourseName(t *testing.T) {
	// Recall over precision: any non-empty catalog resolves to its nearest
	// title, with no similarity cutoff.
	store, _ := newTestStore(t, &fakeEmbedder{})
	seedStore(t, store)

	results := store.Search(context.Background(), "basics", "ML", nil, 0)

	require.Empty(t, results.Error)
	require.False(t, results.IsEmpty())
	for _, meta := range results.Metadata {
		assert.Equal(t, "Machine Learning 101", meta["course_title"])
	}
}

func TestSearchUnknownCourseShortCircuits(t *testing.T) {
	store, _ := newTestStore(t, &fakeEmbedder{})

	results := store.Search(context.Background(), "anything", "Nonexistent Course", nil, 0)

	assert.Equal(t, "No course found matching 'Nonexistent Course'", results.Error)
	assert.True(t, results.IsEmpty())
}

func TestSearchLessonFilter(t *testing.T) {
	store, _ := newTestStore(t, &fakeEmbedder{})
	seedStore(t, store)

	results := store.Search(context.Background(), "learning", "Machine Learning", intPtr(1), 0)

	require.Empty(t, results.Error)
	require.False(t, results.IsEmpty())
	for _, meta := range results.Metadata {
		assert.EqualValues(t, 1, meta["lesson_number"])
	}
}

func TestSearchEmbedderFailureReturnsErrorText(t *testing.T) {
	store, _ := newTestStore(t, &fakeEmbedder{fail: true})

	results := store.Search(context.Background(), "query", "", nil, 0)

	assert.Contains(t, results.Error, "Search error:")
	assert.True(t, results.IsEmpty())
}

func TestPointLookups(t *testing.T) {
	store, _ := newTestStore(t, &fakeEmbedder{})
	seedStore(t, store)
	ctx := context.Background()

	titles, err := store.GetExistingCourseTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Machine Learning 101"}, titles)

	count, err := store.GetCourseCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	link, err := store.GetCourseLink(ctx, "Machine Learning 101")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ml", link)

	lessonLink, err := store.GetLessonLink(ctx, "Machine Learning 101", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ml/1", lessonLink)

	missing, err := store.GetLessonLink(ctx, "Machine Learning 101", 99)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestClearAllData(t *testing.T) {
	store, engine := newTestStore(t, &fakeEmbedder{})
	seedStore(t, store)
	ctx := context.Background()

	require.NoError(t, store.ClearAllData(ctx))

	catalog, err := engine.List(ctx, vectorstore.CatalogCollection)
	require.NoError(t, err)
	content, err := engine.List(ctx, vectorstore.ContentCollection)
	require.NoError(t, err)
	assert.Empty(t, catalog)
	assert.Empty(t, content)
}
