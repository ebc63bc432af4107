package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"course-assistant-be/internal/entity"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/pkg/embedding"
)

const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// SearchResults carries parallel result sequences plus an optional error
// string. Failures surface here as text, never as a raised error, so they
// can flow back into the model conversation.
type SearchResults struct {
	Documents []string
	Metadata  []map[string]interface{}
	Distances []float64
	Error     string
}

func ErrorResults(message string) *SearchResults {
	return &SearchResults{Error: message}
}

func (r *SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}

// Store is the semantic index facade: a catalog collection keyed by course
// title and a content collection holding embedded chunks.
type Store struct {
	engine     Engine
	embedder   embedding.EmbeddingProvider
	maxResults int
	log        logger.ILogger
}

func NewStore(engine Engine, embedder embedding.EmbeddingProvider, maxResults int, log logger.ILogger) *Store {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Store{
		engine:     engine,
		embedder:   embedder,
		maxResults: maxResults,
		log:        log,
	}
}

// AddCourseMetadata upserts one catalog entry, embedded on the title text.
// Callers are responsible for preventing duplicate titles.
func (s *Store) AddCourseMetadata(ctx context.Context, course *entity.Course) error {
	lessonsJson, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("serialize lessons: %w", err)
	}

	res, err := s.embedder.Generate(ctx, course.Title, embedding.TaskTypeDocument)
	if err != nil {
		return fmt.Errorf("embed course title: %w", err)
	}

	record := Record{
		ID:        course.Title,
		Document:  course.Title,
		Embedding: res.Embedding.Values,
		Metadata: map[string]interface{}{
			"title":        course.Title,
			"instructor":   course.Instructor,
			"course_link":  course.CourseLink,
			"lesson_count": len(course.Lessons),
			"lessons_json": string(lessonsJson),
		},
	}

	return s.engine.Add(ctx, CatalogCollection, []Record{record})
}

// AddCourseContent embeds and stores chunk records. An empty chunk list
// issues no write at all.
func (s *Store) AddCourseContent(ctx context.Context, chunks []entity.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]Record, 0, len(chunks))
	for _, chunk := range chunks {
		res, err := s.embedder.Generate(ctx, chunk.Content, embedding.TaskTypeDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", chunk.ChunkIndex, err)
		}

		metadata := map[string]interface{}{
			"course_title": chunk.CourseTitle,
			"chunk_index":  chunk.ChunkIndex,
		}
		if chunk.LessonNumber != nil {
			metadata["lesson_number"] = *chunk.LessonNumber
		}

		records = append(records, Record{
			ID:        fmt.Sprintf("%s_%d", strings.ReplaceAll(chunk.CourseTitle, " ", "_"), chunk.ChunkIndex),
			Document:  chunk.Content,
			Embedding: res.Embedding.Values,
			Metadata:  metadata,
		})
	}

	return s.engine.Add(ctx, ContentCollection, records)
}

// Search resolves an optional course name, builds metadata filters and runs
// a bounded nearest-neighbour query. All failures come back inside the
// result set.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) *SearchResults {
	resolvedTitle := ""
	if courseName != "" {
		title, ok := s.resolveCourseName(ctx, courseName)
		if !ok {
			return ErrorResults(fmt.Sprintf("No course found matching '%s'", courseName))
		}
		resolvedTitle = title
	}

	if limit <= 0 {
		limit = s.maxResults
	}

	res, err := s.embedder.Generate(ctx, query, embedding.TaskTypeQuery)
	if err != nil {
		return ErrorResults(fmt.Sprintf("Search error: %s", err.Error()))
	}

	filter := buildFilter(resolvedTitle, lessonNumber)
	hits, err := s.engine.Query(ctx, ContentCollection, res.Embedding.Values, limit, filter)
	if err != nil {
		return ErrorResults(fmt.Sprintf("Search error: %s", err.Error()))
	}

	results := &SearchResults{}
	for _, hit := range hits {
		results.Documents = append(results.Documents, hit.Document)
		results.Metadata = append(results.Metadata, hit.Metadata)
		results.Distances = append(results.Distances, hit.Distance)
	}
	return results
}

// resolveCourseName fuzzy-matches a free-text name against the catalog by
// taking the single nearest title. No similarity cutoff is applied, so any
// non-empty catalog yields a match.
func (s *Store) resolveCourseName(ctx context.Context, name string) (string, bool) {
	res, err := s.embedder.Generate(ctx, name, embedding.TaskTypeQuery)
	if err != nil {
		s.log.Error("vectorstore", "failed to embed course name", map[string]interface{}{"error": err.Error(), "name": name})
		return "", false
	}

	hits, err := s.engine.Query(ctx, CatalogCollection, res.Embedding.Values, 1, nil)
	if err != nil {
		s.log.Error("vectorstore", "course resolution query failed", map[string]interface{}{"error": err.Error(), "name": name})
		return "", false
	}
	if len(hits) == 0 {
		return "", false
	}

	title, _ := hits[0].Metadata["title"].(string)
	if title == "" {
		title = hits[0].Document
	}
	return title, true
}

func buildFilter(courseTitle string, lessonNumber *int) map[string]interface{} {
	switch {
	case courseTitle != "" && lessonNumber != nil:
		return map[string]interface{}{
			"$and": []map[string]interface{}{
				{"course_title": courseTitle},
				{"lesson_number": *lessonNumber},
			},
		}
	case courseTitle != "":
		return map[string]interface{}{"course_title": courseTitle}
	case lessonNumber != nil:
		return map[string]interface{}{"lesson_number": *lessonNumber}
	default:
		return nil
	}
}

func (s *Store) GetExistingCourseTitles(ctx context.Context) ([]string, error) {
	records, err := s.engine.List(ctx, CatalogCollection)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(records))
	for _, record := range records {
		titles = append(titles, record.ID)
	}
	return titles, nil
}

func (s *Store) GetCourseCount(ctx context.Context) (int, error) {
	records, err := s.engine.List(ctx, CatalogCollection)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Store) GetCourseLink(ctx context.Context, title string) (string, error) {
	record, err := s.engine.Get(ctx, CatalogCollection, title)
	if err != nil || record == nil {
		return "", err
	}
	link, _ := record.Metadata["course_link"].(string)
	return link, nil
}

// GetLessonLink deserializes the catalog's lesson list and scans for the
// matching lesson number. Absent lessons yield an empty link, not an error.
func (s *Store) GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	record, err := s.engine.Get(ctx, CatalogCollection, title)
	if err != nil || record == nil {
		return "", err
	}

	raw, _ := record.Metadata["lessons_json"].(string)
	if raw == "" {
		return "", nil
	}

	var lessons []entity.Lesson
	if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
		return "", fmt.Errorf("deserialize lessons: %w", err)
	}

	for _, lesson := range lessons {
		if lesson.LessonNumber == lessonNumber {
			return lesson.LessonLink, nil
		}
	}
	return "", nil
}

// ClearAllData drops and recreates both collections. The two clears are not
// transactional; a partial failure leaves the other collection intact.
func (s *Store) ClearAllData(ctx context.Context) error {
	if err := s.engine.Clear(ctx, CatalogCollection); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	if err := s.engine.Clear(ctx, ContentCollection); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}
	return nil
}
