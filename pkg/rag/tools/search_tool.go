package tools

import (
	"context"
	"fmt"
	"strings"

	"course-assistant-be/internal/entity"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/pkg/llm"
	"course-assistant-be/pkg/vectorstore"
)

// SearchIndex is the slice of the vector store the search tool needs.
type SearchIndex interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) *vectorstore.SearchResults
	GetCourseLink(ctx context.Context, title string) (string, error)
	GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error)
}

// CourseSearchTool exposes semantic course search to the model.
type CourseSearchTool struct {
	index SearchIndex
	log   logger.ILogger
}

func NewCourseSearchTool(index SearchIndex, log logger.ILogger) *CourseSearchTool {
	return &CourseSearchTool{
		index: index,
		log:   log,
	}
}

func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]interface{}) Result {
	query, _ := args["query"].(string)
	courseName, _ := args["course_name"].(string)
	lessonNumber := intArg(args, "lesson_number")

	results := t.index.Search(ctx, query, courseName, lessonNumber, 0)

	if results.Error != "" {
		return Result{Output: results.Error}
	}

	if results.IsEmpty() {
		msg := "No relevant content found"
		if courseName != "" {
			msg += fmt.Sprintf(" in course '%s'", courseName)
		}
		if lessonNumber != nil {
			msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
		}
		return Result{Output: msg}
	}

	return t.formatResults(ctx, results)
}

// formatResults renders each hit with a course/lesson header and collects a
// deduplicated source list for attribution.
func (t *CourseSearchTool) formatResults(ctx context.Context, results *vectorstore.SearchResults) Result {
	var formatted []string
	var sources []entity.Source
	seen := map[string]bool{}

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		courseTitle, _ := meta["course_title"].(string)
		if courseTitle == "" {
			courseTitle = "unknown"
		}
		lessonNumber := intMeta(meta, "lesson_number")

		header := fmt.Sprintf("[%s]", courseTitle)
		sourceText := courseTitle
		if lessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", courseTitle, *lessonNumber)
			sourceText = fmt.Sprintf("%s - Lesson %d", courseTitle, *lessonNumber)
		}

		formatted = append(formatted, fmt.Sprintf("%s\n%s", header, doc))

		key := sourceText
		if seen[key] {
			continue
		}
		seen[key] = true

		sources = append(sources, entity.Source{
			Text: sourceText,
			URL:  t.lookupLink(ctx, courseTitle, lessonNumber),
		})
	}

	return Result{
		Output:  strings.Join(formatted, "\n\n"),
		Sources: sources,
	}
}

// lookupLink prefers the lesson link and falls back to the course link.
// Link resolution failures are logged, never surfaced to the model.
func (t *CourseSearchTool) lookupLink(ctx context.Context, courseTitle string, lessonNumber *int) string {
	if lessonNumber != nil {
		link, err := t.index.GetLessonLink(ctx, courseTitle, *lessonNumber)
		if err != nil {
			t.log.Warn("search_tool", "lesson link lookup failed", map[string]interface{}{"course": courseTitle, "error": err.Error()})
		} else if link != "" {
			return link
		}
	}

	link, err := t.index.GetCourseLink(ctx, courseTitle)
	if err != nil {
		t.log.Warn("search_tool", "course link lookup failed", map[string]interface{}{"course": courseTitle, "error": err.Error()})
		return ""
	}
	return link
}

// intArg coerces a JSON-decoded numeric argument to *int.
func intArg(args map[string]interface{}, key string) *int {
	return intMeta(args, key)
}

func intMeta(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case int:
		return &v
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	}
	return nil
}
