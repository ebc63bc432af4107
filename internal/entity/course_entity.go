package entity

// Lesson is one numbered lesson inside a course. LessonNumber is unique
// within its course; the link is optional.
type Lesson struct {
	LessonNumber int    `json:"lesson_number"`
	LessonTitle  string `json:"lesson_title"`
	LessonLink   string `json:"lesson_link,omitempty"`
}

// Course is the catalog entry for one ingested document. Title is the
// unique key across the whole index.
type Course struct {
	Title      string   `json:"title"`
	CourseLink string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// CourseChunk is a bounded slice of course text prepared for embedding.
// LessonNumber is nil for content that appears before the first lesson
// marker. ChunkIndex is sequential across the whole source document.
type CourseChunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// Source is one attribution entry returned alongside an answer.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}
