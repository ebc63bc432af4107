package dto

type QueryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionId string `json:"session_id"`
}

type SourceResponse struct {
	Text string `json:"text"`
	Url  string `json:"url,omitempty"`
}

type QueryResponse struct {
	Answer    string           `json:"answer"`
	Sources   []SourceResponse `json:"sources"`
	SessionId string           `json:"session_id"`
}

type CourseStatsResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

// IngestDocumentMessage is the payload of one background ingestion job.
type IngestDocumentMessage struct {
	FilePath string `json:"file_path"`
}
