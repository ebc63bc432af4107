package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeCourseIngested = "COURSE_INGESTED"
	TypeIndexCleared   = "INDEX_CLEARED"
)

// NewCourseIngested signals that one course document was embedded and
// stored.
func NewCourseIngested(courseTitle string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeCourseIngested,
		Data: map[string]interface{}{
			"event_id":     uuid.New().String(),
			"course_title": courseTitle,
			"chunk_count":  chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewIndexCleared signals that both index collections were wiped.
func NewIndexCleared() Event {
	return BaseEvent{
		Type: TypeIndexCleared,
		Data: map[string]interface{}{
			"event_id": uuid.New().String(),
		},
		OccurredAt: time.Now(),
	}
}
