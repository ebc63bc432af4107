package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"course-assistant-be/internal/dto"
	"course-assistant-be/internal/entity"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/pkg/docproc"
	"course-assistant-be/pkg/events"
	"course-assistant-be/pkg/rag/session"
	"course-assistant-be/pkg/rag/tools"
)

// allowed document extensions for folder ingestion
var allowedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

type IAssistantService interface {
	Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
	GetCourseAnalytics(ctx context.Context) (*dto.CourseStatsResponse, error)
	CreateSession() *dto.CreateSessionResponse
	ClearSession(sessionId string)
	AddCourseDocument(ctx context.Context, filePath string) (*entity.Course, int)
	AddCourseFolder(ctx context.Context, folderPath string, clearExisting bool) (int, int)
}

// AnswerGenerator produces a grounded answer for a user prompt.
type AnswerGenerator interface {
	GenerateResponse(ctx context.Context, prompt, history string, registry *tools.Registry) (string, []entity.Source, error)
}

// CourseIndex is the slice of the vector store the assistant writes to
// and reads analytics from.
type CourseIndex interface {
	AddCourseMetadata(ctx context.Context, course *entity.Course) error
	AddCourseContent(ctx context.Context, chunks []entity.CourseChunk) error
	GetExistingCourseTitles(ctx context.Context) ([]string, error)
	GetCourseCount(ctx context.Context) (int, error)
	ClearAllData(ctx context.Context) error
}

// EventPublisher fans ingestion events out to the bus. May be absent
// when NATS is not configured.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type assistantService struct {
	processor      *docproc.Processor
	index          CourseIndex
	generator      AnswerGenerator
	registry       *tools.Registry
	sessions       *session.Manager
	eventPublisher EventPublisher
	log            logger.ILogger
}

func NewAssistantService(
	processor *docproc.Processor,
	index CourseIndex,
	generator AnswerGenerator,
	registry *tools.Registry,
	sessions *session.Manager,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		processor:      processor,
		index:          index,
		generator:      generator,
		registry:       registry,
		sessions:       sessions,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func (s *assistantService) Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = s.sessions.CreateSession()
	}

	history, _ := s.sessions.ConversationHistory(sessionId)

	prompt := fmt.Sprintf("Answer this question about course materials: %s", req.Query)

	answer, sources, err := s.generator.GenerateResponse(ctx, prompt, history, s.registry)
	if err != nil {
		return nil, err
	}

	s.sessions.AddExchange(sessionId, req.Query, answer)

	sourceResponses := make([]dto.SourceResponse, 0, len(sources))
	for _, src := range sources {
		sourceResponses = append(sourceResponses, dto.SourceResponse{
			Text: src.Text,
			Url:  src.URL,
		})
	}

	return &dto.QueryResponse{
		Answer:    answer,
		Sources:   sourceResponses,
		SessionId: sessionId,
	}, nil
}

func (s *assistantService) GetCourseAnalytics(ctx context.Context) (*dto.CourseStatsResponse, error) {
	titles, err := s.index.GetExistingCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.index.GetCourseCount(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CourseStatsResponse{
		TotalCourses: count,
		CourseTitles: titles,
	}, nil
}

func (s *assistantService) CreateSession() *dto.CreateSessionResponse {
	return &dto.CreateSessionResponse{SessionId: s.sessions.CreateSession()}
}

func (s *assistantService) ClearSession(sessionId string) {
	s.sessions.ClearSession(sessionId)
}

// AddCourseDocument ingests a single document. Ingestion failures are
// logged and reported as zero work, never as an error.
func (s *assistantService) AddCourseDocument(ctx context.Context, filePath string) (*entity.Course, int) {
	course, chunks, err := s.processor.ProcessDocument(filePath)
	if err != nil {
		s.log.Error("assistant_service", "failed to process document", map[string]interface{}{
			"file_path": filePath,
			"error":     err.Error(),
		})
		return nil, 0
	}

	if err := s.index.AddCourseMetadata(ctx, course); err != nil {
		s.log.Error("assistant_service", "failed to store course metadata", map[string]interface{}{
			"course_title": course.Title,
			"error":        err.Error(),
		})
		return nil, 0
	}

	if err := s.index.AddCourseContent(ctx, chunks); err != nil {
		s.log.Error("assistant_service", "failed to store course content", map[string]interface{}{
			"course_title": course.Title,
			"error":        err.Error(),
		})
		return nil, 0
	}

	s.publishEvent(ctx, events.NewCourseIngested(course.Title, len(chunks)))

	return course, len(chunks)
}

// AddCourseFolder ingests every supported document in a folder,
// skipping courses already present in the index. Each file is isolated:
// one bad document never aborts the batch.
func (s *assistantService) AddCourseFolder(ctx context.Context, folderPath string, clearExisting bool) (int, int) {
	if clearExisting {
		s.log.Info("assistant_service", "clearing existing course data", nil)
		if err := s.index.ClearAllData(ctx); err != nil {
			s.log.Error("assistant_service", "failed to clear course data", map[string]interface{}{
				"error": err.Error(),
			})
			return 0, 0
		}
		s.publishEvent(ctx, events.NewIndexCleared())
	}

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		s.log.Error("assistant_service", "failed to read course folder", map[string]interface{}{
			"folder_path": folderPath,
			"error":       err.Error(),
		})
		return 0, 0
	}

	existing := make(map[string]bool)
	titles, err := s.index.GetExistingCourseTitles(ctx)
	if err != nil {
		s.log.Warn("assistant_service", "failed to list existing courses, assuming none", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for _, title := range titles {
		existing[title] = true
	}

	totalCourses := 0
	totalChunks := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !allowedExtensions[ext] {
			continue
		}

		filePath := filepath.Join(folderPath, entry.Name())
		course, chunks, err := s.processor.ProcessDocument(filePath)
		if err != nil {
			s.log.Error("assistant_service", "failed to process document, skipping", map[string]interface{}{
				"file_path": filePath,
				"error":     err.Error(),
			})
			continue
		}

		if existing[course.Title] {
			s.log.Info("assistant_service", "course already indexed, skipping", map[string]interface{}{
				"course_title": course.Title,
			})
			continue
		}

		if err := s.index.AddCourseMetadata(ctx, course); err != nil {
			s.log.Error("assistant_service", "failed to store course metadata, skipping", map[string]interface{}{
				"course_title": course.Title,
				"error":        err.Error(),
			})
			continue
		}
		if err := s.index.AddCourseContent(ctx, chunks); err != nil {
			s.log.Error("assistant_service", "failed to store course content, skipping", map[string]interface{}{
				"course_title": course.Title,
				"error":        err.Error(),
			})
			continue
		}

		existing[course.Title] = true
		totalCourses++
		totalChunks += len(chunks)

		s.publishEvent(ctx, events.NewCourseIngested(course.Title, len(chunks)))

		s.log.Info("assistant_service", "course ingested", map[string]interface{}{
			"course_title": course.Title,
			"chunk_count":  len(chunks),
		})
	}

	return totalCourses, totalChunks
}

func (s *assistantService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("assistant_service", "failed to publish event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}
