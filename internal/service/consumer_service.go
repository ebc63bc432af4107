package service

import (
	"context"
	"encoding/json"

	"course-assistant-be/internal/dto"
	"course-assistant-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub           *gochannel.GoChannel
	topicName        string
	assistantService IAssistantService
	log              logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	assistantService IAssistantService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:           pubSub,
		topicName:        topicName,
		assistantService: assistantService,
		log:              log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer_service", "failed to unmarshal ingest message", map[string]interface{}{
			"error": err.Error(),
		})
		// Ack malformed messages to prevent infinite retry.
		msg.Ack()
		return
	}

	cs.log.Info("consumer_service", "ingesting course document", map[string]interface{}{
		"file_path": payload.FilePath,
	})

	// AddCourseDocument never returns an error; failures are logged and
	// yield zero chunks. Retrying a bad document would fail the same way.
	course, chunkCount := cs.assistantService.AddCourseDocument(ctx, payload.FilePath)
	if course == nil {
		cs.log.Warn("consumer_service", "document ingestion produced no course", map[string]interface{}{
			"file_path": payload.FilePath,
		})
		msg.Ack()
		return
	}

	cs.log.Info("consumer_service", "course document ingested", map[string]interface{}{
		"course_title": course.Title,
		"chunk_count":  chunkCount,
	})
	msg.Ack()
}
