package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"course-assistant-be/internal/bootstrap"
	"course-assistant-be/internal/config"
	"course-assistant-be/internal/dto"
	"course-assistant-be/internal/server"
	"course-assistant-be/internal/tracer"
	"course-assistant-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	// The database is only needed for the pgvector backend.
	var gormDB *gorm.DB
	if cfg.Vector.Backend == "postgres" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	// Consume subscribes before returning; it must complete before any
	// ingestion jobs are published or the channel drops them.
	log.Println("Background: Starting Consumer Service...")
	if err := container.ConsumerService.Consume(context.Background()); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// Queue any course documents found in the docs folder. Record ids are
	// deterministic, so re-ingesting an indexed course overwrites in place.
	publishStartupIngestion(container, cfg.App.DocsPath)

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}

func publishStartupIngestion(container *bootstrap.Container, docsPath string) {
	entries, err := os.ReadDir(docsPath)
	if err != nil {
		log.Printf("[WARN] Docs folder %q not readable, skipping startup ingestion: %v", docsPath, err)
		return
	}

	ctx := context.Background()
	queued := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".pdf" && ext != ".docx" {
			continue
		}

		payload, err := json.Marshal(dto.IngestDocumentMessage{
			FilePath: filepath.Join(docsPath, entry.Name()),
		})
		if err != nil {
			continue
		}
		if err := container.PublisherService.Publish(ctx, payload); err != nil {
			log.Printf("[WARN] Failed to queue document %s: %v", entry.Name(), err)
			continue
		}
		queued++
	}

	log.Printf("[INFO] Queued %d course documents from %s for ingestion", queued, docsPath)
}
