package main

import (
	"context"
	"flag"
	"log"
	"os"

	"course-assistant-be/internal/bootstrap"
	"course-assistant-be/internal/config"
	"course-assistant-be/pkg/database"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

// Ingests a folder of course documents into the vector index without
// starting the HTTP server.
func main() {
	folderPath := flag.String("path", "docs", "folder containing course documents")
	clearExisting := flag.Bool("clear", false, "clear the index before ingesting")
	flag.Parse()

	cfg := config.Load()

	var gormDB *gorm.DB
	if cfg.Vector.Backend == "postgres" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	ctx := context.Background()
	courses, chunks := container.AssistantService.AddCourseFolder(ctx, *folderPath, *clearExisting)

	if courses == 0 && chunks == 0 {
		color.Yellow("No new courses ingested from %s", *folderPath)
	} else {
		color.Green("Ingested %d courses (%d chunks) from %s", courses, chunks, *folderPath)
	}

	stats, err := container.AssistantService.GetCourseAnalytics(ctx)
	if err != nil {
		color.Red("Failed to read index stats: %v", err)
		os.Exit(1)
	}

	color.Cyan("Index now holds %d courses:", stats.TotalCourses)
	for _, title := range stats.CourseTitles {
		color.White("  - %s", title)
	}
}
