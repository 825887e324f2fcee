package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"detectserver/internal/model"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/service/codec"
	"detectserver/internal/service/storage"
)

// reindex records artifacts that exist in the results directory but are
// missing from the ledger, e.g. files written while DATABASE_PATH was empty.
func main() {
	resultsDir := flag.String("results", filepath.Join("static", "results"), "Directory containing result images")
	dbPath := flag.String("db", filepath.Join("data", "artifacts.db"), "Database path")
	flag.Parse()

	fmt.Printf("Indexing results from %s into %s\n", *resultsDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewArtifactRepository(db)
	ctx := context.Background()

	files, err := os.ReadDir(*resultsDir)
	if err != nil {
		log.Fatalf("Failed to read results directory: %v", err)
	}

	added, present, skipped := 0, 0, 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		format, err := codec.FormatFromName(name)
		if err != nil {
			log.Printf("Skipping %s: %v", name, err)
			skipped++
			continue
		}

		exists, err := repo.Exists(ctx, name)
		if err != nil {
			log.Fatalf("Failed to query %s: %v", name, err)
		}
		if exists {
			present++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", name, err)
			skipped++
			continue
		}

		capturedAt, ok := storage.ParseCapturedAt(name)
		if !ok {
			capturedAt = info.ModTime()
		}

		if _, err := repo.Insert(ctx, &model.Artifact{
			Filename:    name,
			FilePath:    filepath.Join(*resultsDir, name),
			ContentType: format.ContentType(),
			FileSize:    info.Size(),
			CapturedAt:  capturedAt,
		}); err != nil {
			log.Fatalf("Failed to insert %s: %v", name, err)
		}
		added++
	}

	fmt.Printf("Indexed %d new artifacts (%d already present, %d skipped)\n", added, present, skipped)

	total, err := repo.Count(ctx, &model.ArtifactFilter{})
	if err == nil {
		fmt.Printf("Ledger now holds %d artifacts\n", total)
	}
}
