package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"aerodetect/internal/config"
	"aerodetect/internal/logger"
	"aerodetect/internal/model"
	"aerodetect/internal/repository/sqlite"
	"aerodetect/internal/service/media"
	"aerodetect/internal/service/storage"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Backfill the video history database from annotated videos already on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runMigrate(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfg.OutputDirectory, "output", cfg.OutputDirectory, "Directory containing annotated videos")
	rootCmd.Flags().StringVar(&cfg.UploadDirectory, "uploads", cfg.UploadDirectory, "Directory containing uploaded videos")
	rootCmd.Flags().StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Database path")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// migrateStats counts what one backfill run did.
type migrateStats struct {
	Migrated int
	Skipped  int
}

// runMigrate inserts a completed job for every annotated video in the output
// directory that no job references yet. Running it again is a no-op.
func runMigrate(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (migrateStats, error) {
	var stats migrateStats
	fmt.Fprintf(stdout, "Migrating videos from %s to database %s\n", cfg.OutputDirectory, cfg.DatabasePath)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return stats, err
	}
	defer db.Close()

	jobRepo := sqlite.NewVideoJobRepository(db)
	store := storage.NewUploadStore(cfg, logger.NewLogger(cfg))

	entries, err := os.ReadDir(cfg.OutputDirectory)
	if err != nil {
		return stats, fmt.Errorf("failed to read output directory: %w", err)
	}

	var candidates []*storage.StoredUpload
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ext, ok := storage.ParseOutputName(entry.Name())
		if !ok {
			continue
		}
		if count, err := jobRepo.CountByStorageKey(key); err != nil {
			return stats, err
		} else if count > 0 {
			continue
		}
		candidates = append(candidates, store.PathsFor(key, ext))
	}

	if len(candidates) == 0 {
		fmt.Fprintln(stdout, "No untracked videos found to migrate")
		return stats, nil
	}

	bar := progressbar.NewOptions(len(candidates),
		progressbar.OptionSetDescription("🎞️  Migrating"),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionShowCount(),
	)

	var warnings []string
	for _, upload := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		info, err := media.ProbeVideo(upload.OutputPath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping %s: %v", filepath.Base(upload.OutputPath), err))
			stats.Skipped++
			bar.Add(1)
			continue
		}

		created := time.Now()
		if stat, err := os.Stat(upload.OutputPath); err == nil {
			created = stat.ModTime()
		}

		job := &model.VideoJob{
			ID:           uuid.New().String(),
			StorageKey:   upload.Key,
			OriginalName: filepath.Base(upload.InputPath),
			InputPath:    upload.InputPath,
			OutputPath:   upload.OutputPath,
			OutputURL:    upload.OutputURL,
			Status:       model.VideoStatusProcessing,
			CreatedAt:    created,
		}
		if err := jobRepo.Insert(job); err != nil {
			return stats, err
		}
		if err := jobRepo.MarkCompleted(job.ID, info.Frames, info.FPS, info.Width, info.Height); err != nil {
			return stats, err
		}
		stats.Migrated++
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(stderr)

	for _, w := range warnings {
		fmt.Fprintf(stdout, "⚠️  %s\n", w)
	}
	fmt.Fprintf(stdout, "✅ Successfully migrated %d videos to database\n", stats.Migrated)
	if stats.Skipped > 0 {
		fmt.Fprintf(stdout, "⚠️  Skipped %d files (unreadable)\n", stats.Skipped)
	}

	total, err := jobRepo.GetTotalCount()
	if err == nil {
		fmt.Fprintf(stdout, "\n📊 Database Statistics:\n")
		fmt.Fprintf(stdout, "   Total videos: %d\n", total)
	}
	return stats, nil
}
