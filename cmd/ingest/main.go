package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"parks-rag/internal/adapter/embedding"
	"parks-rag/internal/adapter/repository"
	"parks-rag/internal/infra"
	"parks-rag/internal/infra/config"
	"parks-rag/internal/infra/httpclient"
	"parks-rag/internal/infra/logger"
	"parks-rag/internal/ingest"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()
	slog.SetDefault(log)

	root := &cobra.Command{
		Use:   "ingest",
		Short: "Offline passage ingestion for the parks chat service",
	}
	root.AddCommand(newUploadCmd(log), newCreateIndexCmd(log))

	if err := root.Execute(); err != nil {
		log.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func newUploadCmd(log *slog.Logger) *cobra.Command {
	var (
		file           string
		callsPerMinute int
		batchSize      int
		workers        int
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Embed chunked documents and store them as passages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			pool, err := infra.NewPostgresDB(ctx, dsn(cfg))
			if err != nil {
				return fmt.Errorf("failed to connect to db: %w", err)
			}
			defer pool.Close()

			repo := repository.NewPassageRepository(pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}

			chunks, err := ingest.LoadChunks(file)
			if err != nil {
				return err
			}
			log.Info("chunks loaded", "count", len(chunks), "file", file)

			embedHTTP := httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeout) * time.Second)
			encoder := embedding.NewCohereEmbedder(cfg.CohereURL, cfg.EmbeddingModel, cfg.CohereAPIKey, embedHTTP)

			uploader := ingest.NewUploader(encoder, repo, callsPerMinute, batchSize, workers, log)
			uploaded, err := uploader.Run(ctx, chunks)
			log.Info("upload finished", "uploaded", uploaded, "total", len(chunks))
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "data/processed/all_chunks.json", "path to the chunked documents JSON file")
	cmd.Flags().IntVar(&callsPerMinute, "calls-per-minute", 100, "embedding API call budget")
	cmd.Flags().IntVar(&batchSize, "batch-size", 96, "texts per embedding call")
	cmd.Flags().IntVar(&workers, "workers", 2, "concurrent upload batches")
	return cmd
}

func newCreateIndexCmd(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create-index",
		Short: "Create the park_code and vector indexes used by filtered search",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			pool, err := infra.NewPostgresDB(ctx, dsn(cfg))
			if err != nil {
				return fmt.Errorf("failed to connect to db: %w", err)
			}
			defer pool.Close()

			if err := repository.NewPassageRepository(pool).EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Info("indexes ensured")
			return nil
		},
	}
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
