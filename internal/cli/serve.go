package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aura-systems/aura/internal/api/handlers"
	"github.com/aura-systems/aura/internal/config"
	"github.com/aura-systems/aura/internal/database"
	"github.com/aura-systems/aura/internal/extract"
	"github.com/aura-systems/aura/internal/jobs"
	"github.com/aura-systems/aura/internal/openai"
	"github.com/aura-systems/aura/internal/repository"
	"github.com/aura-systems/aura/internal/server"
	"github.com/aura-systems/aura/internal/service"
	"github.com/aura-systems/aura/internal/storage"
	"github.com/aura-systems/aura/internal/telemetry"
	"github.com/aura-systems/aura/internal/vectorstore"
	"github.com/aura-systems/aura/migrations"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the aura API server and the background ingestion worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	applyFlagOverrides(cmd.Flags(), cfg)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	brainRepo := repository.NewBrainRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	openaiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.LLMModel,
		TitleModel:          cfg.TitleModel,
	})

	var index service.VectorIndex
	switch cfg.VectorBackend {
	case "qdrant":
		if !cfg.HasQdrant() {
			return fmt.Errorf("QDRANT_URL is required for the qdrant vector backend")
		}
		qdrant := vectorstore.NewQdrantIndex(vectorstore.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
		if err := qdrant.EnsureCollection(ctx, cfg.EmbeddingDimensions); err != nil {
			return fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		log.Printf("qdrant collection '%s' ready", cfg.QdrantCollection)
		index = qdrant
	case "pgvector":
		index = repository.NewVectorEntryRepository(pool)
	default:
		return fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}

	if !cfg.HasS3() {
		return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required")
	}
	blobs, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

	extractor := extract.NewExtractor(&extract.TesseractOCR{})

	ingestSvc := service.NewIngestionService(
		extractor,
		openaiClient,
		index,
		blobs,
		documentRepo,
		service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	)

	ragSvc := service.NewRAGService(openaiClient, openaiClient, index, service.RAGConfig{
		ScoreThreshold: cfg.ScoreThreshold,
		MaxContextDocs: cfg.MaxContextDocs,
		Temperature:    cfg.LLMTemperature,
		MaxTokens:      cfg.LLMMaxTokens,
	})

	brainSvc := service.NewBrainService(brainRepo, documentRepo, index, blobs)
	documentSvc := service.NewDocumentService(documentRepo, blobs, blobs, index, brainSvc)
	chatSvc := service.NewChatService(chatRepo, ragSvc, brainSvc)

	ingestProcessor := jobs.NewIngestProcessor(documentRepo, ingestSvc)
	ingestWorker := jobs.NewWorker(ingestProcessor, cfg.IngestPollInterval)
	go ingestWorker.Start(ctx)
	log.Println("ingestion worker started")

	routerCfg := server.RouterConfig{
		PrincipalStore:  principalRepo,
		BrainHandler:    handlers.NewBrainHandler(brainSvc),
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		SearchHandler:   handlers.NewSearchHandler(ragSvc, brainSvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// applyFlagOverrides copies flags that were explicitly set on the command
// line over the environment-derived config.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "port" {
			cfg.Port = f.Value.String()
		}
	})
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", versionErr)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	log.Println(migrationStatus(upErr, versionErr, version))
	return nil
}

// migrationStatus describes the outcome of an Up run for the startup log.
// Version reports ErrNilVersion on an empty schema; Up reports ErrNoChange
// when the schema was already current.
func migrationStatus(upErr, versionErr error, version uint) string {
	switch {
	case versionErr == migrate.ErrNilVersion:
		return "migrations: database is up to date (no migrations applied)"
	case upErr == migrate.ErrNoChange:
		return fmt.Sprintf("migrations: database is up to date (version %d)", version)
	default:
		return fmt.Sprintf("migrations: applied successfully (version %d)", version)
	}
}
