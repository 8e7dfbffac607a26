package admin

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
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/parchmentlabs/recall/internal/api/handlers"
	"github.com/parchmentlabs/recall/internal/chunker"
	"github.com/parchmentlabs/recall/internal/config"
	"github.com/parchmentlabs/recall/internal/database"
	"github.com/parchmentlabs/recall/internal/embedding"
	"github.com/parchmentlabs/recall/internal/llm"
	"github.com/parchmentlabs/recall/internal/parser"
	"github.com/parchmentlabs/recall/internal/repository"
	"github.com/parchmentlabs/recall/internal/server"
	"github.com/parchmentlabs/recall/internal/service"
	"github.com/parchmentlabs/recall/internal/storage"
	"github.com/parchmentlabs/recall/internal/telemetry"
	"github.com/parchmentlabs/recall/internal/vector"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the recall API server on the specified port",
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

	if cfg.SentryDSN != "" {
		environment := cfg.SentryEnv
		if environment == "" {
			environment = "development"
		}

		sampleRate := cfg.SentrySampleRate
		if sampleRate == 0 {
			sampleRate = 0.1
			if environment == "development" {
				sampleRate = 1.0
			}
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
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

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
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

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)

	namespaces := vector.NewManager(pool)
	vectors := vector.NewStore(pool)

	embedder := embedding.NewClient(embedding.Config{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.EmbedBaseURL,
		Model:              cfg.EmbedModel,
		Dimension:          cfg.EmbedDimension,
		Timeout:            cfg.EmbedTimeout,
		ZeroVectorFallback: cfg.EmbedZeroFallback,
	})
	completer := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.ChatBaseURL,
		Model:   cfg.ChatModel,
		Timeout: cfg.ChatTimeout,
	})

	chunkCfg := chunker.Config{WindowSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}

	authSvc := service.NewAuthService(userRepo, tokenRepo)
	ingestionSvc := service.NewIngestionService(docRepo, parser.New(), embedder, namespaces, vectors, chunkCfg)
	querySvc := service.NewQueryService(docRepo, embedder, namespaces, vectors, completer, cfg.TopK)
	documentSvc := service.NewDocumentService(docRepo)

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
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
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready, archiving uploads", cfg.S3Bucket)
		ingestionSvc.WithArchiver(s3Client)
	}

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:  authSvc,
		DocumentHandler: handlers.NewDocumentHandler(ingestionSvc, documentSvc, cfg.UploadDir),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
		MaxBodyBytes:    cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
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

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs database/sql, not pgx
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is empty (no migrations applied)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
