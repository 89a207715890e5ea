package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/documents"
	"logistics-backend/internal/invoices"
	"logistics-backend/internal/services/health"
	"logistics-backend/internal/shared/auth"
	"logistics-backend/internal/shared/config"
	"logistics-backend/internal/shared/metrics"
	"logistics-backend/internal/shared/server"
	"logistics-backend/internal/shared/server/middleware"
	"logistics-backend/internal/shared/storage/db"
	"logistics-backend/internal/shared/storage/object"
	localstore "logistics-backend/internal/shared/storage/object/local"
	miniostore "logistics-backend/internal/shared/storage/object/minio"
	s3store "logistics-backend/internal/shared/storage/object/s3"
	"logistics-backend/internal/shared/telemetry"
)

// App holds shared dependencies built once at startup.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	// Store receives new uploads. LocalStore is the uploads root legacy files are served from.
	Store      object.ObjectStore
	LocalStore object.ObjectStore

	DocumentsRepo    documents.Repo
	InvoicesRepo     invoices.Repo
	DocumentsService *documents.Service
	InvoicesService  *invoices.Service
	DocumentsHandler *documents.Handler
	InvoicesHandler  *invoices.Handler
	Health           *health.Service
	Verifier         *auth.Verifier
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	metrics.TrackDB("documents", sqlDB)

	local := object.Instrument(localstore.New(cfg.LocalStoreDir, cfg.LocalURLPrefix))
	store, err := buildStore(ctx, cfg, local)
	if err != nil {
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, err
	}

	app := &App{
		Config:     cfg,
		DB:         sqlDB,
		Store:      store,
		LocalStore: local,
		Verifier:   verifier,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        verifier,
		Health:          app.Health,
		DocumentHandler: app.DocumentsHandler,
		InvoiceHandler:  app.InvoicesHandler,
		RateLimiter:     middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     sqlDB != nil,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config, local object.ObjectStore) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, s3store.Options{
			Region:        cfg.AWSRegion,
			Bucket:        cfg.Bucket,
			Prefix:        cfg.Prefix,
			Endpoint:      cfg.S3Endpoint,
			UsePathStyle:  cfg.S3UsePathStyle,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return object.Instrument(store), nil
	case "minio":
		store, err := miniostore.New(ctx, miniostore.Options{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			UseSSL:        cfg.MinioUseSSL,
			Bucket:        cfg.Bucket,
			Region:        cfg.AWSRegion,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return object.Instrument(store), nil
	default:
		return local, nil
	}
}

func buildServices(app *App) {
	cfg := app.Config

	var docRepo documents.Repo
	var invoiceRepo invoices.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		invoiceRepo = &invoices.PGRepo{DB: app.DB}
	} else {
		mem := documents.NewMemoryRepo()
		mem.AllowUnknown = true
		docRepo = mem
		invoiceRepo = invoices.NewMemoryRepo()
	}

	pipeline := &documents.Pipeline{
		Deriver: documents.NewDeriver(nil),
		Store:   app.Store,
		Timeout: cfg.RequestTimeout,
	}
	gateway := &documents.Gateway{
		Local:          app.LocalStore,
		PublicBaseURL:  cfg.PublicBaseURL,
		LocalURLPrefix: cfg.LocalURLPrefix,
		Timeout:        cfg.RequestTimeout,
	}
	if cfg.ObjectStoreType != "local" {
		gateway.Cloud = app.Store
		gateway.CloudBucket = cfg.Bucket
	}
	if cfg.ObjectStoreType == "s3" {
		gateway.CloudPrefix = cfg.Prefix
	}

	app.DocumentsRepo = docRepo
	app.InvoicesRepo = invoiceRepo
	app.DocumentsService = &documents.Service{Repo: docRepo, Pipeline: pipeline, Gateway: gateway}
	app.InvoicesService = &invoices.Service{Repo: invoiceRepo, Pipeline: pipeline, Gateway: gateway}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, cfg.MaxUploadBytes)
	app.InvoicesHandler = invoices.NewHandler(app.InvoicesService, cfg.MaxUploadBytes)

	stores := map[string]object.ObjectStore{"local": app.LocalStore}
	if gateway.Cloud != nil {
		stores[cfg.ObjectStoreType] = gateway.Cloud
	}
	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(pinger, stores, 0)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
