package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/applications"
	"jobdocs-backend/internal/artifacts"
	"jobdocs-backend/internal/batch"
	"jobdocs-backend/internal/generation"
	"jobdocs-backend/internal/jobs"
	openai "jobdocs-backend/internal/llm/openai"
	"jobdocs-backend/internal/providerstatus"
	"jobdocs-backend/internal/queue"
	"jobdocs-backend/internal/research"
	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/server"
	"jobdocs-backend/internal/shared/storage/db"
	"jobdocs-backend/internal/shared/storage/object"
	localstore "jobdocs-backend/internal/shared/storage/object/local"
	s3store "jobdocs-backend/internal/shared/storage/object/s3"
	"jobdocs-backend/internal/shared/telemetry"
	"jobdocs-backend/internal/usage"
)

// App holds the wired dependencies shared by the API, workers and CLI.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Queue        queue.Client
	Gateway      *openai.Client
	Tracker      *providerstatus.Tracker
	Ledger       *usage.Ledger
	Generator    *generation.Router
	Research     *research.Pipeline
	Applications applications.Repo
	Jobs         jobs.Repo
	Artifacts    *artifacts.Writer
	Batch        *batch.Service
}

// Option adjusts how Build wires the App.
type Option func(*buildOptions)

type buildOptions struct {
	dbProfile db.Profile
}

// WithDBProfile selects the pool defaults. Lambda runtimes always use the
// lambda profile.
func WithDBProfile(p db.Profile) Option {
	return func(o *buildOptions) { o.dbProfile = p }
}

// Build prepares every dependency and the HTTP router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	bo := buildOptions{dbProfile: db.ProfileServer}
	for _, opt := range opts {
		opt(&bo)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = config.DefaultProviders()
	}
	if cfg.LogLevel != "" {
		telemetry.SetLevel(cfg.LogLevel)
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, bo.dbProfile)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Ready:  app.ready,
		Handlers: []server.Routes{
			generation.NewHandler(app.Generator),
			research.NewHandler(app.Research, app.Applications),
			batch.NewHandler(app.Batch, app.Queue),
			artifacts.NewHandler(app.Artifacts),
			providerstatus.NewHandler(app.Tracker),
			usage.NewHandler(app.Ledger),
		},
	})
	return app, nil
}

// Close releases the database pool. The Lambda singleton is left open for
// reuse by later invocations.
func (a *App) Close() {
	if a == nil || a.DB == nil || db.IsLambdaRuntime() {
		return
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("bootstrap: close database: %v", err)
	}
}

func (a *App) ready() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(context.Background())
}

func buildDB(ctx context.Context, cfg config.Config, profile db.Profile) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.ProfileLambda)))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(profile)))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "none":
		return nil, nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(ctx context.Context, app *App) error {
	var (
		statusStore   providerstatus.Store
		usageStore    usage.Store
		researchStore research.Store
		artifactRepo  artifacts.Repo
	)
	if app.DB != nil {
		statusStore = &providerstatus.PGStore{DB: app.DB}
		usageStore = usage.NewPGStore(app.DB)
		researchStore = &research.PGStore{DB: app.DB}
		artifactRepo = &artifacts.PGRepo{DB: app.DB}
		app.Applications = &applications.PGRepo{DB: app.DB}
		app.Jobs = &jobs.PGRepo{DB: app.DB}
	} else {
		statusStore = providerstatus.NewMemoryStore()
		usageStore = usage.NewMemoryStore()
		researchStore = research.NewMemoryStore()
		artifactRepo = artifacts.NewMemoryRepo()
		app.Applications = applications.NewMemoryRepo()
		app.Jobs = jobs.NewMemoryRepo()
	}

	gateway, err := openai.NewClient(app.Config.Providers)
	if err != nil {
		return fmt.Errorf("build provider gateway: %w", err)
	}
	app.Gateway = gateway

	app.Tracker = providerstatus.NewTracker(statusStore, app.Config.Providers, app.Config.Routing.FailureThreshold)
	if err := app.Tracker.EnsureProviders(ctx); err != nil {
		return err
	}
	app.Ledger = usage.NewLedger(usageStore)
	app.Generator = generation.NewRouter(gateway, app.Tracker, app.Ledger, app.Config.Routing, app.Config.Providers)

	var searcher research.Searcher
	if serper := research.NewSerperClient(app.Config.Research); serper != nil {
		searcher = serper
	} else {
		log.Printf("bootstrap: SERPER_API_KEY empty; research starts at the AI knowledge tier")
	}
	app.Research = research.NewPipeline(searcher, app.Generator, researchStore, app.Config.Research.QueryDelay)

	app.Artifacts = artifacts.NewWriter(artifactRepo, app.Store)
	app.Batch = batch.NewService(app.Applications, app.Jobs, app.Generator, app.Research, app.Artifacts, app.Config.Batch.Concurrency)
	return nil
}
