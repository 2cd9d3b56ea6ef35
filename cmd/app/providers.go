package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/greennepal/agrihealth/internal/domain/assistant"
	"github.com/greennepal/agrihealth/internal/domain/auth"
	"github.com/greennepal/agrihealth/internal/domain/dashboard"
	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
	"github.com/greennepal/agrihealth/internal/domain/history"
	"github.com/greennepal/agrihealth/internal/domain/planner"
	"github.com/greennepal/agrihealth/internal/domain/tasks"
	"github.com/greennepal/agrihealth/internal/infra/config"
	"github.com/greennepal/agrihealth/internal/infra/farmstore"
	"github.com/greennepal/agrihealth/internal/infra/imagestore"
	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	"github.com/greennepal/agrihealth/internal/infra/userrepo"
	"github.com/greennepal/agrihealth/internal/infra/weather/openweather"
	"github.com/greennepal/agrihealth/internal/infra/weathercache"
)

func provideGeminiClient(cfg *config.Config) (*gemini.Client, error) {
	return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.MaxAttempts, cfg.Gemini.BaseBackoff)
}

func provideDiagnosisConfig(cfg *config.Config) diagnosis.Config {
	return diagnosis.Config{Model: cfg.Gemini.Model}
}

func providePlannerConfig(cfg *config.Config) planner.Config {
	return planner.Config{Model: cfg.Gemini.Model}
}

func provideAssistantConfig(cfg *config.Config) assistant.Config {
	return assistant.Config{
		Model:    cfg.Gemini.Model,
		TTSModel: cfg.Gemini.TTSModel,
		Voice:    cfg.Gemini.Voice,
		Persona:  cfg.Chat.Persona,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

func provideDashboardConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
		UVIndex:   cfg.Weather.UVIndex,
		CacheTTL:  cfg.Weather.CacheTTL,
	}
}

func provideWeatherClient(cfg *config.Config) *openweather.Client {
	return openweather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey)
}

func provideSnapshotStore(cfg *config.Config, logger *slog.Logger) dashboard.SnapshotStore {
	if cfg.Weather.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return weathercache.NewMemoryStore(cfg.Weather.CacheTTL)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return weathercache.NewMemoryStore(cfg.Weather.CacheTTL)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("weather valkey cache enabled", "addr", cfg.Weather.Redis.Addr)
			return weathercache.NewValkeyStore(client, "weather", cfg.Weather.CacheTTL)
		}
	}
	return weathercache.NewMemoryStore(cfg.Weather.CacheTTL)
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Weather.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Weather.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Weather.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideUserRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	fallback := userrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Auth.Postgres.DSN)
	if dsn == "" {
		logger.Info("auth postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Auth.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Auth.Postgres.MaxConns
	}
	if cfg.Auth.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Auth.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("auth postgres repository enabled")
	return userrepo.NewPostgresRepository(pool)
}

// farmStores groups the persistence backends for tasks and scan history. The
// local task store always exists; remote stores degrade to memory when the
// document store is unreachable.
type farmStores struct {
	remoteTasks tasks.Repository
	localTasks  tasks.Repository
	scans       history.Repository
}

func provideFarmStores(cfg *config.Config, logger *slog.Logger) *farmStores {
	local := farmstore.NewMemoryTaskStore()
	uri := strings.TrimSpace(cfg.Store.MongoURI)
	if uri == "" {
		logger.Info("mongo uri not set, using memory stores")
		return &farmStores{
			remoteTasks: farmstore.NewMemoryTaskStore(),
			localTasks:  local,
			scans:       farmstore.NewMemoryScanStore(),
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := farmstore.NewMongoStore(ctx, uri, cfg.Store.Database, cfg.Store.AppID, logger)
	if err != nil {
		logger.Error("mongo connection failed, using memory stores", "error", err)
		return &farmStores{
			remoteTasks: farmstore.NewMemoryTaskStore(),
			localTasks:  local,
			scans:       farmstore.NewMemoryScanStore(),
		}
	}
	logger.Info("mongo document store enabled", "database", cfg.Store.Database)
	return &farmStores{
		remoteTasks: store,
		localTasks:  local,
		scans:       store.Scans(),
	}
}

func provideTaskService(stores *farmStores, logger *slog.Logger) tasks.Service {
	return tasks.NewService(stores.remoteTasks, stores.localTasks, logger)
}

func provideHistoryService(stores *farmStores, storage imagestore.Storage, logger *slog.Logger) history.Service {
	return history.NewService(stores.scans, storage, logger)
}

func provideImageStorage(cfg *config.Config, logger *slog.Logger) imagestore.Storage {
	if strings.TrimSpace(cfg.Images.Endpoint) == "" {
		logger.Info("image storage endpoint not set, using memory storage")
		return imagestore.NewMemoryStorage()
	}
	storage, err := imagestore.NewMinioStorage(cfg.Images.Endpoint, cfg.Images.AccessKey, cfg.Images.SecretKey, cfg.Images.Bucket, cfg.Images.Region, logger)
	if err != nil {
		logger.Error("failed to initialize image storage, using memory storage", "error", err)
		return imagestore.NewMemoryStorage()
	}
	logger.Info("s3 image storage enabled", "bucket", cfg.Images.Bucket)
	return storage
}
