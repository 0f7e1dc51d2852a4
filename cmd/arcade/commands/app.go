package commands

import (
	"fmt"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/internal/replays"
	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/httputil"
	"github.com/wonny/arcade/pkg/logger"
	"github.com/wonny/arcade/pkg/redis"
)

// app bundles the clients every command needs
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	redis  *redis.Client
	store  kvstore.Store
	client *rankings.Client

	// submitter shares the backend but is rate limited on its own
	submitter *rankings.Client
	replays   *replays.Client
}

// loadConfig applies the global flags on top of the env configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// newApp loads config and wires the backend clients and the shared store
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	httpClient := httputil.New(cfg, log)
	api := backend.NewClient(httpClient, cfg.API.BaseURL, log)
	submitAPI := backend.NewClient(httpClient.WithRateLimit(cfg.API.SubmitRatePerSec), cfg.API.BaseURL, log)

	rc, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	store, err := kvstore.Open(cfg, rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"backend": cfg.API.BaseURL,
		"store":   cfg.Store.Backend,
	}).Debug("App initialized")

	return &app{
		cfg:       cfg,
		log:       log,
		redis:     rc,
		store:     store,
		client:    rankings.NewClient(api, log),
		submitter: rankings.NewClient(submitAPI, log),
		replays:   replays.NewClient(api, log),
	}, nil
}

// Close releases the redis connection
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// warnMemoryStore tells the user a memory store is private to this process
func (a *app) warnMemoryStore() {
	if a.cfg.Store.Backend == "memory" {
		PrintWarning("STORE_BACKEND=memory: 이 프로세스 안에서만 보이는 저장소입니다 (런타임과 공유하려면 redis 사용)")
	}
}
