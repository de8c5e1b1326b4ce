package cmd

import (
	"context"
	"fmt"

	"agri-market/config"
	"agri-market/internal/repository"
	"agri-market/internal/service"
	"agri-market/pkg/cache"
	"agri-market/pkg/logger"
	"agri-market/pkg/postgres"
	"agri-market/pkg/telegram"
	"agri-market/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	alerter, err := telegram.NewAlerter(cfg.Telegram)
	if err != nil {
		log.Error("Failed to create telegram alerter", zap.Error(err))
		return nil, err
	}
	if alerter != nil {
		log = log.WithAlert(alerter, zapcore.ErrorLevel)
	}

	if err := utils.SetMarketTimeLocation(cfg.Market.TimeZone); err != nil {
		log.Error("Invalid market time zone", zap.Error(err), zap.String("time_zone", cfg.Market.TimeZone))
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	appCache, err := newCache(ctx, cfg)
	if err != nil {
		log.Error("Failed to create cache", zap.Error(err))
		_ = db.Close()
		return nil, err
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      echo.New(),
		cache:     appCache,
	}, nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if !cfg.Redis.Enabled {
		return cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval), nil
	}
	return cache.NewRedisCache(ctx, cfg.Redis)
}

// Services wires repositories and services on top of the shared dependencies.
func (d *AppDependency) Services() *service.Service {
	repo := repository.NewRepository(d.cfg, d.db.DB, d.log)
	return service.NewService(d.cfg, d.log, repo, d.cache)
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	var closeErr error
	if closer, ok := d.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close cache: %w", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close database: %w", err)
		}
	}
	_ = d.log.Sync()
	return closeErr
}
