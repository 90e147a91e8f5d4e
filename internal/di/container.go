package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mqtt-panel/config"
	"mqtt-panel/database"
	"mqtt-panel/handlers"
	"mqtt-panel/logging"
	"mqtt-panel/mqtt"
	"mqtt-panel/notify"
	"mqtt-panel/redis"
	"mqtt-panel/repositories"
	"mqtt-panel/services"
	"mqtt-panel/storage"

	"github.com/labstack/echo/v4"
)

// Container holds the wired application.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Store    storage.Store
	Dialer   mqtt.Dialer
	Recorder *notify.Recorder
	closers  []io.Closer

	// Registries
	Connections *repositories.ConnectionRepository
	Panels      *repositories.PanelRepository

	// Services
	Manager *services.Manager
	Backup  *services.BackupService

	// HTTP
	Server *echo.Echo
}

// NewContainer wires every component from cfg using the paho dialer.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger := logging.NewLogger(cfg.LogLevel)
	return NewContainerWith(ctx, cfg, logger, mqtt.NewDialer(logger))
}

// NewContainerWith wires the application around the given logger and dialer.
func NewContainerWith(ctx context.Context, cfg *config.Config, logger *slog.Logger, dialer mqtt.Dialer) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		Dialer: dialer,
	}

	// 1. Storage backend
	if err := c.initStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 2. Registries and services
	c.initServices()

	// 3. HTTP API
	api := handlers.NewAPIHandler(c.Manager, c.Backup, c.Recorder, cfg)
	c.Server = handlers.NewServer(api, logger)

	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.StorageDriver {
	case config.StorageMemory:
		c.Store = storage.NewMemStore()
	case config.StorageFile:
		store, err := storage.NewFileStore(c.Config.StorageDir)
		if err != nil {
			return err
		}
		c.Store = store
	case config.StorageRedis:
		client, err := redis.NewRedisClient(ctx, c.Config, c.Logger)
		if err != nil {
			return err
		}
		c.Store = client
		c.closers = append(c.closers, client)
	case config.StoragePostgres:
		db, err := database.NewDatabase(c.Config, c.Logger)
		if err != nil {
			return err
		}
		c.Store = db
		c.closers = append(c.closers, db)
	default:
		return fmt.Errorf("unknown storage driver %q", c.Config.StorageDriver)
	}
	c.Logger.Info("Storage initialized", "driver", c.Config.StorageDriver)
	return nil
}

func (c *Container) initServices() {
	c.Connections = repositories.NewConnectionRepository(c.Store, c.Logger)
	c.Panels = repositories.NewPanelRepository(c.Store, c.Logger)

	c.Recorder = notify.NewRecorder(c.Config.NotificationBuffer)
	sink := notify.Multi{notify.NewLogSink(c.Logger), c.Recorder}

	c.Manager = services.NewManager(
		c.Connections,
		c.Panels,
		c.Dialer,
		sink,
		mqtt.OptionsFromConfig(c.Config),
		c.Config.Timeout,
		c.Logger,
	)
	c.Backup = services.NewBackupService(c.Manager, c.Connections, c.Panels, c.Store, c.Logger)
}

// Cleanup closes every session and the storage backend.
func (c *Container) Cleanup() {
	if c.Manager != nil {
		c.Manager.Shutdown()
	}
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.Logger.Error("Failed to close resource", slog.Any("error", err))
		}
	}
	c.Logger.Info("Container cleanup completed")
}
