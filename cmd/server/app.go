package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/nudge/internal/clock"
	"github.com/phrazzld/nudge/internal/config"
	"github.com/phrazzld/nudge/internal/delivery"
	"github.com/phrazzld/nudge/internal/generation"
	"github.com/phrazzld/nudge/internal/platform/gemini"
	"github.com/phrazzld/nudge/internal/platform/websocket"
	"github.com/phrazzld/nudge/internal/reminder"
	"github.com/phrazzld/nudge/internal/schedule"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/phrazzld/nudge/internal/service/auth"
)

// application holds the wired dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	storage *storage

	// hub and dispatcher are nil when the delivery transport is "none".
	hub        *websocket.Hub
	dispatcher *delivery.Dispatcher

	notifications service.NotificationService
	engine        *reminder.Engine
	scheduler     *schedule.Scheduler
	validator     auth.TokenValidator
}

// newApplication opens storage and builds every component from cfg. On error
// anything already opened is closed again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *application, err error) {
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, err
	}
	engineCfg, err := reminder.ConfigFromSettings(cfg.Reminder)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder configuration: %w", err)
	}
	validator, err := auth.NewJWTValidator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}

	app = &application{config: cfg, logger: logger, validator: validator}

	app.storage, err = openStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	var channel delivery.Channel = delivery.Noop{}
	if cfg.Delivery.Transport == "websocket" {
		app.hub = websocket.NewHub(nil, logger)
		app.dispatcher = delivery.NewDispatcher(app.hub, delivery.DispatcherConfig{
			QueueSize:   cfg.Delivery.QueueSize,
			WorkerCount: cfg.Delivery.WorkerCount,
			SendTimeout: cfg.Delivery.SendTimeout,
		}, logger)
		channel = app.dispatcher
	}

	var generator generation.Generator
	if cfg.LLM.GeminiAPIKey != "" {
		g, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize message generator: %w", err)
		}
		generator = g
		logger.Info("message generator initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Info("no generator API key configured, using built-in messages")
	}

	clk := clock.NewSystem(loc)

	app.notifications, err = service.NewNotificationService(app.storage.notifications, channel, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	composer := reminder.NewComposer(generator, cfg.Reminder.GenerationTimeout, logger)
	app.engine, err = reminder.NewEngine(
		app.storage.tasks,
		app.storage.users,
		app.notifications,
		composer,
		clk,
		engineCfg,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder engine: %w", err)
	}

	app.scheduler = schedule.New(clk, logger)
	for _, job := range app.engine.Jobs() {
		if err := app.scheduler.Register(job); err != nil {
			return nil, fmt.Errorf("failed to register job: %w", err)
		}
	}

	logger.Info("application initialized", "jobs", app.scheduler.Jobs())
	return app, nil
}

// cleanup releases resources in dependency order: queued pushes are sent
// before the hub closes, and the hub closes before the database.
func (app *application) cleanup() {
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
