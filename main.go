package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stepup/internal/configuration"
	"stepup/internal/core"
	"stepup/internal/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	config := configuration.Read()
	core.NewLogger(config.App.LogLevel)

	profile, err := configuration.ResolveProfile(config.App.Profile, config.Events.Type)
	if err != nil {
		zap.L().Fatal("Invalid profile", zap.Error(err))
	}
	zap.L().Info("Loaded profile", zap.String("profile", profile.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := core.NewTracerProvider(config.Tracing)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zap.L().Error("Failed to flush traces", zap.Error(err))
		}
	}()

	db := database.InitDB(config.Database)
	cache := core.NewCache(config.Cache)
	defer func() { _ = cache.Close() }()

	notify := core.NewNotifier(config.Notifier)
	activityLogger := core.NewActivityLogger(config.Activity)
	defer func() { _ = activityLogger.Close() }()

	eventsManager := core.NewEventsManager(config.Events)
	defer eventsManager.Close()

	appIdentity := uuid.New().String()
	go cache.StartIdentityTicker(appIdentity)

	if profile.HTTPServer {
		core.CreateAdminUser(db, config)
	}

	if profile.Workers.AnyEnabled() {
		core.StartWorkers(ctx, profile, eventsManager, db, activityLogger, notify, config, cache, appIdentity)
	}

	if profile.HTTPServer {
		router := core.NewRouter(
			config,
			db,
			cache,
			activityLogger,
			notify,
			eventsManager.GetPublisher(configuration.EventsNotifications),
		)
		core.StartHTTPServer(ctx, router, config.App.Port)
	} else {
		zap.L().Info("Running in worker-only mode")
		<-ctx.Done()
	}

	zap.L().Info("Shutting down")
}
