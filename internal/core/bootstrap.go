package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stepup/internal/activity"
	c "stepup/internal/cache"
	"stepup/internal/configuration"
	"stepup/internal/events"
	h "stepup/internal/helpers"
	"stepup/internal/messaging"
	m "stepup/internal/middlewares"
	"stepup/internal/models"
	"stepup/internal/notifier"
	"stepup/internal/services"
	"stepup/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAdminUser makes sure the configured admin account exists and carries
// the configured password.
func CreateAdminUser(db *gorm.DB, config models.Configuration) {
	hash, err := h.CreateHash(config.App.AdminPassword)
	if err != nil {
		zap.L().Fatal("Failed to hash admin password", zap.Error(err))
	}

	adminUser := models.User{
		FirstName:      "admin",
		LastName:       "admin",
		Email:          config.App.AdminEmail,
		HashedPassword: hash,
		ProviderType:   models.LocalProviderType,
		ProviderKey:    string(models.LocalProviderType),
		Role:           models.RoleAdmin,
	}

	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}, {Name: "provider_key"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: "deleted_at", Value: nil},
		}},
		DoUpdates: clause.AssignmentColumns([]string{"hashed_password"}),
	}).Create(&adminUser)
	if result.Error != nil {
		zap.L().Error("Failed to create admin user", zap.Error(result.Error))
	}
}

func StartWorkers(
	ctx context.Context,
	profile models.Profile,
	eventsManager *EventsManager,
	db *gorm.DB,
	activityLogger activity.IActivityLogger,
	notify notifier.INotifier,
	config models.Configuration,
	cache c.ICache,
	appIdentity string,
) {
	eventParams := &events.EventParams{
		Notifier:       notify,
		ActivityLogger: activityLogger,
	}

	startWorker(ctx, profile.Workers.Notifications, "notifications", cache, appIdentity, func(_ context.Context) {
		notifications := eventsManager.GetSubscriber(configuration.EventsNotifications).Subscribe()
		events.HandleEvents(eventParams, notifications)
	})

	startWorker(ctx, profile.Workers.GarbageCollector, "garbage_collector", cache, appIdentity, func(workerCtx context.Context) {
		worker := &workers.GarbageCollectorWorker{
			DB:                  db,
			UnverifiedDeviceTTL: time.Duration(config.App.UnverifiedDeviceTTL) * time.Minute,
			RunInterval:         time.Duration(config.App.GarbageCollectPeriod) * time.Minute,
		}
		worker.Start(workerCtx)
	})
}

func startWorker(
	ctx context.Context,
	mode models.WorkerMode,
	workerName string,
	cache c.ICache,
	appIdentity string,
	runWorker func(context.Context),
) {
	switch mode {
	case models.WorkerModeDisabled:
		return
	case models.WorkerModeSingleton:
		go startSingletonWorker(ctx, cache, appIdentity, workerName, runWorker)
	default:
		go runWorker(ctx)
		zap.L().Info("Started worker", zap.String("worker", workerName))
	}
}

// startSingletonWorker runs the worker only while this instance holds the
// worker lock in the cache.
func startSingletonWorker(
	ctx context.Context,
	cache c.ICache,
	instanceID string,
	workerName string,
	runWorker func(context.Context),
) {
	lockKey := fmt.Sprintf(configuration.CacheAppWorkerLockKey, workerName)
	ticker := time.NewTicker(time.Duration(configuration.CacheAppWorkerLockRefresh) * time.Second)
	defer ticker.Stop()

	var cancelWorker context.CancelFunc
	defer func() {
		if cancelWorker != nil {
			cancelWorker()
		}
	}()

	for {
		if cancelWorker == nil {
			acquired, err := cache.TryAcquireLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil {
				zap.L().Error("Failed to acquire worker lock", zap.String("worker", workerName), zap.Error(err))
			}
			if acquired {
				zap.L().Info("Acquired worker lock, starting worker", zap.String("worker", workerName))
				var workerCtx context.Context
				workerCtx, cancelWorker = context.WithCancel(ctx)
				go runWorker(workerCtx)
			}
		} else {
			refreshed, err := cache.RefreshLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil || !refreshed {
				zap.L().Warn("Lost worker lock, stopping worker", zap.String("worker", workerName))
				cancelWorker()
				cancelWorker = nil
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// NewRouter mounts every service behind the shared middleware chain.
func NewRouter(
	config models.Configuration,
	db *gorm.DB,
	cache c.ICache,
	activityLogger activity.IActivityLogger,
	notify notifier.INotifier,
	publisher messaging.IPublisher,
) http.Handler {
	m.InitValidator()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(httpRequestTimeout))
	r.Use(m.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", configuration.HeaderElevatedToken},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authConfig := config.App.GetAuthConfig()

	r.Group(func(r chi.Router) {
		r.Use(m.Authenticate(authConfig.JWTSecret))
		r.Use(m.RateLimit(cache, config.App.TrustedProxies))

		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/auth", services.AuthService{
				DB:             db,
				AuthConfig:     authConfig,
				ActivityLogger: activityLogger,
			}.Routes())

			r.Mount("/mfa", services.MFAService{
				DB:             db,
				Cache:          cache,
				AuthConfig:     authConfig,
				Notifier:       notify,
				ActivityLogger: activityLogger,
			}.Routes())

			r.Mount("/positions", services.PositionService{
				DB:             db,
				AuthConfig:     authConfig,
				ActivityLogger: activityLogger,
			}.Routes())

			r.Mount("/activity", services.ActivityService{
				ActivityLogger: activityLogger,
			}.Routes())

			r.Mount("/admin", services.AdminService{
				DB:             db,
				ActivityLogger: activityLogger,
			}.Routes())
		})

		r.Mount("/functions/v1", services.StepUpService{
			DB:             db,
			Cache:          cache,
			AuthConfig:     authConfig,
			Publisher:      publisher,
			ActivityLogger: activityLogger,
		}.Routes())
	})

	return otelhttp.NewHandler(r, configuration.AppName)
}

// StartHTTPServer serves until ctx is cancelled, then drains connections.
func StartHTTPServer(ctx context.Context, handler http.Handler, port int) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: httpServerTimeout,
		ReadTimeout:       httpServerTimeout,
		WriteTimeout:      httpServerTimeout,
		IdleTimeout:       httpServerTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}()

	zap.L().Info("HTTP server starting", zap.Int("port", port))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("Failed to start the app", zap.Error(err))
	}
}
