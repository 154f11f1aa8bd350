package core

import (
	"stepup/internal/activity"
	c "stepup/internal/cache"
	"stepup/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger replaces the global logger with a production logger at level.
func NewLogger(level string) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zap.L().Fatal("Invalid log level", zap.String("level", level), zap.Error(err))
	}

	config := zap.NewProductionConfig()
	config.Level = atomicLevel
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zap.ReplaceGlobals(zap.Must(config.Build()))
}

func NewCache(config models.CacheConfiguration) c.ICache {
	cache, err := c.New(config)
	if err != nil {
		zap.L().Fatal("Failed to connect to cache", zap.String("type", config.Type), zap.Error(err))
	}
	return cache
}

func NewActivityLogger(config models.ActivityConfiguration) activity.IActivityLogger {
	switch config.Type {
	case "filesystem":
		return activity.NewFilesystemClient(config)
	default:
		zap.L().Fatal("Unsupported activity type", zap.String("type", config.Type))
		return nil
	}
}
