package workers

import (
	"context"
	"time"

	"stepup/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const GCBatchSize = 100

// GarbageCollectorWorker removes challenges nobody can complete anymore and
// device enrolments that were never confirmed.
type GarbageCollectorWorker struct {
	DB                  *gorm.DB
	UnverifiedDeviceTTL time.Duration
	RunInterval         time.Duration
}

func (w *GarbageCollectorWorker) Start(ctx context.Context) {
	StartPeriodicWorker(ctx, "garbage_collector", w.RunInterval, w.tasks())
}

func (w *GarbageCollectorWorker) tasks() []WorkerTask {
	return []WorkerTask{
		{Name: "expired_challenges", Fn: w.cleanupExpiredChallenges},
		{Name: "unverified_devices", Fn: w.cleanupUnverifiedDevices},
	}
}

func (w *GarbageCollectorWorker) cleanupExpiredChallenges(ctx context.Context) (int, error) {
	var ids []string
	if err := w.DB.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("expires_at < ?", time.Now()).
		Limit(GCBatchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := w.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Challenge{})
	if result.Error != nil {
		return 0, result.Error
	}

	zap.L().Debug("Deleted expired challenges", zap.Int64("count", result.RowsAffected))
	return int(result.RowsAffected), nil
}

// cleanupUnverifiedDevices drops enrolments older than the TTL. Their
// enrolment codes have expired long before.
func (w *GarbageCollectorWorker) cleanupUnverifiedDevices(ctx context.Context) (int, error) {
	threshold := time.Now().Add(-w.UnverifiedDeviceTTL)

	var ids []string
	if err := w.DB.WithContext(ctx).
		Model(&models.MFADevice{}).
		Where("is_verified = ? AND created_at < ?", false, threshold).
		Limit(GCBatchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := w.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&models.MFADevice{})
	if result.Error != nil {
		return 0, result.Error
	}

	zap.L().Debug("Deleted unverified MFA devices", zap.Int64("count", result.RowsAffected))
	return int(result.RowsAffected), nil
}
