package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WorkerTask is one named step of a worker cycle. Fn returns the number of
// rows it handled.
type WorkerTask struct {
	Name string
	Fn   func(ctx context.Context) (int, error)
}

// executeTasks runs every task in order and stops early once ctx is done.
func executeTasks(ctx context.Context, tasks []WorkerTask) []int {
	counts := make([]int, len(tasks))

	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		count, err := task.Fn(ctx)
		if err != nil {
			zap.L().Error("Worker task failed",
				zap.String("task", task.Name),
				zap.Error(err))
		}
		counts[i] = count
	}

	return counts
}

// StartPeriodicWorker runs a cycle immediately, then on every interval until
// ctx is cancelled.
func StartPeriodicWorker(ctx context.Context, workerName string, interval time.Duration, tasks []WorkerTask) {
	zap.L().Info("Starting worker",
		zap.String("worker", workerName),
		zap.Duration("interval", interval))

	runWorkerCycle(ctx, workerName, tasks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Worker shutting down", zap.String("worker", workerName))
			return
		case <-ticker.C:
			runWorkerCycle(ctx, workerName, tasks)
		}
	}
}

func runWorkerCycle(ctx context.Context, workerName string, tasks []WorkerTask) int {
	startTime := time.Now()
	counts := executeTasks(ctx, tasks)

	total := 0
	fields := []zap.Field{zap.String("worker", workerName)}
	for i, task := range tasks {
		fields = append(fields, zap.Int(task.Name, counts[i]))
		total += counts[i]
	}
	fields = append(fields, zap.Duration("duration", time.Since(startTime)))

	if total > 0 {
		zap.L().Info("Worker cycle complete", fields...)
	} else {
		zap.L().Debug("Worker cycle complete", fields...)
	}
	return total
}
