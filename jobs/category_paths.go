package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	jobmetrics "github.com/product-catalog/catalog/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CategoryService is the part of the category service the jobs drive.
type CategoryService interface {
	RebuildPaths(ctx context.Context) (int, error)
	Tree(ctx context.Context) ([]*tree.Node, error)
}

// CategoryPathsJob repairs materialized paths that drifted from the parent
// pointers, e.g. after manual SQL edits.
type CategoryPathsJob struct {
	Categories CategoryService
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Timeout    time.Duration
}

// NewCategoryPathsJob wires dependencies for the rebuild handler.
func NewCategoryPathsJob(categories CategoryService, logger *slog.Logger, metrics *jobmetrics.Metrics) *CategoryPathsJob {
	return &CategoryPathsJob{Categories: categories, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes TaskCategoryPathsRebuild tasks.
func (j *CategoryPathsJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Categories == nil {
		return errors.New("category paths: handler not configured")
	}
	var payload CategoryPathsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskCategoryPathsRebuild)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	logger.Info("starting category path rebuild")
	start := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	changed, err := j.Categories.RebuildPaths(ctx)
	if err != nil {
		logger.Error("rebuild category paths", slog.Any("error", err))
		return err
	}
	j.metrics().AddRowsUpdated(TaskCategoryPathsRebuild, changed)
	logger.Info("completed category path rebuild", slog.Int("rows", changed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *CategoryPathsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCategoryPathsRebuild))
	}
	return slog.Default().With(slog.String("job", TaskCategoryPathsRebuild))
}

func (j *CategoryPathsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// TreeWarmupJob pre-populates the category tree cache.
type TreeWarmupJob struct {
	Categories CategoryService
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Handle processes TaskCategoryTreeWarmup tasks.
func (j *TreeWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Categories == nil {
		return errors.New("tree warmup: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCategoryTreeWarmup)
	defer func() { err = tracker.End(err) }()

	roots, err := j.Categories.Tree(ctx)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("warm category tree", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Debug("category tree warmed", slog.Int("roots", len(roots)))
	}
	return nil
}
