package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCategoryPathsRebuild recomputes materialized category paths.
	TaskCategoryPathsRebuild = "catalog:category_paths_rebuild"
	// TaskCategoryTreeWarmup loads the category tree into the cache.
	TaskCategoryTreeWarmup = "catalog:category_tree_warmup"
)

// CategoryPathsPayload carries options for the path rebuild.
type CategoryPathsPayload struct {
	// Reason is logged with the run, e.g. "cron" or "manual".
	Reason string `json:"reason"`
}

// NewCategoryPathsRebuildTask builds a path rebuild task.
func NewCategoryPathsRebuildTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(CategoryPathsPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCategoryPathsRebuild, body, asynq.Queue(QueueDefault)), nil
}

// NewCategoryTreeWarmupTask builds a cache warmup task.
func NewCategoryTreeWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskCategoryTreeWarmup, nil, asynq.Queue(QueueDefault))
}
