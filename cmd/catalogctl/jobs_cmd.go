package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/product-catalog/catalog/jobs"
)

// jobsCLI wraps manual management helpers for queued jobs.
type jobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func newJobsCLI(g *globalOptions) *jobsCLI {
	opts := asynq.RedisClientOpt{Addr: g.redisAddr, Password: g.redisPass}
	return &jobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

func (c *jobsCLI) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// Trigger enqueues a supported job by its CLI name.
func (c *jobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	switch name {
	case "category-paths":
		return c.client.EnqueueCategoryPathsRebuild(ctx, "manual")
	case "tree-warmup":
		return c.client.EnqueueCategoryTreeWarmup(ctx)
	default:
		return nil, fmt.Errorf("unsupported job %q (category-paths|tree-warmup)", name)
	}
}

type queueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Failed    int    `json:"failed"`
}

func (c *jobsCLI) InspectQueue() (queueStats, error) {
	stats := queueStats{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	stats.Pending = info.Pending
	stats.Active = info.Active
	stats.Scheduled = info.Scheduled
	stats.Retry = info.Retry
	stats.Failed = info.Failed
	return stats, nil
}

func newJobsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "trigger <category-paths|tree-warmup>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"category-paths", "tree-warmup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validJobName(args[0]); err != nil {
				return err
			}
			cli := newJobsCLI(opts)
			defer cli.Close()
			info, err := cli.Trigger(cmd.Context(), args[0])
			if errors.Is(err, asynq.ErrDuplicateTask) {
				fmt.Fprintln(cmd.OutOrStdout(), "already queued")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := newJobsCLI(opts)
			defer cli.Close()
			stats, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	})
	return cmd
}

func validJobName(name string) error {
	switch name {
	case "category-paths", "tree-warmup":
		return nil
	}
	return fmt.Errorf("unsupported job %q (category-paths|tree-warmup)", name)
}
