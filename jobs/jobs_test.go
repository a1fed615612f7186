package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	jobmetrics "github.com/product-catalog/catalog/internal/jobs"
)

type stubCategories struct {
	changed     int
	err         error
	rebuilds    int
	treeCalls   int
	hasDeadline bool
}

func (s *stubCategories) RebuildPaths(ctx context.Context) (int, error) {
	s.rebuilds++
	_, s.hasDeadline = ctx.Deadline()
	return s.changed, s.err
}

func (s *stubCategories) Tree(context.Context) ([]*tree.Node, error) {
	s.treeCalls++
	return []*tree.Node{{ID: 1, Name: "Books", Path: "Books"}}, s.err
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestNewCategoryPathsRebuildTask(t *testing.T) {
	task, err := NewCategoryPathsRebuildTask("manual")
	require.NoError(t, err)
	assert.Equal(t, TaskCategoryPathsRebuild, task.Type())

	var payload CategoryPathsPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)
}

func TestCategoryPathsJobRecordsRows(t *testing.T) {
	registry := prometheus.NewRegistry()
	categories := &stubCategories{changed: 3}
	job := NewCategoryPathsJob(categories, nil, jobmetrics.NewMetrics(registry))

	task, err := NewCategoryPathsRebuildTask("cron")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, categories.rebuilds)
	assert.True(t, categories.hasDeadline)
	body := scrape(t, registry)
	assert.Contains(t, body, `catalog_jobs_total{job="catalog:category_paths_rebuild",status="success"} 1`)
	assert.Contains(t, body, `catalog_jobs_rows_updated_total{job="catalog:category_paths_rebuild"} 3`)
}

func TestCategoryPathsJobFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	boom := errors.New("db down")
	job := NewCategoryPathsJob(&stubCategories{err: boom}, nil, jobmetrics.NewMetrics(registry))

	err := job.Handle(context.Background(), asynq.NewTask(TaskCategoryPathsRebuild, nil))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, scrape(t, registry), `catalog_jobs_failures_total{job="catalog:category_paths_rebuild"} 1`)
}

func TestCategoryPathsJobRejectsBadPayload(t *testing.T) {
	categories := &stubCategories{}
	job := NewCategoryPathsJob(categories, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskCategoryPathsRebuild, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, categories.rebuilds)

	var unset *CategoryPathsJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskCategoryPathsRebuild, nil)))
}

func TestTreeWarmupJob(t *testing.T) {
	categories := &stubCategories{}
	job := &TreeWarmupJob{Categories: categories, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, job.Handle(context.Background(), NewCategoryTreeWarmupTask()))
	assert.Equal(t, 1, categories.treeCalls)
}

func TestJobsHealth(t *testing.T) {
	tests := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "queue not created yet", inspector: stubInspector{err: asynq.ErrQueueNotFound}, status: http.StatusOK},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, slogDiscard()).MountRoutes)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
