package categories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/cache"
	"github.com/product-catalog/catalog/internal/shared"
)

// Service wraps category business rules and keeps materialized paths in sync
// with the parent pointers.
type Service struct {
	repo      Repository
	builder   *tree.Builder
	cache     *cache.Versioned
	metrics   *observability.Metrics
	logger    *slog.Logger
	validator *validator.Validate
}

// ServiceConfig groups optional collaborators of the service.
type ServiceConfig struct {
	Builder *tree.Builder
	Cache   *cache.Versioned
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	builder := cfg.Builder
	if builder == nil {
		builder = tree.NewBuilder(tree.WithLogger(cfg.Logger))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:      repo,
		builder:   builder,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		logger:    logger,
		validator: shared.NewValidator(),
	}
}

// List returns all categories as stored.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Tree returns the sorted category forest, served from cache when possible.
func (s *Service) Tree(ctx context.Context) ([]*tree.Node, error) {
	if s.cache == nil {
		forest, err := s.Forest(ctx)
		if err != nil {
			return nil, err
		}
		return forest.Roots, nil
	}
	key, err := s.cache.BuildKey(ctx, "tree")
	if err != nil {
		s.logger.Warn("category tree cache key", slog.Any("error", err))
		forest, ferr := s.Forest(ctx)
		if ferr != nil {
			return nil, ferr
		}
		return forest.Roots, nil
	}
	var roots []*tree.Node
	err = s.cache.FetchJSON(ctx, key, &roots, func(ctx context.Context) (any, error) {
		forest, err := s.Forest(ctx)
		if err != nil {
			return nil, err
		}
		return forest.Roots, nil
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// Forest builds the forest from the current rows without caching.
func (s *Service) Forest(ctx context.Context) (*tree.Forest, error) {
	cats, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.build(cats)
}

// Create validates and stores a new category below an existing parent.
func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	in, err := s.normalize(in)
	if err != nil {
		return Category{}, err
	}
	var created Category
	err = s.repo.WithTx(ctx, func(repo Repository) error {
		path := in.Name
		if in.ParentID != nil {
			parent, err := repo.Get(ctx, *in.ParentID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrInvalidParent
				}
				return err
			}
			path = tree.JoinPath(parent.Path, in.Name)
		}
		c, err := repo.Create(ctx, in, path)
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return Category{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update renames or moves a category. Moving below itself or one of its
// descendants is rejected; every affected path is rewritten in the same
// transaction.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Category, error) {
	if id <= 0 {
		return Category{}, ErrNotFound
	}
	in, err := s.normalize(in)
	if err != nil {
		return Category{}, err
	}
	var updated Category
	err = s.repo.WithTx(ctx, func(repo Repository) error {
		cats, err := repo.List(ctx)
		if err != nil {
			return err
		}
		forest, err := s.build(cats)
		if err != nil {
			return err
		}
		if _, ok := forest.Node(id); !ok {
			return ErrNotFound
		}
		if in.ParentID != nil {
			if *in.ParentID == id || forest.IsDescendant(id, *in.ParentID) {
				return ErrInvalidParent
			}
			if _, ok := forest.Node(*in.ParentID); !ok {
				return ErrInvalidParent
			}
		}
		if err := repo.Update(ctx, id, in); err != nil {
			return err
		}
		if _, err := s.rebuildPaths(ctx, repo); err != nil {
			return err
		}
		updated, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return Category{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a leaf category that no product references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		children, err := repo.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}
		products, err := repo.CountProducts(ctx, id)
		if err != nil {
			return err
		}
		if products > 0 {
			return ErrHasProducts
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RebuildPaths recomputes every materialized path from the parent pointers and
// returns the number of rows rewritten.
func (s *Service) RebuildPaths(ctx context.Context) (int, error) {
	var changed int
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		n, err := s.rebuildPaths(ctx, repo)
		changed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.invalidate(ctx)
	}
	return changed, nil
}

func (s *Service) rebuildPaths(ctx context.Context, repo Repository) (int, error) {
	cats, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	forest, err := s.build(cats)
	if err != nil {
		return 0, err
	}
	stale := make(map[int64]string)
	for _, c := range cats {
		if n, ok := forest.Node(c.ID); ok && n.Path != c.Path {
			stale[c.ID] = n.Path
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return repo.UpdatePaths(ctx, stale)
}

func (s *Service) build(cats []Category) (*tree.Forest, error) {
	records := make([]tree.Category, len(cats))
	for i, c := range cats {
		records[i] = c.Record()
	}
	start := time.Now()
	forest, err := s.builder.Build(records)
	if err != nil {
		return nil, fmt.Errorf("categories: build tree: %w", err)
	}
	kinds := make(map[string]int)
	for _, d := range forest.Diagnostics {
		kinds[string(d.Kind)]++
	}
	s.metrics.ObserveTreeBuild(time.Since(start), forest.Len(), kinds)
	return forest, nil
}

func (s *Service) normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return in, shared.ValidationError(err)
	}
	if strings.Contains(in.Name, tree.PathSeparator) {
		return in, shared.ValidationErrorf("name must not contain %q", tree.PathSeparator)
	}
	return in, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump category cache", slog.Any("error", err))
	}
}
