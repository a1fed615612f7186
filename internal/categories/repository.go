package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/product-catalog/catalog/internal/platform/db"
)

// treeLockKey serializes writers that recompute materialized paths.
const treeLockKey int64 = 7_201_104

// Repository defines persistence operations for categories.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, in Input, path string) (Category, error)
	Update(ctx context.Context, id int64, in Input) error
	UpdatePaths(ctx context.Context, paths map[int64]string) (int, error)
	Delete(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int, error)
	CountProducts(ctx context.Context, id int64) (int, error)
	// WithTx runs fn against a repository bound to one transaction holding the
	// category tree lock.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	q     querier
	begin db.Beginner
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{q: pool, begin: pool}
}

const selectColumns = `SELECT id, name, parent_category_id, path, created_at, updated_at FROM categories`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.Path, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List returns every category ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.q.Query(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("categories: list: %w", err)
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("categories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches a category by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.q.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("categories: get %d: %w", id, err)
	}
	return c, nil
}

// Create inserts a category with a precomputed path.
func (r *PGRepository) Create(ctx context.Context, in Input, path string) (Category, error) {
	c := Category{Name: in.Name, ParentID: in.ParentID, Path: path}
	err := r.q.QueryRow(ctx,
		`INSERT INTO categories (name, parent_category_id, path) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		in.Name, in.ParentID, path,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Category{}, ErrInvalidParent
		}
		return Category{}, fmt.Errorf("categories: create: %w", err)
	}
	return c, nil
}

// Update changes the name and parent of a category. Paths are rewritten
// separately through UpdatePaths.
func (r *PGRepository) Update(ctx context.Context, id int64, in Input) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE categories SET name = $1, parent_category_id = $2, updated_at = NOW() WHERE id = $3`,
		in.Name, in.ParentID, id,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInvalidParent
		}
		return fmt.Errorf("categories: update %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePaths writes materialized paths in one statement and returns the
// number of rows changed.
func (r *PGRepository) UpdatePaths(ctx context.Context, paths map[int64]string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(paths))
	values := make([]string, 0, len(paths))
	for id, p := range paths {
		ids = append(ids, id)
		values = append(values, p)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE categories c
		SET path = v.path, updated_at = NOW()
		FROM unnest($1::bigint[], $2::text[]) AS v(id, path)
		WHERE c.id = v.id AND c.path IS DISTINCT FROM v.path`,
		ids, values,
	)
	if err != nil {
		return 0, fmt.Errorf("categories: update paths: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Delete removes a category.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrHasChildren
		}
		return fmt.Errorf("categories: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountChildren returns the number of direct subcategories.
func (r *PGRepository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_category_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("categories: count children: %w", err)
	}
	return n, nil
}

// CountProducts returns the number of products assigned to the category.
func (r *PGRepository) CountProducts(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("categories: count products: %w", err)
	}
	return n, nil
}

// WithTx runs fn inside a transaction holding the tree advisory lock. Calls
// on a repository already bound to a transaction reuse it.
func (r *PGRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.begin == nil {
		return fn(r)
	}
	return db.WithLockedTx(ctx, r.begin, treeLockKey, func(tx pgx.Tx) error {
		return fn(&PGRepository{q: tx})
	})
}

var _ Repository = (*PGRepository)(nil)
