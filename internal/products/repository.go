package products

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/platform/db"
)

// Repository defines persistence operations for products.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, int64, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, in Input) (int64, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const selectProducts = `SELECT p.id, p.name, p.description, p.price::text, p.category_id, c.path,
	p.stock_quantity, COALESCE(p.sku, ''), p.created_at, p.updated_at
	FROM products p JOIN categories c ON c.id = p.category_id`

var sortColumns = map[string]string{
	"name":          "LOWER(p.name)",
	"categoryPath":  "c.path",
	"price":         "p.price",
	"stockQuantity": "p.stock_quantity",
	"createdAt":     "p.created_at",
	"updatedAt":     "p.updated_at",
}

// List returns one page of matching products and the total match count.
func (r *PGRepository) List(ctx context.Context, f Filter) ([]Product, int64, error) {
	where, args := whereClause(f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := selectProducts + where + " ORDER BY " + orderBy(f)
	argCount := len(args)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, f.Size)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, f.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Get returns one product.
func (r *PGRepository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProducts+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Create inserts a product and returns its id.
func (r *PGRepository) Create(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO products (name, description, price, category_id, stock_quantity, sku)
		VALUES ($1, $2, $3::numeric, $4, $5, NULLIF($6, '')) RETURNING id`,
		in.Name, in.Description, in.Price.String(), in.CategoryID, in.StockQuantity, in.SKU).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

// Update overwrites the writable fields of a product.
func (r *PGRepository) Update(ctx context.Context, id int64, in Input) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET name = $1, description = $2, price = $3::numeric,
		category_id = $4, stock_quantity = $5, sku = NULLIF($6, ''), updated_at = NOW() WHERE id = $7`,
		in.Name, in.Description, in.Price.String(), in.CategoryID, in.StockQuantity, in.SKU, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryExists reports whether a category row exists.
func (r *PGRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.CategoryID, &p.CategoryPath,
		&p.StockQuantity, &p.SKU, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, err
	}
	p.Price = d
	return p, nil
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return ErrDuplicateSKU
	case db.IsForeignKeyViolation(err):
		return ErrUnknownCategory
	default:
		return err
	}
}

// whereClause renders the filter as a SQL condition and its arguments.
func whereClause(f Filter) (string, []any) {
	query := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if name := strings.TrimSpace(f.Name); name != "" {
		argCount++
		query += ` AND LOWER(p.name) LIKE $` + strconv.Itoa(argCount) + ` ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(name))+"%")
	}
	if path := strings.TrimSpace(f.CategoryPath); path != "" {
		argCount++
		exact := strconv.Itoa(argCount)
		argCount++
		query += ` AND (c.path = $` + exact + ` OR c.path LIKE $` + strconv.Itoa(argCount) + ` ESCAPE '\')`
		args = append(args, path, escapeLike(path+tree.PathSeparator)+"%")
	}
	if f.CategoryID != nil {
		argCount++
		query += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, *f.CategoryID)
	}
	if f.MinPrice != nil {
		argCount++
		query += ` AND p.price >= $` + strconv.Itoa(argCount) + `::numeric`
		args = append(args, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		argCount++
		query += ` AND p.price <= $` + strconv.Itoa(argCount) + `::numeric`
		args = append(args, f.MaxPrice.String())
	}
	if f.InStockOnly {
		query += ` AND p.stock_quantity > 0`
	}
	return query, args
}

func orderBy(f Filter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[DefaultSort]
	}
	dir := " ASC"
	if f.Descending() {
		dir = " DESC"
	}
	return col + dir + ", p.id" + dir
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
