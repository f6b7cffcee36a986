package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	"github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id           BIGINT           PRIMARY KEY,
	title        TEXT             NOT NULL,
	price        NUMERIC(12, 2)   NOT NULL CHECK (price >= 0),
	image        TEXT             NOT NULL DEFAULT '',
	category     TEXT             NOT NULL DEFAULT '',
	description  TEXT             NOT NULL DEFAULT '',
	rating_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_count INTEGER          NOT NULL DEFAULT 0
)`

const columns = `id, title, price::text, image, category, description, rating_rate, rating_count`

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func (r *ProductRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create products: %w", err)
	}
	return nil
}

// Seed upserts products in one batch. Existing rows with the same id are
// overwritten.
func (r *ProductRepo) Seed(ctx context.Context, products []domain.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (id, title, price, image, category, description, rating_rate, rating_count)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				price = EXCLUDED.price,
				image = EXCLUDED.image,
				category = EXCLUDED.category,
				description = EXCLUDED.description,
				rating_rate = EXCLUDED.rating_rate,
				rating_count = EXCLUDED.rating_count`,
			p.ID, p.Title, p.Price.String(), p.Image, p.Category, p.Description, p.Rating.Rate, p.Rating.Count)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *ProductRepo) List(ctx context.Context, category string, limit int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+`
		FROM products
		WHERE $1 = '' OR lower(category) = lower($1)
		ORDER BY id
		LIMIT $2`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := row.Scan(&p.ID, &p.Title, &price, &p.Image, &p.Category, &p.Description, &p.Rating.Rate, &p.Rating.Count)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Product{}, fmt.Errorf("product %d: bad price %q: %w", p.ID, price, err)
	}
	return p, nil
}
