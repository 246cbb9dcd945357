package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/tr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

// Upsert идемпотентно создаёт или обновляет товар по идентификатору.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (id, name, brand, price, category, product_url, image_key, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			product_url = EXCLUDED.product_url,
			image_key = EXCLUDED.image_key,
			embedding = EXCLUDED.embedding,
			updated_at = NOW();
	`

	_, err = tx.Exec(ctx, query,
		model.ID,
		model.Name,
		model.Brand,
		model.Price,
		model.Category,
		model.ProductURL,
		model.ImageKey,
		model.Embedding,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetAll возвращает весь каталог; используется для восстановления состояния при запуске.
func (p *ProductRepo) GetAll(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, brand, price, category, product_url, image_key, embedding, created_at, updated_at
		FROM products
		ORDER BY id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		var model converter.ProductModel
		if err := rows.Scan(
			&model.ID, &model.Name, &model.Brand, &model.Price, &model.Category,
			&model.ProductURL, &model.ImageKey, &model.Embedding,
			&model.CreatedAt, &model.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		product, err := p.conv.ToEntity(&model)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// DeleteAll очищает таблицу товаров в рамках текущей транзакции.
func (p *ProductRepo) DeleteAll(ctx context.Context) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// postgresDuplicate распознаёт нарушение уникального ограничения (код 23505).
func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
