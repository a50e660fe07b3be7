package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, category_id, name, slug, description, price, stock, barcode, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }, i *Product) error {
	return row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Price,
		&i.Stock,
		&i.Barcode,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func (q *Queries) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		var i Product
		if err := scanProduct(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProducts = `SELECT ` + productColumns + `
FROM products
WHERE ($1::uuid IS NULL OR category_id = $1::uuid)
ORDER BY name ASC`

// ListProducts returns all products, optionally restricted to one category.
func (q *Queries) ListProducts(ctx context.Context, categoryID pgtype.UUID) ([]Product, error) {
	return q.queryProducts(ctx, listProducts, categoryID)
}

const getProductByID = `SELECT ` + productColumns + `
FROM products
WHERE id = $1`

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	var i Product
	err := scanProduct(q.db.QueryRow(ctx, getProductByID, id), &i)
	return i, err
}

const getProductsByIDs = `SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::uuid[])`

func (q *Queries) GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	return q.queryProducts(ctx, getProductsByIDs, ids)
}

const searchProducts = `SELECT ` + productColumns + `
FROM products
WHERE name ILIKE '%' || $1::text || '%' OR barcode = $1::text
ORDER BY name ASC
LIMIT $2`

type SearchProductsParams struct {
	Term  string `json:"term"`
	Limit int32  `json:"limit"`
}

func (q *Queries) SearchProducts(ctx context.Context, arg SearchProductsParams) ([]Product, error) {
	return q.queryProducts(ctx, searchProducts, arg.Term, arg.Limit)
}

const createProduct = `INSERT INTO products (category_id, name, slug, description, price, stock, barcode)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns

type CreateProductParams struct {
	CategoryID  pgtype.UUID `json:"category_id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
	Price       int64       `json:"price"`
	Stock       int32       `json:"stock"`
	Barcode     string      `json:"barcode"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var i Product
	err := scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.CategoryID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Price,
		arg.Stock,
		arg.Barcode,
	), &i)
	return i, err
}

const updateProduct = `UPDATE products
SET category_id = $2, name = $3, slug = $4, description = $5, price = $6, stock = $7, barcode = $8, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          pgtype.UUID `json:"id"`
	CategoryID  pgtype.UUID `json:"category_id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
	Price       int64       `json:"price"`
	Stock       int32       `json:"stock"`
	Barcode     string      `json:"barcode"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	var i Product
	err := scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Price,
		arg.Stock,
		arg.Barcode,
	), &i)
	return i, err
}

const deleteProduct = `DELETE FROM products WHERE id = $1`

func (q *Queries) DeleteProduct(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const decrementProductStock = `UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2`

type DecrementProductStockParams struct {
	ID  pgtype.UUID `json:"id"`
	Qty int32       `json:"qty"`
}

// DecrementProductStock reports zero rows when the remaining stock is insufficient.
func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementProductStock, arg.ID, arg.Qty)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
