package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listCategories = `SELECT id, name, slug, description, created_at, updated_at
FROM categories
ORDER BY name ASC`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategoryByID = `SELECT id, name, slug, description, created_at, updated_at
FROM categories
WHERE id = $1`

func (q *Queries) GetCategoryByID(ctx context.Context, id pgtype.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, getCategoryByID, id)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createCategory = `INSERT INTO categories (name, slug, description)
VALUES ($1, $2, $3)
RETURNING id, name, slug, description, created_at, updated_at`

type CreateCategoryParams struct {
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.Name, arg.Slug, arg.Description)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateCategory = `UPDATE categories
SET name = $2, slug = $3, description = $4, updated_at = now()
WHERE id = $1
RETURNING id, name, slug, description, created_at, updated_at`

type UpdateCategoryParams struct {
	ID          pgtype.UUID `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.Slug, arg.Description)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deleteCategory = `DELETE FROM categories WHERE id = $1`

func (q *Queries) DeleteCategory(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
