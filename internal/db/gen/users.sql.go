package dbgen

import (
	"context"
)

const createUser = `INSERT INTO users (first_name, last_name, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, first_name, last_name, email, password_hash, created_at`

type CreateUserParams struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.FirstName, arg.LastName, arg.Email, arg.PasswordHash)
	var i User
	err := row.Scan(&i.ID, &i.FirstName, &i.LastName, &i.Email, &i.PasswordHash, &i.CreatedAt)
	return i, err
}
