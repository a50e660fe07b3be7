package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
)

type queryProvider interface {
	CreateUser(ctx context.Context, arg dbgen.CreateUserParams) (dbgen.User, error)
}

// User is the API shape of a registered account. The password hash never leaves the service.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterInput is the payload of the registration form.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// Service registers dashboard users.
type Service struct {
	queries queryProvider
	params  *argon2id.Params
}

// ServiceConfig groups Service dependencies. HashParams defaults to argon2id.DefaultParams.
type ServiceConfig struct {
	Queries    queryProvider
	HashParams *argon2id.Params
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("user: queries provider is required")
	}
	params := cfg.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Service{queries: cfg.Queries, params: params}, nil
}

// Register validates the form, hashes the password and stores the account.
// Emails are unique case-insensitively.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := common.ValidateStruct(input); err != nil {
		return User{}, err
	}

	hash, err := argon2id.CreateHash(input.Password, s.params)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.queries.CreateUser(ctx, dbgen.CreateUserParams{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if common.PgErrorCode(err) == common.PgUniqueViolation {
			return User{}, common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, common.ErrConflict)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return toUser(created), nil
}

func toUser(row dbgen.User) User {
	return User{
		ID:        common.UUIDString(row.ID),
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		CreatedAt: common.TimeFromPG(row.CreatedAt),
	}
}
