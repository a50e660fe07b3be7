package user_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/user"
)

var testParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]dbgen.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]dbgen.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, arg dbgen.CreateUserParams) (dbgen.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dbgen.User{}, f.err
	}
	key := strings.ToLower(arg.Email)
	if _, ok := f.users[key]; ok {
		return dbgen.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"}
	}
	u := dbgen.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.users[key] = u
	return u, nil
}

func newService(t *testing.T, queries *fakeUsers) *user.Service {
	t.Helper()
	svc, err := user.NewService(user.ServiceConfig{Queries: queries, HashParams: testParams})
	require.NoError(t, err)
	return svc
}

func TestRegisterHashesPassword(t *testing.T) {
	queries := newFakeUsers()
	svc := newService(t, queries)

	created, err := svc.Register(context.Background(), user.RegisterInput{
		FirstName: " Ayu ",
		LastName:  "Lestari",
		Email:     " Ayu@Example.COM ",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "Ayu", created.FirstName)
	require.Equal(t, "ayu@example.com", created.Email)
	require.NotEmpty(t, created.ID)

	stored := queries.users["ayu@example.com"]
	require.NotEqual(t, "correct horse", stored.PasswordHash)
	match, err := argon2id.ComparePasswordAndHash("correct horse", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, match)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newService(t, newFakeUsers())
	input := user.RegisterInput{FirstName: "A", LastName: "B", Email: "a@example.com", Password: "password1"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	input.Email = "A@EXAMPLE.com"
	_, err = svc.Register(context.Background(), input)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, newFakeUsers())
	tests := []struct {
		name  string
		input user.RegisterInput
		field string
		rule  string
	}{
		{name: "short password", input: user.RegisterInput{FirstName: "A", LastName: "B", Email: "a@example.com", Password: "short"}, field: "password", rule: "min"},
		{name: "bad email", input: user.RegisterInput{FirstName: "A", LastName: "B", Email: "nope", Password: "password1"}, field: "email", rule: "email"},
		{name: "blank first name", input: user.RegisterInput{FirstName: "  ", LastName: "B", Email: "a@example.com", Password: "password1"}, field: "firstName", rule: "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr))
			require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
			violations, ok := appErr.Details.([]common.FieldViolation)
			require.True(t, ok)
			require.Equal(t, tt.field, violations[0].Field)
			require.Equal(t, tt.rule, violations[0].Rule)
		})
	}
}

func TestRegisterWrapsStoreErrors(t *testing.T) {
	queries := newFakeUsers()
	queries.err = errors.New("connection reset")
	svc := newService(t, queries)

	_, err := svc.Register(context.Background(), user.RegisterInput{FirstName: "A", LastName: "B", Email: "a@example.com", Password: "password1"})
	require.ErrorContains(t, err, "create user")
	var appErr *common.AppError
	require.False(t, errors.As(err, &appErr))
}
