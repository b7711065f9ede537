package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/logging"
	"pdflibrary/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Issue(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func newTestService(users *mockUserRepo, tokens *mockTokens) *Service {
	s := NewService(users, tokens, logging.Discard())
	s.hashCost = bcrypt.MinCost
	return s
}

func TestService_Register_Success(t *testing.T) {
	users := new(mockUserRepo)
	tokens := new(mockTokens)

	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "alice@x.com").Return(false, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alice" && u.Email == "alice@x.com" && u.FullName == "Alice A" &&
			u.ID != "" && u.PasswordHash != "secret1" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Return(nil)
	tokens.On("Issue", mock.AnythingOfType("string")).Return("fake-jwt-token", nil)

	user, token, err := newTestService(users, tokens).Register(context.Background(), RegisterRequest{
		Username: " alice ",
		Email:    "Alice@X.com",
		Password: "secret1",
		FullName: "Alice A",
	})

	require.NoError(t, err)
	assert.Equal(t, "fake-jwt-token", token)
	assert.Equal(t, "alice", user.Username)
	tokens.AssertCalled(t, "Issue", user.ID)
	users.AssertExpectations(t)
}

func TestService_Register_Validation(t *testing.T) {
	cases := map[string]struct {
		req  RegisterRequest
		want error
	}{
		"missing username": {RegisterRequest{Email: "a@x.com", Password: "secret1", FullName: "A"}, ErrMissingFields},
		"blank full name":  {RegisterRequest{Username: "a", Email: "a@x.com", Password: "secret1", FullName: "  "}, ErrMissingFields},
		"short password":   {RegisterRequest{Username: "a", Email: "a@x.com", Password: "12345", FullName: "A"}, ErrPasswordTooShort},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			users := new(mockUserRepo)
			_, _, err := newTestService(users, new(mockTokens)).Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Register_Taken(t *testing.T) {
	users := new(mockUserRepo)
	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "alice@x.com").Return(true, nil)

	_, _, err := newTestService(users, new(mockTokens)).Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "secret1", FullName: "Alice",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestService_Register_RaceOnCreate(t *testing.T) {
	users := new(mockUserRepo)
	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "alice@x.com").Return(false, nil)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

	_, _, err := newTestService(users, new(mockTokens)).Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "secret1", FullName: "Alice",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestService_Login(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	existing := &domain.User{ID: "u-10", Username: "bob", Email: "bob@x.com", PasswordHash: string(hashed)}

	users := new(mockUserRepo)
	tokens := new(mockTokens)
	users.On("GetByLogin", mock.Anything, "bob").Return(existing, nil)
	users.On("GetByLogin", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
	users.On("GetByLogin", mock.Anything, "broken").Return(nil, errors.New("db down"))
	tokens.On("Issue", "u-10").Return("login-token", nil)
	s := newTestService(users, tokens)

	user, token, err := s.Login(context.Background(), LoginRequest{Username: "bob", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, "u-10", user.ID)

	_, _, err = s.Login(context.Background(), LoginRequest{Username: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(context.Background(), LoginRequest{Username: "ghost", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(context.Background(), LoginRequest{Username: "broken", Password: "password123"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
