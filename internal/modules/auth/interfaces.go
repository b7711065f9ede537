package auth

import (
	"context"

	"pdflibrary/internal/domain"
)

// UserRepository is the subset of the user store the auth service uses.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}
