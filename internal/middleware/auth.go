package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/pkg/response"
)

const (
	ctxUserKey   = "user"
	ctxUserIDKey = "user_id"

	// AuthRequiredMessage is the only message a client sees for any
	// authentication failure.
	AuthRequiredMessage = "Authentication required"
)

type TokenVerifier interface {
	Verify(token string) (userID string, ok bool)
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator is the single gate between a bearer token and a user.
type Authenticator struct {
	tokens TokenVerifier
	users  UserFinder
	log    logrus.FieldLogger
}

func NewAuthenticator(tokens TokenVerifier, users UserFinder, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// ExtractToken reads "Authorization: Bearer <token>". A header without a
// scheme is taken as the token itself. When allowQuery is set and the
// header yields nothing, the "token" query parameter is used.
func ExtractToken(r *http.Request, allowQuery bool) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		switch {
		case found && strings.EqualFold(scheme, "bearer"):
			if token := strings.TrimSpace(rest); token != "" {
				return token
			}
		case !found:
			return h
		}
	}
	if allowQuery {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

// Resolve maps a token to a live user. It returns false for an empty,
// invalid or expired token, for a user that no longer exists, and when the
// lookup itself fails.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*domain.User, bool) {
	if token == "" {
		return nil, false
	}
	userID, ok := a.tokens.Verify(token)
	if !ok {
		a.log.Debug("token verification failed")
		return nil, false
	}
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		a.log.WithError(err).WithField("user_id", userID).Debug("token user lookup failed")
		return nil, false
	}
	return user, true
}

// ResolveRequest extracts and resolves in one step.
func (a *Authenticator) ResolveRequest(r *http.Request, allowQuery bool) (*domain.User, bool) {
	return a.Resolve(r.Context(), ExtractToken(r, allowQuery))
}

// RequireUser rejects the request with 401 unless the Authorization header
// resolves to a user.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return a.require(false)
}

// RequireUserOrQueryToken also accepts ?token=, for inline document
// viewers that cannot set headers.
func (a *Authenticator) RequireUserOrQueryToken() gin.HandlerFunc {
	return a.require(true)
}

func (a *Authenticator) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.ResolveRequest(c.Request, allowQuery)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, AuthRequiredMessage)
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

func SetUser(c *gin.Context, user *domain.User) {
	c.Set(ctxUserKey, user)
	c.Set(ctxUserIDKey, user.ID)
	c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
}

// CurrentUser returns the user set by RequireUser.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(ctxUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

type userCtxKey struct{}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(*domain.User)
	return user, ok && user != nil
}
