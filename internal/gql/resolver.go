package gql

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/modules/library"
)

type BookService interface {
	List(ctx context.Context, user *domain.User) ([]domain.Book, error)
	Get(ctx context.Context, user *domain.User, id string) (*domain.Book, error)
	Search(ctx context.Context, user *domain.User, text string) ([]domain.Book, error)
	Update(ctx context.Context, user *domain.User, id string, patch library.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, user *domain.User, id string) (bool, error)
}

// requestAuth carries the caller of one GraphQL request. denied is set by
// the first resolver that runs without a user.
type requestAuth struct {
	user   *domain.User
	denied atomic.Bool
}

type authKey struct{}

func withAuth(ctx context.Context, a *requestAuth) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// gqlError is a resolver error with a machine readable code.
type gqlError struct {
	message string
	code    string
}

func (e *gqlError) Error() string { return e.message }

func (e *gqlError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

var errAuthentication = &gqlError{message: "Authentication failed", code: "UNAUTHENTICATED"}

type Resolver struct {
	books BookService
	log   logrus.FieldLogger
}

func NewResolver(books BookService, log logrus.FieldLogger) *Resolver {
	return &Resolver{books: books, log: log}
}

// caller returns the authenticated user or marks the request as denied.
func (r *Resolver) caller(p graphql.ResolveParams) (*domain.User, error) {
	a, _ := p.Context.Value(authKey{}).(*requestAuth)
	if a == nil {
		return nil, errAuthentication
	}
	if a.user == nil {
		a.denied.Store(true)
		return nil, errAuthentication
	}
	return a.user, nil
}

func (r *Resolver) Books(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.caller(p)
	if err != nil {
		return nil, err
	}
	books, err := r.books.List(p.Context, user)
	if err != nil {
		return nil, r.fail(err, "books")
	}
	return toGraphList(books), nil
}

// Book resolves to null for ids the caller does not own.
func (r *Resolver) Book(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.caller(p)
	if err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	b, err := r.books.Get(p.Context, user, id)
	if errors.Is(err, library.ErrBookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(err, "book")
	}
	return toGraph(b), nil
}

func (r *Resolver) SearchBooks(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.caller(p)
	if err != nil {
		return nil, err
	}
	q, _ := p.Args["query"].(string)
	books, err := r.books.Search(p.Context, user, q)
	if err != nil {
		return nil, r.fail(err, "searchBooks")
	}
	return toGraphList(books), nil
}

func (r *Resolver) DeleteBook(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.caller(p)
	if err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	ok, err := r.books.Delete(p.Context, user, id)
	if err != nil {
		return nil, r.fail(err, "deleteBook")
	}
	return ok, nil
}

func (r *Resolver) UpdateBook(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.caller(p)
	if err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	input, _ := p.Args["input"].(map[string]interface{})

	b, err := r.books.Update(p.Context, user, id, patchFrom(input))
	if err != nil {
		return nil, r.fail(err, "updateBook")
	}
	return toGraph(b), nil
}

// patchFrom keeps only the keys present with a non-null value.
func patchFrom(input map[string]interface{}) library.BookPatch {
	str := func(key string) *string {
		if s, ok := input[key].(string); ok {
			return &s
		}
		return nil
	}
	return library.BookPatch{
		Title:       str("title"),
		Author:      str("author"),
		Description: str("description"),
	}
}

func (r *Resolver) fail(err error, field string) error {
	var verr *library.ValidationError
	switch {
	case errors.As(err, &verr):
		return &gqlError{message: verr.Message, code: "BAD_USER_INPUT"}
	case errors.Is(err, library.ErrBookNotFound):
		return &gqlError{message: "Book not found", code: "NOT_FOUND"}
	case errors.Is(err, library.ErrUnauthenticated):
		return errAuthentication
	}
	r.log.WithError(err).WithField("field", field).Error("graphql resolver failed")
	return &gqlError{message: "Internal server error", code: "INTERNAL_SERVER_ERROR"}
}
