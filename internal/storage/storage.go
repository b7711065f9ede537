// Package storage holds PDF payloads outside the books table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// Store keeps payload bytes under opaque keys. Access control happens on
// the book row before a Store is ever consulted.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a date-partitioned key: books/YYYY/MM/DD/<uuid>.pdf
func NewKey(now time.Time) string {
	return fmt.Sprintf("books/%d/%02d/%02d/%s.pdf", now.Year(), now.Month(), now.Day(), uuid.New())
}
