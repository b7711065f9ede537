package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/pkg/validator"
	"pdflibrary/internal/repository"
	"pdflibrary/internal/storage"
)

type BookRepository interface {
	Create(ctx context.Context, b *domain.Book) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Book, error)
	GetByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error)
	GetWithPayloadByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error)
	SearchByOwner(ctx context.Context, ownerID, query string) ([]domain.Book, error)
	UpdateByOwner(ctx context.Context, ownerID, id string, f repository.BookFields) (*domain.Book, error)
	DeleteByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error)
}

// Service is the owner-scoped book store. Every method takes the already
// authenticated user and never touches another user's books.
type Service struct {
	books BookRepository
	// blobs is nil when payloads live in the books table.
	blobs storage.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(books BookRepository, blobs storage.Store, log logrus.FieldLogger) *Service {
	return &Service{
		books: books,
		blobs: blobs,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// guard is the single ownership check: it yields the id every query is
// scoped by.
func guard(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", ErrUnauthenticated
	}
	return user.ID, nil
}

func (s *Service) List(ctx context.Context, user *domain.User) ([]domain.Book, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}
	books, err := s.books.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *Service) Get(ctx context.Context, user *domain.User, id string) (*domain.Book, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}
	b, err := s.books.GetByOwner(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "get book")
	}
	return b, nil
}

func (s *Service) Search(ctx context.Context, user *domain.User, text string) ([]domain.Book, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}
	books, err := s.books.SearchByOwner(ctx, owner, text)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

// Create validates the upload, stores the payload and records the book.
func (s *Service) Create(ctx context.Context, user *domain.User, in NewBook) (*domain.Book, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Description = strings.TrimSpace(in.Description)
	in.FileName = filepath.Base(strings.TrimSpace(in.FileName))
	if in.FileName == "." || in.FileName == string(filepath.Separator) {
		in.FileName = ""
	}

	if in.Title == "" || in.Author == "" || len(in.Data) == 0 {
		return nil, invalid(msgRequiredFields)
	}
	if in.ContentType != domain.PDFContentType {
		return nil, invalid(msgOnlyPDF)
	}
	if len(in.Data) > domain.MaxPayloadSize {
		return nil, invalid(msgTooLarge)
	}
	if fields := validator.Validate(in); fields != nil {
		return nil, &ValidationError{Message: "Invalid book metadata", Fields: fields}
	}
	if in.FileName == "" {
		in.FileName = "document.pdf"
	}

	now := s.now()
	book := &domain.Book{
		ID:          uuid.NewString(),
		UserID:      owner,
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		ContentType: in.ContentType,
		FileName:    in.FileName,
		FileSize:    int64(len(in.Data)),
		UploadDate:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.blobs == nil {
		book.PDFData = in.Data
	} else {
		book.StorageKey = storage.NewKey(now)
		if err := s.blobs.Put(ctx, book.StorageKey, in.Data, in.ContentType); err != nil {
			return nil, fmt.Errorf("store payload: %w", err)
		}
	}

	if err := s.books.Create(ctx, book); err != nil {
		if book.StorageKey != "" {
			if derr := s.blobs.Delete(ctx, book.StorageKey); derr != nil {
				s.log.WithError(derr).WithField("storage_key", book.StorageKey).Warn("orphaned payload after failed insert")
			}
		}
		return nil, fmt.Errorf("save book: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   owner,
		"book_id":   book.ID,
		"file_size": book.FileSize,
	}).Info("book uploaded")

	book.PDFData = nil
	return book, nil
}

// Update changes title, author and description only. An empty patch
// returns the book unchanged.
func (s *Service) Update(ctx context.Context, user *domain.User, id string, patch BookPatch) (*domain.Book, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}

	fields := repository.BookFields{}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, invalid("Title cannot be empty")
		}
		fields.Title = &t
	}
	if patch.Author != nil {
		a := strings.TrimSpace(*patch.Author)
		if a == "" {
			return nil, invalid("Author cannot be empty")
		}
		fields.Author = &a
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		fields.Description = &d
	}
	if errs := validator.Validate(BookPatch{Title: fields.Title, Author: fields.Author, Description: fields.Description}); errs != nil {
		return nil, &ValidationError{Message: "Invalid book metadata", Fields: errs}
	}

	b, err := s.books.UpdateByOwner(ctx, owner, id, fields)
	if err != nil {
		return nil, notFound(err, "update book")
	}
	return b, nil
}

// Delete reports whether an owned book was removed.
func (s *Service) Delete(ctx context.Context, user *domain.User, id string) (bool, error) {
	owner, err := guard(user)
	if err != nil {
		return false, err
	}

	b, err := s.books.DeleteByOwner(ctx, owner, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}

	if b.StorageKey != "" && s.blobs != nil {
		// the row is gone, a leftover object is only wasted space
		if err := s.blobs.Delete(ctx, b.StorageKey); err != nil {
			s.log.WithError(err).WithField("storage_key", b.StorageKey).Warn("failed to delete payload")
		}
	}
	s.log.WithFields(logrus.Fields{"user_id": owner, "book_id": id}).Info("book deleted")
	return true, nil
}

// FetchPayload returns the PDF bytes of an owned book.
func (s *Service) FetchPayload(ctx context.Context, user *domain.User, id string) (*Payload, error) {
	owner, err := guard(user)
	if err != nil {
		return nil, err
	}

	b, err := s.books.GetWithPayloadByOwner(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "fetch book")
	}

	data := b.PDFData
	if b.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("book %s has an external payload but no payload store is configured", b.ID)
		}
		data, err = s.blobs.Get(ctx, b.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("load payload: %w", err)
		}
	}

	return &Payload{
		Data:        data,
		ContentType: b.ContentType,
		FileName:    b.FileName,
	}, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBookNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
