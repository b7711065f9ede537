package repository

import (
	"context"
	"strings"
	"time"
	"unicode"

	"pdflibrary/internal/domain"

	"gorm.io/gorm"
)

// BookRepository scopes every query by the owning user id. There is no
// method that reads or writes a book by id alone.
type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// BookFields holds the mutable metadata columns; nil means unchanged.
type BookFields struct {
	Title       *string
	Author      *string
	Description *string
}

func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	b.SearchText = b.SearchDocument()
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *BookRepository) owned(ctx context.Context, ownerID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Book{}).Where("user_id = ?", ownerID)
}

// ListByOwner returns metadata for all of the owner's books, newest first.
func (r *BookRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Book, error) {
	books := []domain.Book{}
	err := r.owned(ctx, ownerID).
		Omit("pdf_data").
		Order("created_at DESC").
		Order("id DESC").
		Find(&books).Error
	return books, err
}

// GetByOwner returns metadata only.
func (r *BookRepository) GetByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	var b domain.Book
	err := r.owned(ctx, ownerID).
		Omit("pdf_data").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// GetWithPayloadByOwner also loads pdf_data.
func (r *BookRepository) GetWithPayloadByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	var b domain.Book
	if err := r.owned(ctx, ownerID).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// SearchByOwner matches books where any query term occurs in the title,
// author or description, ignoring case. Terms are runs of letters and
// digits; a query without any yields no results.
func (r *BookRepository) SearchByOwner(ctx context.Context, ownerID, query string) ([]domain.Book, error) {
	terms := SearchTerms(query)
	books := []domain.Book{}
	if len(terms) == 0 {
		return books, nil
	}

	// search_text is lower-cased with Unicode folding on write
	cond := r.db.WithContext(ctx)
	for i, term := range terms {
		like := "%" + term + "%"
		if i == 0 {
			cond = cond.Where("search_text LIKE ?", like)
		} else {
			cond = cond.Or("search_text LIKE ?", like)
		}
	}

	err := r.owned(ctx, ownerID).
		Where(cond).
		Omit("pdf_data").
		Order("created_at DESC").
		Order("id DESC").
		Find(&books).Error
	return books, err
}

// SearchTerms lower-cases query and splits it into letter/digit runs.
func SearchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// UpdateByOwner applies the non-nil fields and returns the stored
// metadata. ErrNotFound when the book is absent or owned by someone else.
func (r *BookRepository) UpdateByOwner(ctx context.Context, ownerID, id string, f BookFields) (*domain.Book, error) {
	b, err := r.GetByOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if f.Title != nil {
		b.Title = *f.Title
		updates["title"] = b.Title
	}
	if f.Author != nil {
		b.Author = *f.Author
		updates["author"] = b.Author
	}
	if f.Description != nil {
		b.Description = *f.Description
		updates["description"] = b.Description
	}
	if len(updates) == 0 {
		return b, nil
	}

	updates["search_text"] = b.SearchDocument()
	updates["updated_at"] = time.Now().UTC()
	if err := r.owned(ctx, ownerID).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByOwner(ctx, ownerID, id)
}

// DeleteByOwner removes the book and returns its metadata, or ErrNotFound.
func (r *BookRepository) DeleteByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	b, err := r.GetByOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&domain.Book{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return b, nil
}
