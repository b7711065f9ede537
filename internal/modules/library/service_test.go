package library

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/logging"
	"pdflibrary/internal/repository"
)

type mockBooks struct {
	mock.Mock
}

func (m *mockBooks) Create(ctx context.Context, b *domain.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBooks) ListByOwner(ctx context.Context, ownerID string) ([]domain.Book, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Book), args.Error(1)
}

func (m *mockBooks) GetByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBooks) GetWithPayloadByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBooks) SearchByOwner(ctx context.Context, ownerID, query string) ([]domain.Book, error) {
	args := m.Called(ctx, ownerID, query)
	return args.Get(0).([]domain.Book), args.Error(1)
}

func (m *mockBooks) UpdateByOwner(ctx context.Context, ownerID, id string, f repository.BookFields) (*domain.Book, error) {
	args := m.Called(ctx, ownerID, id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBooks) DeleteByOwner(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

var alice = &domain.User{ID: "alice-id", Username: "alice"}

func pdf(n int) []byte {
	return bytes.Repeat([]byte{'%'}, n)
}

func validBook(data []byte) NewBook {
	return NewBook{
		Title:       "  Go  ",
		Author:      "Rob",
		Description: " systems ",
		Data:        data,
		ContentType: domain.PDFContentType,
		FileName:    "go.pdf",
	}
}

func TestService_RequiresUser(t *testing.T) {
	svc := NewService(new(mockBooks), nil, logging.Discard())
	ctx := context.Background()

	_, err := svc.List(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Get(ctx, nil, "x")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Search(ctx, nil, "go")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Create(ctx, nil, validBook(pdf(10)))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Update(ctx, nil, "x", BookPatch{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Delete(ctx, &domain.User{}, "x")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.FetchPayload(ctx, nil, "x")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_Create_Inline(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	data := pdf(128)
	books.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Book) bool {
		return b.UserID == "alice-id" &&
			b.Title == "Go" &&
			b.Description == "systems" &&
			bytes.Equal(b.PDFData, data) &&
			b.StorageKey == "" &&
			b.FileSize == 128 &&
			b.UploadDate.Equal(fixed)
	})).Return(nil)

	b, err := svc.Create(context.Background(), alice, validBook(data))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "go.pdf", b.FileName)
	assert.Nil(t, b.PDFData)
	books.AssertExpectations(t)
}

func TestService_Create_SizeBoundary(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), alice, validBook(pdf(domain.MaxPayloadSize)))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), alice, validBook(pdf(domain.MaxPayloadSize+1)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgTooLarge, verr.Message)
	books.AssertNumberOfCalls(t, "Create", 1)
}

func TestService_Create_Rejects(t *testing.T) {
	svc := NewService(new(mockBooks), nil, logging.Discard())

	tests := []struct {
		name    string
		mutate  func(*NewBook)
		message string
	}{
		{"blank title", func(n *NewBook) { n.Title = "   " }, msgRequiredFields},
		{"missing author", func(n *NewBook) { n.Author = "" }, msgRequiredFields},
		{"missing file", func(n *NewBook) { n.Data = nil }, msgRequiredFields},
		{"not a pdf", func(n *NewBook) { n.ContentType = "text/plain" }, msgOnlyPDF},
		{"pdf with params", func(n *NewBook) { n.ContentType = "application/pdf; charset=binary" }, msgOnlyPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validBook(pdf(10))
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), alice, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestService_Create_ExternalStore(t *testing.T) {
	books := new(mockBooks)
	blobs := new(mockStore)
	svc := NewService(books, blobs, logging.Discard())
	data := pdf(64)

	var key string
	blobs.On("Put", mock.Anything, mock.AnythingOfType("string"), data, domain.PDFContentType).
		Run(func(args mock.Arguments) { key = args.String(1) }).
		Return(nil)
	books.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Book) bool {
		return b.PDFData == nil && b.StorageKey != ""
	})).Return(nil)

	b, err := svc.Create(context.Background(), alice, validBook(data))
	require.NoError(t, err)
	assert.Equal(t, key, b.StorageKey)
	assert.Contains(t, key, "books/")
}

func TestService_Create_RemovesObjectWhenInsertFails(t *testing.T) {
	books := new(mockBooks)
	blobs := new(mockStore)
	svc := NewService(books, blobs, logging.Discard())

	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	blobs.On("Delete", mock.Anything, mock.Anything).Return(nil)
	books.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := svc.Create(context.Background(), alice, validBook(pdf(8)))
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	blobs.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_Get_NotFound(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())
	books.On("GetByOwner", mock.Anything, "alice-id", "bobs-book").Return(nil, repository.ErrNotFound)

	_, err := svc.Get(context.Background(), alice, "bobs-book")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_Update(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())

	title := "  New Title "
	books.On("UpdateByOwner", mock.Anything, "alice-id", "b1", mock.MatchedBy(func(f repository.BookFields) bool {
		return f.Title != nil && *f.Title == "New Title" && f.Author == nil && f.Description == nil
	})).Return(&domain.Book{ID: "b1", Title: "New Title"}, nil)

	b, err := svc.Update(context.Background(), alice, "b1", BookPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New Title", b.Title)
}

func TestService_Update_EmptyPatchIsNoop(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())
	books.On("UpdateByOwner", mock.Anything, "alice-id", "b1", repository.BookFields{}).
		Return(&domain.Book{ID: "b1", Title: "Same"}, nil)

	b, err := svc.Update(context.Background(), alice, "b1", BookPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Same", b.Title)
}

func TestService_Update_RejectsBlankTitle(t *testing.T) {
	svc := NewService(new(mockBooks), nil, logging.Discard())
	blank := " "
	_, err := svc.Update(context.Background(), alice, "b1", BookPatch{Title: &blank})
	assert.True(t, IsValidation(err))
}

func TestService_Update_Foreign(t *testing.T) {
	books := new(mockBooks)
	svc := NewService(books, nil, logging.Discard())
	books.On("UpdateByOwner", mock.Anything, "alice-id", "bobs-book", mock.Anything).Return(nil, repository.ErrNotFound)

	author := "x"
	_, err := svc.Update(context.Background(), alice, "bobs-book", BookPatch{Author: &author})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_Delete_Twice(t *testing.T) {
	books := new(mockBooks)
	blobs := new(mockStore)
	svc := NewService(books, blobs, logging.Discard())

	books.On("DeleteByOwner", mock.Anything, "alice-id", "b1").
		Return(&domain.Book{ID: "b1", StorageKey: "books/k.pdf"}, nil).Once()
	books.On("DeleteByOwner", mock.Anything, "alice-id", "b1").
		Return(nil, repository.ErrNotFound).Once()
	blobs.On("Delete", mock.Anything, "books/k.pdf").Return(errors.New("s3 flake"))

	ok, err := svc.Delete(context.Background(), alice, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Delete(context.Background(), alice, "b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_FetchPayload(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		books := new(mockBooks)
		svc := NewService(books, nil, logging.Discard())
		books.On("GetWithPayloadByOwner", mock.Anything, "alice-id", "b1").Return(&domain.Book{
			ID: "b1", PDFData: []byte("%PDF"), ContentType: domain.PDFContentType, FileName: "a.pdf",
		}, nil)

		p, err := svc.FetchPayload(context.Background(), alice, "b1")
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF"), p.Data)
		assert.Equal(t, "a.pdf", p.FileName)
	})

	t.Run("external", func(t *testing.T) {
		books := new(mockBooks)
		blobs := new(mockStore)
		svc := NewService(books, blobs, logging.Discard())
		books.On("GetWithPayloadByOwner", mock.Anything, "alice-id", "b1").Return(&domain.Book{
			ID: "b1", StorageKey: "books/k.pdf", ContentType: domain.PDFContentType,
		}, nil)
		blobs.On("Get", mock.Anything, "books/k.pdf").Return([]byte("%PDF-ext"), nil)

		p, err := svc.FetchPayload(context.Background(), alice, "b1")
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-ext"), p.Data)
	})

	t.Run("foreign", func(t *testing.T) {
		books := new(mockBooks)
		blobs := new(mockStore)
		svc := NewService(books, blobs, logging.Discard())
		books.On("GetWithPayloadByOwner", mock.Anything, "alice-id", "bobs").Return(nil, repository.ErrNotFound)

		_, err := svc.FetchPayload(context.Background(), alice, "bobs")
		assert.ErrorIs(t, err, ErrBookNotFound)
		blobs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}
