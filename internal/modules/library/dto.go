package library

import (
	"time"

	"pdflibrary/internal/domain"
)

// NewBook is the input to Create.
type NewBook struct {
	Title       string `validate:"max=512"`
	Author      string `validate:"max=512"`
	Description string `validate:"max=20000"`
	Data        []byte
	ContentType string
	FileName    string `validate:"max=255"`
}

// BookPatch changes only the non-nil fields.
type BookPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=512"`
	Author      *string `json:"author" validate:"omitempty,max=512"`
	Description *string `json:"description" validate:"omitempty,max=20000"`
}

type Payload struct {
	Data        []byte
	ContentType string
	FileName    string
}

// BookResponse is the metadata view of a book sent to clients.
type BookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	UploadDate  time.Time `json:"uploadDate"`
}

func ToResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		FileName:    b.FileName,
		FileSize:    b.FileSize,
		UploadDate:  b.UploadDate,
	}
}
