package domain

import (
	"strings"
	"time"
)

const (
	PDFContentType = "application/pdf"
	MaxPayloadSize = 50 * 1024 * 1024 // 50 MiB
)

// Book is a PDF owned by exactly one user. PDFData is only loaded by
// payload reads; metadata queries leave it nil.
type Book struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"column:user_id;size:36;not null;index:idx_books_user_created,priority:1" json:"-"`
	Title       string    `gorm:"column:title;size:512;not null" json:"title"`
	Author      string    `gorm:"column:author;size:512;not null" json:"author"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	PDFData     []byte    `gorm:"column:pdf_data" json:"-"`
	StorageKey  string    `gorm:"column:storage_key;size:255" json:"-"`
	SearchText  string    `gorm:"column:search_text;type:text" json:"-"`
	ContentType string    `gorm:"column:content_type;size:100;not null" json:"-"`
	FileName    string    `gorm:"column:file_name;size:255;not null" json:"fileName"`
	FileSize    int64     `gorm:"column:file_size;not null" json:"fileSize"`
	UploadDate  time.Time `gorm:"column:upload_date" json:"uploadDate"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_books_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Book) TableName() string { return "books" }

// SearchDocument is the lower-cased text that search terms are matched
// against. Folding happens here so every backend matches non-ASCII letters
// the same way.
func (b *Book) SearchDocument() string {
	return strings.ToLower(strings.Join([]string{b.Title, b.Author, b.Description}, "\n"))
}
