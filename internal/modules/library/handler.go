package library

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/domain"
	"pdflibrary/internal/middleware"
	"pdflibrary/internal/pkg/response"
)

// multipartOverhead is the allowance on top of the payload limit for form
// fields and part headers.
const multipartOverhead = 1 << 20

const msgNotFound = "Book not found or access denied"

type Handler struct {
	service *Service
	log     logrus.FieldLogger
}

func NewHandler(service *Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts the upload and PDF routes under api.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, authn *middleware.Authenticator) {
	api.POST("/upload", authn.RequireUser(), h.Upload)

	pdf := api.Group("/pdf")
	{
		pdf.OPTIONS("/:id", middleware.PDFPreflight)
		pdf.GET("/:id", middleware.PDFCORS(), authn.RequireUserOrQueryToken(), h.ServePDF)
	}
}

// Upload stores a PDF with its metadata for the current user.
// @Router /upload [POST]
func (h *Handler) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, middleware.AuthRequiredMessage)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, domain.MaxPayloadSize+multipartOverhead)
	if _, err := c.MultipartForm(); err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, msgTooLarge)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeValidation, msgRequiredFields)
		return
	}

	in := NewBook{
		Title:       c.PostForm("title"),
		Author:      c.PostForm("author"),
		Description: c.PostForm("description"),
	}

	fh, err := c.FormFile("pdf")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// leave Data empty, Create reports the missing file
	case err != nil:
		response.Error(c, http.StatusBadRequest, response.CodeValidation, msgRequiredFields)
		return
	default:
		data, err := readPart(fh)
		if err != nil {
			h.log.WithError(err).Error("failed to read uploaded file")
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to upload PDF")
			return
		}
		in.Data = data
		in.ContentType = fh.Header.Get("Content-Type")
		in.FileName = fh.Filename
	}

	book, err := h.service.Create(c.Request.Context(), user, in)
	if err != nil {
		h.writeError(c, err, "Failed to upload PDF")
		return
	}

	response.JSON(c, http.StatusCreated, gin.H{"book": ToResponse(book)})
}

// ServePDF streams the stored PDF of an owned book.
// @Router /pdf/{id} [GET]
func (h *Handler) ServePDF(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, middleware.AuthRequiredMessage)
		return
	}

	p, err := h.service.FetchPayload(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to load PDF")
		return
	}

	contentType := p.ContentType
	if contentType == "" {
		contentType = domain.PDFContentType
	}
	c.Header("Content-Length", strconv.Itoa(len(p.Data)))
	c.Header("Content-Disposition", `inline; filename="`+dispositionName(p.FileName)+`"`)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, contentType, p.Data)
}

func (h *Handler) writeError(c *gin.Context, err error, internalMsg string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Fields) > 0 {
			response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, verr.Message, verr.Fields)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeValidation, verr.Message)
	case errors.Is(err, ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, middleware.AuthRequiredMessage)
	case errors.Is(err, ErrBookNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, msgNotFound)
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error(internalMsg)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, internalMsg)
	}
}

// readPart reads at most one byte past the payload limit so oversize files
// are still detected without buffering all of them.
func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, domain.MaxPayloadSize+1))
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// dispositionName makes a stored file name safe for a quoted header value.
func dispositionName(name string) string {
	if name == "" {
		return "document.pdf"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
