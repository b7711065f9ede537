package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/middleware"
	"pdflibrary/internal/pkg/response"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	log     logrus.FieldLogger
}

func NewHandler(service *Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts /auth under api. requireUser guards /auth/me.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, requireUser gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", requireUser, h.Me)
	}
}

// Register creates an account and returns a token for it.
// @Router /auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, registerBindMessage(err))
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "All fields are required")
		case errors.Is(err, ErrPasswordTooShort):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Password must be at least 6 characters")
		case errors.Is(err, ErrUserAlreadyExists):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Username or email already exists")
		default:
			h.log.WithError(err).Error("registration failed")
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
		}
		return
	}

	response.JSON(c, http.StatusCreated, gin.H{
		"token": token,
		"user":  user.Public(),
	})
}

// Login exchanges a username (or email) and password for a token.
// @Router /auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Username and password are required")
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Username and password are required")
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid credentials")
		default:
			h.log.WithError(err).Error("login failed")
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
		}
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user.Public(),
	})
}

// Me returns the caller's profile.
// @Router /auth/me [GET]
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, middleware.AuthRequiredMessage)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": user.Public()})
}

func registerBindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	for _, e := range verrs {
		switch {
		case e.Tag() == "required":
			return "All fields are required"
		case e.Field() == "Password" && e.Tag() == "min":
			return "Password must be at least 6 characters"
		case e.Tag() == "email":
			return "Invalid email address"
		}
	}
	return "Invalid request body"
}
