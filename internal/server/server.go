// Package server assembles the HTTP router from the library components.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pdflibrary/internal/config"
	"pdflibrary/internal/gql"
	"pdflibrary/internal/middleware"
	"pdflibrary/internal/modules/auth"
	"pdflibrary/internal/modules/library"
	"pdflibrary/internal/pkg/jwt"
	"pdflibrary/internal/repository"
	"pdflibrary/internal/storage"
)

type Options struct {
	DB     *gorm.DB
	Tokens *jwt.Service
	// Payloads is nil when PDFs are kept in the books table.
	Payloads    storage.Store
	CORSOrigins []string
	Log         logrus.FieldLogger
}

// NewRouter wires repositories, services and handlers onto a gin engine.
func NewRouter(opts Options) (*gin.Engine, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	userRepo := repository.NewUserRepository(opts.DB)
	bookRepo := repository.NewBookRepository(opts.DB)

	authn := middleware.NewAuthenticator(opts.Tokens, userRepo, log)

	authService := auth.NewService(userRepo, opts.Tokens, log)
	authHandler := auth.NewHandler(authService, log)

	libraryService := library.NewService(bookRepo, opts.Payloads, log)
	libraryHandler := library.NewHandler(libraryService, log)

	schema, err := gql.NewSchema(gql.NewResolver(libraryService, log))
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	gqlHandler := gql.NewHandler(schema, authn, log)

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(opts.CORSOrigins, "/api/pdf/"))

	r.GET("/healthz", healthz(opts.DB))

	api := r.Group("/api")
	{
		authHandler.RegisterRoutes(api, authn.RequireUser())
		libraryHandler.RegisterRoutes(api, authn)
		gqlHandler.RegisterRoutes(api)
	}

	return r, nil
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// PayloadStore returns the configured external store, or nil for the
// database backend.
func PayloadStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.PayloadBackend {
	case config.PayloadBackendDisk:
		store, err := storage.NewDiskStore(cfg.PayloadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.PayloadBackendS3:
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
