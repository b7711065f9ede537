package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/config"
	"pdflibrary/internal/database"
	"pdflibrary/internal/logging"
	"pdflibrary/internal/pkg/jwt"
	"pdflibrary/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	format := cfg.LogFormat
	if cfg.IsProduction() {
		format = "json"
		gin.SetMode(gin.ReleaseMode)
	}
	log := logging.New(cfg.LogLevel, format)

	if cfg.JWTSecretIsDefault {
		log.Warn("JWT_SECRET is not set, using the development default")
	}

	db, err := database.ConnectWithOptions(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payloads, err := server.PayloadStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("payload store init failed")
	}

	router, err := server.NewRouter(server.Options{
		DB:          db,
		Tokens:      jwt.New(cfg.JWTSecret, cfg.JWTTTL),
		Payloads:    payloads,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Log:         log,
	})
	if err != nil {
		log.WithError(err).Fatal("router init failed")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":            cfg.HTTPAddr,
			"env":             cfg.AppEnv,
			"payload_backend": cfg.PayloadBackend,
		}).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
