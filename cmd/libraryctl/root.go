package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"pdflibrary/internal/config"
	"pdflibrary/internal/database"
	"pdflibrary/internal/logging"
	"pdflibrary/internal/repository"
	"pdflibrary/internal/server"
	"pdflibrary/internal/storage"
)

// env is shared by all subcommands and opened lazily so --help works
// without a database.
type env struct {
	databaseURL string
	verbose     bool

	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Administer the PDF library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.databaseURL, "database-url", "", "database DSN (default: DATABASE_URL)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(e),
		newCreateUserCmd(e),
		newImportCmd(e),
	)
	return root
}

func (e *env) open() error {
	if e.db != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.databaseURL != "" {
		cfg.DatabaseURL = e.databaseURL
	}
	e.cfg = cfg

	level := cfg.LogLevel
	if e.verbose {
		level = "debug"
	}
	e.log = logging.New(level, cfg.LogFormat)

	db, err := database.ConnectWithOptions(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}, e.log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	e.db = db
	return nil
}

func (e *env) users() *repository.UserRepository {
	return repository.NewUserRepository(e.db)
}

func (e *env) payloads(ctx context.Context) (storage.Store, error) {
	return server.PayloadStore(ctx, e.cfg)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
