package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pdflibrary/internal/modules/library"
	"pdflibrary/internal/repository"
)

type importOptions struct {
	username string
	dir      string
	author   string
}

func newImportCmd(e *env) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import every PDF in a directory as books of one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, e, opts)
		},
	}
	cmd.Flags().StringVar(&opts.username, "user", "", "owner username or email")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory containing .pdf files")
	cmd.Flags().StringVar(&opts.author, "author", "Unknown", "author recorded for every imported book")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runImport(cmd *cobra.Command, e *env, opts *importOptions) error {
	entries, err := os.ReadDir(opts.dir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	if err := e.open(); err != nil {
		return err
	}
	ctx := cmd.Context()

	owner, err := e.users().GetByLogin(ctx, opts.username)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user %q not found", opts.username)
	}
	if err != nil {
		return err
	}

	payloads, err := e.payloads(ctx)
	if err != nil {
		return err
	}
	svc := library.NewService(repository.NewBookRepository(e.db), payloads, e.log)

	out := cmd.OutOrStdout()
	imported, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(opts.dir, entry.Name()))
		if err != nil {
			printf(out, "  skip %s: %v\n", entry.Name(), err)
			failed++
			continue
		}

		book, err := svc.Create(ctx, owner, library.NewBook{
			Title:       titleFromFileName(entry.Name()),
			Author:      opts.author,
			Data:        data,
			ContentType: http.DetectContentType(data),
			FileName:    entry.Name(),
		})
		if err != nil {
			printf(out, "  skip %s: %v\n", entry.Name(), err)
			failed++
			continue
		}
		printf(out, "  imported %s -> %s\n", entry.Name(), book.ID)
		imported++
	}

	printf(out, "Imported %d book(s), %d failed.\n", imported, failed)
	if imported == 0 && failed > 0 {
		return errors.New("no books imported")
	}
	return nil
}

// titleFromFileName turns "the_go_book.pdf" into "the go book".
func titleFromFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
