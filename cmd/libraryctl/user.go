package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pdflibrary/internal/modules/auth"
	"pdflibrary/internal/pkg/jwt"
	"pdflibrary/internal/pkg/validator"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type createUserOptions struct {
	username      string
	email         string
	fullName      string
	passwordStdin bool
}

func newCreateUserCmd(e *env) *cobra.Command {
	opts := &createUserOptions{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateUser(cmd, e, opts)
		},
	}
	cmd.Flags().StringVar(&opts.username, "username", "", "login name")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.fullName, "full-name", "", "display name")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("full-name")
	return cmd
}

func runCreateUser(cmd *cobra.Command, e *env, opts *createUserOptions) error {
	if !validator.ValidEmail(strings.TrimSpace(opts.email)) {
		return errors.New("invalid email address")
	}

	password, err := promptPassword(cmd, opts.passwordStdin)
	if err != nil {
		return err
	}

	if err := e.open(); err != nil {
		return err
	}

	svc := auth.NewService(e.users(), jwt.New(e.cfg.JWTSecret, e.cfg.JWTTTL), e.log)
	user, _, err := svc.Register(cmd.Context(), auth.RegisterRequest{
		Username: opts.username,
		Email:    opts.email,
		Password: password,
		FullName: opts.fullName,
	})
	switch {
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return errors.New("username or email already exists")
	case errors.Is(err, auth.ErrPasswordTooShort):
		return errors.New("password must be at least 6 characters")
	case errors.Is(err, auth.ErrMissingFields):
		return errors.New("all fields are required")
	case err != nil:
		return err
	}

	printf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
	return nil
}

func promptPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, use --password-stdin")
	}
	printf(cmd.ErrOrStderr(), "Password: ")
	first, err := readPassword(fd)
	printf(cmd.ErrOrStderr(), "\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	printf(cmd.ErrOrStderr(), "Repeat password: ")
	second, err := readPassword(fd)
	printf(cmd.ErrOrStderr(), "\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
