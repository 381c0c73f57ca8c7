// Package dvc versions data artifacts with the DVC command-line tool.
package dvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// Runner executes a command in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Store tracks files with `dvc add` and pushes them to a named remote.
type Store struct {
	binary     string
	root       string
	remoteName string
	remoteURL  string
	run        Runner
	logger     *slog.Logger
}

// NewStore creates a Store for the repository at root.
func NewStore(root, remoteName, remoteURL string, run Runner, logger *slog.Logger) *Store {
	if run == nil {
		run = ExecRunner
	}
	return &Store{
		binary:     "dvc",
		root:       root,
		remoteName: remoteName,
		remoteURL:  remoteURL,
		run:        run,
		logger:     logger,
	}
}

// Name identifies the store in logs and metrics.
func (s *Store) Name() string { return "dvc" }

// Prepare initializes the repository and configures the remote.
func (s *Store) Prepare(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	return s.EnsureRemote(ctx)
}

// Init runs `dvc init` unless root already has a .dvc directory.
func (s *Store) Init(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(s.root, ".dvc")); err == nil {
		s.logger.Info("dvc repository already exists", "root", s.root)
		return nil
	}
	s.logger.Warn("no dvc repository found, initializing", "root", s.root)
	if _, err := s.exec(ctx, "init"); err != nil {
		return fmt.Errorf("initialize dvc repository: %w", err)
	}
	return nil
}

// EnsureRemote adds the remote as the default unless one with the same name
// is already configured.
func (s *Store) EnsureRemote(ctx context.Context) error {
	out, err := s.exec(ctx, "remote", "list")
	if err != nil {
		return fmt.Errorf("list dvc remotes: %w", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == s.remoteName {
			s.logger.Info("dvc remote already exists", "remote", s.remoteName)
			return nil
		}
	}
	if s.remoteURL == "" {
		return errors.New("dvc remote URL is not configured")
	}
	if _, err := s.exec(ctx, "remote", "add", "-d", s.remoteName, s.remoteURL); err != nil {
		return fmt.Errorf("add dvc remote %s: %w", s.remoteName, err)
	}
	s.logger.Info("dvc remote added", "remote", s.remoteName)
	return nil
}

// Track adds the artifact's file to DVC and pushes it to the remote.
func (s *Store) Track(ctx context.Context, a domain.Artifact) error {
	if _, err := os.Stat(a.Path); err != nil {
		return fmt.Errorf("dvc add %s: %w", a.Path, err)
	}
	if _, err := s.exec(ctx, "add", a.Path); err != nil {
		return fmt.Errorf("dvc add %s: %w", a.Path, err)
	}
	if _, err := s.exec(ctx, "push", "-r", s.remoteName); err != nil {
		return fmt.Errorf("dvc push to %s: %w", s.remoteName, err)
	}
	s.logger.Info("artifact pushed to dvc remote", "path", a.Path, "remote", s.remoteName)
	return nil
}

func (s *Store) exec(ctx context.Context, args ...string) ([]byte, error) {
	out, err := s.run(ctx, s.root, s.binary, args...)
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", s.binary, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
