// Package gitreport commits generated profile reports to the project's git
// repository and optionally pushes them.
package gitreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// CommitMessage is used for every report commit.
const CommitMessage = "chore: update data profile report"

// Options controls authorship and pushing.
type Options struct {
	AuthorName  string
	AuthorEmail string

	// Push sends the commit to Remote after committing.
	Push   bool
	Remote string

	// Token authenticates HTTPS pushes; empty means anonymous.
	Token string
}

// Publisher stages report files, commits them, and pushes when configured.
type Publisher struct {
	root   string
	opts   Options
	logger *slog.Logger
}

// NewPublisher creates a Publisher for the repository containing root.
func NewPublisher(root string, opts Options, logger *slog.Logger) *Publisher {
	if opts.AuthorName == "" {
		opts.AuthorName = "rio-sonora-etl"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "etl@localhost"
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	return &Publisher{root: root, opts: opts, logger: logger}
}

// Publish commits the given files. It reports whether a commit was created;
// files already committed with identical content produce no commit.
func (p *Publisher) Publish(ctx context.Context, paths ...string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(p.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false, fmt.Errorf("open repository at %s: %w", p.root, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}

	top := wt.Filesystem.Root()
	staged := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := relativeTo(top, path)
		if err != nil {
			return false, err
		}
		if _, err := wt.Add(rel); err != nil {
			return false, fmt.Errorf("stage %s: %w", rel, err)
		}
		staged = append(staged, rel)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	if !changed(status, staged) {
		p.logger.Info("report unchanged, nothing to commit", "files", staged)
		return false, nil
	}

	hash, err := wt.Commit(CommitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  domain.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("commit report: %w", err)
	}
	p.logger.Info("report committed", "commit", hash.String(), "files", staged)

	if !p.opts.Push {
		return true, nil
	}
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: p.opts.Remote, Auth: p.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return true, fmt.Errorf("push to %s: %w", p.opts.Remote, err)
	}
	p.logger.Info("report pushed", "remote", p.opts.Remote)
	return true, nil
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: p.opts.Token}
}

func relativeTo(top, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(top, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, top)
	}
	return filepath.ToSlash(rel), nil
}

func changed(status git.Status, paths []string) bool {
	for _, p := range paths {
		fs, ok := status[p]
		if ok && fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			return true
		}
	}
	return false
}
