package services

import (
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gitmesh-labs/steward/pkg/logger"
)

const (
	publishAuthorName  = "gitmesh-steward[bot]"
	publishAuthorEmail = "gitmesh-steward[bot]@users.noreply.github.com"
)

// PublishService commits the governance documents and pushes them to
// the remote branch. Errors propagate to the caller as a "mutated but
// not published" condition; local state is never rolled back.
type PublishService struct {
	workDir string
	token   string
}

// NewPublishService creates a PublishService rooted at the checkout
func NewPublishService(workDir, token string) *PublishService {
	return &PublishService{
		workDir: workDir,
		token:   token,
	}
}

// Publish stages the governance directory, commits it, refreshes from
// the remote branch and pushes. A clean worktree is a no-op.
func (s *PublishService) Publish(message, branch string) error {
	repo, err := git.PlainOpen(s.workDir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if _, err := worktree.Add("governance"); err != nil {
		return fmt.Errorf("failed to stage governance documents: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		logger.Infof("No governance changes to publish")
		return nil
	}

	if _, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  publishAuthorName,
			Email: publishAuthorEmail,
			When:  time.Now(),
		},
	}); err != nil {
		return fmt.Errorf("failed to commit governance documents: %w", err)
	}

	auth := s.auth()

	err = worktree.Pull(&git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to refresh branch %s: %w", branch, err)
	}

	err = repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("HEAD:refs/heads/%s", branch)),
		},
		Auth: auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch %s: %w", branch, err)
	}

	logger.WithField("branch", branch).Infof("Published governance change-set")
	return nil
}

func (s *PublishService) auth() *githttp.BasicAuth {
	if s.token == "" {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: s.token,
	}
}
