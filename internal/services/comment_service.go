package services

import (
	"context"

	"github.com/gitmesh-labs/steward/pkg/logger"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// CommentService posts replies to pull request threads. All failures
// are logged and swallowed; a lost reply must never fail the governance
// mutation it reports on.
type CommentService struct {
	client *github.Client
	owner  string
	repo   string
}

// NewCommentService creates a CommentService for the given repository
func NewCommentService(token, owner, repo string) *CommentService {
	client := github.NewClient(nil)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &CommentService{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// PostComment posts a comment to the given issue or pull request thread
func (s *CommentService) PostComment(ctx context.Context, number int, body string) {
	comment := &github.IssueComment{Body: github.String(body)}
	if _, _, err := s.client.Issues.CreateComment(ctx, s.owner, s.repo, number, comment); err != nil {
		logger.WithError(err).Errorf("Failed to post comment on #%d", number)
	}
}
