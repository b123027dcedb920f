package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/pkg/config"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// incrementalPageLimit caps how far an incremental fetch pages back.
// Clean starts page through the full history regardless.
const incrementalPageLimit = 50

// MergedChange is one merged pull request as seen by the engine. The
// adapter normalizes the API response shape; nothing downstream touches
// raw payloads.
type MergedChange struct {
	Actor    string
	MergedAt time.Time
	URL      string
	Title    string
	Number   int
}

// ChangeCommit is one commit attributed to a merged change.
// AuthorLogin is empty when the commit has no resolvable platform
// identity.
type ChangeCommit struct {
	AuthorLogin string
	Message     string
	SHA         string
}

// GitHubService wraps the hosting platform's REST API for activity
// retrieval and comment posting.
type GitHubService struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubService creates a GitHubService for the configured repository
func NewGitHubService(cfg config.GitHubConfig) (*GitHubService, error) {
	owner, repo, err := splitRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	return &GitHubService{
		client: client,
		owner:  owner,
		repo:   repo,
	}, nil
}

// splitRepository parses an "owner/repo" identity
func splitRepository(full string) (string, string, error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository identity %q, expected owner/repo", full)
	}
	return parts[0], parts[1], nil
}

// ListMergedChanges fetches merged pull requests, optionally limited to
// those merged strictly after since. Filtering on merge timestamp is
// client-side; the API only sorts by update time.
func (s *GitHubService) ListMergedChanges(ctx context.Context, since *time.Time) ([]*MergedChange, error) {
	var all []*MergedChange

	opts := &github.PullRequestListOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	page := 1
	for {
		opts.Page = page
		prs, resp, err := s.client.PullRequests.List(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests page %d: %w", page, err)
		}

		found := 0
		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}
			mergedAt := pr.GetMergedAt().Time
			if since != nil && !mergedAt.After(*since) {
				continue
			}
			all = append(all, &MergedChange{
				Actor:    pr.GetUser().GetLogin(),
				MergedAt: mergedAt,
				URL:      pr.GetHTMLURL(),
				Title:    pr.GetTitle(),
				Number:   pr.GetNumber(),
			})
			found++
		}
		logger.Debugf("Fetched pull request page %d: %d merged changes", page, found)

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage

		if since != nil && page > incrementalPageLimit {
			logger.Warnf("Reached page limit %d for incremental fetch", incrementalPageLimit)
			break
		}
	}

	return all, nil
}

// GetMergedBy resolves the actor who merged the given change
func (s *GitHubService) GetMergedBy(ctx context.Context, number int) (string, error) {
	pr, _, err := s.client.PullRequests.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	return pr.GetMergedBy().GetLogin(), nil
}

// ListChangeCommits fetches the commits attributed to a merged change
func (s *GitHubService) ListChangeCommits(ctx context.Context, number int) ([]*ChangeCommit, error) {
	var all []*ChangeCommit

	opts := &github.ListOptions{PerPage: 100}
	for {
		commits, resp, err := s.client.PullRequests.ListCommits(ctx, s.owner, s.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits for #%d: %w", number, err)
		}
		for _, commit := range commits {
			all = append(all, &ChangeCommit{
				AuthorLogin: commit.GetAuthor().GetLogin(),
				Message:     commit.GetCommit().GetMessage(),
				SHA:         commit.GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetLatestActivityDate returns the date of the user's most recent
// public activity, or "" when none is visible.
func (s *GitHubService) GetLatestActivityDate(ctx context.Context, username string) (string, error) {
	events, _, err := s.client.Activity.ListEventsPerformedByUser(ctx, username, true, &github.ListOptions{PerPage: 1})
	if err != nil {
		return "", fmt.Errorf("failed to list events for %s: %w", username, err)
	}
	if len(events) == 0 {
		return "", nil
	}
	return events[0].GetCreatedAt().Time.Format(models.DateLayout), nil
}

// GetHeadRef resolves the head branch name of a pull request
func (s *GitHubService) GetHeadRef(ctx context.Context, number int) (string, error) {
	pr, _, err := s.client.PullRequests.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	return pr.GetHead().GetRef(), nil
}
