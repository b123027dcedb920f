package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/internal/services"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// CommandExecutor runs a governance directive found in a comment or PR body
type CommandExecutor interface {
	Execute(ctx context.Context, requester, body string, threadNumber int, branch string) error
}

// BranchResolver resolves the head branch of a pull request
type BranchResolver interface {
	GetHeadRef(ctx context.Context, number int) (string, error)
}

type WebhookHandler struct {
	commands    CommandExecutor
	branches    BranchResolver
	commenter   services.Commenter
	syncJobRepo *repositories.SyncJobRepository
}

func NewWebhookHandler(
	commands CommandExecutor,
	branches BranchResolver,
	commenter services.Commenter,
	syncJobRepo *repositories.SyncJobRepository,
) *WebhookHandler {
	return &WebhookHandler{
		commands:    commands,
		branches:    branches,
		commenter:   commenter,
		syncJobRepo: syncJobRepo,
	}
}

type issueCommentPayload struct {
	Action  string `json:"action"`
	Comment struct {
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Issue struct {
		Number      int `json:"number"`
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request"`
	} `json:"issue"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Body   string `json:"body"`
		Merged bool   `json:"merged"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
}

// Handle dispatches incoming platform events. Comment and PR bodies are
// scanned for governance commands; a merged PR additionally triggers a
// reconciliation run.
func (h *WebhookHandler) Handle(c *gin.Context) {
	event := c.GetHeader("X-GitHub-Event")

	switch event {
	case "issue_comment":
		h.handleIssueComment(c)
	case "pull_request":
		h.handlePullRequest(c)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleIssueComment(c *gin.Context) {
	var payload issueCommentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	// Commands are only meaningful on pull request threads
	if payload.Action != "created" || payload.Issue.PullRequest == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	// Most comments carry no directive; don't spend an API call
	// resolving the branch for those.
	if services.ParseCommand(payload.Comment.Body) == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	branch, err := h.branches.GetHeadRef(c.Request.Context(), payload.Issue.Number)
	if err != nil {
		// Abort before any state is mutated; a publish with an empty
		// branch would otherwise report a misleading push failure.
		logger.WithError(err).Warnf("Failed to resolve head branch for #%d", payload.Issue.Number)
		h.commenter.PostComment(c.Request.Context(), payload.Issue.Number,
			fmt.Sprintf("⚠️ Failed to resolve the pull request branch: %v. Command not executed.", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve branch"})
		return
	}

	if err := h.commands.Execute(
		c.Request.Context(),
		payload.Comment.User.Login,
		payload.Comment.Body,
		payload.Issue.Number,
		branch,
	); err != nil {
		logger.WithError(err).Errorf("Command execution failed for #%d", payload.Issue.Number)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "command execution failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handlePullRequest(c *gin.Context) {
	var payload pullRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.commands.Execute(
		c.Request.Context(),
		payload.PullRequest.User.Login,
		payload.PullRequest.Body,
		payload.Number,
		payload.PullRequest.Head.Ref,
	); err != nil {
		logger.WithError(err).Errorf("Command execution failed for #%d", payload.Number)
	}

	if payload.PullRequest.Merged {
		job := models.NewSyncJob(models.SyncTriggerWebhook)
		if err := h.syncJobRepo.Create(job); err != nil {
			logger.WithError(err).Errorf("Failed to enqueue sync for merged #%d", payload.Number)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sync"})
			return
		}
		logger.WithField("job_id", job.ID).Infof("Enqueued sync for merged #%d", payload.Number)
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
