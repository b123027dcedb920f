package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/pkg/config"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ActivitySource is the external platform the engine reconciles against
type ActivitySource interface {
	ListMergedChanges(ctx context.Context, since *time.Time) ([]*MergedChange, error)
	GetMergedBy(ctx context.Context, number int) (string, error)
	ListChangeCommits(ctx context.Context, number int) ([]*ChangeCommit, error)
	GetLatestActivityDate(ctx context.Context, username string) (string, error)
}

// SyncService reconciles the governance registries against the
// repository's merge and commit activity. Invocations never overlap;
// the sync worker serializes runs.
type SyncService struct {
	cfg          config.GovernanceConfig
	repoIdentity string
	canonical    string

	source       ActivitySource
	registryRepo *repositories.RegistryRepository
	botRepo      *repositories.BotRepository
	historyRepo  *repositories.HistoryRepository
	ledgerRepo   *repositories.LedgerRepository
	history      *HistoryService

	nowFn func() time.Time
}

// NewSyncService creates a new SyncService
func NewSyncService(
	cfg config.GovernanceConfig,
	github config.GitHubConfig,
	source ActivitySource,
	registryRepo *repositories.RegistryRepository,
	botRepo *repositories.BotRepository,
	historyRepo *repositories.HistoryRepository,
	ledgerRepo *repositories.LedgerRepository,
	history *HistoryService,
) *SyncService {
	return &SyncService{
		cfg:          cfg,
		repoIdentity: github.Repository,
		canonical:    github.CanonicalRepository,
		source:       source,
		registryRepo: registryRepo,
		botRepo:      botRepo,
		historyRepo:  historyRepo,
		ledgerRepo:   ledgerRepo,
		history:      history,
		nowFn:        time.Now,
	}
}

// Run executes one full reconciliation pass
func (s *SyncService) Run(ctx context.Context) error {
	// Fork protection: only the canonical repository may mutate or
	// fabricate governance history.
	if s.repoIdentity != s.canonical {
		logger.Warnf("Skipping governance sync: repository %q does not match canonical %q", s.repoIdentity, s.canonical)
		return nil
	}

	if !s.registryRepo.Exists() {
		return fmt.Errorf("contributor registry not found, nothing to reconcile")
	}

	registry, err := s.registryRepo.Load()
	if err != nil {
		return err
	}
	bots, err := s.botRepo.Load()
	if err != nil {
		return err
	}

	changes, err := s.fetchChanges(ctx, registry, bots)
	if err != nil {
		return err
	}

	// Replay chronologically so per-entity histories keep causal order
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].MergedAt.Before(changes[j].MergedAt)
	})
	logger.Infof("Processing %d merged changes", len(changes))

	for _, change := range changes {
		s.processChange(ctx, registry, bots, change)
	}

	s.updateActivity(ctx, registry, bots)

	registry.Metadata.LastSync = models.FormatTimestamp(s.nowFn())
	registry.Metadata.TotalContributors = len(registry.Contributors)
	registry.Metadata.ActiveContributors = registry.ActiveCount()

	if err := s.registryRepo.Save(registry); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"total":  registry.Metadata.TotalContributors,
		"active": registry.Metadata.ActiveContributors,
	}).Infof("Governance sync completed")
	return nil
}

// fetchChanges decides between clean-start and incremental mode and
// returns the merged changes to replay.
func (s *SyncService) fetchChanges(ctx context.Context, registry *models.Registry, bots *models.BotRegistry) ([]*MergedChange, error) {
	cleanStart := false
	if registry.Metadata.LastSync == "" {
		cleanStart = true
		logger.Infof("No last_sync recorded, performing clean start")
	} else if s.historyRepo.HumanDirEmpty() {
		// Self-healing: a recorded sync point with no history documents
		// means a prior run failed partway. Rebuild everything.
		cleanStart = true
		logger.Warnf("History directory empty despite recorded last_sync, forcing clean start")
	}

	if cleanStart {
		return s.cleanStart(ctx, registry, bots)
	}

	since, err := time.Parse(models.TimestampLayout, registry.Metadata.LastSync)
	if err != nil {
		logger.WithError(err).Warnf("Could not parse last_sync %q, fetching full history", registry.Metadata.LastSync)
		return s.source.ListMergedChanges(ctx, nil)
	}

	logger.Infof("Performing incremental sync since %s", registry.Metadata.LastSync)
	return s.source.ListMergedChanges(ctx, &since)
}

// cleanStart wipes all derived state and re-seeds it from the
// registries before the full activity history is replayed.
func (s *SyncService) cleanStart(ctx context.Context, registry *models.Registry, bots *models.BotRegistry) ([]*MergedChange, error) {
	logger.Infof("Clearing history directories and ledgers")
	if err := s.historyRepo.WipeAll(); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Wipe(); err != nil {
		return nil, err
	}

	changes, err := s.source.ListMergedChanges(ctx, nil)
	if err != nil {
		return nil, err
	}

	for _, contributor := range registry.Contributors {
		assignedBy := contributor.AssignedBy
		if assignedBy == "" {
			assignedBy = "unknown"
		}
		s.record(contributor.Username, models.EventRoleAssignment,
			fmt.Sprintf("Assigned role: %s by %s", contributor.Role, assignedBy),
			fmt.Sprintf("Role: %s, Assigned by: %s", contributor.Role, assignedBy),
			false)
	}

	// Bots get their registration re-seeded in the bot trail only; the
	// ledgers stay untouched at seed time.
	for _, bot := range bots.Bots {
		if err := s.history.AppendHistory(bot.Username, models.EventBotRegistered,
			fmt.Sprintf("Registered bot, added by %s", bot.AddedBy), true); err != nil {
			logger.WithError(err).Errorf("Failed to seed bot history for %s", bot.Username)
		}
	}

	return changes, nil
}

// processChange records the merge event and its commits, onboarding
// unknown human actors along the way.
func (s *SyncService) processChange(ctx context.Context, registry *models.Registry, bots *models.BotRegistry, change *MergedChange) {
	merger, err := s.source.GetMergedBy(ctx, change.Number)
	if err != nil {
		logger.WithError(err).Warnf("Unknown merger for change #%d, skipping merge event", change.Number)
	} else if merger != "" {
		s.onboardIfUnknown(registry, bots, merger, change)
		isBot := Classify(registry, bots, merger) == ClassBot
		s.record(merger, models.EventPRMerged,
			fmt.Sprintf("Merged PR #%d: %s (%s)", change.Number, change.Title, change.URL),
			fmt.Sprintf("PR #%d: %s", change.Number, change.Title),
			isBot)
	}

	commits, err := s.source.ListChangeCommits(ctx, change.Number)
	if err != nil {
		logger.WithError(err).Warnf("Failed to list commits for change #%d", change.Number)
		return
	}

	for _, commit := range commits {
		// Commits without a resolvable platform identity are skipped
		if commit.AuthorLogin == "" {
			continue
		}
		s.onboardIfUnknown(registry, bots, commit.AuthorLogin, change)
		isBot := Classify(registry, bots, commit.AuthorLogin) == ClassBot
		s.record(commit.AuthorLogin, models.EventCommit,
			fmt.Sprintf("Commit %s in PR #%d: %s", shortSHA(commit.SHA), change.Number, firstLine(commit.Message)),
			fmt.Sprintf("Commit %s in PR #%d", shortSHA(commit.SHA), change.Number),
			isBot)
	}
}

// onboardIfUnknown creates a contributor record for a previously
// unknown human actor. Bots are exempt from onboarding.
func (s *SyncService) onboardIfUnknown(registry *models.Registry, bots *models.BotRegistry, username string, change *MergedChange) {
	if Classify(registry, bots, username) != ClassUnknown {
		return
	}

	logger.Infof("New contributor detected: %s", username)
	contributor := models.NewContributor(
		username,
		s.cfg.RoleHierarchy[0],
		s.cfg.DefaultTeam,
		s.cfg.SystemIdentity,
		models.FormatTimestamp(change.MergedAt),
		models.FormatDate(change.MergedAt),
		"Automatically onboarded after first merged PR.",
	)
	registry.Contributors = append(registry.Contributors, contributor)

	s.record(username, models.EventOnboarding,
		fmt.Sprintf("Achieved %s status via merged PR: %s", s.cfg.RoleHierarchy[0], change.URL),
		fmt.Sprintf("First merged PR: %s", change.URL),
		false)
}

// updateActivity refreshes last_activity and recomputes inactivity for
// every contributor. Entities now classified as bots are skipped
// entirely, both for querying and recording.
func (s *SyncService) updateActivity(ctx context.Context, registry *models.Registry, bots *models.BotRegistry) {
	logger.Infof("Updating activity status")
	now := s.nowFn()
	window := time.Duration(s.cfg.InactivityDays) * 24 * time.Hour

	for _, entry := range registry.Contributors {
		if bots.Find(entry.Username) != nil {
			continue
		}

		lastActivity, err := s.source.GetLatestActivityDate(ctx, entry.Username)
		if err != nil {
			logger.WithError(err).Warnf("Failed to fetch activity for %s", entry.Username)
			continue
		}
		if lastActivity == "" {
			continue
		}

		if entry.LastActivity != lastActivity {
			entry.LastActivity = lastActivity
			if err := s.history.AppendHistory(entry.Username, models.EventActivityUpdate,
				fmt.Sprintf("Last activity updated to %s", lastActivity), false); err != nil {
				logger.WithError(err).Errorf("Failed to record activity update for %s", entry.Username)
			}
		}

		lastActivityDate, err := time.Parse(models.DateLayout, entry.LastActivity)
		if err != nil {
			logger.WithError(err).Warnf("Unparsable last_activity %q for %s", entry.LastActivity, entry.Username)
			continue
		}

		if now.Sub(lastActivityDate) > window {
			if entry.Status != models.StatusInactive {
				entry.Status = models.StatusInactive
				s.record(entry.Username, models.EventStatusChange,
					fmt.Sprintf("Flagged as inactive due to %d days of no activity.", s.cfg.InactivityDays),
					fmt.Sprintf("Marked as inactive (%d+ days)", s.cfg.InactivityDays),
					false)
			}
		} else if entry.Status == models.StatusInactive {
			entry.Status = models.StatusActive
			s.record(entry.Username, models.EventStatusChange,
				"Reactivated status due to new activity.",
				"Reactivated due to new activity",
				false)
		}
	}
}

// record appends a history and ledger pair, logging append failures
// without aborting the batch.
func (s *SyncService) record(username, eventType, historyDetails, ledgerDetails string, isBot bool) {
	if err := s.history.AppendHistory(username, eventType, historyDetails, isBot); err != nil {
		logger.WithError(err).Errorf("Failed to append %s history for %s", eventType, username)
	}
	if err := s.history.AppendLedger(eventType, username, ledgerDetails, isBot); err != nil {
		logger.WithError(err).Errorf("Failed to append %s ledger entry for %s", eventType, username)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}
	return message
}
