package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected *Command
	}{
		{
			name: "Promote with quoted role",
			body: `/gov promote @alice "Core Contributor"`,
			expected: &Command{
				Kind:     CommandRoleChange,
				Action:   "promote",
				Username: "alice",
				Role:     "Core Contributor",
			},
		},
		{
			name: "Demote with leading whitespace",
			body: `   /gov demote @Bob-2 "Newbie Contributor"`,
			expected: &Command{
				Kind:     CommandRoleChange,
				Action:   "demote",
				Username: "Bob-2",
				Role:     "Newbie Contributor",
			},
		},
		{
			name: "Command embedded in multiline body",
			body: "Thanks for the review!\n/gov promote @alice \"Maintainer\"\nCheers",
			expected: &Command{
				Kind:     CommandRoleChange,
				Action:   "promote",
				Username: "alice",
				Role:     "Maintainer",
			},
		},
		{
			name: "Bot add",
			body: `/gov bot add @ci-bot`,
			expected: &Command{
				Kind:     CommandBotManage,
				Action:   "add",
				Username: "ci-bot",
			},
		},
		{
			name: "Bot remove",
			body: `/gov bot remove @ci-bot`,
			expected: &Command{
				Kind:     CommandBotManage,
				Action:   "remove",
				Username: "ci-bot",
			},
		},
		{
			// A bot-management line must never double-match as a role
			// command, even when a role line follows it.
			name: "Bot command matched before role command",
			body: "/gov promote @alice \"Maintainer\"\n/gov bot add @ci-bot",
			expected: &Command{
				Kind:     CommandBotManage,
				Action:   "add",
				Username: "ci-bot",
			},
		},
		{name: "Keyword is case-sensitive", body: `/GOV promote @alice "Maintainer"`},
		{name: "Keyword must start the line", body: `do /gov promote @alice "Maintainer"`},
		{name: "Unquoted role rejected", body: `/gov promote @alice Maintainer`},
		{name: "Unterminated quote rejected", body: `/gov promote @alice "Maintainer`},
		{name: "Missing mention rejected", body: `/gov promote alice "Maintainer"`},
		{name: "Invalid username characters rejected", body: `/gov promote @al_ice "Maintainer"`},
		{name: "Unknown bot action rejected", body: `/gov bot rename @ci-bot`},
		{name: "Plain text ignored", body: "just a comment about governance"},
		{name: "Empty body ignored", body: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := ParseCommand(tc.body)
			if tc.expected == nil {
				assert.Nil(t, cmd)
			} else {
				require.NotNil(t, cmd)
				assert.Equal(t, *tc.expected, *cmd)
			}
		})
	}
}

type fakePublisher struct {
	messages []string
	branches []string
	err      error
}

func (f *fakePublisher) Publish(message, branch string) error {
	f.messages = append(f.messages, message)
	f.branches = append(f.branches, branch)
	return f.err
}

type fakeCommenter struct {
	replies []string
}

func (f *fakeCommenter) PostComment(_ context.Context, _ int, body string) {
	f.replies = append(f.replies, body)
}

func (f *fakeCommenter) lastReply() string {
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

type commandEnv struct {
	svc          *CommandService
	registryRepo *repositories.RegistryRepository
	botRepo      *repositories.BotRepository
	historyRepo  *repositories.HistoryRepository
	ledgerRepo   *repositories.LedgerRepository
	publisher    *fakePublisher
	commenter    *fakeCommenter
	base         string
}

func newCommandEnv(t *testing.T) *commandEnv {
	t.Helper()
	base := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(base, ".github"), 0o755))
	codeowners := "governance/contributors.yaml @lead\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, ".github", "CODEOWNERS"), []byte(codeowners), 0o644))

	registryRepo := repositories.NewRegistryRepository(filepath.Join(base, "governance", "contributors.yaml"))
	botRepo := repositories.NewBotRepository(filepath.Join(base, "governance", "bots.yaml"))
	historyRepo := repositories.NewHistoryRepository(
		filepath.Join(base, "governance", "history", "users"),
		filepath.Join(base, "governance", "history", "bots"),
	)
	ledgerRepo := repositories.NewLedgerRepository(
		filepath.Join(base, "governance", "history", "ledger.yaml"),
		filepath.Join(base, "governance", "history", "bot_ledger.yaml"),
	)

	cfg := config.GovernanceConfig{
		RoleHierarchy:  testHierarchy,
		ProtectedRoles: testProtected,
		DefaultTeam:    "CE",
		SystemIdentity: "GitMesh-Steward-bot",
		InactivityDays: 90,
	}

	publisher := &fakePublisher{}
	commenter := &fakeCommenter{}

	svc := NewCommandService(
		cfg,
		registryRepo,
		botRepo,
		historyRepo,
		NewHistoryService(historyRepo, ledgerRepo),
		NewRoleService(testHierarchy, testProtected),
		NewClassifierService(registryRepo, botRepo),
		NewCodeownersService(filepath.Join(base, ".github", "CODEOWNERS"), "governance/contributors.yaml"),
		publisher,
		commenter,
	)

	return &commandEnv{
		svc:          svc,
		registryRepo: registryRepo,
		botRepo:      botRepo,
		historyRepo:  historyRepo,
		ledgerRepo:   ledgerRepo,
		publisher:    publisher,
		commenter:    commenter,
		base:         base,
	}
}

func (e *commandEnv) seedContributor(t *testing.T, username, role string) {
	t.Helper()
	registry, err := e.registryRepo.Load()
	if err != nil {
		registry = &models.Registry{}
	}
	registry.Contributors = append(registry.Contributors, &models.Contributor{
		Username: username,
		Role:     role,
		Team:     "CE",
		Status:   models.StatusActive,
	})
	require.NoError(t, e.registryRepo.Save(registry))
}

func TestExecuteRoleChange(t *testing.T) {
	t.Run("Successful promotion", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "alice", "Active Contributor")

		err := env.svc.Execute(context.Background(), "lead", `/gov promote @alice "Core Contributor"`, 42, "feature-branch")
		require.NoError(t, err)

		registry, err := env.registryRepo.Load()
		require.NoError(t, err)
		entry := registry.Find("alice")
		require.NotNil(t, entry)
		assert.Equal(t, "Core Contributor", entry.Role)
		assert.Equal(t, "lead", entry.AssignedBy)

		ledger, err := env.ledgerRepo.Load(false)
		require.NoError(t, err)
		require.Len(t, ledger.Events, 1)
		assert.Equal(t, models.EventRoleChange, ledger.Events[0].Type)

		doc, err := env.historyRepo.Load("alice", false)
		require.NoError(t, err)
		require.Len(t, doc.Events, 1)
		assert.Contains(t, doc.Events[0].Details, "Role changed from 'Active Contributor' to 'Core Contributor'")

		require.Len(t, env.publisher.messages, 1)
		assert.Equal(t, "feature-branch", env.publisher.branches[0])
		assert.Contains(t, env.commenter.lastReply(), "Successfully promoted @alice to **Core Contributor**")
	})

	t.Run("Promotion to lower tier rejected without mutation", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "alice", "Active Contributor")

		err := env.svc.Execute(context.Background(), "lead", `/gov promote @alice "Newbie Contributor"`, 42, "main")
		require.NoError(t, err)

		registry, _ := env.registryRepo.Load()
		assert.Equal(t, "Active Contributor", registry.Find("alice").Role)
		assert.Empty(t, env.publisher.messages)
		assert.Contains(t, env.commenter.lastReply(), "target is not higher")
	})

	t.Run("Unauthorized requester gets explicit rejection", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "alice", "Active Contributor")

		err := env.svc.Execute(context.Background(), "intruder", `/gov promote @alice "Maintainer"`, 42, "main")
		require.NoError(t, err)

		assert.Contains(t, env.commenter.lastReply(), "Permission Denied")
		assert.Empty(t, env.publisher.messages)
	})

	t.Run("Non-command text stays silent", func(t *testing.T) {
		env := newCommandEnv(t)

		err := env.svc.Execute(context.Background(), "intruder", "great work everyone", 42, "main")
		require.NoError(t, err)
		assert.Empty(t, env.commenter.replies)
	})

	t.Run("Bot target rejected", func(t *testing.T) {
		env := newCommandEnv(t)
		require.NoError(t, env.registryRepo.Save(&models.Registry{}))
		require.NoError(t, env.botRepo.Save(&models.BotRegistry{
			Bots: []*models.Bot{{Username: "ci-bot"}},
		}))

		err := env.svc.Execute(context.Background(), "lead", `/gov promote @ci-bot "Maintainer"`, 42, "main")
		require.NoError(t, err)
		assert.Contains(t, env.commenter.lastReply(), "bots do not have roles")
	})

	t.Run("Unknown contributor rejected", func(t *testing.T) {
		env := newCommandEnv(t)
		require.NoError(t, env.registryRepo.Save(&models.Registry{}))

		err := env.svc.Execute(context.Background(), "lead", `/gov promote @ghost "Maintainer"`, 42, "main")
		require.NoError(t, err)
		assert.Contains(t, env.commenter.lastReply(), "not found in governance registry")
	})

	t.Run("Publish failure degrades to warning", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "alice", "Active Contributor")
		env.publisher.err = fmt.Errorf("remote rejected")

		err := env.svc.Execute(context.Background(), "lead", `/gov promote @alice "Core Contributor"`, 42, "main")
		require.NoError(t, err)

		// Local state mutated, no rollback
		registry, _ := env.registryRepo.Load()
		assert.Equal(t, "Core Contributor", registry.Find("alice").Role)
		assert.Contains(t, env.commenter.lastReply(), "failed to push")
	})
}

func TestExecuteBotAdd(t *testing.T) {
	t.Run("Contributor migrates into bot registry", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "ci-bot", "Newbie Contributor")

		// Pre-existing trails that must follow the entity
		history := NewHistoryService(env.historyRepo, env.ledgerRepo)
		require.NoError(t, history.AppendHistory("ci-bot", models.EventOnboarding, "first PR", false))
		require.NoError(t, history.AppendLedger(models.EventPRMerged, "ci-bot", "PR #1", false))

		err := env.svc.Execute(context.Background(), "lead", `/gov bot add @ci-bot`, 7, "main")
		require.NoError(t, err)

		registry, _ := env.registryRepo.Load()
		assert.Nil(t, registry.Find("ci-bot"))

		bots, _ := env.botRepo.Load()
		require.NotNil(t, bots.Find("ci-bot"))
		assert.Equal(t, "lead", bots.Find("ci-bot").AddedBy)

		// History file moved to the bot directory
		assert.NoFileExists(t, filepath.Join(env.base, "governance", "history", "users", "ci-bot.yaml"))
		assert.FileExists(t, filepath.Join(env.base, "governance", "history", "bots", "ci-bot.yaml"))

		// Activity ledger entries migrated; the administrative entry
		// stays on the human ledger
		botLedger, _ := env.ledgerRepo.Load(true)
		require.Len(t, botLedger.Events, 1)
		assert.Equal(t, models.EventPRMerged, botLedger.Events[0].Type)

		humanLedger, _ := env.ledgerRepo.Load(false)
		require.Len(t, humanLedger.Events, 1)
		assert.Equal(t, models.EventBotAdd, humanLedger.Events[0].Type)

		assert.Contains(t, env.commenter.lastReply(), "Registered @ci-bot as a bot")
	})

	t.Run("Existing bot rejected", func(t *testing.T) {
		env := newCommandEnv(t)
		require.NoError(t, env.botRepo.Save(&models.BotRegistry{
			Bots: []*models.Bot{{Username: "ci-bot"}},
		}))

		err := env.svc.Execute(context.Background(), "lead", `/gov bot add @ci-bot`, 7, "main")
		require.NoError(t, err)
		assert.Contains(t, env.commenter.lastReply(), "already registered as a bot")
		assert.Empty(t, env.publisher.messages)
	})
}

func TestExecuteBotRemove(t *testing.T) {
	t.Run("Bot restored as contributor", func(t *testing.T) {
		env := newCommandEnv(t)
		require.NoError(t, env.registryRepo.Save(&models.Registry{}))
		require.NoError(t, env.botRepo.Save(&models.BotRegistry{
			Bots: []*models.Bot{{Username: "ci-bot", AddedBy: "lead"}},
		}))

		err := env.svc.Execute(context.Background(), "lead", `/gov bot remove @ci-bot`, 9, "main")
		require.NoError(t, err)

		bots, _ := env.botRepo.Load()
		assert.Nil(t, bots.Find("ci-bot"))

		registry, _ := env.registryRepo.Load()
		restored := registry.Find("ci-bot")
		require.NotNil(t, restored)
		assert.Equal(t, "Newbie Contributor", restored.Role)

		humanLedger, _ := env.ledgerRepo.Load(false)
		require.Len(t, humanLedger.Events, 1)
		assert.Equal(t, models.EventBotRemove, humanLedger.Events[0].Type)

		assert.Contains(t, env.commenter.lastReply(), "Removed bot @ci-bot")
	})

	t.Run("Prior contributor record restored as-is", func(t *testing.T) {
		env := newCommandEnv(t)
		env.seedContributor(t, "ci-bot", "Core Contributor")
		require.NoError(t, env.botRepo.Save(&models.BotRegistry{
			Bots: []*models.Bot{{Username: "ci-bot"}},
		}))

		err := env.svc.Execute(context.Background(), "lead", `/gov bot remove @ci-bot`, 9, "main")
		require.NoError(t, err)

		registry, _ := env.registryRepo.Load()
		require.NotNil(t, registry.Find("ci-bot"))
		assert.Equal(t, "Core Contributor", registry.Find("ci-bot").Role)
	})

	t.Run("Unknown bot rejected", func(t *testing.T) {
		env := newCommandEnv(t)

		err := env.svc.Execute(context.Background(), "lead", `/gov bot remove @ghost`, 9, "main")
		require.NoError(t, err)
		assert.Contains(t, env.commenter.lastReply(), "not registered as a bot")
	})
}
