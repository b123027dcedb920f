package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/pkg/config"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// Publisher commits and pushes the governance change-set
type Publisher interface {
	Publish(message, branch string) error
}

// Commenter posts best-effort replies to the originating thread
type Commenter interface {
	PostComment(ctx context.Context, number int, body string)
}

// CommandKind distinguishes the two recognized command shapes
type CommandKind int

const (
	CommandRoleChange CommandKind = iota
	CommandBotManage
)

// Command is one parsed governance directive
type Command struct {
	Kind     CommandKind
	Action   string // promote|demote|add|remove
	Username string
	Role     string // role-change commands only
}

// commandKeyword anchors a directive line. Case-sensitive, optionally
// preceded by whitespace.
const commandKeyword = "/gov"

// ParseCommand scans a free-text body for a governance directive and
// returns nil when none is present. Bot-management commands are matched
// before role-change commands so a role token embedded in a
// bot-management line is never double-matched.
func ParseCommand(body string) *Command {
	lines := strings.Split(body, "\n")

	for _, line := range lines {
		if cmd := parseBotLine(line); cmd != nil {
			return cmd
		}
	}
	for _, line := range lines {
		if cmd := parseRoleLine(line); cmd != nil {
			return cmd
		}
	}
	return nil
}

// commandTokens strips the keyword from a directive line and tokenizes
// the remainder. Returns nil when the line is not a directive.
func commandTokens(line string) []cmdToken {
	line = strings.TrimRight(line, "\r")
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, commandKeyword) {
		return nil
	}
	rest := trimmed[len(commandKeyword):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return nil
	}
	return tokenize(rest)
}

func parseBotLine(line string) *Command {
	tokens := commandTokens(line)
	if len(tokens) < 3 {
		return nil
	}
	if tokens[0].quoted || tokens[0].text != "bot" {
		return nil
	}
	action := tokens[1].text
	if tokens[1].quoted || (action != "add" && action != "remove") {
		return nil
	}
	username, ok := mentionName(tokens[2])
	if !ok {
		return nil
	}
	return &Command{
		Kind:     CommandBotManage,
		Action:   action,
		Username: username,
	}
}

func parseRoleLine(line string) *Command {
	tokens := commandTokens(line)
	if len(tokens) < 3 {
		return nil
	}
	action := tokens[0].text
	if tokens[0].quoted || (action != ActionPromote && action != ActionDemote) {
		return nil
	}
	username, ok := mentionName(tokens[1])
	if !ok {
		return nil
	}
	// The role name must be a quoted literal; spaces are permitted
	// inside the quotes.
	if !tokens[2].quoted || tokens[2].text == "" {
		return nil
	}
	return &Command{
		Kind:     CommandRoleChange,
		Action:   action,
		Username: username,
		Role:     tokens[2].text,
	}
}

type cmdToken struct {
	text   string
	quoted bool
}

// tokenize splits a directive tail into bare words and quoted strings.
// An unterminated quote invalidates the whole line.
func tokenize(s string) []cmdToken {
	var tokens []cmdToken
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ', '\t':
			i++
		case '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil
			}
			tokens = append(tokens, cmdToken{text: s[i+1 : i+1+end], quoted: true})
			i += end + 2
		default:
			start := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '"' {
				i++
			}
			tokens = append(tokens, cmdToken{text: s[start:i]})
		}
	}
	return tokens
}

// mentionName validates an @username token. Permitted characters are
// letters, digits and hyphens.
func mentionName(t cmdToken) (string, bool) {
	if t.quoted || len(t.text) < 2 || t.text[0] != '@' {
		return "", false
	}
	name := t.text[1:]
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return "", false
	}
	return name, true
}

// CommandService interprets chat directives, authorizes the requester
// and dispatches governance mutations.
type CommandService struct {
	cfg config.GovernanceConfig

	registryRepo *repositories.RegistryRepository
	botRepo      *repositories.BotRepository
	historyRepo  *repositories.HistoryRepository
	history      *HistoryService
	roles        *RoleService
	classifier   *ClassifierService
	codeowners   *CodeownersService
	publisher    Publisher
	commenter    Commenter

	nowFn func() time.Time
}

// NewCommandService creates a new CommandService
func NewCommandService(
	cfg config.GovernanceConfig,
	registryRepo *repositories.RegistryRepository,
	botRepo *repositories.BotRepository,
	historyRepo *repositories.HistoryRepository,
	history *HistoryService,
	roles *RoleService,
	classifier *ClassifierService,
	codeowners *CodeownersService,
	publisher Publisher,
	commenter Commenter,
) *CommandService {
	return &CommandService{
		cfg:          cfg,
		registryRepo: registryRepo,
		botRepo:      botRepo,
		historyRepo:  historyRepo,
		history:      history,
		roles:        roles,
		classifier:   classifier,
		codeowners:   codeowners,
		publisher:    publisher,
		commenter:    commenter,
		nowFn:        time.Now,
	}
}

// Execute scans body for a governance directive and runs it. Bodies
// without a directive are ignored silently; a directive from an
// unauthorized requester gets an explicit rejection reply.
func (s *CommandService) Execute(ctx context.Context, requester, body string, threadNumber int, branch string) error {
	cmd := ParseCommand(body)
	if cmd == nil {
		return nil
	}

	if !s.codeowners.IsAuthorized(requester) {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("⛔ **Permission Denied**: @%s is not a registered code owner for governance.", requester))
		return nil
	}

	switch cmd.Kind {
	case CommandBotManage:
		return s.executeBotManage(ctx, requester, cmd, threadNumber, branch)
	default:
		return s.executeRoleChange(ctx, requester, cmd, threadNumber, branch)
	}
}

func (s *CommandService) executeRoleChange(ctx context.Context, requester string, cmd *Command, threadNumber int, branch string) error {
	class, err := s.classifier.Classify(cmd.Username)
	if err != nil {
		return err
	}
	if class == ClassBot {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("❌ @%s is registered as a bot; bots do not have roles.", cmd.Username))
		return nil
	}
	if class == ClassUnknown {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("❌ User @%s not found in governance registry.", cmd.Username))
		return nil
	}

	registry, err := s.registryRepo.Load()
	if err != nil {
		return err
	}
	entry := registry.Find(cmd.Username)
	if entry == nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("❌ User @%s not found in governance registry.", cmd.Username))
		return nil
	}

	currentRole := entry.Role
	if currentRole == "" {
		currentRole = s.roles.LowestRole()
	}
	if err := s.roles.Validate(cmd.Action, currentRole, cmd.Role); err != nil {
		s.commenter.PostComment(ctx, threadNumber, fmt.Sprintf("❌ %s", err.Error()))
		return nil
	}

	entry.Role = cmd.Role
	entry.AssignedAt = models.FormatTimestamp(s.nowFn())
	entry.AssignedBy = requester

	if err := s.registryRepo.Save(registry); err != nil {
		return err
	}

	logMsg := fmt.Sprintf("Role changed from '%s' to '%s' by @%s via PR #%d", currentRole, cmd.Role, requester, threadNumber)
	if err := s.history.AppendHistory(cmd.Username, models.EventRoleChange, logMsg, false); err != nil {
		logger.WithError(err).Errorf("Failed to append role change history for %s", cmd.Username)
	}
	if err := s.history.AppendLedger(models.EventRoleChange, cmd.Username, logMsg, false); err != nil {
		logger.WithError(err).Errorf("Failed to append role change ledger entry for %s", cmd.Username)
	}

	publishMsg := fmt.Sprintf("chore(gov): update roles via command in PR #%d [skip ci]", threadNumber)
	if err := s.publisher.Publish(publishMsg, branch); err != nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("⚠️ Governance updated but failed to push to branch: %v", err))
		return nil
	}

	s.commenter.PostComment(ctx, threadNumber,
		fmt.Sprintf("✅ Successfully %sd @%s to **%s**.", cmd.Action, cmd.Username, cmd.Role))
	return nil
}

func (s *CommandService) executeBotManage(ctx context.Context, requester string, cmd *Command, threadNumber int, branch string) error {
	if cmd.Action == "add" {
		return s.executeBotAdd(ctx, requester, cmd, threadNumber, branch)
	}
	return s.executeBotRemove(ctx, requester, cmd, threadNumber, branch)
}

// executeBotAdd migrates an entity into the bot registry. The
// contributor record is detached and persisted before the bot record
// exists; a failure in between leaves the intermediate state on disk —
// the clean-start self-healing check rebuilds derived state afterward.
func (s *CommandService) executeBotAdd(ctx context.Context, requester string, cmd *Command, threadNumber int, branch string) error {
	bots, err := s.botRepo.Load()
	if err != nil {
		return err
	}
	if bots.Find(cmd.Username) != nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("❌ @%s is already registered as a bot.", cmd.Username))
		return nil
	}

	registry, err := s.registryRepo.Load()
	if err != nil {
		return err
	}
	if registry.Remove(cmd.Username) {
		if err := s.registryRepo.Save(registry); err != nil {
			return err
		}
	}

	if err := s.historyRepo.Move(cmd.Username, true); err != nil {
		logger.WithError(err).Errorf("Failed to move history file for %s", cmd.Username)
	}
	if err := s.history.MigrateEntity(cmd.Username, true); err != nil {
		logger.WithError(err).Errorf("Failed to migrate ledger entries for %s", cmd.Username)
	}

	bots.Bots = append(bots.Bots, models.NewBot(cmd.Username, models.FormatTimestamp(s.nowFn()), requester))
	if err := s.botRepo.Save(bots); err != nil {
		return err
	}

	// The administrative act is attributed to governance, so the entry
	// goes to the human ledger.
	details := fmt.Sprintf("Registered @%s as a bot by @%s via PR #%d", cmd.Username, requester, threadNumber)
	if err := s.history.AppendLedger(models.EventBotAdd, cmd.Username, details, false); err != nil {
		logger.WithError(err).Errorf("Failed to append bot add ledger entry for %s", cmd.Username)
	}

	publishMsg := fmt.Sprintf("chore(gov): update bot registry via command in PR #%d [skip ci]", threadNumber)
	if err := s.publisher.Publish(publishMsg, branch); err != nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("⚠️ Bot registry updated but failed to push to branch: %v", err))
		return nil
	}

	s.commenter.PostComment(ctx, threadNumber,
		fmt.Sprintf("✅ Registered @%s as a bot.", cmd.Username))
	return nil
}

func (s *CommandService) executeBotRemove(ctx context.Context, requester string, cmd *Command, threadNumber int, branch string) error {
	bots, err := s.botRepo.Load()
	if err != nil {
		return err
	}
	if bots.Find(cmd.Username) == nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("❌ @%s is not registered as a bot.", cmd.Username))
		return nil
	}

	bots.Remove(cmd.Username)
	if err := s.botRepo.Save(bots); err != nil {
		return err
	}

	if err := s.historyRepo.Move(cmd.Username, false); err != nil {
		logger.WithError(err).Errorf("Failed to move history file for %s", cmd.Username)
	}
	if err := s.history.MigrateEntity(cmd.Username, false); err != nil {
		logger.WithError(err).Errorf("Failed to migrate ledger entries for %s", cmd.Username)
	}

	registry, err := s.registryRepo.Load()
	if err != nil {
		return err
	}
	// A contributor record from a prior human period is restored as-is;
	// only entities with no record at all get a fresh default.
	if registry.Find(cmd.Username) == nil {
		registry.Contributors = append(registry.Contributors, models.NewContributor(
			cmd.Username,
			s.roles.LowestRole(),
			s.cfg.DefaultTeam,
			requester,
			models.FormatTimestamp(s.nowFn()),
			models.FormatDate(s.nowFn()),
			"Restored to contributor after bot removal.",
		))
	}
	if err := s.registryRepo.Save(registry); err != nil {
		return err
	}

	details := fmt.Sprintf("Removed bot @%s by @%s via PR #%d", cmd.Username, requester, threadNumber)
	if err := s.history.AppendLedger(models.EventBotRemove, cmd.Username, details, false); err != nil {
		logger.WithError(err).Errorf("Failed to append bot remove ledger entry for %s", cmd.Username)
	}

	publishMsg := fmt.Sprintf("chore(gov): update bot registry via command in PR #%d [skip ci]", threadNumber)
	if err := s.publisher.Publish(publishMsg, branch); err != nil {
		s.commenter.PostComment(ctx, threadNumber,
			fmt.Sprintf("⚠️ Bot registry updated but failed to push to branch: %v", err))
		return nil
	}

	s.commenter.PostComment(ctx, threadNumber,
		fmt.Sprintf("✅ Removed bot @%s and restored contributor status.", cmd.Username))
	return nil
}
