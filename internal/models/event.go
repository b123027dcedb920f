package models

import "time"

// Governance event types
const (
	EventRoleAssignment = "ROLE_ASSIGNMENT"
	EventRoleChange     = "ROLE_CHANGE"
	EventOnboarding     = "ONBOARDING"
	EventPRMerged       = "PR_MERGED"
	EventCommit         = "COMMIT"
	EventActivityUpdate = "ACTIVITY_UPDATE"
	EventStatusChange   = "STATUS_CHANGE"
	EventBotRegistered  = "BOT_REGISTERED"
	EventBotAdd         = "BOT_ADD"
	EventBotRemove      = "BOT_REMOVE"
)

// IST is the fixed governance timezone (UTC+5:30). Timestamps are
// rendered with the literal offset so documents stay diff-friendly.
var IST = time.FixedZone("IST", 5*3600+30*60)

const (
	TimestampLayout = "2006-01-02T15:04:05-07:00"
	DateLayout      = "2006-01-02"
)

// FormatTimestamp renders t as a governance timestamp string
func FormatTimestamp(t time.Time) string {
	return t.In(IST).Format(TimestampLayout)
}

// FormatDate renders t as a governance date string
func FormatDate(t time.Time) string {
	return t.In(IST).Format(DateLayout)
}

// Event is one entry in a per-entity history document
type Event struct {
	Timestamp string `yaml:"timestamp"`
	Type      string `yaml:"type"`
	Details   string `yaml:"details"`
}

// HistoryDocument is the append-only audit trail of one entity
type HistoryDocument struct {
	Username string  `yaml:"username"`
	Events   []Event `yaml:"events"`
}

// LedgerEvent is one entry in a global ledger document
type LedgerEvent struct {
	Timestamp string `yaml:"timestamp"`
	Type      string `yaml:"type"`
	Username  string `yaml:"username"`
	Details   string `yaml:"details"`
}

// LedgerDocument is a global append-only chronological event log,
// one per entity class (human, bot).
type LedgerDocument struct {
	Events []LedgerEvent `yaml:"events"`
}
