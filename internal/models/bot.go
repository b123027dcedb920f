package models

import "strings"

// Bot is an entity whose activity is tracked separately and excluded
// from role governance.
type Bot struct {
	Username string `yaml:"username"`
	AddedAt  string `yaml:"added_at"`
	AddedBy  string `yaml:"added_by"`
}

// NewBot creates a new bot record
func NewBot(username, addedAt, addedBy string) *Bot {
	return &Bot{
		Username: username,
		AddedAt:  addedAt,
		AddedBy:  addedBy,
	}
}

// BotRegistry is the bot registry document
type BotRegistry struct {
	Bots []*Bot `yaml:"bots"`
}

// Find returns the bot matching username case-insensitively
func (r *BotRegistry) Find(username string) *Bot {
	lower := strings.ToLower(username)
	for _, b := range r.Bots {
		if strings.ToLower(b.Username) == lower {
			return b
		}
	}
	return nil
}

// Remove detaches the bot matching username case-insensitively and
// reports whether a record was removed.
func (r *BotRegistry) Remove(username string) bool {
	lower := strings.ToLower(username)
	for i, b := range r.Bots {
		if strings.ToLower(b.Username) == lower {
			r.Bots = append(r.Bots[:i], r.Bots[i+1:]...)
			return true
		}
	}
	return false
}
