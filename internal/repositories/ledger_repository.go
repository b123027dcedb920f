package repositories

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"gopkg.in/yaml.v3"
)

// LedgerRepository handles storage of the two global ledger documents
type LedgerRepository struct {
	humanPath string
	botPath   string
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(humanPath, botPath string) *LedgerRepository {
	return &LedgerRepository{humanPath: humanPath, botPath: botPath}
}

func (r *LedgerRepository) path(isBot bool) string {
	if isBot {
		return r.botPath
	}
	return r.humanPath
}

// Load reads one of the global ledgers. Missing or malformed documents
// yield an empty ledger.
func (r *LedgerRepository) Load(isBot bool) (*models.LedgerDocument, error) {
	path := r.path(isBot)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.LedgerDocument{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	doc := &models.LedgerDocument{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		logger.WithError(err).Warnf("Malformed ledger document %s, treating as empty", path)
		return &models.LedgerDocument{}, nil
	}
	return doc, nil
}

// Save persists one of the global ledgers
func (r *LedgerRepository) Save(doc *models.LedgerDocument, isBot bool) error {
	path := r.path(isBot)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger dir: %w", err)
	}

	content, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", path, err)
	}
	return nil
}

// Wipe removes both ledger documents
func (r *LedgerRepository) Wipe() error {
	for _, path := range []string{r.humanPath, r.botPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove ledger %s: %w", path, err)
		}
	}
	return nil
}
