package repositories

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"gopkg.in/yaml.v3"
)

// HistoryRepository handles storage of per-entity history documents.
// Human and bot trails live in separate directories; filenames are
// lowercased to avoid case-sensitivity issues across filesystems.
type HistoryRepository struct {
	humanDir string
	botDir   string
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(humanDir, botDir string) *HistoryRepository {
	return &HistoryRepository{humanDir: humanDir, botDir: botDir}
}

func (r *HistoryRepository) dir(isBot bool) string {
	if isBot {
		return r.botDir
	}
	return r.humanDir
}

func (r *HistoryRepository) docPath(username string, isBot bool) string {
	return filepath.Join(r.dir(isBot), strings.ToLower(username)+".yaml")
}

// Load reads an entity's history document. Missing or malformed
// documents yield an empty document keyed by the given username.
func (r *HistoryRepository) Load(username string, isBot bool) (*models.HistoryDocument, error) {
	path := r.docPath(username, isBot)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.HistoryDocument{Username: username}, nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", path, err)
	}

	doc := &models.HistoryDocument{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		logger.WithError(err).Warnf("Malformed history document %s, treating as empty", path)
		return &models.HistoryDocument{Username: username}, nil
	}
	if doc.Username == "" {
		doc.Username = username
	}
	return doc, nil
}

// Save persists an entity's history document
func (r *HistoryRepository) Save(doc *models.HistoryDocument, isBot bool) error {
	if err := os.MkdirAll(r.dir(isBot), 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}

	content, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal history for %s: %w", doc.Username, err)
	}

	path := r.docPath(doc.Username, isBot)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write history %s: %w", path, err)
	}
	return nil
}

// Move relocates an entity's history file between the human and bot
// directories. Missing source files are a no-op.
func (r *HistoryRepository) Move(username string, toBot bool) error {
	src := r.docPath(username, !toBot)
	dst := r.docPath(username, toBot)

	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat history %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move history %s: %w", src, err)
	}
	return nil
}

// HumanDirEmpty reports whether the human history directory is missing
// or holds no documents. Drives the clean-start self-healing check.
func (r *HistoryRepository) HumanDirEmpty() bool {
	entries, err := os.ReadDir(r.humanDir)
	if err != nil {
		return true
	}
	return len(entries) == 0
}

// WipeAll removes both history directories and recreates them empty
func (r *HistoryRepository) WipeAll() error {
	for _, dir := range []string{r.humanDir, r.botDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove history dir %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history dir %s: %w", dir, err)
		}
	}
	return nil
}
