package repositories

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"gopkg.in/yaml.v3"
)

// BotRepository handles storage of the bot registry document
type BotRepository struct {
	path string
}

// NewBotRepository creates a new BotRepository
func NewBotRepository(path string) *BotRepository {
	return &BotRepository{path: path}
}

// Load reads the bot registry. Missing or malformed documents are
// treated as an empty registry.
func (r *BotRepository) Load() (*models.BotRegistry, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.BotRegistry{}, nil
		}
		return nil, fmt.Errorf("failed to read bot registry %s: %w", r.path, err)
	}

	registry := &models.BotRegistry{}
	if err := yaml.Unmarshal(content, registry); err != nil {
		logger.WithError(err).Warnf("Malformed bot registry document %s, treating as empty", r.path)
		return &models.BotRegistry{}, nil
	}
	return registry, nil
}

// Save persists the bot registry document
func (r *BotRepository) Save(registry *models.BotRegistry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create bot registry dir: %w", err)
	}

	content, err := yaml.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal bot registry: %w", err)
	}

	if err := os.WriteFile(r.path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write bot registry %s: %w", r.path, err)
	}
	return nil
}
