package repositories

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/pkg/logger"
	"gopkg.in/yaml.v3"
)

// RegistryRepository handles storage of the contributor registry document
type RegistryRepository struct {
	path string
}

// NewRegistryRepository creates a new RegistryRepository
func NewRegistryRepository(path string) *RegistryRepository {
	return &RegistryRepository{path: path}
}

// Exists reports whether the registry document is present on disk
func (r *RegistryRepository) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Load reads the contributor registry. A missing document is an error
// (there is nothing to reconcile without it); an unparsable one is
// treated as an empty registry.
func (r *RegistryRepository) Load() (*models.Registry, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", r.path, err)
	}

	registry := &models.Registry{}
	if err := yaml.Unmarshal(content, registry); err != nil {
		logger.WithError(err).Warnf("Malformed registry document %s, treating as empty", r.path)
		return &models.Registry{}, nil
	}
	return registry, nil
}

// Save persists the contributor registry document
func (r *RegistryRepository) Save(registry *models.Registry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	content, err := yaml.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(r.path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write registry %s: %w", r.path, err)
	}
	return nil
}
