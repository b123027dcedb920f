package services

import (
	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
)

// Classification of a username against the two registries
type Classification int

const (
	ClassUnknown Classification = iota
	ClassHuman
	ClassBot
)

func (c Classification) String() string {
	switch c {
	case ClassHuman:
		return "human"
	case ClassBot:
		return "bot"
	default:
		return "unknown"
	}
}

// Classify resolves a username against loaded registries. The bot
// registry wins over the contributor registry; both comparisons are
// case-insensitive.
func Classify(registry *models.Registry, bots *models.BotRegistry, username string) Classification {
	if bots != nil && bots.Find(username) != nil {
		return ClassBot
	}
	if registry != nil && registry.Find(username) != nil {
		return ClassHuman
	}
	return ClassUnknown
}

// ClassifierService resolves usernames against the persisted registries
type ClassifierService struct {
	registryRepo *repositories.RegistryRepository
	botRepo      *repositories.BotRepository
}

// NewClassifierService creates a new ClassifierService
func NewClassifierService(registryRepo *repositories.RegistryRepository, botRepo *repositories.BotRepository) *ClassifierService {
	return &ClassifierService{
		registryRepo: registryRepo,
		botRepo:      botRepo,
	}
}

// Classify loads both registries and resolves the username
func (s *ClassifierService) Classify(username string) (Classification, error) {
	bots, err := s.botRepo.Load()
	if err != nil {
		return ClassUnknown, err
	}
	if bots.Find(username) != nil {
		return ClassBot, nil
	}

	registry, err := s.registryRepo.Load()
	if err != nil {
		return ClassUnknown, err
	}
	if registry.Find(username) != nil {
		return ClassHuman, nil
	}
	return ClassUnknown, nil
}
