package services

import (
	"sort"
	"strings"
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// HistoryService maintains the append-only per-entity histories and the
// two global ledgers. Appends are not deduplicated; callers own the
// responsibility of not recording the same logical event twice.
type HistoryService struct {
	historyRepo *repositories.HistoryRepository
	ledgerRepo  *repositories.LedgerRepository
	nowFn       func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(historyRepo *repositories.HistoryRepository, ledgerRepo *repositories.LedgerRepository) *HistoryService {
	return &HistoryService{
		historyRepo: historyRepo,
		ledgerRepo:  ledgerRepo,
		nowFn:       time.Now,
	}
}

// AppendHistory appends one event to the entity's history document,
// routed to the human or bot trail.
func (s *HistoryService) AppendHistory(username, eventType, details string, isBot bool) error {
	doc, err := s.historyRepo.Load(username, isBot)
	if err != nil {
		return err
	}

	doc.Events = append(doc.Events, models.Event{
		Timestamp: models.FormatTimestamp(s.nowFn()),
		Type:      eventType,
		Details:   details,
	})

	return s.historyRepo.Save(doc, isBot)
}

// AppendLedger appends one event to the human or bot global ledger
func (s *HistoryService) AppendLedger(eventType, username, details string, isBot bool) error {
	doc, err := s.ledgerRepo.Load(isBot)
	if err != nil {
		return err
	}

	doc.Events = append(doc.Events, models.LedgerEvent{
		Timestamp: models.FormatTimestamp(s.nowFn()),
		Type:      eventType,
		Username:  username,
		Details:   details,
	})

	return s.ledgerRepo.Save(doc, isBot)
}

// MigrateEntity moves all ledger entries for username from one ledger
// to the other, preserving original timestamps and re-sorting the
// destination chronologically. A source with no matching entries is a
// no-op.
func (s *HistoryService) MigrateEntity(username string, toBot bool) error {
	source, err := s.ledgerRepo.Load(!toBot)
	if err != nil {
		return err
	}

	lower := strings.ToLower(username)
	var moved []models.LedgerEvent
	remaining := source.Events[:0]
	for _, event := range source.Events {
		if strings.ToLower(event.Username) == lower {
			moved = append(moved, event)
		} else {
			remaining = append(remaining, event)
		}
	}
	if len(moved) == 0 {
		return nil
	}
	source.Events = remaining

	dest, err := s.ledgerRepo.Load(toBot)
	if err != nil {
		return err
	}
	dest.Events = append(dest.Events, moved...)
	sort.SliceStable(dest.Events, func(i, j int) bool {
		return dest.Events[i].Timestamp < dest.Events[j].Timestamp
	})

	if err := s.ledgerRepo.Save(source, !toBot); err != nil {
		return err
	}
	if err := s.ledgerRepo.Save(dest, toBot); err != nil {
		return err
	}

	logger.WithField("username", username).Infof("Migrated %d ledger entries", len(moved))
	return nil
}
