package services

import (
	"fmt"
	"io"

	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportService renders the governance roster as an Excel workbook
type ExportService struct {
	registryRepo *repositories.RegistryRepository
	botRepo      *repositories.BotRepository
}

// NewExportService creates a new ExportService
func NewExportService(registryRepo *repositories.RegistryRepository, botRepo *repositories.BotRepository) *ExportService {
	return &ExportService{
		registryRepo: registryRepo,
		botRepo:      botRepo,
	}
}

// WriteRoster writes the roster workbook to w
func (s *ExportService) WriteRoster(w io.Writer) error {
	registry, err := s.registryRepo.Load()
	if err != nil {
		return err
	}
	bots, err := s.botRepo.Load()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const contributorsSheet = "Contributors"
	if err := f.SetSheetName("Sheet1", contributorsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Username", "Role", "Team", "Status", "Last Activity", "Assigned By", "Assigned At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(contributorsSheet, cell, header); err != nil {
			return err
		}
	}
	for row, c := range registry.Contributors {
		values := []string{c.Username, c.Role, c.Team, c.Status, c.LastActivity, c.AssignedBy, c.AssignedAt}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(contributorsSheet, cell, value); err != nil {
				return err
			}
		}
	}

	const botsSheet = "Bots"
	if _, err := f.NewSheet(botsSheet); err != nil {
		return fmt.Errorf("failed to create bots sheet: %w", err)
	}
	botHeaders := []string{"Username", "Added By", "Added At"}
	for i, header := range botHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(botsSheet, cell, header); err != nil {
			return err
		}
	}
	for row, b := range bots.Bots {
		values := []string{b.Username, b.AddedBy, b.AddedAt}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(botsSheet, cell, value); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
