package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
)

// ChecklistService owns checklist items for access-control contracts:
// bulk import from a device export, listing, and the irreversible wipe.
// Per-item mutation happens inside an ExecutionSession, which commits
// through the same persistence collaborator.
type ChecklistService struct {
	contracts  ContractStore
	checklists ChecklistPersistence
}

func NewChecklistService(contracts ContractStore, checklists ChecklistPersistence) *ChecklistService {
	return &ChecklistService{contracts: contracts, checklists: checklists}
}

// Device exports carry a leading row-number cell; the name sits in the
// second cell, zone and connectivity after it.
const (
	cellName         = 1
	cellZone         = 2
	cellConnectivity = 3
)

func isHeaderCell(cell string) bool {
	trimmed := strings.TrimSpace(cell)
	return strings.EqualFold(trimmed, "name") || strings.EqualFold(trimmed, "naam")
}

// ParseRows filters raw import rows down to checklist items. Rows with fewer
// than two cells and header rows are skipped.
func ParseRows(rows [][]string) []model.ChecklistItem {
	items := make([]model.ChecklistItem, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if isHeaderCell(row[cellName]) {
			continue
		}
		name := strings.TrimSpace(row[cellName])
		if name == "" {
			continue
		}
		item := model.ChecklistItem{Name: name}
		if len(row) > cellZone {
			item.Zone = strings.TrimSpace(row[cellZone])
		}
		if len(row) > cellConnectivity {
			item.Connectivity = strings.TrimSpace(row[cellConnectivity])
		}
		items = append(items, item)
	}
	return items
}

// ImportBulk creates items for every valid row and returns the count.
// A feed with zero valid rows fails with ErrImport and leaves any existing
// checklist untouched.
func (s *ChecklistService) ImportBulk(ctx context.Context, principal model.Principal, contractID uuid.UUID, rows [][]string) (int, error) {
	if !principal.CanManageContracts() {
		return 0, ErrPermissionDenied
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if contract.Category.BodyKind() != model.BodyChecklist {
		return 0, fmt.Errorf("%w: contract category %s has no checklist", ErrInvalidInput, contract.Category)
	}

	items := ParseRows(rows)
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: 0 valid rows in %d supplied", ErrImport, len(rows))
	}

	saved, err := s.checklists.InsertBulk(ctx, contractID, items)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return len(saved), nil
}

// List returns the contract's items in creation order.
func (s *ChecklistService) List(ctx context.Context, contractID uuid.UUID) ([]model.ChecklistItem, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if contract.Category.BodyKind() != model.BodyChecklist {
		return nil, fmt.Errorf("%w: contract category %s has no checklist", ErrInvalidInput, contract.Category)
	}
	return s.checklists.ListByContract(ctx, contractID)
}

// Wipe deletes every item for the contract. Irreversible; the upstream
// caller is responsible for explicit confirmation.
func (s *ChecklistService) Wipe(ctx context.Context, principal model.Principal, contractID uuid.UUID) (int64, error) {
	if !principal.CanManageContracts() {
		return 0, ErrPermissionDenied
	}
	if _, err := s.contracts.Get(ctx, contractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	deleted, err := s.checklists.Wipe(ctx, contractID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return deleted, nil
}
