package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
	"github.com/tverlinden/sla-service/internal/repository"
	"github.com/tverlinden/sla-service/internal/status"
)

// ContractService covers the direct record operations around the lifecycle
// engine: listing with urgency buckets, contract CRUD and the one-shot
// service-year reset.
type ContractService struct {
	contracts ContractStore
	now       func() time.Time
}

func NewContractService(contracts ContractStore) *ContractService {
	return &ContractService{contracts: contracts, now: time.Now}
}

type ContractWithStatus struct {
	model.ServiceContract
	Urgency status.Bucket
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*ContractWithStatus, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ContractWithStatus{
		ServiceContract: *contract,
		Urgency:         status.Classify(contract.PlannedMonth, contract.IsExecuted, s.now()),
	}, nil
}

// List returns contracts with their urgency bucket, classified against the
// current month. Every display surface uses this single classification.
func (s *ContractService) List(ctx context.Context, filter repository.ContractFilter) ([]ContractWithStatus, error) {
	contracts, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	result := make([]ContractWithStatus, 0, len(contracts))
	for _, contract := range contracts {
		result = append(result, ContractWithStatus{
			ServiceContract: contract,
			Urgency:         status.Classify(contract.PlannedMonth, contract.IsExecuted, now),
		})
	}
	return result, nil
}

func (s *ContractService) Create(ctx context.Context, principal model.Principal, contract model.ServiceContract) (*model.ServiceContract, error) {
	if !principal.CanManageContracts() {
		return nil, ErrPermissionDenied
	}
	if err := validateContract(contract); err != nil {
		return nil, err
	}
	created, err := s.contracts.Create(ctx, contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return created, nil
}

// Update rewrites the editable fields. A non-zero expectedUpdate enables the
// optimistic stale-write guard; zero matches the original last-write-wins.
func (s *ContractService) Update(ctx context.Context, principal model.Principal, contract model.ServiceContract, expectedUpdate time.Time) error {
	if !principal.CanManageContracts() {
		return ErrPermissionDenied
	}
	if err := validateContract(contract); err != nil {
		return err
	}
	err := s.contracts.Update(ctx, contract, expectedUpdate)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleWrite):
		return ErrStaleWrite
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
}

func (s *ContractService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanManageContracts() {
		return ErrPermissionDenied
	}
	if err := s.contracts.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// StartServiceYear clears the executed flag on every contract, reopening
// them for the new service year. One-shot batch; contracts, checklists and
// history are left untouched. The urgency classifier has no year awareness,
// so nothing else needs to change.
func (s *ContractService) StartServiceYear(ctx context.Context, principal model.Principal) (int64, error) {
	if !principal.CanManageContracts() {
		return 0, ErrPermissionDenied
	}
	reset, err := s.contracts.ResetServiceYear(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return reset, nil
}

func validateContract(contract model.ServiceContract) error {
	if !contract.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, contract.Category)
	}
	if strings.TrimSpace(contract.ClientName) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}
	if contract.PlannedMonth < 1 || contract.PlannedMonth > 12 {
		return fmt.Errorf("%w: planned month %d out of range", ErrInvalidInput, contract.PlannedMonth)
	}
	if contract.HoursPlanned < 0 {
		return fmt.Errorf("%w: planned hours must not be negative", ErrInvalidInput)
	}
	return nil
}
