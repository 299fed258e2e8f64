package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
)

// ReconciliationService classifies the planned-vs-actual labor variance of
// executed contracts (nacalculation). Pool membership is derived from the
// executed and calculation_done flags, never stored separately.
type ReconciliationService struct {
	contracts ContractStore
}

func NewReconciliationService(contracts ContractStore) *ReconciliationService {
	return &ReconciliationService{contracts: contracts}
}

// correctMargin is the tolerated overrun before a contract counts as a loss.
const correctMargin = 1.10

// Classify buckets the labor variance. The boolean is false when no
// classification is available (hoursPlanned absent or not positive); that is
// a typed absence, not a fault.
func Classify(hoursPlanned, actualHours float64) (model.ResultClass, bool) {
	if hoursPlanned <= 0 {
		return "", false
	}
	switch {
	case actualHours < hoursPlanned:
		return model.ResultProfit, true
	case actualHours <= hoursPlanned*correctMargin:
		return model.ResultCorrect, true
	default:
		return model.ResultLoss, true
	}
}

func resultNote(class model.ResultClass, hoursPlanned, actualHours float64) string {
	switch class {
	case model.ResultProfit:
		return fmt.Sprintf("Finished %.2f hours under plan (planned %.2f, actual %.2f).", hoursPlanned-actualHours, hoursPlanned, actualHours)
	case model.ResultCorrect:
		return fmt.Sprintf("Within the %.0f%% margin (planned %.2f, actual %.2f).", (correctMargin-1)*100, hoursPlanned, actualHours)
	default:
		return fmt.Sprintf("Exceeded plan by %.2f hours (planned %.2f, actual %.2f).", actualHours-hoursPlanned, hoursPlanned, actualHours)
	}
}

type CommitResult struct {
	Class model.ResultClass
	Note  string
}

// Commit records the submitted actual hours, classifies the result and marks
// the calculation done. It requires an executed contract still in the
// pending pool and a positive planned-hours figure.
func (s *ReconciliationService) Commit(ctx context.Context, principal model.Principal, contractID uuid.UUID, actualHours float64) (*CommitResult, error) {
	if !principal.CanExecute() {
		return nil, ErrPermissionDenied
	}
	if actualHours < 0 {
		return nil, fmt.Errorf("%w: actual hours must not be negative", ErrValidation)
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.IsExecuted {
		return nil, fmt.Errorf("%w: contract is not executed yet", ErrInvalidInput)
	}
	if contract.CalculationDone {
		return nil, fmt.Errorf("%w: calculation already done", ErrInvalidInput)
	}

	class, ok := Classify(contract.HoursPlanned, actualHours)
	if !ok {
		return nil, fmt.Errorf("%w: classification unavailable, contract has no planned hours", ErrValidation)
	}

	note := resultNote(class, contract.HoursPlanned, actualHours)
	if err := s.contracts.SetReconciliation(ctx, contractID, actualHours, class, note); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &CommitResult{Class: class, Note: note}, nil
}

// Revert clears the reconciliation fields and returns the contract to the
// pending pool. Idempotent: reverting an already-pending contract succeeds.
func (s *ReconciliationService) Revert(ctx context.Context, principal model.Principal, contractID uuid.UUID) error {
	if !principal.CanExecute() {
		return ErrPermissionDenied
	}
	if err := s.contracts.ClearReconciliation(ctx, contractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Pending returns executed contracts awaiting nacalculation.
func (s *ReconciliationService) Pending(ctx context.Context) ([]model.ServiceContract, error) {
	return s.contracts.ListReconciliation(ctx, false)
}

// Completed returns executed contracts with a committed nacalculation.
func (s *ReconciliationService) Completed(ctx context.Context) ([]model.ServiceContract, error) {
	return s.contracts.ListReconciliation(ctx, true)
}
