package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tverlinden/sla-service/internal/model"
	"github.com/tverlinden/sla-service/internal/repository"
)

// ContractStore is the persistence collaborator for contract records. The
// gorm repository satisfies it; tests supply fakes.
type ContractStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.ServiceContract, error)
	List(ctx context.Context, filter repository.ContractFilter) ([]model.ServiceContract, error)
	ListReconciliation(ctx context.Context, completed bool) ([]model.ServiceContract, error)
	Create(ctx context.Context, contract model.ServiceContract) (*model.ServiceContract, error)
	Update(ctx context.Context, contract model.ServiceContract, expectedUpdate time.Time) error
	SaveCheckpoint(ctx context.Context, id uuid.UUID, comments string, executionReport *string) error
	MarkExecuted(ctx context.Context, id uuid.UUID, signerName, signatureRef string, comments string, executionReport *string) error
	SetReconciliation(ctx context.Context, id uuid.UUID, actualHours float64, class model.ResultClass, note string) error
	ClearReconciliation(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ResetServiceYear(ctx context.Context) (int64, error)
}

// ChecklistPersistence is the persistence collaborator for checklist items.
type ChecklistPersistence interface {
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ChecklistItem, error)
	InsertBulk(ctx context.Context, contractID uuid.UUID, items []model.ChecklistItem) ([]model.ChecklistItem, error)
	SaveItems(ctx context.Context, items []model.ChecklistItem) error
	Wipe(ctx context.Context, contractID uuid.UUID) (int64, error)
}
