package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
	"github.com/tverlinden/sla-service/internal/repository"
)

// fakeStore backs the service tests with an in-memory contract and checklist
// store. writeLog records the order of mutating calls so ordering
// constraints can be asserted.
type fakeStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*model.ServiceContract
	items     map[uuid.UUID][]model.ChecklistItem
	writeLog  []string

	failMarkExecuted bool
	failSaveItems    bool
	failCheckpoint   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contracts: make(map[uuid.UUID]*model.ServiceContract),
		items:     make(map[uuid.UUID][]model.ChecklistItem),
	}
}

func (f *fakeStore) addContract(contract model.ServiceContract) *model.ServiceContract {
	f.mu.Lock()
	defer f.mu.Unlock()
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	stored := contract
	f.contracts[contract.ID] = &stored
	return &stored
}

func (f *fakeStore) addItems(contractID uuid.UUID, names ...string) []model.ChecklistItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, name := range names {
		f.items[contractID] = append(f.items[contractID], model.ChecklistItem{
			ID:         uuid.New(),
			ContractID: contractID,
			Name:       name,
			Position:   i + 1,
		})
	}
	return f.items[contractID]
}

func (f *fakeStore) log(entry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeLog = append(f.writeLog, entry)
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*model.ServiceContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *contract
	return &clone, nil
}

func (f *fakeStore) List(_ context.Context, filter repository.ContractFilter) ([]model.ServiceContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.ServiceContract
	for _, contract := range f.contracts {
		if filter.Category != nil && contract.Category != *filter.Category {
			continue
		}
		if filter.Executed != nil && contract.IsExecuted != *filter.Executed {
			continue
		}
		result = append(result, *contract)
	}
	return result, nil
}

func (f *fakeStore) ListReconciliation(_ context.Context, completed bool) ([]model.ServiceContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.ServiceContract
	for _, contract := range f.contracts {
		if contract.IsExecuted && contract.CalculationDone == completed {
			result = append(result, *contract)
		}
	}
	return result, nil
}

func (f *fakeStore) Create(_ context.Context, contract model.ServiceContract) (*model.ServiceContract, error) {
	return f.addContract(contract), nil
}

func (f *fakeStore) Update(_ context.Context, contract model.ServiceContract, expectedUpdate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.contracts[contract.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !expectedUpdate.IsZero() && !existing.LastUpdate.Equal(expectedUpdate) {
		return repository.ErrStaleWrite
	}
	updated := contract
	updated.LastUpdate = time.Now()
	f.contracts[contract.ID] = &updated
	return nil
}

func (f *fakeStore) SaveCheckpoint(_ context.Context, id uuid.UUID, comments string, executionReport *string) error {
	if f.failCheckpoint {
		return errors.New("checkpoint write refused")
	}
	f.log("checkpoint")
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.Comments = comments
	contract.ExecutionReport = executionReport
	return nil
}

func (f *fakeStore) MarkExecuted(_ context.Context, id uuid.UUID, signerName, signatureRef string, comments string, executionReport *string) error {
	if f.failMarkExecuted {
		return errors.New("contract write refused")
	}
	f.log("contract")
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.IsExecuted = true
	contract.SignerName = &signerName
	contract.SignatureRef = &signatureRef
	contract.Comments = comments
	contract.ExecutionReport = executionReport
	contract.LastUpdate = time.Now()
	return nil
}

func (f *fakeStore) SetReconciliation(_ context.Context, id uuid.UUID, actualHours float64, class model.ResultClass, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.ActualHours = &actualHours
	contract.ResultClass = &class
	contract.ResultNote = &note
	contract.CalculationDone = true
	return nil
}

func (f *fakeStore) ClearReconciliation(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.ActualHours = nil
	contract.ResultClass = nil
	contract.ResultNote = nil
	contract.CalculationDone = false
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contracts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.contracts, id)
	return nil
}

func (f *fakeStore) ResetServiceYear(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reset int64
	for _, contract := range f.contracts {
		if contract.IsExecuted {
			contract.IsExecuted = false
			reset++
		}
	}
	return reset, nil
}

func (f *fakeStore) ListByContract(_ context.Context, contractID uuid.UUID) ([]model.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]model.ChecklistItem, len(f.items[contractID]))
	copy(items, f.items[contractID])
	return items, nil
}

func (f *fakeStore) InsertBulk(_ context.Context, contractID uuid.UUID, items []model.ChecklistItem) ([]model.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := len(f.items[contractID])
	saved := make([]model.ChecklistItem, 0, len(items))
	for i, item := range items {
		item.ID = uuid.New()
		item.ContractID = contractID
		item.Position = base + i + 1
		f.items[contractID] = append(f.items[contractID], item)
		saved = append(saved, item)
	}
	return saved, nil
}

func (f *fakeStore) SaveItems(_ context.Context, items []model.ChecklistItem) error {
	if f.failSaveItems {
		return errors.New("checklist write refused")
	}
	f.log("checklist")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		stored := f.items[item.ContractID]
		for i := range stored {
			if stored[i].ID == item.ID {
				stored[i].CheckBattery = item.CheckBattery
				stored[i].CheckRights = item.CheckRights
				stored[i].CheckFirmware = item.CheckFirmware
				stored[i].Remark = item.Remark
			}
		}
	}
	return nil
}

func (f *fakeStore) Wipe(_ context.Context, contractID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := int64(len(f.items[contractID]))
	delete(f.items, contractID)
	return deleted, nil
}

// fakeSignatures records signature uploads in write order shared with the
// store's log.
type fakeSignatures struct {
	store  *fakeStore
	fail   bool
	images map[uuid.UUID][]byte
}

func newFakeSignatures(store *fakeStore) *fakeSignatures {
	return &fakeSignatures{store: store, images: make(map[uuid.UUID][]byte)}
}

func (f *fakeSignatures) Put(_ context.Context, contractID uuid.UUID, image []byte) (string, error) {
	if f.fail {
		return "", errors.New("blob store refused")
	}
	f.store.log("signature")
	f.images[contractID] = image
	return "mem://signatures/" + contractID.String() + ".png", nil
}

var (
	adminPrincipal = model.Principal{UserID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
	techPrincipal  = model.Principal{UserID: uuid.New(), Email: "tech@example.com", Role: model.RoleTechnician}
)
