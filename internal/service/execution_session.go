package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/document"
	"github.com/tverlinden/sla-service/internal/model"
)

type SessionStage string

const (
	StageLoading           SessionStage = "LOADING"
	StageEditing           SessionStage = "EDITING"
	StageAwaitingSignature SessionStage = "AWAITING_SIGNATURE"
	StageFinalizing        SessionStage = "FINALIZING"
	StageCompleted         SessionStage = "COMPLETED"
	StageAbandoned         SessionStage = "ABANDONED"
)

// SignatureStore is the blob collaborator holding captured signatures.
type SignatureStore interface {
	Put(ctx context.Context, contractID uuid.UUID, image []byte) (ref string, err error)
}

// ExecutionSession drives the execute / sign / finalize workflow for one
// contract. All mutation happens on working copies; nothing touches the
// store until a checkpoint or finalize. The internal mutex both protects
// the working state and serializes checkpoint writes: a second checkpoint
// blocks until the first completes, so a later state can never be
// overwritten by an earlier in-flight write.
type ExecutionSession struct {
	mu sync.Mutex

	contract *model.ServiceContract
	items    []model.ChecklistItem
	comments string
	report   string
	stage    SessionStage

	contracts  ContractStore
	checklists ChecklistPersistence
	signatures SignatureStore

	companyName string
	now         func() time.Time

	workOrder *model.WorkOrderDocument
}

func (s *ExecutionSession) Stage() SessionStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *ExecutionSession) ContractID() uuid.UUID {
	return s.contract.ID
}

// Items returns a copy of the working checklist in creation order.
func (s *ExecutionSession) Items() []model.ChecklistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.ChecklistItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *ExecutionSession) Comments() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

func (s *ExecutionSession) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// UnreviewedCount reports how many working items have no check ticked and no
// remark. Finalization never blocks on it; callers may use it for a soft
// prompt.
func (s *ExecutionSession) UnreviewedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.items {
		if !s.items[i].Reviewed() {
			count++
		}
	}
	return count
}

// WorkOrder returns the generated document once the session completed.
func (s *ExecutionSession) WorkOrder() (*model.WorkOrderDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workOrder == nil {
		return nil, false
	}
	doc := *s.workOrder
	return &doc, true
}

// UpdateCheck flips one inspection check on a working item.
func (s *ExecutionSession) UpdateCheck(itemID uuid.UUID, field model.CheckField, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
	if !field.Valid() {
		return fmt.Errorf("%w: unknown check field %q", ErrInvalidInput, field)
	}
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].SetCheck(field, value)
			return nil
		}
	}
	return fmt.Errorf("%w: checklist item %s", ErrNotFound, itemID)
}

// SetRemark replaces the free-text remark on a working item.
func (s *ExecutionSession) SetRemark(itemID uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Remark = text
			return nil
		}
	}
	return fmt.Errorf("%w: checklist item %s", ErrNotFound, itemID)
}

func (s *ExecutionSession) SetComments(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
	s.comments = text
	return nil
}

func (s *ExecutionSession) SetReport(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
	if s.contract.Category.BodyKind() != model.BodyReport {
		return fmt.Errorf("%w: contract category %s carries a checklist, not a report", ErrInvalidInput, s.contract.Category)
	}
	s.report = text
	return nil
}

// Checkpoint persists the current working state without leaving Editing and
// without touching the executed flag. Writes for one session are strictly
// ordered by the session mutex.
func (s *ExecutionSession) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}

	if err := s.contracts.SaveCheckpoint(ctx, s.contract.ID, s.comments, s.reportValue()); err != nil {
		return fmt.Errorf("%w: checkpoint contract: %v", ErrPersistence, err)
	}
	if s.contract.Category.BodyKind() == model.BodyChecklist {
		if err := s.checklists.SaveItems(ctx, s.items); err != nil {
			return fmt.Errorf("%w: checkpoint checklist: %v", ErrPersistence, err)
		}
	}
	return nil
}

// RequestSignoff moves the session to AwaitingSignature. Checklist
// completeness is deliberately not a precondition; UnreviewedCount lets the
// caller warn without blocking.
func (s *ExecutionSession) RequestSignoff() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageEditing {
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
	s.stage = StageAwaitingSignature
	return nil
}

// Finalize runs the ordered completion writes: signature blob first, then
// the checklist (if any), then the contract update that embeds the signature
// reference, then work-order generation. Any failure returns the session to
// AwaitingSignature; there is no automatic retry. Signature uploads are
// keyed by contract id, so a retry overwrites the earlier object instead of
// orphaning it.
func (s *ExecutionSession) Finalize(ctx context.Context, signerName string, signature []byte) (*model.WorkOrderDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageAwaitingSignature {
		return nil, fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}

	signerName = strings.TrimSpace(signerName)
	if signerName == "" {
		return nil, fmt.Errorf("%w: signer name is required", ErrValidation)
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: a captured signature is required", ErrValidation)
	}

	s.stage = StageFinalizing

	ref, err := s.signatures.Put(ctx, s.contract.ID, signature)
	if err != nil {
		s.stage = StageAwaitingSignature
		return nil, fmt.Errorf("%w: store signature: %v", ErrPersistence, err)
	}

	if s.contract.Category.BodyKind() == model.BodyChecklist {
		if err := s.checklists.SaveItems(ctx, s.items); err != nil {
			s.stage = StageAwaitingSignature
			return nil, fmt.Errorf("%w: save checklist: %v", ErrPersistence, err)
		}
	}

	if err := s.contracts.MarkExecuted(ctx, s.contract.ID, signerName, ref, s.comments, s.reportValue()); err != nil {
		s.stage = StageAwaitingSignature
		return nil, fmt.Errorf("%w: update contract: %v", ErrPersistence, err)
	}

	now := s.now()
	snapshot := *s.contract
	snapshot.IsExecuted = true
	snapshot.SignerName = &signerName
	snapshot.SignatureRef = &ref
	snapshot.Comments = s.comments
	snapshot.ExecutionReport = s.reportValue()
	snapshot.LastUpdate = now
	s.contract = &snapshot

	doc := document.Generate(s.companyName, snapshot, s.items, now)
	s.workOrder = &doc
	s.stage = StageCompleted
	return &doc, nil
}

// Abandon discards unsaved working state. Abandoning mid-finalize is not
// supported; the operation must run to completion or surface its error.
func (s *ExecutionSession) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.stage {
	case StageEditing, StageAwaitingSignature:
		s.stage = StageAbandoned
		return nil
	case StageFinalizing:
		return fmt.Errorf("%w: cannot abandon during finalization", ErrSessionState)
	default:
		return fmt.Errorf("%w: stage %s", ErrSessionState, s.stage)
	}
}

func (s *ExecutionSession) reportValue() *string {
	if s.contract.Category.BodyKind() != model.BodyReport {
		return nil
	}
	report := s.report
	return &report
}

// SessionManager holds at most one live session per contract. There is no
// cross-session locking: two sessions editing the same contract from
// different manager instances will last-write-win, as in the original
// system.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*ExecutionSession

	contracts   ContractStore
	checklists  ChecklistPersistence
	signatures  SignatureStore
	companyName string
	now         func() time.Time
}

func NewSessionManager(contracts ContractStore, checklists ChecklistPersistence, signatures SignatureStore, companyName string) *SessionManager {
	return &SessionManager{
		sessions:    make(map[uuid.UUID]*ExecutionSession),
		contracts:   contracts,
		checklists:  checklists,
		signatures:  signatures,
		companyName: companyName,
		now:         time.Now,
	}
}

// Open starts (or resumes) the execution session for a contract: the Loading
// stage fetches the checklist and existing text, then the session enters
// Editing.
func (m *SessionManager) Open(ctx context.Context, principal model.Principal, contractID uuid.UUID) (*ExecutionSession, error) {
	if !principal.CanExecute() {
		return nil, ErrPermissionDenied
	}

	m.mu.Lock()
	if existing, ok := m.sessions[contractID]; ok {
		stage := existing.Stage()
		if stage == StageEditing || stage == StageAwaitingSignature || stage == StageFinalizing {
			m.mu.Unlock()
			return existing, nil
		}
		delete(m.sessions, contractID)
	}
	m.mu.Unlock()

	contract, err := m.contracts.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load contract: %v", ErrPersistence, err)
	}

	session := &ExecutionSession{
		contract:    contract,
		comments:    contract.Comments,
		stage:       StageLoading,
		contracts:   m.contracts,
		checklists:  m.checklists,
		signatures:  m.signatures,
		companyName: m.companyName,
		now:         m.now,
	}
	if contract.ExecutionReport != nil {
		session.report = *contract.ExecutionReport
	}

	if contract.Category.BodyKind() == model.BodyChecklist {
		items, err := m.checklists.ListByContract(ctx, contractID)
		if err != nil {
			return nil, fmt.Errorf("%w: load checklist: %v", ErrPersistence, err)
		}
		session.items = items
	}
	session.stage = StageEditing

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[contractID]; ok {
		return existing, nil
	}
	m.sessions[contractID] = session
	return session, nil
}

func (m *SessionManager) Get(contractID uuid.UUID) (*ExecutionSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[contractID]
	return session, ok
}

// Release drops a session from the registry once it is completed or
// abandoned.
func (m *SessionManager) Release(contractID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, contractID)
}
