package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/tverlinden/sla-service/internal/model"
)

func newSessionFixture(t *testing.T, category model.Category) (*fakeStore, *fakeSignatures, *SessionManager, *model.ServiceContract) {
	t.Helper()
	store := newFakeStore()
	contract := store.addContract(model.ServiceContract{
		Category:     category,
		ClientName:   "Haven Gent",
		Location:     "Hal 3, Poort 4",
		City:         "Gent",
		PlannedMonth: 4,
		HoursPlanned: 4,
		Comments:     "call ahead",
	})
	signatures := newFakeSignatures(store)
	manager := NewSessionManager(store, store, signatures, "Verlinden Automatics")
	return store, signatures, manager, contract
}

func TestOpenLoadsChecklistAndText(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	store.addItems(contract.ID, "Door A", "Door B")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if session.Stage() != StageEditing {
		t.Fatalf("got stage %s, want EDITING", session.Stage())
	}
	if got := session.Items(); len(got) != 2 || got[0].Name != "Door A" {
		t.Fatalf("unexpected items: %+v", got)
	}
	if session.Comments() != "call ahead" {
		t.Fatalf("got comments %q", session.Comments())
	}
}

func TestOpenReturnsExistingSession(t *testing.T) {
	_, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)

	first, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open (second): %v", err)
	}
	if first != second {
		t.Fatal("second Open returned a different session")
	}
}

func TestOpenUnknownContract(t *testing.T) {
	_, _, manager, _ := newSessionFixture(t, model.CategoryAccessControl)
	_, err := manager.Open(context.Background(), techPrincipal, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCheckpointStaysEditingAndKeepsNotExecuted(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	items := store.addItems(contract.ID, "Door A")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.UpdateCheck(items[0].ID, model.CheckBattery, true); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	if err := session.SetComments("replaced battery"); err != nil {
		t.Fatalf("SetComments: %v", err)
	}
	if err := session.Checkpoint(context.Background()); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	if session.Stage() != StageEditing {
		t.Fatalf("got stage %s, want EDITING", session.Stage())
	}
	saved, _ := store.Get(context.Background(), contract.ID)
	if saved.IsExecuted {
		t.Fatal("checkpoint must not set the executed flag")
	}
	if saved.Comments != "replaced battery" {
		t.Fatalf("comments not persisted: %q", saved.Comments)
	}
	savedItems, _ := store.ListByContract(context.Background(), contract.ID)
	if !savedItems[0].CheckBattery {
		t.Fatal("check mutation not persisted by checkpoint")
	}
}

func TestFinalizeWithoutSignatureRejected(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}

	if _, err := session.Finalize(context.Background(), "Jane", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if _, err := session.Finalize(context.Background(), "  ", []byte("png")); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	if session.Stage() != StageAwaitingSignature {
		t.Fatalf("got stage %s, want AWAITING_SIGNATURE", session.Stage())
	}
	saved, _ := store.Get(context.Background(), contract.ID)
	if saved.IsExecuted {
		t.Fatal("rejected finalize must not mark the contract executed")
	}
}

func TestFinalizeSucceeds(t *testing.T) {
	store, signatures, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	items := store.addItems(contract.ID, "Door A", "Door B")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.UpdateCheck(items[1].ID, model.CheckFirmware, true); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}

	doc, err := session.Finalize(context.Background(), "Jane", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if session.Stage() != StageCompleted {
		t.Fatalf("got stage %s, want COMPLETED", session.Stage())
	}

	saved, _ := store.Get(context.Background(), contract.ID)
	if !saved.IsExecuted {
		t.Fatal("contract not marked executed")
	}
	if saved.SignerName == nil || *saved.SignerName != "Jane" {
		t.Fatalf("signer name not persisted: %v", saved.SignerName)
	}
	if saved.SignatureRef == nil || *saved.SignatureRef == "" {
		t.Fatal("signature reference not persisted")
	}
	if _, ok := signatures.images[contract.ID]; !ok {
		t.Fatal("signature image not stored")
	}

	// The signature write must precede the contract update so the reference
	// can be embedded.
	want := []string{"signature", "checklist", "contract"}
	if !reflect.DeepEqual(store.writeLog, want) {
		t.Fatalf("write order %v, want %v", store.writeLog, want)
	}

	if doc.Body.Kind != model.BodyChecklist || len(doc.Body.Rows) != 2 {
		t.Fatalf("unexpected document body: %+v", doc.Body)
	}
	if doc.Signature.SignerName != "Jane" {
		t.Fatalf("document signer %q, want Jane", doc.Signature.SignerName)
	}
	if doc.Signature.SignatureRef != *saved.SignatureRef {
		t.Fatal("document signature reference does not match the persisted one")
	}
}

func TestFinalizeReportCategorySkipsChecklistWrite(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategorySunShading)

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.SetReport("Lubricated all rails."); err != nil {
		t.Fatalf("SetReport: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}
	doc, err := session.Finalize(context.Background(), "Jane", []byte("png"))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := []string{"signature", "contract"}
	if !reflect.DeepEqual(store.writeLog, want) {
		t.Fatalf("write order %v, want %v", store.writeLog, want)
	}
	if doc.Body.Kind != model.BodyReport || doc.Body.Report != "Lubricated all rails." {
		t.Fatalf("unexpected document body: %+v", doc.Body)
	}

	saved, _ := store.Get(context.Background(), contract.ID)
	if saved.ExecutionReport == nil || *saved.ExecutionReport != "Lubricated all rails." {
		t.Fatalf("execution report not persisted: %v", saved.ExecutionReport)
	}
}

func TestFinalizeFailureReturnsToAwaitingSignature(t *testing.T) {
	store, signatures, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	store.addItems(contract.ID, "Door A")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}

	store.failMarkExecuted = true
	if _, err := session.Finalize(context.Background(), "Jane", []byte("png")); !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
	if session.Stage() != StageAwaitingSignature {
		t.Fatalf("got stage %s, want AWAITING_SIGNATURE", session.Stage())
	}

	// Retry after the failure: the signature upload is keyed by contract id,
	// so the second attempt overwrites the first object.
	store.failMarkExecuted = false
	if _, err := session.Finalize(context.Background(), "Jane", []byte("png")); err != nil {
		t.Fatalf("retry Finalize: %v", err)
	}
	if len(signatures.images) != 1 {
		t.Fatalf("got %d signature objects, want 1", len(signatures.images))
	}
}

func TestFinalizeBlobFailure(t *testing.T) {
	store, signatures, manager, contract := newSessionFixture(t, model.CategoryAccessControl)

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}

	signatures.fail = true
	if _, err := session.Finalize(context.Background(), "Jane", []byte("png")); !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
	saved, _ := store.Get(context.Background(), contract.ID)
	if saved.IsExecuted {
		t.Fatal("contract must stay unexecuted after a blob failure")
	}
}

func TestRequestSignoffDoesNotBlockOnUnreviewedItems(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	store.addItems(contract.ID, "Door A", "Door B", "Door C")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := session.UnreviewedCount(); got != 3 {
		t.Fatalf("got unreviewed %d, want 3", got)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff must not block on unreviewed items: %v", err)
	}
}

func TestMutationsRejectedOutsideEditing(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	items := store.addItems(contract.ID, "Door A")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.RequestSignoff(); err != nil {
		t.Fatalf("RequestSignoff: %v", err)
	}

	if err := session.UpdateCheck(items[0].ID, model.CheckBattery, true); !errors.Is(err, ErrSessionState) {
		t.Fatalf("UpdateCheck: got %v, want ErrSessionState", err)
	}
	if err := session.Checkpoint(context.Background()); !errors.Is(err, ErrSessionState) {
		t.Fatalf("Checkpoint: got %v, want ErrSessionState", err)
	}
}

func TestAbandonDiscardsUnsavedMutations(t *testing.T) {
	store, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	items := store.addItems(contract.ID, "Door A")

	session, err := manager.Open(context.Background(), techPrincipal, contract.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.UpdateCheck(items[0].ID, model.CheckBattery, true); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	if err := session.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	manager.Release(contract.ID)

	saved, _ := store.ListByContract(context.Background(), contract.ID)
	if saved[0].CheckBattery {
		t.Fatal("abandoned mutation leaked to the store")
	}
}

func TestOpenRequiresExecuteCapability(t *testing.T) {
	_, _, manager, contract := newSessionFixture(t, model.CategoryAccessControl)
	nobody := model.Principal{UserID: uuid.New(), Email: "x@example.com"}
	if _, err := manager.Open(context.Background(), nobody, contract.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("got %v, want ErrPermissionDenied", err)
	}
}
