package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
)

// ErrStaleWrite is returned by updates carrying a non-zero expected
// last_update when the row changed underneath the caller.
var ErrStaleWrite = errors.New("stale write")

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

type contractRow struct {
	ID              uuid.UUID
	Category        string
	ClientName      string
	Location        string
	City            string
	ContactName     string
	ContactPhone    string
	ContactEmail    string
	Lat             float64
	Lng             float64
	PlannedMonth    int
	IsExecuted      bool
	VONumber        *string
	Price           float64
	HoursPlanned    float64
	Comments        string
	ExecutionReport *string
	Attachments     []byte
	SignerName      *string
	SignatureRef    *string
	ActualHours     *float64
	ResultClass     *string
	ResultNote      *string
	CalculationDone bool
	LastUpdate      time.Time
}

const contractColumns = `
	id,
	category,
	client_name,
	location,
	city,
	contact_name,
	contact_phone,
	contact_email,
	lat,
	lng,
	planned_month,
	is_executed,
	vo_number,
	price,
	hours_planned,
	comments,
	execution_report,
	attachments,
	signer_name,
	signature_ref,
	actual_hours,
	result_class,
	result_note,
	calculation_done,
	last_update
`

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServiceContract, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM service_contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return rowToContract(row)
}

type ContractFilter struct {
	Category *model.Category
	Executed *bool
}

func (r *ContractRepository) List(ctx context.Context, filter ContractFilter) ([]model.ServiceContract, error) {
	query := `SELECT ` + contractColumns + ` FROM service_contracts`
	var conditions []string
	var args []interface{}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.Executed != nil {
		conditions = append(conditions, "is_executed = ?")
		args = append(args, *filter.Executed)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY planned_month ASC, client_name ASC"

	var rows []contractRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToContracts(rows)
}

// ListReconciliation returns the derived nacalculation pool: executed
// contracts split by calculation_done.
func (r *ContractRepository) ListReconciliation(ctx context.Context, completed bool) ([]model.ServiceContract, error) {
	var rows []contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM service_contracts
		WHERE is_executed = TRUE AND calculation_done = ?
		ORDER BY client_name ASC
	`, completed).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToContracts(rows)
}

func (r *ContractRepository) Create(ctx context.Context, contract model.ServiceContract) (*model.ServiceContract, error) {
	attachments, err := marshalAttachments(contract.Attachments)
	if err != nil {
		return nil, err
	}

	var row contractRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO service_contracts (
			category,
			client_name,
			location,
			city,
			contact_name,
			contact_phone,
			contact_email,
			lat,
			lng,
			planned_month,
			vo_number,
			price,
			hours_planned,
			comments,
			attachments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?::jsonb)
		RETURNING `+contractColumns+`
	`,
		string(contract.Category),
		contract.ClientName,
		contract.Location,
		contract.City,
		contract.ContactName,
		contract.ContactPhone,
		contract.ContactEmail,
		contract.Lat,
		contract.Lng,
		contract.PlannedMonth,
		contract.VONumber,
		contract.Price,
		contract.HoursPlanned,
		contract.Comments,
		attachments,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return rowToContract(row)
}

// Update rewrites the editable contract fields. A non-zero expectedUpdate
// enables optimistic rejection; zero keeps the source's last-write-wins.
func (r *ContractRepository) Update(ctx context.Context, contract model.ServiceContract, expectedUpdate time.Time) error {
	attachments, err := marshalAttachments(contract.Attachments)
	if err != nil {
		return err
	}

	query := `
		UPDATE service_contracts
		SET
			category = ?,
			client_name = ?,
			location = ?,
			city = ?,
			contact_name = ?,
			contact_phone = ?,
			contact_email = ?,
			lat = ?,
			lng = ?,
			planned_month = ?,
			vo_number = ?,
			price = ?,
			hours_planned = ?,
			comments = ?,
			attachments = ?::jsonb,
			last_update = NOW()
		WHERE id = ?
	`
	args := []interface{}{
		string(contract.Category),
		contract.ClientName,
		contract.Location,
		contract.City,
		contract.ContactName,
		contract.ContactPhone,
		contract.ContactEmail,
		contract.Lat,
		contract.Lng,
		contract.PlannedMonth,
		contract.VONumber,
		contract.Price,
		contract.HoursPlanned,
		contract.Comments,
		attachments,
		contract.ID,
	}
	if !expectedUpdate.IsZero() {
		query += " AND last_update = ?"
		args = append(args, expectedUpdate)
	}

	result := r.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if !expectedUpdate.IsZero() {
			return ErrStaleWrite
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveCheckpoint persists the in-flight session text without touching the
// executed flag.
func (r *ContractRepository) SaveCheckpoint(ctx context.Context, id uuid.UUID, comments string, executionReport *string) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE service_contracts
		SET comments = ?, execution_report = ?, last_update = NOW()
		WHERE id = ?
	`, comments, executionReport, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkExecuted applies the finalize write: executed flag, sign-off pair and
// the session text, in one statement. signerName and signatureRef are set
// together, never one without the other.
func (r *ContractRepository) MarkExecuted(ctx context.Context, id uuid.UUID, signerName, signatureRef string, comments string, executionReport *string) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE service_contracts
		SET
			is_executed = TRUE,
			signer_name = ?,
			signature_ref = ?,
			comments = ?,
			execution_report = ?,
			last_update = NOW()
		WHERE id = ?
	`, signerName, signatureRef, comments, executionReport, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) SetReconciliation(ctx context.Context, id uuid.UUID, actualHours float64, class model.ResultClass, note string) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE service_contracts
		SET
			actual_hours = ?,
			result_class = ?,
			result_note = ?,
			calculation_done = TRUE,
			last_update = NOW()
		WHERE id = ?
	`, actualHours, string(class), note, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearReconciliation is idempotent: clearing an already-clear contract
// succeeds.
func (r *ContractRepository) ClearReconciliation(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE service_contracts
		SET
			actual_hours = NULL,
			result_class = NULL,
			result_note = NULL,
			calculation_done = FALSE,
			last_update = NOW()
		WHERE id = ?
	`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM service_contracts WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResetServiceYear clears the executed flag on every contract. Nothing else
// is touched; checklists, sign-offs and reconciliation history stay intact.
func (r *ContractRepository) ResetServiceYear(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE service_contracts
		SET is_executed = FALSE, last_update = NOW()
		WHERE is_executed = TRUE
	`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func rowToContract(row contractRow) (*model.ServiceContract, error) {
	var attachments []model.Attachment
	if len(row.Attachments) > 0 {
		if err := json.Unmarshal(row.Attachments, &attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}

	var resultClass *model.ResultClass
	if row.ResultClass != nil {
		class := model.ResultClass(*row.ResultClass)
		resultClass = &class
	}

	return &model.ServiceContract{
		ID:              row.ID,
		Category:        model.Category(row.Category),
		ClientName:      row.ClientName,
		Location:        row.Location,
		City:            row.City,
		ContactName:     row.ContactName,
		ContactPhone:    row.ContactPhone,
		ContactEmail:    row.ContactEmail,
		Lat:             row.Lat,
		Lng:             row.Lng,
		PlannedMonth:    row.PlannedMonth,
		IsExecuted:      row.IsExecuted,
		VONumber:        row.VONumber,
		Price:           row.Price,
		HoursPlanned:    row.HoursPlanned,
		Comments:        row.Comments,
		ExecutionReport: row.ExecutionReport,
		Attachments:     attachments,
		SignerName:      row.SignerName,
		SignatureRef:    row.SignatureRef,
		ActualHours:     row.ActualHours,
		ResultClass:     resultClass,
		ResultNote:      row.ResultNote,
		CalculationDone: row.CalculationDone,
		LastUpdate:      row.LastUpdate,
	}, nil
}

func rowsToContracts(rows []contractRow) ([]model.ServiceContract, error) {
	contracts := make([]model.ServiceContract, 0, len(rows))
	for _, row := range rows {
		contract, err := rowToContract(row)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *contract)
	}
	return contracts, nil
}

func marshalAttachments(attachments []model.Attachment) (string, error) {
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return "", fmt.Errorf("encode attachments: %w", err)
	}
	return string(encoded), nil
}
