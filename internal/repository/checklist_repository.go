package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tverlinden/sla-service/internal/model"
)

type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ChecklistItem, error) {
	var items []model.ChecklistItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			contract_id,
			name,
			zone,
			connectivity,
			check_battery,
			check_rights,
			check_firmware,
			remark,
			position,
			updated_at
		FROM checklist_items
		WHERE contract_id = ?
		ORDER BY position ASC
	`, contractID).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// InsertBulk appends imported items in one transaction, continuing the
// position sequence after any existing rows.
func (r *ChecklistRepository) InsertBulk(ctx context.Context, contractID uuid.UUID, items []model.ChecklistItem) ([]model.ChecklistItem, error) {
	saved := make([]model.ChecklistItem, 0, len(items))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Raw(`
			SELECT COALESCE(MAX(position), 0)
			FROM checklist_items
			WHERE contract_id = ?
		`, contractID).Scan(&maxPosition).Error; err != nil {
			return err
		}

		for i, item := range items {
			var row model.ChecklistItem
			err := tx.Raw(`
				INSERT INTO checklist_items (
					contract_id,
					name,
					zone,
					connectivity,
					position
				) VALUES (?, ?, ?, ?, ?)
				RETURNING
					id,
					contract_id,
					name,
					zone,
					connectivity,
					check_battery,
					check_rights,
					check_firmware,
					remark,
					position,
					updated_at
			`, contractID, item.Name, item.Zone, item.Connectivity, maxPosition+i+1).Scan(&row).Error
			if err != nil {
				return err
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveItems writes back the session's checklist mutations. Last write wins
// by default; concurrent edits on the same contract are not guarded.
func (r *ChecklistRepository) SaveItems(ctx context.Context, items []model.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Exec(`
				UPDATE checklist_items
				SET
					check_battery = ?,
					check_rights = ?,
					check_firmware = ?,
					remark = ?,
					updated_at = NOW()
				WHERE id = ?
			`, item.CheckBattery, item.CheckRights, item.CheckFirmware, item.Remark, item.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Wipe removes every item for the contract. Irreversible; confirmation is
// the caller's responsibility.
func (r *ChecklistRepository) Wipe(ctx context.Context, contractID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		DELETE FROM checklist_items WHERE contract_id = ?
	`, contractID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
