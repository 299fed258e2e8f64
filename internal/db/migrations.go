package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'sla_category') THEN
			CREATE TYPE sla_category AS ENUM ('ACCESS_CONTROL', 'REVOLVING_DOOR', 'GATE_AUTOMATION', 'SUN_SHADING');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'result_class') THEN
			CREATE TYPE result_class AS ENUM ('PROFIT', 'CORRECT', 'LOSS');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS service_contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		category sla_category NOT NULL,
		client_name VARCHAR(255) NOT NULL,
		location VARCHAR(255) NOT NULL,
		city VARCHAR(128) NOT NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		contact_phone VARCHAR(64) NOT NULL DEFAULT '',
		contact_email VARCHAR(255) NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		planned_month INT NOT NULL CHECK (planned_month BETWEEN 1 AND 12),
		is_executed BOOLEAN NOT NULL DEFAULT FALSE,
		vo_number VARCHAR(64),
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		hours_planned NUMERIC(8,2) NOT NULL DEFAULT 0,
		comments TEXT NOT NULL DEFAULT '',
		execution_report TEXT,
		attachments JSONB NOT NULL DEFAULT '[]',
		signer_name VARCHAR(255),
		signature_ref TEXT,
		actual_hours NUMERIC(8,2),
		result_class result_class,
		result_note TEXT,
		calculation_done BOOLEAN NOT NULL DEFAULT FALSE,
		last_update TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS checklist_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES service_contracts(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		zone VARCHAR(255) NOT NULL DEFAULT '',
		connectivity VARCHAR(128) NOT NULL DEFAULT '',
		check_battery BOOLEAN NOT NULL DEFAULT FALSE,
		check_rights BOOLEAN NOT NULL DEFAULT FALSE,
		check_firmware BOOLEAN NOT NULL DEFAULT FALSE,
		remark TEXT NOT NULL DEFAULT '',
		position INT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	// Older deployments stored a tri-state status per item. The booleans are
	// authoritative now; existing rows simply start with all checks false.
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'checklist_items' AND column_name = 'check_battery') THEN
			ALTER TABLE checklist_items ADD COLUMN check_battery BOOLEAN NOT NULL DEFAULT FALSE;
			ALTER TABLE checklist_items ADD COLUMN check_rights BOOLEAN NOT NULL DEFAULT FALSE;
			ALTER TABLE checklist_items ADD COLUMN check_firmware BOOLEAN NOT NULL DEFAULT FALSE;
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_checklist_items_contract_id ON checklist_items (contract_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_service_contracts_planned_month ON service_contracts (planned_month);`,
	`CREATE INDEX IF NOT EXISTS idx_service_contracts_reconciliation ON service_contracts (is_executed, calculation_done);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
