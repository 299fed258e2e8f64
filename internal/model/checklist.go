package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CheckField string

const (
	CheckBattery  CheckField = "battery"
	CheckRights   CheckField = "rights"
	CheckFirmware CheckField = "firmware"
)

func (f CheckField) Valid() bool {
	switch f {
	case CheckBattery, CheckRights, CheckFirmware:
		return true
	}
	return false
}

// ChecklistItem is one inspected access point within an access-control
// contract. Position preserves creation order, which controls both display
// and work-order rendering.
type ChecklistItem struct {
	ID            uuid.UUID
	ContractID    uuid.UUID
	Name          string
	Zone          string
	Connectivity  string
	CheckBattery  bool
	CheckRights   bool
	CheckFirmware bool
	Remark        string
	Position      int
	UpdatedAt     time.Time
}

// Reviewed is the derived replacement for the legacy tri-state status field:
// an item counts as reviewed once any check is ticked or a remark was left.
func (i *ChecklistItem) Reviewed() bool {
	return i.CheckBattery || i.CheckRights || i.CheckFirmware || strings.TrimSpace(i.Remark) != ""
}

func (i *ChecklistItem) SetCheck(field CheckField, value bool) {
	switch field {
	case CheckBattery:
		i.CheckBattery = value
	case CheckRights:
		i.CheckRights = value
	case CheckFirmware:
		i.CheckFirmware = value
	}
}
