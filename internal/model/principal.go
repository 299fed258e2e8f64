package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
)

// Principal is the authenticated caller, decoded from the access token.
// Mutating operations take it explicitly so capability checks live in the
// service layer instead of scattered UI state.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}

// CanManageContracts gates contract field editing, deletion, checklist wipe
// and the service-year reset.
func (p Principal) CanManageContracts() bool {
	return p.Role == RoleAdmin
}

// CanExecute gates the execution workflow and reconciliation; both roles may
// perform field work.
func (p Principal) CanExecute() bool {
	return p.Role == RoleAdmin || p.Role == RoleTechnician
}
