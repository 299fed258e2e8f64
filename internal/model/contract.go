package model

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAccessControl  Category = "ACCESS_CONTROL"
	CategoryRevolvingDoor  Category = "REVOLVING_DOOR"
	CategoryGateAutomation Category = "GATE_AUTOMATION"
	CategorySunShading     Category = "SUN_SHADING"
)

// BodyKind selects how a contract's execution is recorded and rendered:
// access-control contracts carry a per-door checklist, every other category
// carries a free-text execution report.
type BodyKind string

const (
	BodyChecklist BodyKind = "CHECKLIST"
	BodyReport    BodyKind = "REPORT"
)

func (c Category) BodyKind() BodyKind {
	if c == CategoryAccessControl {
		return BodyChecklist
	}
	return BodyReport
}

func (c Category) Valid() bool {
	switch c {
	case CategoryAccessControl, CategoryRevolvingDoor, CategoryGateAutomation, CategorySunShading:
		return true
	}
	return false
}

type ResultClass string

const (
	ResultProfit  ResultClass = "PROFIT"
	ResultCorrect ResultClass = "CORRECT"
	ResultLoss    ResultClass = "LOSS"
)

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind"` // "image" or "file"
}

type ServiceContract struct {
	ID           uuid.UUID
	Category     Category
	ClientName   string
	Location     string
	City         string
	ContactName  string
	ContactPhone string
	ContactEmail string
	Lat          float64
	Lng          float64
	PlannedMonth int // 1..12
	IsExecuted   bool
	VONumber     *string
	Price        float64
	HoursPlanned float64
	Comments     string
	// ExecutionReport is the technician's free-text account; only meaningful
	// for report-based categories.
	ExecutionReport *string
	Attachments     []Attachment
	SignerName      *string
	SignatureRef    *string
	ActualHours     *float64
	ResultClass     *ResultClass
	ResultNote      *string
	CalculationDone bool
	LastUpdate      time.Time
}

// ReconciliationPending reports whether the contract sits in the pending
// nacalculation pool. Pool membership is derived, never stored.
func (c *ServiceContract) ReconciliationPending() bool {
	return c.IsExecuted && !c.CalculationDone
}

func (c *ServiceContract) ReconciliationCompleted() bool {
	return c.IsExecuted && c.CalculationDone
}
