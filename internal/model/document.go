package model

import "time"

// WorkOrderDocument is the generated printable record of a completed visit.
// It is ephemeral: only the signature reference it reuses is persisted on the
// contract itself.
type WorkOrderDocument struct {
	Header    DocumentHeader
	Client    ClientBlock
	Contact   ContactBlock
	Body      DocumentBody
	Signature SignatureBlock
}

type DocumentHeader struct {
	CompanyName string
	Reference   string
	Date        time.Time
}

type ClientBlock struct {
	ClientName string
	Location   string
	City       string
}

type ContactBlock struct {
	ContactName string
	Category    Category
}

// DocumentBody holds exactly one of Rows (checklist categories) or Report
// (everything else), selected by Kind.
type DocumentBody struct {
	Kind   BodyKind
	Rows   []DocumentRow
	Report string
}

type DocumentRow struct {
	Name          string
	Zone          string
	CheckBattery  bool
	CheckRights   bool
	CheckFirmware bool
	Remark        string
}

type SignatureBlock struct {
	ExecutorName string
	SignerName   string
	SignatureRef string
}
