// Package document assembles the structured work-order document for a
// finalized visit. Assembly is pure: identical inputs always yield an
// identical document, rendering is left to the print/export layer.
package document

import (
	"time"

	"github.com/tverlinden/sla-service/internal/model"
)

// EmptyReportPlaceholder is printed when a report-based contract was
// finalized without any report text.
const EmptyReportPlaceholder = "No details provided."

const missingReference = "-"

// Generate builds the work order from a finalized contract snapshot. For
// access-control contracts the body is one row per checklist item in
// creation order; every other category gets the verbatim execution report.
func Generate(companyName string, contract model.ServiceContract, items []model.ChecklistItem, date time.Time) model.WorkOrderDocument {
	doc := model.WorkOrderDocument{
		Header: model.DocumentHeader{
			CompanyName: companyName,
			Reference:   reference(contract),
			Date:        date,
		},
		Client: model.ClientBlock{
			ClientName: contract.ClientName,
			Location:   contract.Location,
			City:       contract.City,
		},
		Contact: model.ContactBlock{
			ContactName: contract.ContactName,
			Category:    contract.Category,
		},
		Body: buildBody(contract, items),
		Signature: model.SignatureBlock{
			ExecutorName: companyName,
			SignerName:   deref(contract.SignerName),
			SignatureRef: deref(contract.SignatureRef),
		},
	}
	return doc
}

func buildBody(contract model.ServiceContract, items []model.ChecklistItem) model.DocumentBody {
	switch contract.Category.BodyKind() {
	case model.BodyChecklist:
		rows := make([]model.DocumentRow, 0, len(items))
		for _, item := range items {
			rows = append(rows, model.DocumentRow{
				Name:          item.Name,
				Zone:          item.Zone,
				CheckBattery:  item.CheckBattery,
				CheckRights:   item.CheckRights,
				CheckFirmware: item.CheckFirmware,
				Remark:        item.Remark,
			})
		}
		return model.DocumentBody{Kind: model.BodyChecklist, Rows: rows}
	default:
		report := deref(contract.ExecutionReport)
		if report == "" {
			report = EmptyReportPlaceholder
		}
		return model.DocumentBody{Kind: model.BodyReport, Report: report}
	}
}

func reference(contract model.ServiceContract) string {
	if contract.VONumber != nil && *contract.VONumber != "" {
		return *contract.VONumber
	}
	return missingReference
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
