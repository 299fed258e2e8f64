package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tverlinden/sla-service/internal/model"
)

// Generator renders the nacalculation pools as a workbook for the external
// reporting flow: one sheet of contracts awaiting calculation, one of
// completed calculations.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(pending, completed []model.ServiceContract) ([]byte, error) {
	file := excelize.NewFile()

	pendingSheet := "Pending"
	file.SetSheetName("Sheet1", pendingSheet)
	if err := g.writePending(file, pendingSheet, pending); err != nil {
		return nil, err
	}

	completedSheet := "Completed"
	file.NewSheet(completedSheet)
	if err := g.writeCompleted(file, completedSheet, completed); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writePending(file *excelize.File, sheet string, contracts []model.ServiceContract) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Client")
	set("B1", "City")
	set("C1", "Category")
	set("D1", "Planned month")
	set("E1", "Planned hours")
	set("F1", "Price")

	for i, contract := range contracts {
		row := i + 2
		set(fmt.Sprintf("A%d", row), contract.ClientName)
		set(fmt.Sprintf("B%d", row), contract.City)
		set(fmt.Sprintf("C%d", row), string(contract.Category))
		set(fmt.Sprintf("D%d", row), contract.PlannedMonth)
		set(fmt.Sprintf("E%d", row), contract.HoursPlanned)
		set(fmt.Sprintf("F%d", row), contract.Price)
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "C", 20)
	_ = file.SetColWidth(sheet, "D", "F", 14)
	return nil
}

func (g *Generator) writeCompleted(file *excelize.File, sheet string, contracts []model.ServiceContract) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Client")
	set("B1", "City")
	set("C1", "Planned hours")
	set("D1", "Actual hours")
	set("E1", "Result")
	set("F1", "Note")
	set("G1", "Last update")

	for i, contract := range contracts {
		row := i + 2
		set(fmt.Sprintf("A%d", row), contract.ClientName)
		set(fmt.Sprintf("B%d", row), contract.City)
		set(fmt.Sprintf("C%d", row), contract.HoursPlanned)
		set(fmt.Sprintf("D%d", row), formatFloat(contract.ActualHours))
		set(fmt.Sprintf("E%d", row), formatResult(contract.ResultClass))
		set(fmt.Sprintf("F%d", row), formatString(contract.ResultNote))
		set(fmt.Sprintf("G%d", row), formatDate(contract.LastUpdate))
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "B", 20)
	_ = file.SetColWidth(sheet, "C", "E", 14)
	_ = file.SetColWidth(sheet, "F", "F", 50)
	_ = file.SetColWidth(sheet, "G", "G", 16)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *value)
}

func formatResult(value *model.ResultClass) string {
	if value == nil {
		return ""
	}
	return string(*value)
}
