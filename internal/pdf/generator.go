package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/tverlinden/sla-service/internal/model"
)

// Generator renders a WorkOrderDocument to PDF. It is the print/export side
// of the pipeline; content decisions are made by the document package.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(doc model.WorkOrderDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, doc.Header.CompanyName, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, "WORK ORDER - SERVICE LEVEL AGREEMENT", "", 1, "L", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", formatDate(doc.Header.Date)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Ref: %s", safeValue(doc.Header.Reference)), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	addBlock(pdf, g.fontName, "Client location", []string{
		doc.Client.ClientName,
		doc.Client.Location,
		doc.Client.City,
	})
	pdf.Ln(2)
	addBlock(pdf, g.fontName, "Contact", []string{
		safeValue(doc.Contact.ContactName),
		fmt.Sprintf("Category: %s", doc.Contact.Category),
	})
	pdf.Ln(4)

	switch doc.Body.Kind {
	case model.BodyChecklist:
		g.writeChecklist(pdf, doc.Body.Rows)
	default:
		g.writeReport(pdf, doc.Body.Report)
	}

	pdf.Ln(8)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("For the executor: %s", doc.Signature.ExecutorName), "", 1, "L", false, 0, "")
	signer := doc.Signature.SignerName
	if signer == "" {
		signer = "(no name)"
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("For the client: ______________________ /%s/", signer), "", 1, "L", false, 0, "")
	if doc.Signature.SignatureRef != "" {
		pdf.SetFont(g.fontName, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Signature on file: %s", doc.Signature.SignatureRef), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeChecklist(pdf *gofpdf.Fpdf, rows []model.DocumentRow) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Door list & performed checks", "", 1, "L", false, 0, "")

	headers := []string{"Door / Zone", "Battery", "Rights", "Firmware", "Remark"}
	colWidths := []float64{60, 22, 22, 22, 54}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	if len(rows) == 0 {
		pdf.SetFont(g.fontName, "I", 10)
		pdf.CellFormat(0, 8, "No doors in list.", "1", 1, "L", false, 0, "")
		return
	}

	for _, row := range rows {
		name := row.Name
		if row.Zone != "" {
			name = fmt.Sprintf("%s (%s)", row.Name, row.Zone)
		}
		cells := []string{
			name,
			checkMark(row.CheckBattery),
			checkMark(row.CheckRights),
			checkMark(row.CheckFirmware),
			row.Remark,
		}
		drawTableRow(pdf, g.fontName, cells, colWidths, false)
	}
}

func (g *Generator) writeReport(pdf *gofpdf.Fpdf, report string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Work performed", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, report, "1", "L", false)
}

func addBlock(pdf *gofpdf.Fpdf, fontName, title string, lines []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i > 0 && i < len(cols)-1 {
			align = "C"
		}
		pdf.CellFormat(widths[i], 7, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func checkMark(checked bool) string {
	if checked {
		return "X"
	}
	return "-"
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
