// Package invoice renders printable invoices and builds share links for
// priced estimates.
package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/mechflow/mechflow-backend/pkg/money"
)

// Filename returns the conventional download name for an estimate's invoice.
func Filename(estimateID string) string {
	return fmt.Sprintf("Invoice_%s.pdf", estimateID)
}

// RenderPDF lays out the invoice document and returns its bytes along with
// the conventional filename.
func RenderPDF(estimate models.Estimate, settings models.Settings) (string, []byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	business := settings.BusinessName
	if business == "" {
		business = "MechFlow"
	}
	symbol := settings.CurrencySymbol

	doc.SetFont("Helvetica", "B", 22)
	doc.SetTextColor(40, 40, 40)
	doc.CellFormat(0, 12, business+" Invoice", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 7, fmt.Sprintf("Invoice ID: %s", estimate.ID), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 7, fmt.Sprintf("Date: %s", estimate.Date), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 7, fmt.Sprintf("Status: %s", strings.ToUpper(string(estimate.Status))), "", 1, "L", false, 0, "")
	doc.Ln(2)
	drawRule(doc)

	y := doc.GetY() + 4
	doc.SetFont("Helvetica", "B", 14)
	doc.Text(20, y, "Bill To:")
	doc.Text(120, y, "Vehicle Service:")
	doc.SetFont("Helvetica", "", 12)
	doc.Text(20, y+8, estimate.Customer)
	doc.Text(20, y+16, "Phone: "+estimate.Phone)
	doc.Text(120, y+8, estimate.Vehicle)
	doc.Text(120, y+16, estimate.Service)
	doc.SetY(y + 22)
	drawRule(doc)
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(130, 8, "Description", "B", 0, "L", false, 0, "")
	doc.CellFormat(0, 8, "Amount", "B", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 12)

	lineItem(doc, "Labor Cost", money.Format(symbol, estimate.LaborCost))
	lineItem(doc, "Parts Cost", money.Format(symbol, estimate.PartsCost))
	if estimate.Discount.IsPositive() {
		lineItem(doc, "Discount", "-"+money.Format(symbol, estimate.Discount))
	}
	lineItem(doc, "Tax", money.Format(symbol, estimate.Tax))
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(130, 10, "Total", "", 0, "R", false, 0, "")
	doc.CellFormat(0, 10, money.Format(symbol, estimate.Amount), "", 1, "R", false, 0, "")

	if estimate.MechanicNotes != "" {
		doc.Ln(8)
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 7, "Mechanic Notes:", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, estimate.MechanicNotes, "", "L", false)
	}

	footer := settings.FooterText
	if footer == "" {
		footer = "Thank you for your business!"
	}
	doc.Ln(12)
	doc.SetFont("Helvetica", "I", 9)
	doc.SetTextColor(150, 150, 150)
	doc.CellFormat(0, 6, footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return "", nil, fmt.Errorf("render invoice %s: %w", estimate.ID, err)
	}
	return Filename(estimate.ID), buf.Bytes(), nil
}

func lineItem(doc *gofpdf.Fpdf, label, amount string) {
	doc.CellFormat(130, 8, label, "", 0, "L", false, 0, "")
	doc.CellFormat(0, 8, amount, "", 1, "R", false, 0, "")
}

func drawRule(doc *gofpdf.Fpdf) {
	y := doc.GetY()
	doc.Line(20, y, 190, y)
}
