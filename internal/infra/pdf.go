package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"fabrisys/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateClosingSlipPDF renders the closing slip of a CLOSED session: opening
// float, sales, discounts, declared payments and the variance.
// Receipt-size page (80mm wide), returned as bytes.
func GenerateClosingSlipPDF(s *model.CashSession) ([]byte, error) {
	if s.IsOpen() {
		return nil, fmt.Errorf("pdf: session %s is still open", s.ID)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 140},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.6
	valueW := contentW * 0.4

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Till closing slip", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Session "+s.ID.String(), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, "Location "+s.LocationID.String(), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, "Mode "+string(s.OperatingMode), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.CellFormat(contentW, 4, "Opened "+s.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if s.ClosedAt != nil {
		pdf.CellFormat(contentW, 4, "Closed "+s.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	row := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, v.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Expected ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 8)
	row("Opening float", s.OpeningFloat)
	row("System sales", s.SystemSalesTotal)
	if !s.DiscountTotal.IsZero() {
		row("Discounts", s.DiscountTotal.Neg())
	}
	if s.ExpectedTotal != nil {
		pdf.SetFont("Helvetica", "B", 8)
		row("Expected", *s.ExpectedTotal)
	}

	// ── Declared ──────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 8)
	if s.InformedCash != nil {
		row("Cash", *s.InformedCash)
	}
	if s.InformedPix != nil {
		row("Pix", *s.InformedPix)
	}
	if s.InformedCard != nil {
		row("Card", *s.InformedCard)
	}
	if s.InformedTotal != nil {
		pdf.SetFont("Helvetica", "B", 8)
		row("Declared", *s.InformedTotal)
	}

	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Variance ──────────────────────────────────────────────────────────────
	if s.Variance != nil {
		pdf.SetFont("Helvetica", "B", 10)
		row("VARIANCE", *s.Variance)
	}
	if s.VarianceClass != nil {
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(contentW, 4, "Classification: "+*s.VarianceClass, "", 1, "L", false, 0, "")
	}
	if s.Notes != nil && *s.Notes != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.MultiCell(contentW, 4, *s.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveClosingSlip writes the slip to storagePath/closing_{session}.pdf and
// returns the path. storagePath is created if needed.
func SaveClosingSlip(storagePath string, s *model.CashSession, data []byte) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	path := filepath.Join(storagePath, fmt.Sprintf("closing_%s.pdf", s.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return path, nil
}
