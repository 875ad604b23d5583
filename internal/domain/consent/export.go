package consent

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF renders the compliance export as a human-readable PDF for
// download from the privacy settings screen.
func RenderPDF(export *Export) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Consent & Data Export")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Exported: %s", export.ExportDate.Format("2006-01-02 15:04 MST")))
	pdf.Ln(12)

	for _, cfg := range export.Configurations {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, string(cfg.Type))
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Legal basis: %s  Required: %t  Withdrawable: %t", cfg.LegalBasis, cfg.Required, cfg.CanWithdraw))
		pdf.Ln(6)

		history, ok := export.History[cfg.Type]
		if !ok {
			pdf.Cell(0, 6, "No decision recorded")
			pdf.Ln(9)
			continue
		}
		pdf.Cell(0, 6, fmt.Sprintf("Current status: %t  Last updated: %s", history.CurrentStatus, history.LastUpdated.Format("2006-01-02 15:04")))
		pdf.Ln(6)
		for _, record := range history.Records {
			line := fmt.Sprintf("  %s  granted=%t", record.Timestamp.Format("2006-01-02 15:04"), record.Granted)
			if record.WithdrawalReason != "" {
				line += fmt.Sprintf("  reason=%s", record.WithdrawalReason)
			}
			if record.ExpiryDate != nil {
				line += fmt.Sprintf("  expires=%s", record.ExpiryDate.Format("2006-01-02"))
			}
			pdf.Cell(0, 5, line)
			pdf.Ln(5)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
