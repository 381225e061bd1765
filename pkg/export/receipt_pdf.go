package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/complyvault/evidence-api/internal/models"
)

// ReceiptRenderer produces the PDF seal receipt for a sealed evidence record.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render creates the receipt document: identity, hashes, trust, retention and
// the full state history.
func (r *ReceiptRenderer) Render(evidence *models.SealedEvidence) ([]byte, error) {
	if evidence == nil {
		return nil, fmt.Errorf("receipt requires a sealed evidence record")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "EVIDENCE SEAL RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	rows := [][2]string{
		{"Evidence ID", evidence.ID},
		{"Draft ID", evidence.DraftID},
		{"Dataset Type", string(evidence.DatasetType)},
		{"Ledger State", string(evidence.LedgerState)},
		{"Trust Level", string(evidence.TrustLevel)},
		{"Review Status", string(evidence.ReviewStatus)},
		{"Payload Hash", evidence.PayloadHash},
		{"Metadata Hash", evidence.MetadataHash},
		{"Sealed By", evidence.SealedBy},
		{"Sealed At", evidence.SealedAt.UTC().Format(time.RFC3339)},
		{"Retention Policy", string(evidence.RetentionPolicy)},
		{"Retention End", evidence.RetentionEnd.UTC().Format("2006-01-02")},
	}
	if evidence.ExternalReferenceID != nil {
		rows = append(rows, [2]string{"External Reference", *evidence.ExternalReferenceID})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(45, 7, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(145, 7, row[1], "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	if len(evidence.StateHistory) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, "State History", "", 1, "", false, 0, "")

		pdf.SetFont("Arial", "B", 9)
		for _, header := range []string{"From", "To", "Reason", "Actor", "At"} {
			pdf.CellFormat(38, 7, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for _, change := range evidence.StateHistory {
			pdf.CellFormat(38, 7, string(change.From), "1", 0, "", false, 0, "")
			pdf.CellFormat(38, 7, string(change.To), "1", 0, "", false, 0, "")
			pdf.CellFormat(38, 7, change.Reason, "1", 0, "", false, 0, "")
			pdf.CellFormat(38, 7, change.Actor, "1", 0, "", false, 0, "")
			pdf.CellFormat(38, 7, change.At.UTC().Format("2006-01-02 15:04"), "1", 0, "", false, 0, "")
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
