package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// ReceiptPDF renders a payment receipt document.
func (e *PDFExporter) ReceiptPDF(receipt models.Receipt, institution string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	if institution != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, institution, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "FEE PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt No.", receipt.ReceiptNumber},
		{"Date", receipt.PaymentDate.Format("2006-01-02 15:04")},
		{"Student ID", receipt.StudentID},
		{"Amount Paid", fmt.Sprintf("%.2f", receipt.Amount)},
		{"Method", receipt.PaymentMethod},
		{"Collected By", receipt.CollectedBy},
		{"Total Fee", fmt.Sprintf("%.2f", receipt.Ledger.TotalAmount)},
		{"Paid To Date", fmt.Sprintf("%.2f", receipt.Ledger.PaidAmount)},
		{"Discount", fmt.Sprintf("%.2f", receipt.Ledger.DiscountAmount)},
		{"Waiver", fmt.Sprintf("%.2f", receipt.Ledger.WaiverAmount)},
		{"Balance Due", fmt.Sprintf("%.2f", receipt.Ledger.DueAmount)},
		{"Status", string(receipt.Ledger.Status)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(45, 7, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 7, row[1], "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
