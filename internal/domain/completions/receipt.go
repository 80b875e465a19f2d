package completions

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"quickshift/internal/domain/auth"
)

// Receipt renders the employer-facing PDF receipt. Only the owner and admins may fetch it.
func (s *Service) Receipt(ctx context.Context, viewer auth.UserContext, id string) ([]byte, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !(viewer.Role == auth.RoleEmployer && c.EmployerID == viewer.SubjectID) {
		return nil, ErrForbidden
	}
	return RenderReceipt(c)
}

func RenderReceipt(c Completion) ([]byte, error) {
	currency := strings.ToUpper(c.Currency)
	money := func(v float64) string {
		return fmt.Sprintf("%.2f %s", v, currency)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "QuickShift receipt")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Receipt: %s", c.ID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Gig: %s", c.GigTitle))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Issued: %s", c.CreatedAt.Format("2006-01-02")))
	pdf.Ln(6)
	if c.PaidAt != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Paid: %s", c.PaidAt.Format("2006-01-02 15:04 MST")))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s / payment %s", c.Status, c.PaymentStatus))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, "Worker", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Hours", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Payout", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, w := range c.Workers {
		hours := 0.0
		for _, e := range w.TimeEntries {
			hours += e.Hours
		}
		name := w.WorkerName
		if name == "" {
			name = w.UserID
		}
		pdf.CellFormat(80, 7, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", hours), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, money(w.Amount), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, w.Status, "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	lines := []struct {
		label string
		value float64
	}{
		{"Worker pay", c.TotalAmount},
		{"Service fee", c.ServiceFee},
		{"Tax", c.Tax},
	}
	for _, line := range lines {
		pdf.CellFormat(145, 7, line.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(line.value), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(145, 8, "Total charged", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(c.TotalCharge), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
