package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

// InvoicePDFFileName is the default file name for an invoice's PDF.
func InvoicePDFFileName(invoiceNumber string) string {
	return sanitizeFileName(fmt.Sprintf("invoice_%s.pdf", invoiceNumber))
}

// WriteInvoicePDF renders the stored invoice to w.
func (s *BillingService) WriteInvoicePDF(ctx context.Context, invoiceNumber string, w io.Writer) error {
	inv, err := s.GetInvoice(ctx, invoiceNumber)
	if err != nil {
		return fmt.Errorf("failed to get invoice %s: %w", invoiceNumber, err)
	}
	project, err := s.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return err
	}
	client, err := s.db.GetClientByName(ctx, project.ClientName)
	if err != nil {
		return fmt.Errorf("failed to get client details for %s: %w", project.ClientName, err)
	}

	pdf := s.renderInvoice(inv, project, client)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice %s: %w", invoiceNumber, err)
	}
	return nil
}

func (s *BillingService) renderInvoice(inv *models.Invoice, project *models.Project, client *models.Client) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inv.InvoiceNumber, false)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)

	pdf.Cell(40, 10, fmt.Sprintf("Invoice %s - %s", inv.InvoiceNumber, formatClientName(client.Name)))
	pdf.Ln(12)

	if client.CompanyName != nil || client.ContactName != nil || client.Address != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 8, "Bill To:")
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 11)
		leftColY := pdf.GetY()
		for _, line := range []*string{client.CompanyName, client.ContactName, client.Address} {
			if line != nil {
				pdf.Cell(95, 6, *line)
				pdf.Ln(6)
			}
		}
		leftColEnd := pdf.GetY()

		pdf.SetXY(105, leftColY)
		if client.Email != nil {
			pdf.Cell(85, 6, fmt.Sprintf("Email: %s", *client.Email))
			pdf.SetXY(105, pdf.GetY()+6)
		}
		if client.Phone != nil {
			pdf.Cell(85, 6, fmt.Sprintf("Phone: %s", *client.Phone))
			pdf.SetXY(105, pdf.GetY()+6)
		}
		if client.TaxNumber != nil {
			pdf.Cell(85, 6, fmt.Sprintf("Tax Number: %s", *client.TaxNumber))
			pdf.SetXY(105, pdf.GetY()+6)
		}

		pdf.SetXY(10, max(leftColEnd, pdf.GetY()))
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(40, 6, fmt.Sprintf("Project: %s", project.Name))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Issued: %s    Due: %s    Status: %s",
		inv.CreatedAt.Format(time.DateOnly), inv.DueDate.Format(time.DateOnly), inv.Status))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Period: %s to %s", inv.PeriodStart.Format(time.DateOnly), inv.PeriodEnd.Format(time.DateOnly)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(100, 8, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Amount", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, item := range inv.LineItems {
		lines := wrapDescriptionText(item.Description, 55)
		rowHeight := float64(max(len(lines), 1)) * 6

		x, y := pdf.GetXY()
		pdf.Rect(x, y, 100, rowHeight, "D")
		for i, line := range lines {
			pdf.SetXY(x+1, y+float64(i)*6)
			pdf.Cell(98, 6, line)
		}
		pdf.SetXY(x+100, y)
		pdf.CellFormat(20, rowHeight, item.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, rowHeight, money.Format(item.UnitPrice, ""), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, rowHeight, money.Format(item.Amount, ""), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 11)
	totals := []struct {
		label  string
		amount string
	}{
		{"Subtotal:", money.Format(inv.Amount, "")},
		{"Discount:", "-" + money.Format(inv.Discount, "")},
		{"Tax:", money.Format(inv.Tax, "")},
	}
	for _, t := range totals {
		pdf.Cell(155, 8, t.label)
		pdf.CellFormat(35, 8, t.amount, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(155, 10, "Total:")
	pdf.CellFormat(35, 10, money.Format(inv.Total, inv.Currency), "", 1, "R", false, 0, "")

	if inv.Notes != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(190, 5, *inv.Notes, "", "L", false)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Payment Details:")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(40, 6, fmt.Sprintf("Bank: %s", s.cfg.BillingBank))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Account Name: %s", s.cfg.BillingAccountName))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Account Number: %s", s.cfg.BillingAccountNumber))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("BSB: %s", s.cfg.BillingBSB))
	pdf.Ln(6)

	return pdf
}

func sanitizeFileName(fileName string) string {
	var b strings.Builder
	for _, r := range fileName {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// formatClientName converts snake_case to Capitalized Case With Spaces.
func formatClientName(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

func wrapDescriptionText(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var lines []string
	var currentLine string
	for _, word := range strings.Fields(text) {
		testLine := currentLine
		if testLine != "" {
			testLine += " "
		}
		testLine += word

		if len(testLine) <= maxChars {
			currentLine = testLine
			continue
		}
		if currentLine != "" {
			lines = append(lines, currentLine)
		}
		currentLine = word
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}
