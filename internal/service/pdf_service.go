package service

import (
	"bytes"
	"context"
	"fmt"

	"estimator/internal/repository"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

// PDFService renders a read-only estimate document for sending to the client.
// It consumes the finalized estimate + line items snapshot and never mutates
// anything.
type PDFService interface {
	Render(ctx context.Context, estimateID string) ([]byte, string, error)
}

type pdfService struct {
	estimateRepo repository.EstimateRepository
}

func NewPDFService(estimateRepo repository.EstimateRepository) PDFService {
	return &pdfService{estimateRepo: estimateRepo}
}

// Render returns the PDF bytes and a suggested file name.
func (s *pdfService) Render(ctx context.Context, estimateID string) ([]byte, string, error) {
	eid, err := uuid.Parse(estimateID)
	if err != nil {
		return nil, "", fmt.Errorf("invalid estimate id: %w", err)
	}

	estimate, err := s.estimateRepo.FindByIDWithItems(ctx, eid)
	if err != nil {
		return nil, "", fmt.Errorf("estimate not found: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)

	// Header
	pdf.Cell(120, 10, fmt.Sprintf("Estimate %s", estimate.EstimateNumber))
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 10, fmt.Sprintf("v%d / %s", estimate.Version, estimate.Status))
	pdf.Ln(12)

	// Client block
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Client:")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(95, 6, estimate.ClientName)
	pdf.Ln(6)
	if estimate.ClientPhone != "" {
		pdf.Cell(95, 6, estimate.ClientPhone)
		pdf.Ln(6)
	}
	if estimate.ClientAddress != "" {
		pdf.Cell(95, 6, estimate.ClientAddress)
		pdf.Ln(6)
	}
	if estimate.ValidUntil != nil {
		pdf.Cell(95, 6, "Valid until: "+estimate.ValidUntil.Format("2006-01-02"))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	// Line items table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 7, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(15, 7, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 7, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range estimate.LineItems {
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", item.Position), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, item.Quantity.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(15, 6, item.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, item.LineTotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	// Totals block
	totals := []struct {
		label string
		value string
	}{
		{"Subtotal", estimate.Subtotal.StringFixed(2)},
		{"Tax", estimate.TaxAmount.StringFixed(2)},
		{"Extra fees", estimate.ExtraFees.StringFixed(2)},
		{"Total", estimate.Total.StringFixed(2)},
		{"Deposit", estimate.DepositDue.StringFixed(2)},
		{"Balance due", estimate.BalanceDue.StringFixed(2)},
	}
	for _, row := range totals {
		pdf.SetFont("Arial", "", 10)
		if row.label == "Total" || row.label == "Balance due" {
			pdf.SetFont("Arial", "B", 10)
		}
		pdf.CellFormat(125, 6, "", "", 0, "", false, 0, "")
		pdf.CellFormat(30, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, row.value+" "+estimate.Currency, "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if estimate.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, estimate.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render pdf: %w", err)
	}

	fileName := fmt.Sprintf("%s.pdf", estimate.EstimateNumber)
	return buf.Bytes(), fileName, nil
}
