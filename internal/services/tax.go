package services

import "github.com/facturevox/facturevox/internal/models"

// Québec sales taxes, applied to every invoice with no exemptions.
const (
	GSTRate = 0.05    // TPS
	QSTRate = 0.09975 // TVQ
)

// Totals carries the computed amounts consumed by preview, PDF and email.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	GST      float64 `json:"gst"`
	QST      float64 `json:"qst"`
	Total    float64 `json:"total"`
}

// TaxService encapsulates invoice amount computation.
type TaxService struct{}

func NewTaxService() *TaxService { return &TaxService{} }

func (s *TaxService) Subtotal(items []models.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Quantity * it.Price
	}
	return sum
}

// ComputeTotals computes subtotal, TPS, TVQ and grand total for an invoice.
func (s *TaxService) ComputeTotals(inv *models.Invoice) Totals {
	if inv == nil {
		return Totals{}
	}
	sub := s.Subtotal(inv.LineItems)
	gst := sub * GSTRate
	qst := sub * QSTRate
	return Totals{Subtotal: sub, GST: gst, QST: qst, Total: sub + gst + qst}
}
