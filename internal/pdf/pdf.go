package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/facturevox/facturevox/internal/models"
	"github.com/facturevox/facturevox/internal/services"
)

// Generator renders invoices as A4 PDF documents.
type Generator struct {
	taxes *services.TaxService
}

func NewGenerator() *Generator {
	return &Generator{taxes: services.NewTaxService()}
}

// Render writes the invoice as a PDF. company may be nil when the user has
// not filled in their settings yet.
func (g *Generator) Render(w io.Writer, inv models.Invoice, company *models.CompanyInfo) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	if company != nil && company.Logo != "" {
		drawLogo(pdf, company.Logo)
	}

	// company block
	pdf.SetFont("Helvetica", "B", 16)
	name := "Votre entreprise"
	if company != nil && company.Name != "" {
		name = company.Name
	}
	pdf.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if company != nil {
		for _, line := range []string{company.Address, company.Phone, company.Email} {
			if line != "" {
				pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
			}
		}
	}
	pdf.Ln(6)

	// title and metadata
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 10, "FACTURE", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Facture no %s", inv.InvoiceNumber)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Date : %s", inv.InvoiceDate)), "", 1, "R", false, 0, "")
	if inv.DueDate != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Échéance : %s", inv.DueDate)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// client block
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr("Facturé à :"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(inv.ClientInfo.Name), "", 1, "L", false, 0, "")
	for _, line := range []string{inv.ClientInfo.Address, inv.ClientInfo.Email} {
		if line != "" && line != "N/A" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(8)

	// items table
	const (
		descW = 95
		qtyW  = 20
		prcW  = 32
		amtW  = 33
	)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(descW, 8, tr("Description"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyW, 8, tr("Qté"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(prcW, 8, tr("Prix unitaire"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(amtW, 8, tr("Montant"), "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range inv.LineItems {
		pdf.CellFormat(descW, 7, tr(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(qtyW, 7, trimQty(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(prcW, 7, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(amtW, 7, money(it.Quantity*it.Price), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// totals
	tot := g.taxes.ComputeTotals(&inv)
	labelW := float64(descW + qtyW)
	totalsRow := func(label string, amount float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 7, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(prcW, 7, tr(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(amtW, 7, money(amount), "", 1, "R", false, 0, "")
	}
	totalsRow("Sous-total", tot.Subtotal, false)
	totalsRow("TPS (5%)", tot.GST, false)
	totalsRow("TVQ (9.975%)", tot.QST, false)
	totalsRow("Total", tot.Total, true)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, tr("Merci de votre confiance!"), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

func money(v float64) string { return fmt.Sprintf("%.2f $", v) }

func trimQty(q float64) string {
	s := fmt.Sprintf("%.2f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// drawLogo embeds a data-URL image at the top right. Anything unparseable
// is skipped; the logo is cosmetic.
func drawLogo(pdf *gofpdf.Fpdf, dataURL string) {
	var kind string
	switch {
	case strings.HasPrefix(dataURL, "data:image/png;base64,"):
		kind = "PNG"
	case strings.HasPrefix(dataURL, "data:image/jpeg;base64,"):
		kind = "JPEG"
	default:
		return
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[strings.Index(dataURL, ",")+1:])
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: kind}
	pdf.RegisterImageOptionsReader("company-logo", opts, bytes.NewReader(raw))
	if pdf.Err() {
		return
	}
	pdf.ImageOptions("company-logo", 165, 15, 30, 0, false, opts, 0, "")
}
