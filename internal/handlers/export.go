package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/facturevox/facturevox/auth"
	"github.com/facturevox/facturevox/httpx"
	"github.com/facturevox/facturevox/internal/chat"
	"github.com/facturevox/facturevox/internal/email"
	"github.com/facturevox/facturevox/internal/pdf"
	"github.com/facturevox/facturevox/internal/services"
)

// ExportHandler produces the outbound artifacts: PDF downloads and
// prefilled email payloads.
type ExportHandler struct {
	Store   *services.InvoiceStore
	PDF     *pdf.Generator
	Drafter *chat.Drafter
	Taxes   *services.TaxService
}

func NewExportHandler(store *services.InvoiceStore, drafter *chat.Drafter) *ExportHandler {
	return &ExportHandler{Store: store, PDF: pdf.NewGenerator(), Drafter: drafter, Taxes: services.NewTaxService()}
}

// PDF: GET /api/invoices/pdf?id=... streams the rendered document.
func (h *ExportHandler) PDFDownload(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Store.GetInvoice(r.Context(), uid, r.URL.Query().Get("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	company, err := h.Store.GetCompanyInfo(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_company", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=facture-%s.pdf", inv.InvoiceNumber))
	if err := h.PDF.Render(w, inv, company); err != nil {
		// headers already went out; nothing better to do than log-free abort
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_failed", nil)
	}
}

// Email: GET /api/invoices/email?id=... returns the prefilled mail payload.
// The body is drafted by the model when available, otherwise the static
// fallback is used; drafting failures never fail the request.
func (h *ExportHandler) Email(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Store.GetInvoice(r.Context(), uid, r.URL.Query().Get("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	company, err := h.Store.GetCompanyInfo(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_company", nil)
		return
	}

	body := ""
	if h.Drafter != nil {
		companyName := ""
		if company != nil {
			companyName = company.Name
		}
		total := h.Taxes.ComputeTotals(&inv).Total
		if drafted, err := h.Drafter.EmailBody(r.Context(), inv.ClientInfo.Name, inv.InvoiceNumber, companyName, total); err == nil {
			body = drafted
		}
	}
	httpx.JSON(w, http.StatusOK, email.Build(inv, company, body))
}
