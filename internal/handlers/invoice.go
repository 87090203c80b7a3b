package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturevox/facturevox/auth"
	"github.com/facturevox/facturevox/httpx"
	"github.com/facturevox/facturevox/i18n"
	"github.com/facturevox/facturevox/internal/autosave"
	"github.com/facturevox/facturevox/internal/models"
	"github.com/facturevox/facturevox/internal/services"
	"github.com/facturevox/facturevox/validation"
)

// InvoiceHandler serves the invoice collection. Writes go through the
// autosave coordinator rather than hitting the store directly, so the
// client sees the same saved/saving/unsaved lifecycle for manual edits
// as for voice-created invoices.
type InvoiceHandler struct {
	Store    *services.InvoiceStore
	Autosave *autosave.Coordinator
	Taxes    *services.TaxService
}

func NewInvoiceHandler(store *services.InvoiceStore, coord *autosave.Coordinator) *InvoiceHandler {
	return &InvoiceHandler{Store: store, Autosave: coord, Taxes: services.NewTaxService()}
}

// invoicePayload is the API shape: the stored invoice plus derived fields
// the client renders but never sends back.
type invoicePayload struct {
	models.Invoice
	Totals services.Totals `json:"totals"`
	Status string          `json:"status"`
}

func (h *InvoiceHandler) payload(userID uint, inv models.Invoice) invoicePayload {
	return invoicePayload{
		Invoice: inv,
		Totals:  h.Taxes.ComputeTotals(&inv),
		Status:  h.Autosave.Status(userID, inv.ID).String(),
	}
}

// List: GET /api/invoices. A brand-new account gets a starter invoice so
// the editor never opens on an empty collection.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	invs, err := h.Store.GetInvoices(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	if len(invs) == 0 {
		starter := starterInvoice()
		if err := h.Store.SaveInvoice(r.Context(), uid, starter); err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
			return
		}
		invs = []models.Invoice{starter}
	}
	out := make([]invoicePayload, 0, len(invs))
	for _, inv := range invs {
		out = append(out, h.payload(uid, inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// Get: GET /api/invoices/get?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	inv, err := h.Store.GetInvoice(r.Context(), uid, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, h.payload(uid, inv))
}

// Create: POST /api/invoices. Allocates the next number and persists a
// blank invoice immediately so the number is claimed.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	number, err := h.Store.NextInvoiceNumber(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	inv := blankInvoice(number)
	if err := h.Store.SaveInvoice(r.Context(), uid, inv); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.payload(uid, inv))
}

// Save: POST /api/invoices/save with the full invoice document. The write
// is validated, then queued on the autosave coordinator.
func (h *InvoiceHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var inv models.Invoice
	if err := httpx.Decode(r, &inv); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	if details := validateInvoice(inv, lang); len(details) > 0 {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", details)
		return
	}
	// the invoice must already belong to this user; saving cannot adopt
	// another user's document
	if _, err := h.Store.GetInvoice(r.Context(), uid, inv.ID); errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	} else if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_invoice", nil)
		return
	}
	h.Autosave.Mark(uid, inv)
	httpx.JSON(w, http.StatusAccepted, h.payload(uid, inv))
}

// Delete: POST /api/invoices/delete {"id": ...}. The last remaining
// invoice cannot be deleted.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var body struct {
		ID string `json:"id"`
	}
	if err := httpx.Decode(r, &body); err != nil || body.ID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	err := h.Store.DeleteInvoice(r.Context(), uid, body.ID)
	switch {
	case errors.Is(err, services.ErrLastInvoice):
		httpx.JSONError(w, http.StatusConflict, "last_invoice", i18n.T(lang, "last_invoice"))
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_invoice", nil)
	default:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// Status: GET /api/invoices/status?id=... reports the autosave state the
// client polls for the saved/saving/unsaved indicator.
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id, "status": h.Autosave.Status(uid, id).String()})
}

func validateInvoice(inv models.Invoice, lang string) map[string]string {
	v := validation.Violations{}
	validation.Required("id", inv.ID, v)
	validation.Required("invoiceNumber", inv.InvoiceNumber, v)
	validation.Required("invoiceDate", inv.InvoiceDate, v)
	validation.Date("invoiceDate", inv.InvoiceDate, v)
	validation.Date("dueDate", inv.DueDate, v)
	if len(inv.LineItems) == 0 {
		v["lineItems"] = "required"
	}
	for i, it := range inv.LineItems {
		prefix := fmt.Sprintf("lineItems.%d.", i)
		validation.Required(prefix+"description", it.Description, v)
		validation.NonNegativeFloat(prefix+"quantity", it.Quantity, v)
		validation.NonNegativeFloat(prefix+"price", it.Price, v)
	}
	if v.Empty() {
		return nil
	}
	out := make(map[string]string, len(v))
	for field, code := range v {
		out[field] = i18n.T(lang, code)
	}
	return out
}

func starterInvoice() models.Invoice {
	inv := blankInvoice("001")
	inv.LineItems[0].Price = 100
	return inv
}

func blankInvoice(number string) models.Invoice {
	id := "inv_" + uuid.NewString()
	now := time.Now()
	return models.Invoice{
		ID:            id,
		InvoiceNumber: number,
		InvoiceDate:   now.Format("2006-01-02"),
		ClientInfo:    models.ClientInfo{Name: "N/A", Address: "N/A", Email: "N/A"},
		LineItems: []models.LineItem{{
			ID:          now.UnixMilli(),
			InvoiceID:   id,
			Description: "Service",
			Quantity:    1,
			Price:       0,
		}},
	}
}
