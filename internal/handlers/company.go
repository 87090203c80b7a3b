package handlers

import (
	"net/http"
	"strings"

	"github.com/facturevox/facturevox/auth"
	"github.com/facturevox/facturevox/httpx"
	"github.com/facturevox/facturevox/internal/models"
	"github.com/facturevox/facturevox/internal/services"
)

// CompanyHandler serves the per-user company settings used on PDF and
// email artifacts.
type CompanyHandler struct {
	Store *services.InvoiceStore
}

func NewCompanyHandler(store *services.InvoiceStore) *CompanyHandler {
	return &CompanyHandler{Store: store}
}

func (h *CompanyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost, http.MethodPut:
		h.save(w, r)
	default:
		w.Header().Set("Allow", "GET,POST,PUT")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *CompanyHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	info, err := h.Store.GetCompanyInfo(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_company", nil)
		return
	}
	if info == nil {
		httpx.JSON(w, http.StatusOK, models.CompanyInfo{})
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *CompanyHandler) save(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var info models.CompanyInfo
	if err := httpx.Decode(r, &info); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	// only data-URL logos are accepted; anything else would end up as a
	// broken image in the PDF
	if info.Logo != "" && !strings.HasPrefix(info.Logo, "data:image/") {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"logo": "invalid"})
		return
	}
	if err := h.Store.SaveCompanyInfo(r.Context(), uid, info); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_company", nil)
		return
	}
	saved, err := h.Store.GetCompanyInfo(r.Context(), uid)
	if err != nil || saved == nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_company", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}
