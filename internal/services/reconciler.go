package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/facturevox/facturevox/internal/models"
)

// Reconciler converts raw create_invoice tool-call arguments into a valid
// Invoice. The input comes straight from the language model and is untrusted:
// every field may be missing, empty or of the wrong type. This is the only
// defensive-parsing boundary against the model's output, so the result must
// always satisfy the invoice invariants (non-empty number, at least one line
// item, non-empty client fields).
type Reconciler struct {
	now   func() time.Time
	newID func() string
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		now:   time.Now,
		newID: func() string { return "inv_" + uuid.NewString() },
	}
}

// Reconcile builds an invoice from raw tool-call arguments. invoiceNumber is
// assigned by the caller from the user's invoice set (max existing + 1);
// an empty value falls back to "001".
func (r *Reconciler) Reconcile(raw json.RawMessage, invoiceNumber string) models.Invoice {
	var args map[string]any
	// A decode failure leaves args nil; defaults below cover it.
	_ = json.Unmarshal(raw, &args)

	if invoiceNumber == "" {
		invoiceNumber = "001"
	}
	now := r.now()
	inv := models.Invoice{
		ID:            r.newID(),
		InvoiceNumber: invoiceNumber,
		InvoiceDate:   now.Format("2006-01-02"),
		DueDate:       asString(args["dueDate"], ""),
		ClientInfo: models.ClientInfo{
			Name:    asString(args["clientName"], "N/A"),
			Address: asString(args["clientAddress"], "N/A"),
			Email:   asString(args["clientEmail"], "N/A"),
		},
	}

	items, _ := args["lineItems"].([]any)
	base := now.UnixMilli()
	for i, rawItem := range items {
		m, _ := rawItem.(map[string]any)
		inv.LineItems = append(inv.LineItems, models.LineItem{
			ID:          base + int64(i),
			InvoiceID:   inv.ID,
			Description: asString(m["description"], "Article"),
			Quantity:    asFloat(m["quantity"], 1),
			Price:       asFloat(m["price"], 0),
		})
	}
	if len(inv.LineItems) == 0 {
		inv.LineItems = []models.LineItem{{
			ID:          base,
			InvoiceID:   inv.ID,
			Description: "Service",
			Quantity:    1,
			Price:       0,
		}}
	}
	return inv
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func asFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return n
		}
	case string:
		// The model occasionally quotes numbers; tolerate it.
		var f float64
		if err := json.Unmarshal([]byte(n), &f); err == nil && f > 0 {
			return f
		}
	}
	// Zero, negative and non-numeric values all fall back to the default.
	return def
}
