package services

import (
	"encoding/json"
	"testing"
	"time"
)

func fixedReconciler() *Reconciler {
	n := 0
	return &Reconciler{
		now: func() time.Time { return time.Date(2025, 6, 16, 10, 30, 0, 0, time.UTC) },
		newID: func() string {
			n++
			return "inv_test_" + string(rune('a'+n-1))
		},
	}
}

func TestReconcileWellFormedArgs(t *testing.T) {
	r := fixedReconciler()
	raw := json.RawMessage(`{
		"clientName": "Jean Dupont",
		"clientEmail": "jean@example.com",
		"dueDate": "2025-06-30",
		"lineItems": [{"description": "Plomberie", "quantity": 1, "price": 500}]
	}`)
	inv := r.Reconcile(raw, "004")

	if inv.InvoiceNumber != "004" {
		t.Fatalf("expected number 004, got %s", inv.InvoiceNumber)
	}
	if inv.InvoiceDate != "2025-06-16" {
		t.Fatalf("expected reconciliation-time date, got %s", inv.InvoiceDate)
	}
	if inv.DueDate != "2025-06-30" {
		t.Fatalf("dueDate should pass through, got %s", inv.DueDate)
	}
	if inv.ClientInfo.Name != "Jean Dupont" || inv.ClientInfo.Email != "jean@example.com" {
		t.Fatalf("client info lost: %+v", inv.ClientInfo)
	}
	if inv.ClientInfo.Address != "N/A" {
		t.Fatalf("missing address should default to N/A, got %q", inv.ClientInfo.Address)
	}
	if len(inv.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(inv.LineItems))
	}
	it := inv.LineItems[0]
	if it.Description != "Plomberie" || it.Quantity != 1 || it.Price != 500 {
		t.Fatalf("unexpected item: %+v", it)
	}
}

// Every malformed shape must still yield an invariant-satisfying invoice.
func TestReconcileMalformedArgs(t *testing.T) {
	cases := map[string]string{
		"empty object":      `{}`,
		"null":              `null`,
		"not json":          `garbage`,
		"wrong types":       `{"clientName": 12, "lineItems": "nope", "dueDate": false}`,
		"empty items":       `{"clientName": "X", "lineItems": []}`,
		"items wrong shape": `{"lineItems": [42, "deux", null]}`,
		"falsy fields":      `{"clientName": "", "lineItems": [{"description": "", "quantity": 0, "price": -3}]}`,
	}
	for name, raw := range cases {
		r := fixedReconciler()
		inv := r.Reconcile(json.RawMessage(raw), "002")
		if inv.ID == "" {
			t.Fatalf("%s: empty id", name)
		}
		if inv.InvoiceNumber == "" {
			t.Fatalf("%s: empty invoice number", name)
		}
		if len(inv.LineItems) == 0 {
			t.Fatalf("%s: empty line items", name)
		}
		if inv.ClientInfo.Name == "" || inv.ClientInfo.Address == "" || inv.ClientInfo.Email == "" {
			t.Fatalf("%s: empty client fields: %+v", name, inv.ClientInfo)
		}
		for _, it := range inv.LineItems {
			if it.Description == "" {
				t.Fatalf("%s: empty item description", name)
			}
			if it.Quantity < 0 || it.Price < 0 {
				t.Fatalf("%s: negative item values: %+v", name, it)
			}
		}
	}
}

func TestReconcileDefaultsPlaceholderItem(t *testing.T) {
	r := fixedReconciler()
	inv := r.Reconcile(json.RawMessage(`{"clientName": "Y"}`), "003")
	if len(inv.LineItems) != 1 {
		t.Fatalf("expected placeholder item")
	}
	it := inv.LineItems[0]
	if it.Description != "Service" || it.Quantity != 1 || it.Price != 0 {
		t.Fatalf("unexpected placeholder: %+v", it)
	}
}

func TestReconcileItemIDsUniqueWithinInvoice(t *testing.T) {
	r := fixedReconciler()
	raw := json.RawMessage(`{"lineItems": [
		{"description": "A", "quantity": 1, "price": 10},
		{"description": "B", "quantity": 2, "price": 20},
		{"description": "C", "quantity": 3, "price": 30}
	]}`)
	inv := r.Reconcile(raw, "005")
	seen := map[int64]bool{}
	for _, it := range inv.LineItems {
		if seen[it.ID] {
			t.Fatalf("duplicate item id %d", it.ID)
		}
		seen[it.ID] = true
		if it.InvoiceID != inv.ID {
			t.Fatalf("item not linked to invoice: %+v", it)
		}
	}
}

func TestReconcileEmptyInvoiceNumberFallsBack(t *testing.T) {
	r := fixedReconciler()
	inv := r.Reconcile(json.RawMessage(`{}`), "")
	if inv.InvoiceNumber != "001" {
		t.Fatalf("expected fallback 001, got %s", inv.InvoiceNumber)
	}
}
