package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/facturevox/facturevox/internal/models"
)

func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.CompanyInfo{}, &models.Invoice{}, &models.LineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleInvoice(id, number string) models.Invoice {
	return models.Invoice{
		ID:            id,
		InvoiceNumber: number,
		InvoiceDate:   "2025-06-16",
		ClientInfo:    models.ClientInfo{Name: "Jean Dupont", Address: "N/A", Email: "N/A"},
		LineItems: []models.LineItem{
			{ID: 1, Description: "Plomberie", Quantity: 1, Price: 500},
		},
	}
}

func TestSaveAndGetInvoices(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()

	if err := store.SaveInvoice(ctx, 1, sampleInvoice("inv_a", "001")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveInvoice(ctx, 1, sampleInvoice("inv_b", "002")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// another user's invoice must not leak into the listing
	if err := store.SaveInvoice(ctx, 2, sampleInvoice("inv_c", "009")); err != nil {
		t.Fatalf("save: %v", err)
	}

	invs, err := store.GetInvoices(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(invs) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(invs))
	}
	if invs[0].InvoiceNumber != "002" || invs[1].InvoiceNumber != "001" {
		t.Fatalf("expected invoice_number desc, got %s then %s", invs[0].InvoiceNumber, invs[1].InvoiceNumber)
	}
	if len(invs[0].LineItems) != 1 {
		t.Fatalf("line items not preloaded: %+v", invs[0])
	}
}

// Saving identical content twice must leave the persisted state unchanged.
func TestSaveInvoiceIdempotent(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()
	inv := sampleInvoice("inv_a", "001")

	if err := store.SaveInvoice(ctx, 1, inv); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, err := store.GetInvoice(ctx, 1, "inv_a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.SaveInvoice(ctx, 1, inv); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := store.GetInvoice(ctx, 1, "inv_a")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	first.CreatedAt, first.UpdatedAt = second.CreatedAt, second.UpdatedAt
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("persisted state changed:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSaveInvoiceOverwritesLineItems(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()
	inv := sampleInvoice("inv_a", "001")
	if err := store.SaveInvoice(ctx, 1, inv); err != nil {
		t.Fatalf("save: %v", err)
	}

	inv.LineItems = []models.LineItem{
		{ID: 10, Description: "Déneigement", Quantity: 3, Price: 75},
		{ID: 11, Description: "Sel", Quantity: 1, Price: 12.5},
	}
	if err := store.SaveInvoice(ctx, 1, inv); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := store.GetInvoice(ctx, 1, "inv_a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.LineItems) != 2 {
		t.Fatalf("expected replaced item set, got %+v", got.LineItems)
	}
	if got.LineItems[0].Description == "Plomberie" || got.LineItems[1].Description == "Plomberie" {
		t.Fatalf("old items survived the overwrite: %+v", got.LineItems)
	}
}

func TestDeleteInvoiceGuardsLastOne(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()
	if err := store.SaveInvoice(ctx, 1, sampleInvoice("inv_a", "001")); err != nil {
		t.Fatalf("save: %v", err)
	}

	err := store.DeleteInvoice(ctx, 1, "inv_a")
	if !errors.Is(err, ErrLastInvoice) {
		t.Fatalf("expected ErrLastInvoice, got %v", err)
	}
	// collection unchanged
	invs, _ := store.GetInvoices(ctx, 1)
	if len(invs) != 1 {
		t.Fatalf("collection changed after rejected delete: %d", len(invs))
	}

	if err := store.SaveInvoice(ctx, 1, sampleInvoice("inv_b", "002")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteInvoice(ctx, 1, "inv_a"); err != nil {
		t.Fatalf("delete with two invoices: %v", err)
	}
	invs, _ = store.GetInvoices(ctx, 1)
	if len(invs) != 1 || invs[0].ID != "inv_b" {
		t.Fatalf("unexpected remainder: %+v", invs)
	}
}

func TestDeleteInvoiceUnknownID(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()
	_ = store.SaveInvoice(ctx, 1, sampleInvoice("inv_a", "001"))
	_ = store.SaveInvoice(ctx, 1, sampleInvoice("inv_b", "002"))
	if err := store.DeleteInvoice(ctx, 1, "inv_zzz"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNextInvoiceNumberFromStore(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()
	n, err := store.NextInvoiceNumber(ctx, 1)
	if err != nil || n != "001" {
		t.Fatalf("empty set: %s err=%v", n, err)
	}
	_ = store.SaveInvoice(ctx, 1, sampleInvoice("inv_a", "041"))
	n, err = store.NextInvoiceNumber(ctx, 1)
	if err != nil || n != "042" {
		t.Fatalf("expected 042, got %s err=%v", n, err)
	}
}

func TestCompanyInfoRoundTrip(t *testing.T) {
	store := NewInvoiceStore(setupStoreDB(t))
	ctx := context.Background()

	info, err := store.GetCompanyInfo(ctx, 1)
	if err != nil || info != nil {
		t.Fatalf("expected nil for missing record, got %+v err=%v", info, err)
	}

	if err := store.SaveCompanyInfo(ctx, 1, models.CompanyInfo{Name: "Plomberie Tremblay", Email: "info@tremblay.ca"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err = store.GetCompanyInfo(ctx, 1)
	if err != nil || info == nil || info.Name != "Plomberie Tremblay" {
		t.Fatalf("load: %+v err=%v", info, err)
	}

	// wholesale overwrite keeps a single record
	if err := store.SaveCompanyInfo(ctx, 1, models.CompanyInfo{Name: "Plomberie Tremblay inc.", Phone: "514-555-0199"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	var count int64
	store.DB.Model(&models.CompanyInfo{}).Where("user_id = ?", 1).Count(&count)
	if count != 1 {
		t.Fatalf("expected single record, got %d", count)
	}
	info, _ = store.GetCompanyInfo(ctx, 1)
	if info.Name != "Plomberie Tremblay inc." || info.Phone != "514-555-0199" {
		t.Fatalf("overwrite lost fields: %+v", info)
	}
}
