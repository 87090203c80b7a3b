package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/facturevox/facturevox/internal/models"
)

// ErrLastInvoice rejects deleting the sole remaining invoice of a user.
var ErrLastInvoice = errors.New("cannot delete the last remaining invoice")

// InvoiceStore is the persistence collaborator: per-user document-style
// reads and full-overwrite writes.
type InvoiceStore struct {
	DB *gorm.DB
}

func NewInvoiceStore(db *gorm.DB) *InvoiceStore { return &InvoiceStore{DB: db} }

// GetInvoices returns the user's invoices ordered by invoice number
// descending. Numbers are zero-padded, so string order matches numeric order.
func (s *InvoiceStore) GetInvoices(ctx context.Context, userID uint) ([]models.Invoice, error) {
	var invs []models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("LineItems").
		Where("user_id = ?", userID).
		Order("invoice_number desc").
		Find(&invs).Error
	return invs, err
}

// GetInvoice loads one invoice scoped to the user.
func (s *InvoiceStore) GetInvoice(ctx context.Context, userID uint, id string) (models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("LineItems").
		Where("user_id = ? AND id = ?", userID, id).
		First(&inv).Error
	return inv, err
}

// SaveInvoice persists the invoice as a full-document overwrite keyed by its
// id: the row is upserted and the line item set replaced wholesale. Writing
// the same content twice is a no-op observable-wise, which is what lets the
// autosave coordinator re-save without dirty tracking per field.
func (s *InvoiceStore) SaveInvoice(ctx context.Context, userID uint, inv models.Invoice) error {
	inv.UserID = userID
	items := inv.LineItems
	for i := range items {
		items[i].InvoiceID = inv.ID
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := inv
		row.LineItems = nil
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// DeleteInvoice removes an invoice unless it is the user's last one.
// The guard runs inside the transaction so no partial state change occurs.
func (s *InvoiceStore) DeleteInvoice(ctx context.Context, userID uint, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastInvoice
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&models.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// NextInvoiceNumber computes the user's next number from the stored set.
func (s *InvoiceStore) NextInvoiceNumber(ctx context.Context, userID uint) (string, error) {
	var invs []models.Invoice
	if err := s.DB.WithContext(ctx).
		Select("invoice_number").
		Where("user_id = ?", userID).
		Find(&invs).Error; err != nil {
		return "", err
	}
	return NextInvoiceNumber(invs), nil
}

// GetCompanyInfo returns the user's company record, or nil when none exists.
func (s *InvoiceStore) GetCompanyInfo(ctx context.Context, userID uint) (*models.CompanyInfo, error) {
	var info models.CompanyInfo
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveCompanyInfo upserts the single company record per user.
func (s *InvoiceStore) SaveCompanyInfo(ctx context.Context, userID uint, info models.CompanyInfo) error {
	info.UserID = userID
	var existing models.CompanyInfo
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DB.WithContext(ctx).Create(&info).Error
	}
	if err != nil {
		return err
	}
	info.ID = existing.ID
	info.CreatedAt = existing.CreatedAt
	return s.DB.WithContext(ctx).Save(&info).Error
}
