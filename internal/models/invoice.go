package models

import "time"

// ClientInfo is embedded in Invoice; unknown fields default to "N/A" at
// reconciliation time, never NULL.
type ClientInfo struct {
	Name    string `gorm:"column:client_name" json:"name"`
	Address string `gorm:"column:client_address" json:"address"`
	Email   string `gorm:"column:client_email" json:"email"`
}

// LineItem ids are unique within one invoice only, hence the composite key.
type LineItem struct {
	ID          int64   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	InvoiceID   string  `gorm:"primaryKey;size:64" json:"-"`
	Description string  `gorm:"not null" json:"description"`
	Quantity    float64 `gorm:"not null" json:"quantity"`
	Price       float64 `gorm:"not null" json:"price"`
}

// Invoice is the durable artifact of both the classic form and the
// conversational flow. Dates are stored as YYYY-MM-DD strings; DueDate may be
// empty (unset). An invoice always carries at least one line item.
type Invoice struct {
	ID            string     `gorm:"primaryKey;size:64" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"-"`
	InvoiceNumber string     `gorm:"not null;index" json:"invoiceNumber"`
	InvoiceDate   string     `gorm:"not null" json:"invoiceDate"`
	DueDate       string     `json:"dueDate"`
	ClientInfo    ClientInfo `gorm:"embedded" json:"clientInfo"`
	LineItems     []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lineItems"`
	CreatedAt     time.Time  `json:"-"`
	UpdatedAt     time.Time  `json:"-"`
}
