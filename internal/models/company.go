package models

import "time"

// CompanyInfo holds the invoice issuer's identity, one record per user,
// loaded once and saved wholesale from the settings screen.
type CompanyInfo struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"-"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Logo      string    `gorm:"type:text" json:"logo"` // data URL of the uploaded logo
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
