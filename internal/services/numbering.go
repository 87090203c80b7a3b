package services

import (
	"fmt"
	"strconv"

	"github.com/facturevox/facturevox/internal/models"
)

// NextInvoiceNumber returns max existing number + 1, zero-padded to at least
// three digits. A per-user monotonic counter derived from the stored set;
// numbers that do not parse as decimals are skipped.
func NextInvoiceNumber(existing []models.Invoice) string {
	max := 0
	for _, inv := range existing {
		if n, err := strconv.Atoi(inv.InvoiceNumber); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%03d", max+1)
}
