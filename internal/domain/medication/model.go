package medication

import (
	"time"

	"github.com/google/uuid"
)

// LowStockThreshold is the stock level below which a medication is flagged.
const LowStockThreshold = 20

const (
	StatusOrderRequested = "order requested"
	StatusLowStock       = "low stock"
	StatusInStock        = "in stock"
)

// Defaults given to catalog entries created from prescription items.
const (
	DefaultCategory = "General"
	DefaultForm     = "Other"
)

// StatusForStock derives the inventory status from a stock level. Every
// write path calls it so a stored status never disagrees with its stock.
func StatusForStock(stock int) string {
	switch {
	case stock <= 0:
		return StatusOrderRequested
	case stock < LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Medication maps to the medications table.
type Medication struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"-"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Form        string    `db:"form" json:"form"`
	Stock       int       `db:"stock" json:"stock"`
	Price       float64   `db:"price" json:"price"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the item should appear in the low-stock filter.
func (m *Medication) LowStock() bool {
	return m.Stock < LowStockThreshold
}

// CatalogItem is a medication as named on a prescription.
type CatalogItem struct {
	Name   string
	Dosage string
}
