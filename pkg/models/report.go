package models

import "time"

// Report is one audit entry recording a restock that changed an inventory
// item's quantity.
type Report struct {
	ID              int       `db:"id" json:"id"`
	InventoryItemID int       `db:"inventory_item_id" json:"inventory_item_id"`
	SKU             string    `db:"sku" json:"sku"`
	OldQuantity     int       `db:"old_quantity" json:"old_quantity"`
	NewQuantity     int       `db:"new_quantity" json:"new_quantity"`
	CreatedBy       int       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
