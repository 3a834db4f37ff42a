package models

import "time"

// InventoryItem is one stocked batch of an item type, identified by SKU.
// Invariant: 0 <= Reserved <= Quantity at all times.
type InventoryItem struct {
	ID          int       `json:"id"`
	ItemType    ItemType  `json:"item_type"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Reserved    int       `json:"reserved"`
	Description string    `json:"description"`
	Deleted     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available is what a new reservation may still draw from.
func (i *InventoryItem) Available() int {
	return i.Quantity - i.Reserved
}

type CreateInventoryItemRequest struct {
	ItemTypeID  int    `json:"item_type_id" binding:"required"`
	SKU         string `json:"sku" binding:"required"`
	Quantity    int    `json:"quantity" binding:"gte=0"`
	Description string `json:"description"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"gte=0"`
}
