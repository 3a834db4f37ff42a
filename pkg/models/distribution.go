package models

import (
	"time"

	"github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"
)

// DistributionLine is one (order, item-type) allocation unit. Before
// allocation there is exactly one line per requested item type. Allocation
// may fan a line out into several approved lines, one per inventory item the
// stock was drawn from. Order-level metadata (client, creator, total
// quantity) is denormalized onto every line of the order.
type DistributionLine struct {
	ID                   int             `json:"id"`
	OrderNumber          int             `json:"order_number"`
	ItemTypeID           int             `json:"item_type_id"`
	ItemTypeName         string          `json:"item_type_name,omitempty"`
	Status               metadata.Status `json:"status"`
	TotalQuantity        int             `json:"total_quantity"`
	QuantityPerItem      int             `json:"quantity_per_item"`
	QuantityApproved     int             `json:"quantity_approved"`
	QuantityPerInventory int             `json:"quantity_per_inventory"`
	InventoryItemID      *int            `json:"inventory_item_id,omitempty"`
	SKU                  string          `json:"sku,omitempty"`
	ClientID             int             `json:"client_id"`
	CreatedBy            int             `json:"created_by"`
	QuartermasterID      *int            `json:"quartermaster_id,omitempty"`
	DepartmentID         int             `json:"department_id"`
	DepartmentName       string          `json:"department_name,omitempty"`
	UserComment          string          `json:"user_comment,omitempty"`
	AdminComment         string          `json:"admin_comment,omitempty"`
	QuartermasterComment string          `json:"quartermaster_comment,omitempty"`
	CanceledReason       string          `json:"canceled_reason,omitempty"`
	Deleted              bool            `json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// LogicalOrderItem is the single row a client sees for one (order, item-type)
// pair, regardless of how many physical lines it fanned out into.
type LogicalOrderItem struct {
	OrderNumber     int             `json:"order_number"`
	ItemTypeID      int             `json:"item_type_id"`
	ItemTypeName    string          `json:"item_type_name"`
	Status          metadata.Status `json:"status"`
	QuantityPerItem int             `json:"quantity_per_item"`
	ApprovedTotal   int             `json:"approved_total"`
}
