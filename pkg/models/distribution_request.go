package models

// OrderItemRequest is one requested item-type of a new order.
type OrderItemRequest struct {
	ItemTypeID int    `json:"item_type_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gte=1"`
	Comment    string `json:"comment"`
}

// CreateOrderRequest places a new distribution order on behalf of a client.
type CreateOrderRequest struct {
	PersonalNumber int                `json:"personal_number" binding:"required"`
	ClientName     string             `json:"client_name" binding:"required"`
	EmployeeType   string             `json:"employee_type" binding:"required"`
	DepartmentID   int                `json:"department_id" binding:"required"`
	Phone          string             `json:"phone"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// InventoryDraw assigns a concrete quantity from one inventory item.
type InventoryDraw struct {
	InventoryItemID int `json:"inventory_item_id" binding:"required"`
	Quantity        int `json:"quantity" binding:"required,gte=1"`
}

// ItemTypeAllocation is the admin's decision for one item-type of a pending
// order: either a set of draws, or a cancellation reason for that type alone.
type ItemTypeAllocation struct {
	ItemTypeID     int             `json:"item_type_id" binding:"required"`
	Draws          []InventoryDraw `json:"draws" binding:"dive"`
	CanceledReason string          `json:"canceled_reason"`
}

// AllocateRequest carries the admin decision for a whole order.
type AllocateRequest struct {
	Decision     int                  `json:"decision" binding:"required"`
	Allocations  []ItemTypeAllocation `json:"allocations"`
	AdminComment string               `json:"admin_comment"`
}

// CollectionStatusRequest moves an approved order to collected, or back to
// pending.
type CollectionStatusRequest struct {
	Status  int    `json:"status" binding:"required"`
	Comment string `json:"comment"`
}
