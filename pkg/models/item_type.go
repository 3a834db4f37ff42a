package models

// ItemType is a category of stock (e.g. "laptop"), distinct from a concrete
// stocked batch (InventoryItem).
type ItemType struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Label   string `db:"label" json:"label"`
	Deleted bool   `db:"deleted" json:"-"`
}
