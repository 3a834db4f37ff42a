package items

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
)

// InventoryRepository is the inventory ledger: on-hand and reserved counts
// per stocked item, mutated only through guarded arithmetic so the
// 0 <= reserved <= quantity invariant survives concurrent callers.
type InventoryRepository interface {
	GetItem(id int) (*models.InventoryItem, error)
	GetItemsBy(conditions repository.QueryBuilder) (*[]models.InventoryItem, error)
	PersistItem(req models.CreateInventoryItemRequest) (*models.InventoryItem, error)
	RemoveItem(id int) error
	GetItemForUpdate(tx *goqu.TxDatabase, id int) (*models.InventoryItem, error)
	Reserve(tx *goqu.TxDatabase, itemID int, qty int) error
	Release(tx *goqu.TxDatabase, itemID int, qty int) error
	Consume(tx *goqu.TxDatabase, itemID int, qty int) error
	UpdateQuantity(tx *goqu.TxDatabase, itemID int, newQuantity int) error
}

type inventoryRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) InventoryRepository {
	return &inventoryRepository{repo: r}
}

type flatInventoryItem struct {
	ID            int            `db:"item_id"`
	ItemTypeID    int            `db:"item_type_id"`
	ItemTypeName  string         `db:"item_type_name"`
	ItemTypeLabel sql.NullString `db:"item_type_label"`
	SKU           string         `db:"sku"`
	Quantity      int            `db:"quantity"`
	Reserved      int            `db:"reserved"`
	Description   sql.NullString `db:"description"`
}

func (r *inventoryRepository) getItemQuery() *goqu.SelectDataset {
	return r.repo.GoquDBWrapper.
		Select(
			goqu.I("i.id").As("item_id"),
			goqu.I("i.item_type_id").As("item_type_id"),
			goqu.I("t.name").As("item_type_name"),
			goqu.I("t.label").As("item_type_label"),
			goqu.I("i.sku").As("sku"),
			goqu.I("i.quantity").As("quantity"),
			goqu.I("i.reserved").As("reserved"),
			goqu.I("i.description").As("description"),
		).
		From(goqu.T("inventory_items").As("i")).
		LeftJoin(
			goqu.T("item_types").As("t"),
			goqu.On(goqu.Ex{"i.item_type_id": goqu.I("t.id")}),
		).
		Where(goqu.Ex{"i.deleted": false})
}

func (r *inventoryRepository) GetItem(id int) (*models.InventoryItem, error) {
	var flat flatInventoryItem

	found, err := r.getItemQuery().
		Where(goqu.Ex{"i.id": id}).
		Executor().
		ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.ErrInventoryNotFound
	}

	item := transformToInventoryItem(flat)
	return &item, nil
}

func (r *inventoryRepository) GetItemsBy(conditions repository.QueryBuilder) (*[]models.InventoryItem, error) {
	query := r.getItemQuery()

	if conditions != nil && conditions.HasConditions() {
		aliases := map[string]string{
			"item_type_id": "i.item_type_id",
			"sku":          "i.sku",
		}
		query = query.Where(conditions.BuildConditions(aliases))
	}

	var flatItems []flatInventoryItem
	if err := query.Order(goqu.I("i.id").Asc()).Executor().ScanStructs(&flatItems); err != nil {
		return nil, fmt.Errorf("unable to select inventory items: %w", err)
	}

	var inventoryItems []models.InventoryItem
	for _, flat := range flatItems {
		inventoryItems = append(inventoryItems, transformToInventoryItem(flat))
	}

	return &inventoryItems, nil
}

func (r *inventoryRepository) PersistItem(req models.CreateInventoryItemRequest) (*models.InventoryItem, error) {
	query := r.repo.GoquDBWrapper.Insert("inventory_items").
		Rows(goqu.Record{
			"item_type_id": req.ItemTypeID,
			"sku":          req.SKU,
			"quantity":     req.Quantity,
			"reserved":     0,
			"description":  req.Description,
		}).
		Returning("id")

	item := models.InventoryItem{
		ItemType:    models.ItemType{ID: req.ItemTypeID},
		SKU:         req.SKU,
		Quantity:    req.Quantity,
		Description: req.Description,
	}

	if _, err := query.Executor().ScanVal(&item.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, custom_error.WrapDBError("Duplicate SKU for inventory item", string(pqErr.Code))
		}
		return nil, fmt.Errorf("failed to insert inventory item record: %w", err)
	}

	return &item, nil
}

// RemoveItem soft-deletes: the row survives for history but drops out of
// every read query.
func (r *inventoryRepository) RemoveItem(id int) error {
	result, err := r.repo.GoquDBWrapper.Update("inventory_items").
		Set(goqu.Record{"deleted": true}).
		Where(goqu.Ex{"id": id, "deleted": false}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to remove inventory item %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.ErrInventoryNotFound
	}

	return nil
}

// GetItemForUpdate fetches the row with a FOR UPDATE lock so two concurrent
// allocations cannot both pass the availability check for the same item.
func (r *inventoryRepository) GetItemForUpdate(tx *goqu.TxDatabase, id int) (*models.InventoryItem, error) {
	var flat struct {
		ID          int            `db:"id"`
		ItemTypeID  int            `db:"item_type_id"`
		SKU         string         `db:"sku"`
		Quantity    int            `db:"quantity"`
		Reserved    int            `db:"reserved"`
		Description sql.NullString `db:"description"`
	}

	found, err := tx.Select("id", "item_type_id", "sku", "quantity", "reserved", "description").
		From("inventory_items").
		Where(goqu.Ex{"id": id, "deleted": false}).
		ForUpdate(exp.Wait).
		Executor().
		ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory item %d: %w", id, err)
	}
	if !found {
		return nil, custom_error.ErrInventoryNotFound
	}

	return &models.InventoryItem{
		ID:          flat.ID,
		ItemType:    models.ItemType{ID: flat.ItemTypeID},
		SKU:         flat.SKU,
		Quantity:    flat.Quantity,
		Reserved:    flat.Reserved,
		Description: flat.Description.String,
	}, nil
}

// Reserve atomically bumps the reserved count, guarded so the reservation
// can never exceed what is on hand.
func (r *inventoryRepository) Reserve(tx *goqu.TxDatabase, itemID int, qty int) error {
	result, err := tx.Update("inventory_items").
		Set(goqu.Record{"reserved": goqu.L("reserved + ?", qty)}).
		Where(goqu.Ex{"id": itemID, "deleted": false}).
		Where(goqu.L("quantity - reserved >= ?", qty)).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to reserve %d units of item %d: %w", qty, itemID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.insufficientStockError(tx, itemID, qty)
	}

	return nil
}

// Release gives a reservation back. Underflow means the caller's bookkeeping
// is broken, not the client's request.
func (r *inventoryRepository) Release(tx *goqu.TxDatabase, itemID int, qty int) error {
	result, err := tx.Update("inventory_items").
		Set(goqu.Record{"reserved": goqu.L("reserved - ?", qty)}).
		Where(goqu.Ex{"id": itemID}).
		Where(goqu.C("reserved").Gte(qty)).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to release %d units of item %d: %w", qty, itemID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("release of %d units would underflow reservations of item %d: %w",
			qty, itemID, custom_error.ErrInvariantViolation)
	}

	return nil
}

// Consume turns a reservation into a physical hand-off: both quantity and
// reserved drop by qty.
func (r *inventoryRepository) Consume(tx *goqu.TxDatabase, itemID int, qty int) error {
	result, err := tx.Update("inventory_items").
		Set(goqu.Record{
			"quantity": goqu.L("quantity - ?", qty),
			"reserved": goqu.L("reserved - ?", qty),
		}).
		Where(goqu.Ex{"id": itemID}).
		Where(goqu.C("quantity").Gte(qty)).
		Where(goqu.C("reserved").Gte(qty)).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to consume %d units of item %d: %w", qty, itemID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("consuming %d units would underflow counts of item %d: %w",
			qty, itemID, custom_error.ErrInvariantViolation)
	}

	return nil
}

// UpdateQuantity sets the on-hand count during a restock. The caller holds
// the row lock and has already checked newQuantity against reserved; the
// guard here is the last line of defense.
func (r *inventoryRepository) UpdateQuantity(tx *goqu.TxDatabase, itemID int, newQuantity int) error {
	result, err := tx.Update("inventory_items").
		Set(goqu.Record{"quantity": newQuantity}).
		Where(goqu.Ex{"id": itemID}).
		Where(goqu.C("reserved").Lte(newQuantity)).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update quantity of item %d: %w", itemID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("quantity %d is below reservations of item %d: %w",
			newQuantity, itemID, custom_error.ErrInvariantViolation)
	}

	return nil
}

func (r *inventoryRepository) insufficientStockError(tx *goqu.TxDatabase, itemID int, qty int) error {
	var flat struct {
		SKU      string `db:"sku"`
		Quantity int    `db:"quantity"`
		Reserved int    `db:"reserved"`
	}

	found, err := tx.Select("sku", "quantity", "reserved").
		From("inventory_items").
		Where(goqu.Ex{"id": itemID, "deleted": false}).
		Executor().
		ScanStruct(&flat)
	if err != nil {
		return fmt.Errorf("failed to inspect stock of item %d: %w", itemID, err)
	}
	if !found {
		return custom_error.ErrInventoryNotFound
	}

	return &custom_error.InsufficientStockError{
		SKU:       flat.SKU,
		Requested: qty,
		Available: flat.Quantity - flat.Reserved,
	}
}

func transformToInventoryItem(flat flatInventoryItem) models.InventoryItem {
	return models.InventoryItem{
		ID: flat.ID,
		ItemType: models.ItemType{
			ID:    flat.ItemTypeID,
			Name:  flat.ItemTypeName,
			Label: flat.ItemTypeLabel.String,
		},
		SKU:         flat.SKU,
		Quantity:    flat.Quantity,
		Reserved:    flat.Reserved,
		Description: flat.Description.String,
	}
}
