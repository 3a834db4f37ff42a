package types

import (
	"errors"
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type ItemTypeRepository interface {
	GetItemTypes() ([]models.ItemType, error)
	GetItemType(id int) (*models.ItemType, error)
	PersistItemType(itemType models.ItemType) (*models.ItemType, error)
	RemoveItemType(id int) error
	HasRelatedInventory(id int) (bool, error)
}

type itemTypeRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) ItemTypeRepository {
	return &itemTypeRepository{repo: r}
}

func (r *itemTypeRepository) GetItemTypes() ([]models.ItemType, error) {
	var itemTypes []models.ItemType

	query := r.repo.GoquDBWrapper.
		Select("id", "name", "label").
		From("item_types").
		Where(goqu.Ex{"deleted": false}).
		Order(goqu.C("name").Asc())

	if err := query.Executor().ScanStructs(&itemTypes); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return itemTypes, nil
}

func (r *itemTypeRepository) GetItemType(id int) (*models.ItemType, error) {
	var itemType models.ItemType

	found, err := r.repo.GoquDBWrapper.
		Select("id", "name", "label").
		From("item_types").
		Where(goqu.Ex{"id": id, "deleted": false}).
		Executor().
		ScanStruct(&itemType)
	if err != nil {
		return nil, fmt.Errorf("failed to get item type: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("item type %d not found", id)
	}

	return &itemType, nil
}

func (r *itemTypeRepository) PersistItemType(itemType models.ItemType) (*models.ItemType, error) {
	query := r.repo.GoquDBWrapper.Insert("item_types").
		Rows(goqu.Record{
			"name":  itemType.Name,
			"label": itemType.Label,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&itemType.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, custom_error.WrapDBError("Duplicate item type name", string(pqErr.Code))
		}
		return nil, fmt.Errorf("failed to insert item type: %w", err)
	}

	return &itemType, nil
}

func (r *itemTypeRepository) RemoveItemType(id int) error {
	_, err := r.repo.GoquDBWrapper.Update("item_types").
		Set(goqu.Record{"deleted": true}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to remove item type %d: %w", id, err)
	}

	return nil
}

func (r *itemTypeRepository) HasRelatedInventory(id int) (bool, error) {
	var count int

	_, err := r.repo.GoquDBWrapper.
		Select(goqu.COUNT("id")).
		From("inventory_items").
		Where(goqu.Ex{"item_type_id": id, "deleted": false}).
		Executor().
		ScanVal(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check related inventory: %w", err)
	}

	return count > 0, nil
}
