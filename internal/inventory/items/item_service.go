package items

import (
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/reports"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type ItemService struct {
	r          *repository.Repository
	ir         InventoryRepository
	reportRepo reports.ReportRepository

	runTx func(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error
}

func NewService(r *repository.Repository, ir InventoryRepository, reportRepo reports.ReportRepository) *ItemService {
	return &ItemService{r: r, ir: ir, reportRepo: reportRepo, runTx: repository.WithTransaction}
}

// Restock sets the on-hand count of an item under a row lock and writes an
// audit report whenever the count actually changed. A new count below the
// current reservations is rejected rather than silently clamped.
func (s *ItemService) Restock(itemID int, newQuantity int, actingUser int) (*models.InventoryItem, error) {
	err := s.runTx(s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		item, err := s.ir.GetItemForUpdate(tx, itemID)
		if err != nil {
			return err
		}

		if item.Quantity == newQuantity {
			return nil
		}

		if err := s.ir.UpdateQuantity(tx, itemID, newQuantity); err != nil {
			return err
		}

		report := models.Report{
			InventoryItemID: item.ID,
			SKU:             item.SKU,
			OldQuantity:     item.Quantity,
			NewQuantity:     newQuantity,
			CreatedBy:       actingUser,
		}
		if err := s.reportRepo.PersistReport(tx, report); err != nil {
			return fmt.Errorf("failed to record restock report: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ir.GetItem(itemID)
}
