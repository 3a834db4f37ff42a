package reports

import (
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// ReportRepository records restock history. One row per quantity change,
// written in the same transaction as the restock itself.
type ReportRepository interface {
	PersistReport(tx *goqu.TxDatabase, report models.Report) error
	GetReportsByItem(inventoryItemID int) ([]models.Report, error)
}

type reportRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) ReportRepository {
	return &reportRepository{repo: r}
}

func (r *reportRepository) PersistReport(tx *goqu.TxDatabase, report models.Report) error {
	query := tx.Insert("stock_reports").
		Rows(goqu.Record{
			"inventory_item_id": report.InventoryItemID,
			"sku":               report.SKU,
			"old_quantity":      report.OldQuantity,
			"new_quantity":      report.NewQuantity,
			"created_by":        report.CreatedBy,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert stock report: %w", err)
	}

	return nil
}

func (r *reportRepository) GetReportsByItem(inventoryItemID int) ([]models.Report, error) {
	var reportRows []models.Report

	query := r.repo.GoquDBWrapper.
		Select("id", "inventory_item_id", "sku", "old_quantity", "new_quantity", "created_by", "created_at").
		From("stock_reports").
		Where(goqu.Ex{"inventory_item_id": inventoryItemID}).
		Order(goqu.C("created_at").Desc())

	if err := query.Executor().ScanStructs(&reportRows); err != nil {
		return nil, fmt.Errorf("failed to get stock reports: %w", err)
	}

	return reportRows, nil
}
