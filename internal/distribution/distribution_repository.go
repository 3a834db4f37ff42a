package distribution

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
)

// DistributionRepository is the record store for distribution lines: batch
// inserts, in-place transforms and the grouping queries the workflow and the
// listing endpoints need. All reads filter soft-deleted rows.
type DistributionRepository interface {
	GetInUseOrderNumbers() (map[int]struct{}, error)
	RegisterOrderNumber(tx *goqu.TxDatabase, orderNumber int, clientID int, createdBy int) error
	InsertLines(tx *goqu.TxDatabase, lines []models.DistributionLine) error
	GetLinesByOrderAndStatus(orderNumber int, status metadata.Status) ([]models.DistributionLine, error)
	GetLinesForUpdate(tx *goqu.TxDatabase, orderNumber int, status metadata.Status) ([]models.DistributionLine, error)
	CancelOrderLines(tx *goqu.TxDatabase, orderNumber int, reason string, adminComment string) error
	CancelLine(tx *goqu.TxDatabase, lineID int, reason string) error
	MarkLineCollected(tx *goqu.TxDatabase, lineID int, quartermasterID int, comment string) error
	DeleteLine(tx *goqu.TxDatabase, lineID int) error
	SearchLines(conditions repository.QueryBuilder) ([]models.DistributionLine, error)
	GetLinesByOrder(orderNumber int) ([]models.DistributionLine, error)
	GetLogicalOrders(conditions repository.QueryBuilder) ([]models.DistributionLine, error)
	GetLogicalOrderItems(orderNumber int) ([]models.LogicalOrderItem, error)
}

type distributionRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) DistributionRepository {
	return &distributionRepository{repo: r}
}

type flatDistributionLine struct {
	ID                   int            `db:"line_id"`
	OrderNumber          int            `db:"order_number"`
	ItemTypeID           int            `db:"item_type_id"`
	ItemTypeName         sql.NullString `db:"item_type_name"`
	Status               int            `db:"status"`
	TotalQuantity        int            `db:"total_quantity"`
	QuantityPerItem      int            `db:"quantity_per_item"`
	QuantityApproved     int            `db:"quantity_approved"`
	QuantityPerInventory int            `db:"quantity_per_inventory"`
	InventoryItemID      sql.NullInt64  `db:"inventory_item_id"`
	SKU                  sql.NullString `db:"sku"`
	ClientID             int            `db:"client_id"`
	CreatedBy            int            `db:"created_by"`
	QuartermasterID      sql.NullInt64  `db:"quartermaster_id"`
	DepartmentID         sql.NullInt64  `db:"department_id"`
	DepartmentName       sql.NullString `db:"department_name"`
	UserComment          sql.NullString `db:"user_comment"`
	AdminComment         sql.NullString `db:"admin_comment"`
	QuartermasterComment sql.NullString `db:"quartermaster_comment"`
	CanceledReason       sql.NullString `db:"canceled_reason"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (r *distributionRepository) GetInUseOrderNumbers() (map[int]struct{}, error) {
	var numbers []int

	query := r.repo.GoquDBWrapper.
		Select("order_number").
		From("distribution_orders")

	if err := query.Executor().ScanVals(&numbers); err != nil {
		return nil, fmt.Errorf("failed to load in-use order numbers: %w", err)
	}

	inUse := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		inUse[n] = struct{}{}
	}

	return inUse, nil
}

// RegisterOrderNumber claims a number in the registry table. Its primary key
// is the authoritative uniqueness guard for order numbers.
func (r *distributionRepository) RegisterOrderNumber(tx *goqu.TxDatabase, orderNumber int, clientID int, createdBy int) error {
	query := tx.Insert("distribution_orders").
		Rows(goqu.Record{
			"order_number": orderNumber,
			"client_id":    clientID,
			"created_by":   createdBy,
		})

	if _, err := query.Executor().Exec(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return custom_error.WrapDBError("order number already in use", string(pqErr.Code))
		}
		return fmt.Errorf("failed to register order number %d: %w", orderNumber, err)
	}

	return nil
}

func (r *distributionRepository) InsertLines(tx *goqu.TxDatabase, lines []models.DistributionLine) error {
	if len(lines) == 0 {
		return nil
	}

	var records []goqu.Record
	for _, line := range lines {
		records = append(records, goqu.Record{
			"order_number":           line.OrderNumber,
			"item_type_id":           line.ItemTypeID,
			"status":                 int(line.Status),
			"total_quantity":         line.TotalQuantity,
			"quantity_per_item":      line.QuantityPerItem,
			"quantity_approved":      line.QuantityApproved,
			"quantity_per_inventory": line.QuantityPerInventory,
			"inventory_item_id":      line.InventoryItemID,
			"sku":                    line.SKU,
			"client_id":              line.ClientID,
			"created_by":             line.CreatedBy,
			"department_id":          line.DepartmentID,
			"user_comment":           line.UserComment,
			"admin_comment":          line.AdminComment,
			"quartermaster_comment":  line.QuartermasterComment,
		})
	}

	query := tx.Insert("distributions").Rows(records)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert distribution lines: %w", err)
	}

	return nil
}

func (r *distributionRepository) getLineQuery() *goqu.SelectDataset {
	return r.repo.GoquDBWrapper.
		Select(lineColumns()...).
		From(goqu.T("distributions").As("d")).
		LeftJoin(
			goqu.T("item_types").As("t"),
			goqu.On(goqu.Ex{"d.item_type_id": goqu.I("t.id")}),
		).
		LeftJoin(
			goqu.T("departments").As("dep"),
			goqu.On(goqu.Ex{"d.department_id": goqu.I("dep.id")}),
		).
		Where(goqu.Ex{"d.deleted": false})
}

func lineColumns() []interface{} {
	return []interface{}{
		goqu.I("d.id").As("line_id"),
		goqu.I("d.order_number").As("order_number"),
		goqu.I("d.item_type_id").As("item_type_id"),
		goqu.I("t.name").As("item_type_name"),
		goqu.I("d.status").As("status"),
		goqu.I("d.total_quantity").As("total_quantity"),
		goqu.I("d.quantity_per_item").As("quantity_per_item"),
		goqu.I("d.quantity_approved").As("quantity_approved"),
		goqu.I("d.quantity_per_inventory").As("quantity_per_inventory"),
		goqu.I("d.inventory_item_id").As("inventory_item_id"),
		goqu.I("d.sku").As("sku"),
		goqu.I("d.client_id").As("client_id"),
		goqu.I("d.created_by").As("created_by"),
		goqu.I("d.quartermaster_id").As("quartermaster_id"),
		goqu.I("d.department_id").As("department_id"),
		goqu.I("dep.name").As("department_name"),
		goqu.I("d.user_comment").As("user_comment"),
		goqu.I("d.admin_comment").As("admin_comment"),
		goqu.I("d.quartermaster_comment").As("quartermaster_comment"),
		goqu.I("d.canceled_reason").As("canceled_reason"),
		goqu.I("d.created_at").As("created_at"),
		goqu.I("d.updated_at").As("updated_at"),
	}
}

func (r *distributionRepository) GetLinesByOrderAndStatus(orderNumber int, status metadata.Status) ([]models.DistributionLine, error) {
	var flatLines []flatDistributionLine

	query := r.getLineQuery().
		Where(goqu.Ex{"d.order_number": orderNumber, "d.status": int(status)}).
		Order(goqu.I("d.id").Asc())

	if err := query.Executor().ScanStructs(&flatLines); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return transformLines(flatLines), nil
}

// GetLinesForUpdate locks the order's lines in the given status for the rest
// of the transaction.
func (r *distributionRepository) GetLinesForUpdate(tx *goqu.TxDatabase, orderNumber int, status metadata.Status) ([]models.DistributionLine, error) {
	var flatLines []flatDistributionLine

	query := tx.
		Select(
			goqu.C("id").As("line_id"),
			goqu.C("order_number"),
			goqu.C("item_type_id"),
			goqu.C("status"),
			goqu.C("total_quantity"),
			goqu.C("quantity_per_item"),
			goqu.C("quantity_approved"),
			goqu.C("quantity_per_inventory"),
			goqu.C("inventory_item_id"),
			goqu.C("sku"),
			goqu.C("client_id"),
			goqu.C("created_by"),
			goqu.C("quartermaster_id"),
			goqu.C("department_id"),
			goqu.C("user_comment"),
			goqu.C("admin_comment"),
			goqu.C("quartermaster_comment"),
			goqu.C("canceled_reason"),
			goqu.C("created_at"),
			goqu.C("updated_at"),
		).
		From("distributions").
		Where(goqu.Ex{
			"order_number": orderNumber,
			"status":       int(status),
			"deleted":      false,
		}).
		Order(goqu.C("id").Asc()).
		ForUpdate(exp.Wait)

	if err := query.Executor().ScanStructs(&flatLines); err != nil {
		return nil, fmt.Errorf("failed to lock distribution lines of order %d: %w", orderNumber, err)
	}

	return transformLines(flatLines), nil
}

// CancelOrderLines flips every line of the order to canceled in place.
func (r *distributionRepository) CancelOrderLines(tx *goqu.TxDatabase, orderNumber int, reason string, adminComment string) error {
	query := tx.Update("distributions").
		Set(goqu.Record{
			"status":          int(metadata.StatusCanceled),
			"canceled_reason": reason,
			"admin_comment":   adminComment,
			"updated_at":      goqu.L("NOW()"),
		}).
		Where(goqu.Ex{
			"order_number": orderNumber,
			"status":       int(metadata.StatusPending),
			"deleted":      false,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to cancel lines of order %d: %w", orderNumber, err)
	}

	return nil
}

func (r *distributionRepository) CancelLine(tx *goqu.TxDatabase, lineID int, reason string) error {
	query := tx.Update("distributions").
		Set(goqu.Record{
			"status":          int(metadata.StatusCanceled),
			"canceled_reason": reason,
			"updated_at":      goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": lineID, "deleted": false})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to cancel distribution line %d: %w", lineID, err)
	}

	return nil
}

func (r *distributionRepository) MarkLineCollected(tx *goqu.TxDatabase, lineID int, quartermasterID int, comment string) error {
	query := tx.Update("distributions").
		Set(goqu.Record{
			"status":                int(metadata.StatusCollected),
			"quartermaster_id":      quartermasterID,
			"quartermaster_comment": comment,
			"updated_at":            goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": lineID, "deleted": false})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to mark line %d collected: %w", lineID, err)
	}

	return nil
}

// DeleteLine soft-deletes a line that was replaced by fan-out or collapse.
func (r *distributionRepository) DeleteLine(tx *goqu.TxDatabase, lineID int) error {
	query := tx.Update("distributions").
		Set(goqu.Record{
			"deleted":    true,
			"updated_at": goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": lineID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to delete distribution line %d: %w", lineID, err)
	}

	return nil
}

// SearchLines runs the filter combination over the joined view. Sorting over
// heterogeneous joined keys happens in the service after materialization.
func (r *distributionRepository) SearchLines(conditions repository.QueryBuilder) ([]models.DistributionLine, error) {
	var flatLines []flatDistributionLine

	query := r.getLineQuery()

	if conditions != nil && conditions.HasConditions() {
		aliases := map[string]string{
			"order_number":  "d.order_number",
			"status":        "d.status",
			"client_id":     "d.client_id",
			"item_type_id":  "d.item_type_id",
			"department_id": "d.department_id",
			"created_at":    "d.created_at",
			"updated_at":    "d.updated_at",
		}
		query = query.Where(conditions.BuildConditions(aliases))
	}

	if err := query.Order(goqu.I("d.id").Asc()).Executor().ScanStructs(&flatLines); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return transformLines(flatLines), nil
}

// GetLogicalOrders returns one representative line per order number: the
// latest non-deleted line, carrying the denormalized order metadata.
func (r *distributionRepository) GetLogicalOrders(conditions repository.QueryBuilder) ([]models.DistributionLine, error) {
	var flatLines []flatDistributionLine

	query := r.repo.GoquDBWrapper.
		Select(lineColumns()...).
		From(goqu.T("distributions").As("d")).
		LeftJoin(
			goqu.T("item_types").As("t"),
			goqu.On(goqu.Ex{"d.item_type_id": goqu.I("t.id")}),
		).
		LeftJoin(
			goqu.T("departments").As("dep"),
			goqu.On(goqu.Ex{"d.department_id": goqu.I("dep.id")}),
		).
		Where(goqu.Ex{"d.deleted": false}).
		Where(goqu.L(
			"d.id = (SELECT MAX(d2.id) FROM distributions d2 WHERE d2.order_number = d.order_number AND d2.deleted = false)",
		))

	if conditions != nil && conditions.HasConditions() {
		aliases := map[string]string{
			"order_number":  "d.order_number",
			"status":        "d.status",
			"client_id":     "d.client_id",
			"department_id": "d.department_id",
			"created_at":    "d.created_at",
		}
		query = query.Where(conditions.BuildConditions(aliases))
	}

	if err := query.Order(goqu.I("d.order_number").Asc()).Executor().ScanStructs(&flatLines); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return transformLines(flatLines), nil
}

// GetLogicalOrderItems collapses the physical fan-out back into the one row
// per (order, item-type) the client sees.
func (r *distributionRepository) GetLogicalOrderItems(orderNumber int) ([]models.LogicalOrderItem, error) {
	lines, err := r.GetLinesByOrder(orderNumber)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]int) // item_type_id -> index into result
	var logicalItems []models.LogicalOrderItem
	for _, line := range lines {
		if idx, ok := seen[line.ItemTypeID]; ok {
			logicalItems[idx].ApprovedTotal += line.QuantityPerInventory
			continue
		}
		seen[line.ItemTypeID] = len(logicalItems)
		logicalItems = append(logicalItems, models.LogicalOrderItem{
			OrderNumber:     line.OrderNumber,
			ItemTypeID:      line.ItemTypeID,
			ItemTypeName:    line.ItemTypeName,
			Status:          line.Status,
			QuantityPerItem: line.QuantityPerItem,
			ApprovedTotal:   line.QuantityPerInventory,
		})
	}

	return logicalItems, nil
}

func (r *distributionRepository) GetLinesByOrder(orderNumber int) ([]models.DistributionLine, error) {
	var flatLines []flatDistributionLine

	query := r.getLineQuery().
		Where(goqu.Ex{"d.order_number": orderNumber}).
		Order(goqu.I("d.id").Asc())

	if err := query.Executor().ScanStructs(&flatLines); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return transformLines(flatLines), nil
}

func transformLines(flatLines []flatDistributionLine) []models.DistributionLine {
	var lines []models.DistributionLine
	for _, flat := range flatLines {
		line := models.DistributionLine{
			ID:                   flat.ID,
			OrderNumber:          flat.OrderNumber,
			ItemTypeID:           flat.ItemTypeID,
			ItemTypeName:         flat.ItemTypeName.String,
			Status:               metadata.Status(flat.Status),
			TotalQuantity:        flat.TotalQuantity,
			QuantityPerItem:      flat.QuantityPerItem,
			QuantityApproved:     flat.QuantityApproved,
			QuantityPerInventory: flat.QuantityPerInventory,
			ClientID:             flat.ClientID,
			CreatedBy:            flat.CreatedBy,
			DepartmentID:         int(flat.DepartmentID.Int64),
			DepartmentName:       flat.DepartmentName.String,
			SKU:                  flat.SKU.String,
			UserComment:          flat.UserComment.String,
			AdminComment:         flat.AdminComment.String,
			QuartermasterComment: flat.QuartermasterComment.String,
			CanceledReason:       flat.CanceledReason.String,
			CreatedAt:            flat.CreatedAt,
			UpdatedAt:            flat.UpdatedAt,
		}
		if flat.InventoryItemID.Valid {
			id := int(flat.InventoryItemID.Int64)
			line.InventoryItemID = &id
		}
		if flat.QuartermasterID.Valid {
			id := int(flat.QuartermasterID.Int64)
			line.QuartermasterID = &id
		}
		lines = append(lines, line)
	}
	return lines
}
