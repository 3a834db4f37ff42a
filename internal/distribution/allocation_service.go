package distribution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/clients"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/items"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/notifications"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/users"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

// AllocationService drives a distribution order through its lifecycle:
// creation fans the request out into pending lines, allocation reserves
// concrete stock against them, collection consumes the reservations, and
// return-to-pending collapses an approved order back to where it started.
// Every operation is one all-or-nothing transaction against the store.
type AllocationService struct {
	r          *repository.Repository
	dr         DistributionRepository
	ir         items.InventoryRepository
	cr         clients.ClientRepository
	ur         users.UserRepository
	dispatcher notifications.Dispatcher
	log        *zap.Logger

	// runTx is swappable so service tests can exercise the workflow
	// without a live database.
	runTx func(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error
}

func NewAllocationService(
	r *repository.Repository,
	dr DistributionRepository,
	ir items.InventoryRepository,
	cr clients.ClientRepository,
	ur users.UserRepository,
	dispatcher notifications.Dispatcher,
	log *zap.Logger,
) *AllocationService {
	return &AllocationService{
		r:          r,
		dr:         dr,
		ir:         ir,
		cr:         cr,
		ur:         ur,
		dispatcher: dispatcher,
		log:        log,
		runTx:      repository.WithTransactionRetry,
	}
}

// CreateOrder upserts the requesting client, claims a fresh order number and
// creates one pending line per requested item type. Inventory is untouched
// here; stock is only reserved at allocation time.
func (s *AllocationService) CreateOrder(actingUser int, req models.CreateOrderRequest) (int, error) {
	inUse, err := s.dr.GetInUseOrderNumbers()
	if err != nil {
		return 0, err
	}

	totalQuantity := 0
	for _, item := range req.Items {
		totalQuantity += item.Quantity
	}

	// The registry PK is the real uniqueness guard; one redraw covers the
	// race where a concurrent order claimed the same number after our
	// snapshot of the in-use set.
	for attempt := 0; attempt < 2; attempt++ {
		orderNumber, err := GenerateOrderNumber(inUse)
		if err != nil {
			return 0, err
		}

		err = s.runTx(s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			clientID, err := s.cr.UpsertClient(tx, models.Client{
				PersonalNumber: req.PersonalNumber,
				Name:           req.ClientName,
				EmployeeType:   metadata.EmployeeType(req.EmployeeType),
				DepartmentID:   req.DepartmentID,
				Phone:          req.Phone,
			})
			if err != nil {
				return err
			}

			if err := s.dr.RegisterOrderNumber(tx, orderNumber, clientID, actingUser); err != nil {
				return err
			}

			var lines []models.DistributionLine
			for _, item := range req.Items {
				lines = append(lines, models.DistributionLine{
					OrderNumber:     orderNumber,
					ItemTypeID:      item.ItemTypeID,
					Status:          metadata.StatusPending,
					TotalQuantity:   totalQuantity,
					QuantityPerItem: item.Quantity,
					ClientID:        clientID,
					CreatedBy:       actingUser,
					DepartmentID:    req.DepartmentID,
					UserComment:     item.Comment,
				})
			}

			return s.dr.InsertLines(tx, lines)
		})

		if err == nil {
			return orderNumber, nil
		}
		if custom_error.IsUniqueViolation(err) {
			inUse[orderNumber] = struct{}{}
			continue
		}
		return 0, err
	}

	return 0, custom_error.ErrOrderNumberExhausted
}

// Allocate applies the admin decision to a pending order: cancel the whole
// order in place, or approve it by drawing concrete stock per item type.
// Approval fans each pending line out into one approved line per inventory
// item drawn and deletes the original; any failure rolls the whole call back,
// reservations included.
func (s *AllocationService) Allocate(orderNumber int, decision int, allocations []models.ItemTypeAllocation, adminComment string, actingUser int) error {
	decisionStatus := metadata.Status(decision)
	if decisionStatus != metadata.StatusApproved && decisionStatus != metadata.StatusCanceled {
		return custom_error.ErrInvalidDecision
	}

	if decisionStatus == metadata.StatusCanceled && strings.TrimSpace(adminComment) == "" {
		return custom_error.ErrMissingCancelReason
	}
	if decisionStatus == metadata.StatusApproved && len(allocations) == 0 {
		return custom_error.ErrMissingAllocation
	}

	var createdBy int

	err := s.runTx(s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		pendingLines, err := s.dr.GetLinesForUpdate(tx, orderNumber, metadata.StatusPending)
		if err != nil {
			return err
		}
		if len(pendingLines) == 0 {
			return custom_error.ErrOrderNotFound
		}

		createdBy = pendingLines[0].CreatedBy
		creatorExists, err := s.ur.ExistsActive(createdBy)
		if err != nil {
			return err
		}
		if !creatorExists {
			return custom_error.ErrCreatorNotFound
		}

		if decisionStatus == metadata.StatusCanceled {
			return s.dr.CancelOrderLines(tx, orderNumber, adminComment, adminComment)
		}

		return s.approveOrder(tx, pendingLines, allocations, adminComment)
	})
	if err != nil {
		// Internal failures are reported to the creator; rejections the
		// caller can correct are not.
		if createdBy != 0 && !custom_error.IsValidation(err) && !custom_error.IsConflict(err) && !custom_error.IsNotFound(err) {
			s.notifyFailure(createdBy, orderNumber)
		}
		return err
	}

	s.notifyCreator(createdBy, orderNumber, decisionStatus)
	return nil
}

// approveOrder processes the per-item-type allocation entries. A duplicated
// item type in the request is processed once, first occurrence wins.
func (s *AllocationService) approveOrder(tx *goqu.TxDatabase, pendingLines []models.DistributionLine, allocations []models.ItemTypeAllocation, adminComment string) error {
	linesByType := make(map[int]models.DistributionLine, len(pendingLines))
	for _, line := range pendingLines {
		linesByType[line.ItemTypeID] = line
	}

	processed := make(map[int]bool, len(allocations))
	for _, allocation := range allocations {
		if processed[allocation.ItemTypeID] {
			continue
		}
		processed[allocation.ItemTypeID] = true

		pendingLine, ok := linesByType[allocation.ItemTypeID]
		if !ok {
			return fmt.Errorf("item type %d is not part of order %d: %w",
				allocation.ItemTypeID, pendingLines[0].OrderNumber, custom_error.ErrMalformedAllocation)
		}

		if len(allocation.Draws) == 0 {
			if strings.TrimSpace(allocation.CanceledReason) == "" {
				return custom_error.ErrMalformedAllocation
			}
			// Partial cancellation: this item type alone is refused.
			if err := s.dr.CancelLine(tx, pendingLine.ID, allocation.CanceledReason); err != nil {
				return err
			}
			continue
		}

		if err := s.approveItemType(tx, pendingLine, allocation, adminComment); err != nil {
			return err
		}
	}

	return nil
}

func (s *AllocationService) approveItemType(tx *goqu.TxDatabase, pendingLine models.DistributionLine, allocation models.ItemTypeAllocation, adminComment string) error {
	approvedTotal := 0
	for _, draw := range allocation.Draws {
		approvedTotal += draw.Quantity
	}

	var approvedLines []models.DistributionLine
	for _, draw := range allocation.Draws {
		item, err := s.ir.GetItemForUpdate(tx, draw.InventoryItemID)
		if err != nil {
			return err
		}

		if item.ItemType.ID != allocation.ItemTypeID {
			return &custom_error.InventoryTypeMismatchError{
				SKU:            item.SKU,
				WantItemTypeID: allocation.ItemTypeID,
				GotItemTypeID:  item.ItemType.ID,
			}
		}

		if draw.Quantity > item.Available() {
			return &custom_error.InsufficientStockError{
				SKU:       item.SKU,
				Requested: draw.Quantity,
				Available: item.Available(),
			}
		}

		if err := s.ir.Reserve(tx, item.ID, draw.Quantity); err != nil {
			return err
		}

		inventoryItemID := item.ID
		approvedLines = append(approvedLines, models.DistributionLine{
			OrderNumber:          pendingLine.OrderNumber,
			ItemTypeID:           pendingLine.ItemTypeID,
			Status:               metadata.StatusApproved,
			TotalQuantity:        pendingLine.TotalQuantity,
			QuantityPerItem:      pendingLine.QuantityPerItem,
			QuantityApproved:     approvedTotal,
			QuantityPerInventory: draw.Quantity,
			InventoryItemID:      &inventoryItemID,
			SKU:                  item.SKU,
			ClientID:             pendingLine.ClientID,
			CreatedBy:            pendingLine.CreatedBy,
			DepartmentID:         pendingLine.DepartmentID,
			UserComment:          pendingLine.UserComment,
			AdminComment:         adminComment,
		})
	}

	if err := s.dr.InsertLines(tx, approvedLines); err != nil {
		return err
	}

	return s.dr.DeleteLine(tx, pendingLine.ID)
}

// ChangeCollectionStatus moves an approved order forward to collected or back
// to pending. Collection consumes the reservations; return releases them and
// collapses the fan-out into one fresh pending line per item type.
func (s *AllocationService) ChangeCollectionStatus(orderNumber int, newStatus int, comment string, actingUser int) error {
	status, err := metadata.NewStatus(newStatus)
	if err != nil {
		return err
	}
	if _, err := metadata.StatusApproved.Transition(status); err != nil {
		return err
	}

	if status == metadata.StatusPending && strings.TrimSpace(comment) == "" {
		return custom_error.ErrMissingComment
	}

	return s.runTx(s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		approvedLines, err := s.dr.GetLinesForUpdate(tx, orderNumber, metadata.StatusApproved)
		if err != nil {
			return err
		}
		if len(approvedLines) == 0 {
			return custom_error.ErrOrderNotFound
		}

		if status == metadata.StatusCollected {
			return s.collectOrder(tx, approvedLines, comment, actingUser)
		}
		return s.returnOrderToPending(tx, approvedLines, comment)
	})
}

func (s *AllocationService) collectOrder(tx *goqu.TxDatabase, approvedLines []models.DistributionLine, comment string, quartermasterID int) error {
	for _, line := range approvedLines {
		if line.InventoryItemID == nil {
			return custom_error.ErrInventoryNotFound
		}

		// The item may have been soft-deleted between approval and
		// collection; the locked fetch rejects that before any consumption.
		if _, err := s.ir.GetItemForUpdate(tx, *line.InventoryItemID); err != nil {
			return err
		}

		if err := s.ir.Consume(tx, *line.InventoryItemID, line.QuantityPerInventory); err != nil {
			return err
		}

		if err := s.dr.MarkLineCollected(tx, line.ID, quartermasterID, comment); err != nil {
			return err
		}
	}

	return nil
}

// returnOrderToPending releases every reservation and rebuilds exactly one
// pending line per item type, regardless of how many approved lines the
// allocation fanned out into. Approved and per-inventory quantities reset to
// zero; the originally requested quantity survives the collapse.
func (s *AllocationService) returnOrderToPending(tx *goqu.TxDatabase, approvedLines []models.DistributionLine, comment string) error {
	seenTypes := make(map[int]bool, len(approvedLines))
	var pendingLines []models.DistributionLine

	for _, line := range approvedLines {
		if line.InventoryItemID != nil && line.QuantityPerInventory > 0 {
			if err := s.ir.Release(tx, *line.InventoryItemID, line.QuantityPerInventory); err != nil {
				return err
			}
		}

		if !seenTypes[line.ItemTypeID] {
			seenTypes[line.ItemTypeID] = true
			pendingLines = append(pendingLines, models.DistributionLine{
				OrderNumber:          line.OrderNumber,
				ItemTypeID:           line.ItemTypeID,
				Status:               metadata.StatusPending,
				TotalQuantity:        line.TotalQuantity,
				QuantityPerItem:      line.QuantityPerItem,
				QuantityApproved:     0,
				QuantityPerInventory: 0,
				ClientID:             line.ClientID,
				CreatedBy:            line.CreatedBy,
				DepartmentID:         line.DepartmentID,
				UserComment:          line.UserComment,
				QuartermasterComment: comment,
			})
		}

		if err := s.dr.DeleteLine(tx, line.ID); err != nil {
			return err
		}
	}

	return s.dr.InsertLines(tx, pendingLines)
}

// SortKey names a field the search results can be ordered by.
type SortKey struct {
	Field      string
	Descending bool
}

// Search filters distribution lines and applies a multi-key sort in memory.
// Some sort fields (item type name, department name) only exist on joined
// rows, so ordering happens after materialization rather than in the store.
func (s *AllocationService) Search(conditions repository.QueryBuilder, sortKeys []SortKey) ([]models.DistributionLine, error) {
	lines, err := s.dr.SearchLines(conditions)
	if err != nil {
		return nil, err
	}

	if len(sortKeys) > 0 {
		sortLines(lines, sortKeys)
	}

	return lines, nil
}

func sortLines(lines []models.DistributionLine, sortKeys []SortKey) {
	sort.SliceStable(lines, func(i, j int) bool {
		for _, key := range sortKeys {
			cmp := compareLines(lines[i], lines[j], key.Field)
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareLines(a, b models.DistributionLine, field string) int {
	switch field {
	case "order_number":
		return a.OrderNumber - b.OrderNumber
	case "status":
		return int(a.Status) - int(b.Status)
	case "item_type_name":
		return strings.Compare(a.ItemTypeName, b.ItemTypeName)
	case "department_name":
		return strings.Compare(a.DepartmentName, b.DepartmentName)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return 0
	}
}

func (s *AllocationService) notifyFailure(createdBy int, orderNumber int) {
	creator, err := s.ur.GetUser(createdBy)
	if err != nil {
		s.log.Warn("unable to resolve order creator for failure notification",
			zap.Int("order_number", orderNumber),
			zap.Int("created_by", createdBy),
			zap.Error(err),
		)
		return
	}

	go s.dispatcher.NotifyDistributionFailure(*creator)
}

func (s *AllocationService) notifyCreator(createdBy int, orderNumber int, decision metadata.Status) {
	creator, err := s.ur.GetUser(createdBy)
	if err != nil {
		s.log.Warn("unable to resolve order creator for notification",
			zap.Int("order_number", orderNumber),
			zap.Int("created_by", createdBy),
			zap.Error(err),
		)
		return
	}

	switch decision {
	case metadata.StatusApproved:
		go s.dispatcher.NotifyApproved(*creator, orderNumber)
	case metadata.StatusCanceled:
		go s.dispatcher.NotifyCanceled(*creator, orderNumber)
	}
}
