package distribution

import (
	"errors"
	"testing"
	"time"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockDistributionRepository struct {
	mock.Mock
}

func (m *MockDistributionRepository) GetInUseOrderNumbers() (map[int]struct{}, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]struct{}), args.Error(1)
}

func (m *MockDistributionRepository) RegisterOrderNumber(tx *goqu.TxDatabase, orderNumber int, clientID int, createdBy int) error {
	args := m.Called(tx, orderNumber, clientID, createdBy)
	return args.Error(0)
}

func (m *MockDistributionRepository) InsertLines(tx *goqu.TxDatabase, lines []models.DistributionLine) error {
	args := m.Called(tx, lines)
	return args.Error(0)
}

func (m *MockDistributionRepository) GetLinesByOrderAndStatus(orderNumber int, status metadata.Status) ([]models.DistributionLine, error) {
	args := m.Called(orderNumber, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DistributionLine), args.Error(1)
}

func (m *MockDistributionRepository) GetLinesForUpdate(tx *goqu.TxDatabase, orderNumber int, status metadata.Status) ([]models.DistributionLine, error) {
	args := m.Called(tx, orderNumber, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DistributionLine), args.Error(1)
}

func (m *MockDistributionRepository) CancelOrderLines(tx *goqu.TxDatabase, orderNumber int, reason string, adminComment string) error {
	args := m.Called(tx, orderNumber, reason, adminComment)
	return args.Error(0)
}

func (m *MockDistributionRepository) CancelLine(tx *goqu.TxDatabase, lineID int, reason string) error {
	args := m.Called(tx, lineID, reason)
	return args.Error(0)
}

func (m *MockDistributionRepository) MarkLineCollected(tx *goqu.TxDatabase, lineID int, quartermasterID int, comment string) error {
	args := m.Called(tx, lineID, quartermasterID, comment)
	return args.Error(0)
}

func (m *MockDistributionRepository) DeleteLine(tx *goqu.TxDatabase, lineID int) error {
	args := m.Called(tx, lineID)
	return args.Error(0)
}

func (m *MockDistributionRepository) SearchLines(conditions repository.QueryBuilder) ([]models.DistributionLine, error) {
	args := m.Called(conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DistributionLine), args.Error(1)
}

func (m *MockDistributionRepository) GetLinesByOrder(orderNumber int) ([]models.DistributionLine, error) {
	args := m.Called(orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DistributionLine), args.Error(1)
}

func (m *MockDistributionRepository) GetLogicalOrders(conditions repository.QueryBuilder) ([]models.DistributionLine, error) {
	args := m.Called(conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DistributionLine), args.Error(1)
}

func (m *MockDistributionRepository) GetLogicalOrderItems(orderNumber int) ([]models.LogicalOrderItem, error) {
	args := m.Called(orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LogicalOrderItem), args.Error(1)
}

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) GetItem(id int) (*models.InventoryItem, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) GetItemsBy(conditions repository.QueryBuilder) (*[]models.InventoryItem, error) {
	args := m.Called(conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) PersistItem(req models.CreateInventoryItemRequest) (*models.InventoryItem, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) RemoveItem(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockInventoryRepository) GetItemForUpdate(tx *goqu.TxDatabase, id int) (*models.InventoryItem, error) {
	args := m.Called(tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) Reserve(tx *goqu.TxDatabase, itemID int, qty int) error {
	args := m.Called(tx, itemID, qty)
	return args.Error(0)
}

func (m *MockInventoryRepository) Release(tx *goqu.TxDatabase, itemID int, qty int) error {
	args := m.Called(tx, itemID, qty)
	return args.Error(0)
}

func (m *MockInventoryRepository) Consume(tx *goqu.TxDatabase, itemID int, qty int) error {
	args := m.Called(tx, itemID, qty)
	return args.Error(0)
}

func (m *MockInventoryRepository) UpdateQuantity(tx *goqu.TxDatabase, itemID int, newQuantity int) error {
	args := m.Called(tx, itemID, newQuantity)
	return args.Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) GetClient(id int) (*models.Client, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientRepository) UpsertClient(tx *goqu.TxDatabase, client models.Client) (int, error) {
	args := m.Called(tx, client)
	return args.Int(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) PersistUser(req models.CreateUserRequest, hashedPassword []byte) error {
	args := m.Called(req, hashedPassword)
	return args.Error(0)
}

func (m *MockUserRepository) GetUser(id int) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUsers() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsActive(id int) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RemoveUser(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

// stubDispatcher swallows notifications so tests do not race against the
// fire-and-forget goroutine.
type stubDispatcher struct{}

func (stubDispatcher) NotifyApproved(models.User, int)       {}
func (stubDispatcher) NotifyCanceled(models.User, int)       {}
func (stubDispatcher) NotifyDistributionFailure(models.User) {}

type serviceMocks struct {
	dr *MockDistributionRepository
	ir *MockInventoryRepository
	cr *MockClientRepository
	ur *MockUserRepository
	tx *goqu.TxDatabase
}

func newTestService() (*AllocationService, serviceMocks) {
	m := serviceMocks{
		dr: new(MockDistributionRepository),
		ir: new(MockInventoryRepository),
		cr: new(MockClientRepository),
		ur: new(MockUserRepository),
		tx: new(goqu.TxDatabase),
	}

	service := &AllocationService{
		r:          &repository.Repository{},
		dr:         m.dr,
		ir:         m.ir,
		cr:         m.cr,
		ur:         m.ur,
		dispatcher: stubDispatcher{},
		log:        zap.NewNop(),
		runTx: func(_ *goqu.Database, fn func(tx *goqu.TxDatabase) error) error {
			return fn(m.tx)
		},
	}

	return service, m
}

func pendingLine(id, orderNumber, itemTypeID, quantity int) models.DistributionLine {
	return models.DistributionLine{
		ID:              id,
		OrderNumber:     orderNumber,
		ItemTypeID:      itemTypeID,
		Status:          metadata.StatusPending,
		TotalQuantity:   quantity,
		QuantityPerItem: quantity,
		ClientID:        10,
		CreatedBy:       5,
		DepartmentID:    3,
	}
}

func TestCreateOrderFansOutOnePendingLinePerItemType(t *testing.T) {
	service, m := newTestService()

	req := models.CreateOrderRequest{
		PersonalNumber: 1234567,
		ClientName:     "Dana Levi",
		EmployeeType:   "sadir",
		DepartmentID:   3,
		Items: []models.OrderItemRequest{
			{ItemTypeID: 7, Quantity: 2},
			{ItemTypeID: 9, Quantity: 1, Comment: "left handed"},
		},
	}

	m.dr.On("GetInUseOrderNumbers").Return(map[int]struct{}{}, nil).Once()
	m.cr.On("UpsertClient", m.tx, mock.AnythingOfType("models.Client")).Return(10, nil).Once()
	m.dr.On("RegisterOrderNumber", m.tx, mock.AnythingOfType("int"), 10, 42).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.MatchedBy(func(lines []models.DistributionLine) bool {
		if len(lines) != 2 {
			return false
		}
		for _, line := range lines {
			if line.Status != metadata.StatusPending || line.TotalQuantity != 3 || line.ClientID != 10 || line.CreatedBy != 42 {
				return false
			}
		}
		return lines[0].ItemTypeID == 7 && lines[0].QuantityPerItem == 2 &&
			lines[1].ItemTypeID == 9 && lines[1].QuantityPerItem == 1
	})).Return(nil).Once()

	orderNumber, err := service.CreateOrder(42, req)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, orderNumber, 1_000_000)
	assert.LessOrEqual(t, orderNumber, 9_999_999)
	m.dr.AssertExpectations(t)
	m.cr.AssertExpectations(t)
}

func TestCreateOrderRedrawsOnDuplicateOrderNumber(t *testing.T) {
	service, m := newTestService()

	req := models.CreateOrderRequest{
		PersonalNumber: 1234567,
		ClientName:     "Dana Levi",
		EmployeeType:   "miluim",
		DepartmentID:   3,
		Items:          []models.OrderItemRequest{{ItemTypeID: 7, Quantity: 1}},
	}

	m.dr.On("GetInUseOrderNumbers").Return(map[int]struct{}{}, nil).Once()
	m.cr.On("UpsertClient", m.tx, mock.AnythingOfType("models.Client")).Return(10, nil).Twice()
	m.dr.On("RegisterOrderNumber", m.tx, mock.AnythingOfType("int"), 10, 42).
		Return(custom_error.WrapDBError("order number already registered", "23505")).Once()
	m.dr.On("RegisterOrderNumber", m.tx, mock.AnythingOfType("int"), 10, 42).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.AnythingOfType("[]models.DistributionLine")).Return(nil).Once()

	orderNumber, err := service.CreateOrder(42, req)

	assert.NoError(t, err)
	assert.NotZero(t, orderNumber)
	m.dr.AssertExpectations(t)
	m.cr.AssertExpectations(t)
}

func TestAllocateRejectsInvalidDecision(t *testing.T) {
	service, _ := newTestService()

	err := service.Allocate(1234567, int(metadata.StatusCollected), nil, "", 1)

	assert.ErrorIs(t, err, custom_error.ErrInvalidDecision)
}

func TestAllocateCancelRequiresReason(t *testing.T) {
	service, _ := newTestService()

	err := service.Allocate(1234567, int(metadata.StatusCanceled), nil, "   ", 1)

	assert.ErrorIs(t, err, custom_error.ErrMissingCancelReason)
}

func TestAllocateApproveRequiresAllocations(t *testing.T) {
	service, _ := newTestService()

	err := service.Allocate(1234567, int(metadata.StatusApproved), nil, "", 1)

	assert.ErrorIs(t, err, custom_error.ErrMissingAllocation)
}

func TestAllocateUnknownOrder(t *testing.T) {
	service, m := newTestService()

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).
		Return([]models.DistributionLine{}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusCanceled), nil, "out of scope", 1)

	assert.ErrorIs(t, err, custom_error.ErrOrderNotFound)
	m.dr.AssertExpectations(t)
}

func TestAllocateCancelsWholeOrder(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 2)}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.dr.On("CancelOrderLines", m.tx, 1234567, "budget cut", "budget cut").Return(nil).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5, Email: "s1234567@army.example.com"}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusCanceled), nil, "budget cut", 1)

	assert.NoError(t, err)
	m.dr.AssertExpectations(t)
	m.ur.AssertExpectations(t)
}

func TestAllocateRejectsMissingCreator(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 2)}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(false, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusCanceled), nil, "budget cut", 1)

	assert.ErrorIs(t, err, custom_error.ErrCreatorNotFound)
	m.ur.AssertExpectations(t)
}

func TestAllocateApprovesWithFanOut(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 5)}
	allocations := []models.ItemTypeAllocation{
		{
			ItemTypeID: 7,
			Draws: []models.InventoryDraw{
				{InventoryItemID: 31, Quantity: 3},
				{InventoryItemID: 32, Quantity: 2},
			},
		},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 10}, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 32).
		Return(&models.InventoryItem{ID: 32, ItemType: models.ItemType{ID: 7}, SKU: "HLM-002", Quantity: 4, Reserved: 2}, nil).Once()
	m.ir.On("Reserve", m.tx, 31, 3).Return(nil).Once()
	m.ir.On("Reserve", m.tx, 32, 2).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.MatchedBy(func(approved []models.DistributionLine) bool {
		if len(approved) != 2 {
			return false
		}
		for _, line := range approved {
			if line.Status != metadata.StatusApproved || line.QuantityApproved != 5 || line.QuantityPerItem != 5 {
				return false
			}
		}
		return *approved[0].InventoryItemID == 31 && approved[0].QuantityPerInventory == 3 && approved[0].SKU == "HLM-001" &&
			*approved[1].InventoryItemID == 32 && approved[1].QuantityPerInventory == 2 && approved[1].SKU == "HLM-002"
	})).Return(nil).Once()
	m.dr.On("DeleteLine", m.tx, 1).Return(nil).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5, Email: "s1234567@army.example.com"}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "approved as requested", 1)

	assert.NoError(t, err)
	m.dr.AssertExpectations(t)
	m.ir.AssertExpectations(t)
}

func TestAllocateDuplicateItemTypeProcessedOnce(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 1)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 1}}},
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 32, Quantity: 1}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 5}, nil).Once()
	m.ir.On("Reserve", m.tx, 31, 1).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.AnythingOfType("[]models.DistributionLine")).Return(nil).Once()
	m.dr.On("DeleteLine", m.tx, 1).Return(nil).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.NoError(t, err)
	m.ir.AssertNotCalled(t, "GetItemForUpdate", m.tx, 32)
	m.ir.AssertExpectations(t)
	m.dr.AssertExpectations(t)
}

func TestAllocateRejectsForeignItemType(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 1)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 99, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 1}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.ErrorIs(t, err, custom_error.ErrMalformedAllocation)
}

func TestAllocateRejectsEmptyDrawsWithoutReason(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 1)}
	allocations := []models.ItemTypeAllocation{{ItemTypeID: 7}}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.ErrorIs(t, err, custom_error.ErrMalformedAllocation)
}

func TestAllocateCancelsSingleItemType(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{
		pendingLine(1, 1234567, 7, 1),
		pendingLine(2, 1234567, 9, 2),
	}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 1}}},
		{ItemTypeID: 9, CanceledReason: "out of stock until next quarter"},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 5}, nil).Once()
	m.ir.On("Reserve", m.tx, 31, 1).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.AnythingOfType("[]models.DistributionLine")).Return(nil).Once()
	m.dr.On("DeleteLine", m.tx, 1).Return(nil).Once()
	m.dr.On("CancelLine", m.tx, 2, "out of stock until next quarter").Return(nil).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.NoError(t, err)
	m.dr.AssertExpectations(t)
	m.ir.AssertExpectations(t)
}

func TestAllocateFailsOnInsufficientStock(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 5)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 5}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 6, Reserved: 4}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	var stockErr *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "HLM-001", stockErr.SKU)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	m.ir.AssertNotCalled(t, "Reserve", m.tx, 31, 5)
}

func TestAllocateFailsOnItemTypeMismatch(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 1)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 1}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 8}, SKU: "VST-010", Quantity: 5}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	var mismatchErr *custom_error.InventoryTypeMismatchError
	assert.ErrorAs(t, err, &mismatchErr)
	assert.Equal(t, "VST-010", mismatchErr.SKU)
}

func TestChangeCollectionStatusRejectsInvalidStatus(t *testing.T) {
	service, _ := newTestService()

	err := service.ChangeCollectionStatus(1234567, 42, "", 1)

	var statusErr *custom_error.InvalidStatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestChangeCollectionStatusRejectsIllegalTransition(t *testing.T) {
	service, _ := newTestService()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusCanceled), "", 1)

	var statusErr *custom_error.InvalidStatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestChangeCollectionStatusReturnRequiresComment(t *testing.T) {
	service, _ := newTestService()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusPending), "  ", 1)

	assert.ErrorIs(t, err, custom_error.ErrMissingComment)
}

func approvedLine(id, orderNumber, itemTypeID, inventoryItemID, perInventory int) models.DistributionLine {
	invID := inventoryItemID
	return models.DistributionLine{
		ID:                   id,
		OrderNumber:          orderNumber,
		ItemTypeID:           itemTypeID,
		Status:               metadata.StatusApproved,
		TotalQuantity:        5,
		QuantityPerItem:      5,
		QuantityApproved:     5,
		QuantityPerInventory: perInventory,
		InventoryItemID:      &invID,
		ClientID:             10,
		CreatedBy:            5,
		DepartmentID:         3,
		CreatedAt:            time.Now(),
	}
}

func TestCollectConsumesEveryReservation(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{
		approvedLine(11, 1234567, 7, 31, 3),
		approvedLine(12, 1234567, 7, 32, 2),
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusApproved).Return(lines, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 10, Reserved: 3}, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 32).
		Return(&models.InventoryItem{ID: 32, ItemType: models.ItemType{ID: 7}, SKU: "HLM-002", Quantity: 4, Reserved: 2}, nil).Once()
	m.ir.On("Consume", m.tx, 31, 3).Return(nil).Once()
	m.ir.On("Consume", m.tx, 32, 2).Return(nil).Once()
	m.dr.On("MarkLineCollected", m.tx, 11, 8, "handed over").Return(nil).Once()
	m.dr.On("MarkLineCollected", m.tx, 12, 8, "handed over").Return(nil).Once()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusCollected), "handed over", 8)

	assert.NoError(t, err)
	m.dr.AssertExpectations(t)
	m.ir.AssertExpectations(t)
}

func TestCollectFailsWhenLineHasNoInventoryItem(t *testing.T) {
	service, m := newTestService()

	line := approvedLine(11, 1234567, 7, 31, 3)
	line.InventoryItemID = nil

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusApproved).
		Return([]models.DistributionLine{line}, nil).Once()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusCollected), "", 8)

	assert.ErrorIs(t, err, custom_error.ErrInventoryNotFound)
	m.ir.AssertNotCalled(t, "Consume", m.tx, 31, 3)
}

func TestCollectFailsWhenInventoryItemSoftDeleted(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{approvedLine(11, 1234567, 7, 31, 3)}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusApproved).Return(lines, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).Return(nil, custom_error.ErrInventoryNotFound).Once()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusCollected), "", 8)

	assert.ErrorIs(t, err, custom_error.ErrInventoryNotFound)
	m.ir.AssertNotCalled(t, "Consume", m.tx, 31, 3)
	m.dr.AssertNotCalled(t, "MarkLineCollected", m.tx, 11, 8, "")
}

func TestReturnToPendingCollapsesFanOut(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{
		approvedLine(11, 1234567, 7, 31, 3),
		approvedLine(12, 1234567, 7, 32, 2),
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusApproved).Return(lines, nil).Once()
	m.ir.On("Release", m.tx, 31, 3).Return(nil).Once()
	m.ir.On("Release", m.tx, 32, 2).Return(nil).Once()
	m.dr.On("DeleteLine", m.tx, 11).Return(nil).Once()
	m.dr.On("DeleteLine", m.tx, 12).Return(nil).Once()
	m.dr.On("InsertLines", m.tx, mock.MatchedBy(func(pending []models.DistributionLine) bool {
		if len(pending) != 1 {
			return false
		}
		line := pending[0]
		return line.Status == metadata.StatusPending &&
			line.ItemTypeID == 7 &&
			line.QuantityPerItem == 5 &&
			line.TotalQuantity == 5 &&
			line.QuantityApproved == 0 &&
			line.QuantityPerInventory == 0 &&
			line.InventoryItemID == nil &&
			line.QuartermasterComment == "size did not fit"
	})).Return(nil).Once()

	err := service.ChangeCollectionStatus(1234567, int(metadata.StatusPending), "size did not fit", 8)

	assert.NoError(t, err)
	m.dr.AssertExpectations(t)
	m.ir.AssertExpectations(t)
}

func TestAllocateRollsBackOnReserveFailure(t *testing.T) {
	service, m := newTestService()

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 2)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 2}}},
	}
	reserveErr := errors.New("reserve failed")

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 5}, nil).Once()
	m.ir.On("Reserve", m.tx, 31, 2).Return(reserveErr).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.ErrorIs(t, err, reserveErr)
	m.dr.AssertNotCalled(t, "InsertLines", m.tx, mock.Anything)
	m.dr.AssertNotCalled(t, "DeleteLine", m.tx, 1)
}

// recordingDispatcher captures failure notifications on a channel so the test
// can wait for the fire-and-forget goroutine deterministically.
type recordingDispatcher struct {
	failures chan models.User
}

func (d *recordingDispatcher) NotifyApproved(models.User, int) {}
func (d *recordingDispatcher) NotifyCanceled(models.User, int) {}
func (d *recordingDispatcher) NotifyDistributionFailure(user models.User) {
	d.failures <- user
}

func TestAllocateNotifiesCreatorOnInternalFailure(t *testing.T) {
	service, m := newTestService()
	recorder := &recordingDispatcher{failures: make(chan models.User, 1)}
	service.dispatcher = recorder

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 2)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 2}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).Return(nil, errors.New("connection reset")).Once()
	m.ur.On("GetUser", 5).Return(&models.User{ID: 5, Email: "s1234567@army.example.com"}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	assert.Error(t, err)
	select {
	case creator := <-recorder.failures:
		assert.Equal(t, 5, creator.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a failure notification for the order creator")
	}
	m.ur.AssertExpectations(t)
}

func TestAllocateSkipsFailureNotificationOnRejection(t *testing.T) {
	service, m := newTestService()
	recorder := &recordingDispatcher{failures: make(chan models.User, 1)}
	service.dispatcher = recorder

	lines := []models.DistributionLine{pendingLine(1, 1234567, 7, 5)}
	allocations := []models.ItemTypeAllocation{
		{ItemTypeID: 7, Draws: []models.InventoryDraw{{InventoryItemID: 31, Quantity: 5}}},
	}

	m.dr.On("GetLinesForUpdate", m.tx, 1234567, metadata.StatusPending).Return(lines, nil).Once()
	m.ur.On("ExistsActive", 5).Return(true, nil).Once()
	m.ir.On("GetItemForUpdate", m.tx, 31).
		Return(&models.InventoryItem{ID: 31, ItemType: models.ItemType{ID: 7}, SKU: "HLM-001", Quantity: 3}, nil).Once()

	err := service.Allocate(1234567, int(metadata.StatusApproved), allocations, "", 1)

	var stockErr *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	select {
	case <-recorder.failures:
		t.Fatal("client-correctable rejection must not notify a failure")
	default:
	}
	m.ur.AssertNotCalled(t, "GetUser", 5)
}

func TestSearchAppliesMultiKeySort(t *testing.T) {
	service, m := newTestService()

	conditions := repository.NewQueryBuilder()
	rows := []models.DistributionLine{
		{OrderNumber: 2000001, Status: metadata.StatusApproved, ItemTypeName: "helmet"},
		{OrderNumber: 2000001, Status: metadata.StatusPending, ItemTypeName: "vest"},
		{OrderNumber: 1000001, Status: metadata.StatusPending, ItemTypeName: "vest"},
	}
	m.dr.On("SearchLines", conditions).Return(rows, nil).Once()

	sorted, err := service.Search(conditions, []SortKey{
		{Field: "order_number"},
		{Field: "status", Descending: true},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1000001, sorted[0].OrderNumber)
	assert.Equal(t, 2000001, sorted[1].OrderNumber)
	assert.Equal(t, metadata.StatusApproved, sorted[1].Status)
	assert.Equal(t, metadata.StatusPending, sorted[2].Status)
}
