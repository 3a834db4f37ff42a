package items

import (
	"testing"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

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

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) PersistReport(tx *goqu.TxDatabase, report models.Report) error {
	args := m.Called(tx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetReportsByItem(inventoryItemID int) ([]models.Report, error) {
	args := m.Called(inventoryItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func newTestItemService(ir *MockInventoryRepository, rr *MockReportRepository, tx *goqu.TxDatabase) *ItemService {
	return &ItemService{
		r:          &repository.Repository{},
		ir:         ir,
		reportRepo: rr,
		runTx: func(_ *goqu.Database, fn func(tx *goqu.TxDatabase) error) error {
			return fn(tx)
		},
	}
}

func TestRestockUpdatesQuantityAndWritesReport(t *testing.T) {
	ir := new(MockInventoryRepository)
	rr := new(MockReportRepository)
	tx := new(goqu.TxDatabase)
	service := newTestItemService(ir, rr, tx)

	locked := &models.InventoryItem{ID: 31, SKU: "HLM-001", Quantity: 5, Reserved: 2}
	updated := &models.InventoryItem{ID: 31, SKU: "HLM-001", Quantity: 12, Reserved: 2}

	ir.On("GetItemForUpdate", tx, 31).Return(locked, nil).Once()
	ir.On("UpdateQuantity", tx, 31, 12).Return(nil).Once()
	rr.On("PersistReport", tx, models.Report{
		InventoryItemID: 31,
		SKU:             "HLM-001",
		OldQuantity:     5,
		NewQuantity:     12,
		CreatedBy:       8,
	}).Return(nil).Once()
	ir.On("GetItem", 31).Return(updated, nil).Once()

	item, err := service.Restock(31, 12, 8)

	assert.NoError(t, err)
	assert.Equal(t, 12, item.Quantity)
	ir.AssertExpectations(t)
	rr.AssertExpectations(t)
}

func TestRestockUnchangedQuantitySkipsReport(t *testing.T) {
	ir := new(MockInventoryRepository)
	rr := new(MockReportRepository)
	tx := new(goqu.TxDatabase)
	service := newTestItemService(ir, rr, tx)

	locked := &models.InventoryItem{ID: 31, SKU: "HLM-001", Quantity: 5}

	ir.On("GetItemForUpdate", tx, 31).Return(locked, nil).Once()
	ir.On("GetItem", 31).Return(locked, nil).Once()

	item, err := service.Restock(31, 5, 8)

	assert.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	ir.AssertNotCalled(t, "UpdateQuantity", tx, 31, 5)
	rr.AssertNotCalled(t, "PersistReport", tx, mock.Anything)
}

func TestRestockPropagatesUpdateFailure(t *testing.T) {
	ir := new(MockInventoryRepository)
	rr := new(MockReportRepository)
	tx := new(goqu.TxDatabase)
	service := newTestItemService(ir, rr, tx)

	locked := &models.InventoryItem{ID: 31, SKU: "HLM-001", Quantity: 5, Reserved: 4}

	ir.On("GetItemForUpdate", tx, 31).Return(locked, nil).Once()
	ir.On("UpdateQuantity", tx, 31, 3).Return(assert.AnError).Once()

	_, err := service.Restock(31, 3, 8)

	assert.Error(t, err)
	rr.AssertNotCalled(t, "PersistReport", tx, mock.Anything)
	ir.AssertNotCalled(t, "GetItem", 31)
}
