package items

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/reports"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ItemHandler struct {
	ir         InventoryRepository
	reportRepo reports.ReportRepository
	service    *ItemService
	log        *zap.Logger
}

func NewItemHandler(r *repository.Repository, ir InventoryRepository, reportRepo reports.ReportRepository, log *zap.Logger) *ItemHandler {
	return &ItemHandler{
		ir:         ir,
		reportRepo: reportRepo,
		service:    NewService(r, ir, reportRepo),
		log:        log,
	}
}

func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/inventory", h.GetItems)
	router.GET("/inventory/:id", h.GetItem)
	router.GET("/inventory/:id/reports", h.GetItemReports)
	router.POST("/inventory", h.CreateItem)
	router.PATCH("/inventory/:id/restock", h.Restock)
	router.DELETE("/inventory/:id", h.RemoveItem)
}

func (h *ItemHandler) GetItems(c *gin.Context) {
	conditions := repository.NewQueryBuilder()
	if itemTypeID := c.Query("item_type_id"); itemTypeID != "" {
		id, err := strconv.Atoi(itemTypeID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "item_type_id must be an integer"})
			return
		}
		conditions.AddCondition("item_type_id", id)
	}
	if sku := c.Query("sku"); sku != "" {
		conditions.AddCondition("sku", sku)
	}

	inventoryItems, err := h.ir.GetItemsBy(conditions)
	if err != nil {
		h.log.Error("unable to list inventory items", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get inventory items"})
		return
	}

	c.JSON(http.StatusOK, inventoryItems)
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil || itemID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Inventory item ID is required"})
		return
	}

	item, err := h.ir.GetItem(itemID)
	if err != nil {
		if errors.Is(err, custom_error.ErrInventoryNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
			return
		}
		h.log.Error("unable to get inventory item", zap.Int("item_id", itemID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get inventory item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) GetItemReports(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil || itemID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Inventory item ID is required"})
		return
	}

	reportRows, err := h.reportRepo.GetReportsByItem(itemID)
	if err != nil {
		h.log.Error("unable to get stock reports", zap.Int("item_id", itemID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get stock reports"})
		return
	}

	c.JSON(http.StatusOK, reportRows)
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req models.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	item, err := h.ir.PersistItem(req)
	if err != nil {
		var unique *custom_error.UniqueViolationError
		if errors.As(err, &unique) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "SKU already registered"})
			return
		}
		h.log.Error("unable to create inventory item", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create inventory item"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) Restock(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil || itemID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Inventory item ID is required"})
		return
	}

	var req models.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	actingUser, err := security.CurrentUserID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve acting user"})
		return
	}

	item, err := h.service.Restock(itemID, req.Quantity, actingUser)
	if err != nil {
		switch {
		case errors.Is(err, custom_error.ErrInventoryNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		case errors.Is(err, custom_error.ErrInvariantViolation):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "New quantity is below current reservations"})
		default:
			h.log.Error("unable to restock inventory item", zap.Int("item_id", itemID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to restock inventory item"})
		}
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) RemoveItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil || itemID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Inventory item ID is required"})
		return
	}

	if err := h.ir.RemoveItem(itemID); err != nil {
		if errors.Is(err, custom_error.ErrInventoryNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
			return
		}
		h.log.Error("unable to remove inventory item", zap.Int("item_id", itemID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove inventory item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item removed"})
}
