package types

import (
	"errors"
	"net/http"
	"strconv"

	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ItemTypeHandler struct {
	tr  ItemTypeRepository
	log *zap.Logger
}

func NewItemTypeHandler(tr ItemTypeRepository, log *zap.Logger) *ItemTypeHandler {
	return &ItemTypeHandler{tr: tr, log: log}
}

func (h *ItemTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/item-types", h.GetItemTypes)
	router.POST("/item-types", h.CreateItemType)
	router.DELETE("/item-types/:id", h.RemoveItemType)
}

func (h *ItemTypeHandler) GetItemTypes(c *gin.Context) {
	itemTypes, err := h.tr.GetItemTypes()
	if err != nil {
		h.log.Error("unable to list item types", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get item types"})
		return
	}

	c.JSON(http.StatusOK, itemTypes)
}

func (h *ItemTypeHandler) CreateItemType(c *gin.Context) {
	var req models.ItemType
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	itemType, err := h.tr.PersistItemType(req)
	if err != nil {
		var unique *custom_error.UniqueViolationError
		if errors.As(err, &unique) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item type already exists"})
			return
		}
		h.log.Error("unable to create item type", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create item type"})
		return
	}

	c.JSON(http.StatusCreated, itemType)
}

func (h *ItemTypeHandler) RemoveItemType(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Item type ID is required"})
		return
	}

	hasInventory, err := h.tr.HasRelatedInventory(id)
	if err != nil {
		h.log.Error("unable to check related inventory", zap.Int("item_type_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove item type"})
		return
	}
	if hasInventory {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item type still has stocked inventory"})
		return
	}

	if err := h.tr.RemoveItemType(id); err != nil {
		h.log.Error("unable to remove item type", zap.Int("item_type_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove item type"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item type removed"})
}
