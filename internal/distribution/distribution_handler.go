package distribution

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/security"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DistributionHandler struct {
	dr      DistributionRepository
	service *AllocationService
	log     *zap.Logger
}

func NewHandler(dr DistributionRepository, service *AllocationService, log *zap.Logger) *DistributionHandler {
	return &DistributionHandler{
		dr:      dr,
		service: service,
		log:     log,
	}
}

func (h *DistributionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/distributions", h.SearchDistributions)
	router.GET("/distributions/orders", h.GetLogicalOrders)
	router.GET("/distributions/:order_number", h.GetOrder)
	router.GET("/distributions/:order_number/items", h.GetLogicalOrderItems)
	router.POST("/distributions", h.CreateOrder)
	router.PATCH("/distributions/:order_number/allocate", h.Allocate)
	router.PATCH("/distributions/:order_number/collection-status", h.ChangeCollectionStatus)
}

func (h *DistributionHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	actingUser, err := security.CurrentUserID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve acting user"})
		return
	}

	orderNumber, err := h.service.CreateOrder(actingUser, req)
	if err != nil {
		h.respondError(c, err, "Unable to create distribution order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_number": orderNumber})
}

func (h *DistributionHandler) Allocate(c *gin.Context) {
	orderNumber, err := strconv.Atoi(c.Param("order_number"))
	if err != nil || orderNumber == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order number is required"})
		return
	}

	var req models.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	actingUser, err := security.CurrentUserID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve acting user"})
		return
	}

	if err := h.service.Allocate(orderNumber, req.Decision, req.Allocations, req.AdminComment, actingUser); err != nil {
		h.respondError(c, err, "Unable to allocate distribution order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order allocated", "order_number": orderNumber})
}

func (h *DistributionHandler) ChangeCollectionStatus(c *gin.Context) {
	orderNumber, err := strconv.Atoi(c.Param("order_number"))
	if err != nil || orderNumber == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order number is required"})
		return
	}

	var req models.CollectionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	actingUser, err := security.CurrentUserID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve acting user"})
		return
	}

	if err := h.service.ChangeCollectionStatus(orderNumber, req.Status, req.Comment, actingUser); err != nil {
		h.respondError(c, err, "Unable to change collection status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collection status updated", "order_number": orderNumber})
}

func (h *DistributionHandler) GetOrder(c *gin.Context) {
	orderNumber, err := strconv.Atoi(c.Param("order_number"))
	if err != nil || orderNumber == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order number is required"})
		return
	}

	lines, err := h.dr.GetLinesByOrder(orderNumber)
	if err != nil {
		h.log.Error("unable to get distribution order", zap.Int("order_number", orderNumber), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get distribution order"})
		return
	}
	if len(lines) == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Distribution order not found"})
		return
	}

	c.JSON(http.StatusOK, lines)
}

func (h *DistributionHandler) GetLogicalOrderItems(c *gin.Context) {
	orderNumber, err := strconv.Atoi(c.Param("order_number"))
	if err != nil || orderNumber == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order number is required"})
		return
	}

	logicalItems, err := h.dr.GetLogicalOrderItems(orderNumber)
	if err != nil {
		h.log.Error("unable to get order items", zap.Int("order_number", orderNumber), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get order items"})
		return
	}

	c.JSON(http.StatusOK, logicalItems)
}

func (h *DistributionHandler) GetLogicalOrders(c *gin.Context) {
	conditions, err := buildSearchConditions(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := h.dr.GetLogicalOrders(conditions)
	if err != nil {
		h.log.Error("unable to list distribution orders", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get distribution orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *DistributionHandler) SearchDistributions(c *gin.Context) {
	conditions, err := buildSearchConditions(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sortKeys := parseSortKeys(c.Query("sort"))

	lines, err := h.service.Search(conditions, sortKeys)
	if err != nil {
		h.log.Error("unable to search distributions", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to search distributions"})
		return
	}

	c.JSON(http.StatusOK, lines)
}

func (h *DistributionHandler) respondError(c *gin.Context, err error, internalMessage string) {
	switch {
	case custom_error.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case custom_error.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case custom_error.IsConflict(err):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error(internalMessage, zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalMessage})
	}
}

func buildSearchConditions(c *gin.Context) (repository.QueryBuilder, error) {
	conditions := repository.NewQueryBuilder()

	intParams := map[string]string{
		"order_number":  "order_number",
		"status":        "status",
		"client_id":     "client_id",
		"item_type_id":  "item_type_id",
		"department_id": "department_id",
	}
	for param, key := range intParams {
		if raw := c.Query(param); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &queryParamError{param: param}
			}
			conditions.AddCondition(key, value)
		}
	}

	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &queryParamError{param: "year"}
		}
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		conditions.AddCondition("created_at", goqu.Op{"gte": from, "lt": from.AddDate(1, 0, 0)})
	}

	return conditions, nil
}

func parseSortKeys(raw string) []SortKey {
	if raw == "" {
		return nil
	}

	var sortKeys []SortKey
	for _, part := range strings.Split(raw, ",") {
		field, direction, _ := strings.Cut(strings.TrimSpace(part), ":")
		if field == "" {
			continue
		}
		sortKeys = append(sortKeys, SortKey{
			Field:      field,
			Descending: strings.EqualFold(direction, "desc"),
		})
	}
	return sortKeys
}

type queryParamError struct {
	param string
}

func (e *queryParamError) Error() string {
	return e.param + " must be an integer"
}
