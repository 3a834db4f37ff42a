package departments

import (
	"errors"
	"net/http"
	"strconv"

	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DepartmentHandler struct {
	dr  DepartmentRepository
	log *zap.Logger
}

func NewHandler(dr DepartmentRepository, log *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{dr: dr, log: log}
}

func (h *DepartmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/departments", h.GetDepartments)
	router.POST("/departments", h.CreateDepartment)
	router.DELETE("/departments/:id", h.RemoveDepartment)
}

func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	departmentRows, err := h.dr.GetDepartments()
	if err != nil {
		h.log.Error("unable to list departments", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get departments"})
		return
	}

	c.JSON(http.StatusOK, departmentRows)
}

func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req models.Department
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	department, err := h.dr.PersistDepartment(req)
	if err != nil {
		var unique *custom_error.UniqueViolationError
		if errors.As(err, &unique) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Department already exists"})
			return
		}
		h.log.Error("unable to create department", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create department"})
		return
	}

	c.JSON(http.StatusCreated, department)
}

func (h *DepartmentHandler) RemoveDepartment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Department ID is required"})
		return
	}

	if err := h.dr.RemoveDepartment(id); err != nil {
		h.log.Error("unable to remove department", zap.Int("department_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove department"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Department removed"})
}
