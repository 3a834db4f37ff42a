package users

import (
	"net/http"
	"strconv"

	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UsersHandler struct {
	ur  UserRepository
	log *zap.Logger
}

func NewHandler(ur UserRepository, log *zap.Logger) *UsersHandler {
	return &UsersHandler{ur: ur, log: log}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users", h.GetUsers)
	router.GET("/users/:id", h.GetUser)
	router.POST("/users", h.CreateUser)
	router.DELETE("/users/:id", h.RemoveUser)
}

func (h *UsersHandler) GetUsers(c *gin.Context) {
	userRows, err := h.ur.GetUsers()
	if err != nil {
		h.log.Error("unable to list users", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get users"})
		return
	}

	c.JSON(http.StatusOK, userRows)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	user, err := h.ur.GetUser(id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("unable to hash password", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create user"})
		return
	}

	if err := h.ur.PersistUser(req, hashedPassword); err != nil {
		h.log.Error("unable to create user", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created"})
}

func (h *UsersHandler) RemoveUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	if err := h.ur.RemoveUser(id); err != nil {
		h.log.Error("unable to remove user", zap.Int("user_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
