package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
}

var (
	healthMutex sync.RWMutex
	startTime   = time.Now()
	status      = "ok"
)

func HealthCheckMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		healthMutex.RLock()
		defer healthMutex.RUnlock()

		c.JSON(http.StatusOK, HealthStatus{
			Status:      status,
			LastChecked: time.Now(),
			Uptime:      time.Since(startTime).String(),
		})
	}
}

func UpdateHealthStatus(newStatus string) {
	healthMutex.Lock()
	defer healthMutex.Unlock()
	status = newStatus
}
