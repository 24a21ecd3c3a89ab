package handler

import (
	"net/http"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// Root serves the service info document at "/".
func Root(appName string) gin.HandlerFunc {
	body := dto.RootResponse{
		Message:     appName,
		Docs:        "/swagger",
		HealthCheck: "/health",
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}

// HealthCheck pings every dependency and reports 503 when any of them fails.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dto.DependencyStatus, len(checkers))
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = dto.DependencyStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = dto.DependencyStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, dto.HealthResponse{
			Status:       status,
			Dependencies: deps,
		})
	}
}
