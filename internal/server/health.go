package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness plus a database round trip. Load balancers
// treat anything but 200 as out of rotation.
func (s *Server) Health(c *gin.Context) {
	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		checks["database"] = "fail"
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"version": s.cfg.AppVersion,
		"checks":  checks,
	})
}
