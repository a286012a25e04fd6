package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ReportSummary(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summary, err := s.reportSvc.Summary(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) ReportAnalytics(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	analytics, err := s.reportSvc.Analytics(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": analytics})
}
