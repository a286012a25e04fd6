package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("name", "Name is required."))
		return
	}

	// Self-registration always lands on the customer role. Admins are
	// provisioned by other admins or seeded at startup.
	result, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     userdomain.RoleUser,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)

	if allowed, retryAfter := s.loginLimiter.Allow(c.Request.Context(), email+":"+c.ClientIP()); !allowed {
		if retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message": "Too many login attempts. Please try again later.",
		})
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (s *Server) Logout(c *gin.Context) {
	if err := s.authsvc.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) Me(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.usersvc.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
