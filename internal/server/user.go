package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
)

type CreateUserBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ListCustomers backs the customer picker on the invoice form.
func (s *Server) ListCustomers(c *gin.Context) {
	customers, err := s.usersvc.ListCustomers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func (s *Server) CreateUser(c *gin.Context) {
	var body CreateUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(body.Name) == "" {
		AbortWithError(c, newValidationError("name", "Name is required."))
		return
	}

	// Password is optional on admin creation; the account gets a random
	// credential and the user resets it out of band.
	password := body.Password
	if password == "" {
		password = uuid.NewString()
	} else if len(password) < 6 {
		AbortWithError(c, authdomain.ErrWeakPassword)
		return
	}

	user, err := s.usersvc.Create(c.Request.Context(), userdomain.CreateUserRequest{
		Name:     body.Name,
		Email:    body.Email,
		Password: password,
		Role:     userdomain.Role(body.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": user})
}
