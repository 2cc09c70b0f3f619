package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulgax-store/api/response"
	"pulgax-store/internal/middleware"
	"pulgax-store/internal/models"
	"pulgax-store/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// ============== ADMIN ==============

// POST /api/admin/register
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req models.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	session, err := h.authService.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// POST /api/admin/login
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	session, err := h.authService.LoginAdmin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/admin/me
func (h *AuthHandler) CurrentAdmin(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	admin, err := h.authService.GetAdmin(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, admin.Profile())
}

// ============== CUSTOMER ==============

// POST /api/customer/register
func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req models.RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	session, err := h.authService.RegisterCustomer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// POST /api/customer/login
func (h *AuthHandler) LoginCustomer(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	session, err := h.authService.LoginCustomer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /api/customer/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	session, err := h.authService.GoogleLogin(c.Request.Context(), req.Credential)
	if errors.Is(err, services.ErrGoogleDisabled) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
			"code":  "GOOGLE_DISABLED",
		})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/customer/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	customer, err := h.authService.GetCustomer(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, customer.Profile())
}

// PUT /api/customer/address
func (h *AuthHandler) UpdateAddress(c *gin.Context) {
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	customer, err := h.authService.UpdateCustomerAddress(c.Request.Context(), p.ID, addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, customer.Profile())
}
