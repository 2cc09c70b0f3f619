package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pulgax-store/api/response"
	"pulgax-store/internal/middleware"
	"pulgax-store/internal/models"
	"pulgax-store/internal/services"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	var customerID *string
	if p, ok := middleware.PrincipalFrom(c); ok {
		customerID = &p.ID
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req, customerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type quoteRequest struct {
	Items        []models.CartItem `json:"items" binding:"required,min=1,dive"`
	ShippingCost decimal.Decimal   `json:"shipping_cost"`
	TotalAmount  *decimal.Decimal  `json:"total_amount"`
}

// POST /api/orders/quote
func (h *OrderHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	quote, err := h.orderService.Quote(c.Request.Context(), req.Items, req.ShippingCost, req.TotalAmount)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GET /api/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PUT /api/orders/:id/status
// The status may come as a query parameter or in the JSON body.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	req := models.UpdateStatusRequest{
		Status: c.Query("status"),
		Note:   c.Query("note"),
	}
	if c.Request.ContentLength != 0 {
		var body models.UpdateStatusRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err)
			return
		}
		if body.Status != "" {
			req.Status = body.Status
		}
		if body.Note != "" {
			req.Note = body.Note
		}
	}

	order, err := h.orderService.TransitionStatus(c.Request.Context(), c.Param("id"), req.Status, strings.TrimSpace(req.Note), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Status updated",
		"status":  order.Status,
		"order":   order,
	})
}

// POST /api/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	var req models.RefundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err)
			return
		}
	}

	order, err := h.orderService.ProcessRefund(c.Request.Context(), c.Param("id"), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Refund processed",
		"refund":  order.Refund,
		"order":   order,
	})
}

// GET /api/customer/orders
func (h *OrderHandler) CustomerOrders(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// actor names the authenticated caller in audit entries.
func actor(c *gin.Context) string {
	if p, ok := middleware.PrincipalFrom(c); ok {
		return p.Email
	}
	return "system"
}
