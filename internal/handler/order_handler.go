package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
	"github.com/TEswarreddy/shopez-sub000/internal/service"
	"github.com/TEswarreddy/shopez-sub000/pkg/middleware"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	// Customers order for themselves; admins order on behalf of a customer
	// and must name one.
	if actor.Role != domain.RoleAdmin {
		req.CustomerID = actor.ID
	} else if req.CustomerID == "" {
		respondError(c, domain.NewValidationError("customer_id", "must name the customer the order is placed for"))
		return
	}

	requestID := c.GetString("request_id")
	order, err := h.orderService.CreateOrder(c.Request.Context(), req, requestID)
	if err != nil {
		h.logger.Error("Failed to create order",
			zap.String("request_id", requestID),
			zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("number"), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	customerID := c.Query("customer_id")
	if customerID == "" {
		customerID = actor.ID
	}

	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), customerID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) OpenCharge(c *gin.Context) {
	gatewayOrderID, err := h.orderService.OpenCharge(c.Request.Context(), c.Param("number"), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gateway_order_id": gatewayOrderID})
}

type updateItemStatusRequest struct {
	Status domain.ItemStatus `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateItemStatus(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	var req updateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	order, err := h.orderService.UpdateItemStatus(c.Request.Context(), c.Param("number"), index, req.Status, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("number"), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
