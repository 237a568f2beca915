package delivery

import (
	"net/http"
	"strconv"

	"fulfillment_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	useCase domain.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc domain.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrderByID)
		orders.GET("", h.ListOrders)
		orders.GET("/count", h.CountOrders)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var requestBody struct {
		UserID    int64                     `json:"user_id"`
		AddressID int64                     `json:"address_id"`
		Items     []domain.OrderItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Errorf("Handler: Failed to bind JSON for create order: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := domain.PlaceOrderRequest{
		UserID:         requestBody.UserID,
		AddressID:      requestBody.AddressID,
		Items:          requestBody.Items,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	}

	placed, err := h.useCase.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to create order for user %d: %v", req.UserID, err)
		ErrorResponse(c, statusCode, "Failed to create order: "+err.Error())
		return
	}

	if placed.AlreadyProcessed {
		SuccessResponse(c, http.StatusOK, "Order already created by an earlier request", placed.Order)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Order created successfully", placed.Order)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.useCase.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to get order by ID %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to retrieve order: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	filter := domain.OrderFilter{
		Status: domain.OrderStatus(c.Query("status")),
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil || userID <= 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid user_id filter")
			return
		}
		filter.UserID = userID
	}

	orders, err := h.useCase.ListOrders(c.Request.Context(), count, page, filter)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to list orders: %v", err)
		ErrorResponse(c, statusCode, "Failed to retrieve orders: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) CountOrders(c *gin.Context) {
	total, err := h.useCase.CountOrders(c.Request.Context())
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to count orders: %v", err)
		ErrorResponse(c, statusCode, "Failed to count orders: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order count retrieved successfully", gin.H{"total": total})
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var requestBody struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.useCase.UpdateOrderStatus(c.Request.Context(), id, requestBody.Status)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to update status for order %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update order status: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}
