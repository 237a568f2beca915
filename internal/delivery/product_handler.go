package delivery

import (
	"net/http"
	"strconv"

	"fulfillment_service/internal/domain"
	"fulfillment_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	useCase usecase.ProductUseCase
	log     *logrus.Logger
}

func NewProductHandler(uc usecase.ProductUseCase, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *ProductHandler) RegisterRoutes(router gin.IRouter) {
	products := router.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProductByID)
		products.GET("", h.ListProducts)
		products.GET("/count", h.CountProducts)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var requestBody struct {
		Name          string  `json:"name"`
		Price         float64 `json:"price"`
		StockQuantity int     `json:"stock_quantity"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.useCase.CreateProduct(c.Request.Context(), &domain.Product{
		Name:          requestBody.Name,
		Price:         requestBody.Price,
		StockQuantity: requestBody.StockQuantity,
	})
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to create product '%s': %v", requestBody.Name, err)
		ErrorResponse(c, statusCode, "Failed to create product: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.useCase.GetProductByID(c.Request.Context(), id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to get product by ID %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to retrieve product: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	filter := domain.ProductFilter{
		Name: c.Query("name"),
	}
	if minStr := c.Query("min_price"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			filter.MinPrice = min
		}
	}
	if maxStr := c.Query("max_price"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			filter.MaxPrice = max
		}
	}

	products, err := h.useCase.ListProducts(c.Request.Context(), count, page, filter)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to list products: %v", err)
		ErrorResponse(c, statusCode, "Failed to retrieve products: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *ProductHandler) CountProducts(c *gin.Context) {
	total, err := h.useCase.CountProducts(c.Request.Context())
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to count products: %v", err)
		ErrorResponse(c, statusCode, "Failed to count products: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Product count retrieved successfully", gin.H{"total": total})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var requestBody struct {
		Name          *string  `json:"name"`
		Price         *float64 `json:"price"`
		StockQuantity *int     `json:"stock_quantity"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if requestBody.Name != nil {
		updates["name"] = *requestBody.Name
	}
	if requestBody.Price != nil {
		updates["price"] = *requestBody.Price
	}
	if requestBody.StockQuantity != nil {
		updates["stock_quantity"] = *requestBody.StockQuantity
	}

	product, err := h.useCase.UpdateProduct(c.Request.Context(), id, updates)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to update product %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update product: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if err := h.useCase.DeleteProduct(c.Request.Context(), id); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to delete product %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to delete product: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}
