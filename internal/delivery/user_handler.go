package delivery

import (
	"net/http"
	"strconv"

	"fulfillment_service/internal/domain"
	"fulfillment_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	useCase usecase.UserUseCase
	log     *logrus.Logger
}

func NewUserHandler(uc usecase.UserUseCase, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *UserHandler) RegisterRoutes(router gin.IRouter) {
	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUserByID)
		users.GET("", h.ListUsers)
		users.GET("/count", h.CountUsers)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.GET("/:id/addresses", h.ListAddresses)
	}

	addresses := router.Group("/addresses")
	{
		addresses.POST("", h.CreateAddress)
		addresses.GET("/:id", h.GetAddressByID)
		addresses.DELETE("/:id", h.DeleteAddress)
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var requestBody struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.useCase.CreateUser(c.Request.Context(), &domain.User{
		Username: requestBody.Username,
		Email:    requestBody.Email,
		FullName: requestBody.FullName,
	})
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to create user '%s': %v", requestBody.Username, err)
		ErrorResponse(c, statusCode, "Failed to create user: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "User created successfully", user)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.useCase.GetUserByID(c.Request.Context(), id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to get user by ID %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to retrieve user: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	filter := domain.UserFilter{
		Username: c.Query("username"),
		Email:    c.Query("email"),
	}

	users, err := h.useCase.ListUsers(c.Request.Context(), count, page, filter)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to list users: %v", err)
		ErrorResponse(c, statusCode, "Failed to retrieve users: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) CountUsers(c *gin.Context) {
	total, err := h.useCase.CountUsers(c.Request.Context())
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to count users: %v", err)
		ErrorResponse(c, statusCode, "Failed to count users: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "User count retrieved successfully", gin.H{"total": total})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var requestBody struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		FullName *string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.useCase.UpdateUser(c.Request.Context(), id, domain.UserUpdate{
		Username: requestBody.Username,
		Email:    requestBody.Email,
		FullName: requestBody.FullName,
	})
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to update user %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update user: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	if err := h.useCase.DeleteUser(c.Request.Context(), id); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to delete user %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to delete user: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *UserHandler) CreateAddress(c *gin.Context) {
	var requestBody struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zip_code"`
		Country string `json:"country"`
		UserID  int64  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	address, err := h.useCase.CreateAddress(c.Request.Context(), &domain.Address{
		Street:  requestBody.Street,
		City:    requestBody.City,
		State:   requestBody.State,
		ZipCode: requestBody.ZipCode,
		Country: requestBody.Country,
		UserID:  requestBody.UserID,
	})
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to create address for user %d: %v", requestBody.UserID, err)
		ErrorResponse(c, statusCode, "Failed to create address: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "Address created successfully", address)
}

func (h *UserHandler) GetAddressByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid address ID format")
		return
	}

	address, err := h.useCase.GetAddressByID(c.Request.Context(), id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to get address by ID %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to retrieve address: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Address retrieved successfully", address)
}

func (h *UserHandler) ListAddresses(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	addresses, err := h.useCase.ListAddressesByUser(c.Request.Context(), userID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to list addresses for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve addresses: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Addresses retrieved successfully", addresses)
}

func (h *UserHandler) DeleteAddress(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid address ID format")
		return
	}

	if err := h.useCase.DeleteAddress(c.Request.Context(), id); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Handler: Failed to delete address %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to delete address: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Address deleted successfully", nil)
}
