package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/domain/repositories"
	"github.com/binaryworks/medilink/internal/auth"
	"github.com/binaryworks/medilink/internal/websocket"
)

// Handler carries the dependencies shared by all HTTP handlers
type Handler struct {
	products     repositories.ProductRepository
	doctors      repositories.DoctorRepository
	appointments repositories.AppointmentRepository
	users        repositories.UserRepository
	authManager  *auth.Manager
	hub          *websocket.Hub
	logger       *zap.Logger
}

func NewHandler(
	products repositories.ProductRepository,
	doctors repositories.DoctorRepository,
	appointments repositories.AppointmentRepository,
	users repositories.UserRepository,
	authManager *auth.Manager,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		products:     products,
		doctors:      doctors,
		appointments: appointments,
		users:        users,
		authManager:  authManager,
		hub:          hub,
		logger:       logger,
	}
}

// InitRoutes initializes all API routes
func (h *Handler) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "medilink-server",
		})
	})

	v1 := e.Group("/api/v1")

	// User Management APIs
	v1.POST("/usuarios/registro", h.userRegister)
	v1.POST("/usuarios/login", h.userLogin)

	// Product catalog APIs
	v1.GET("/productos", h.listProducts)
	v1.GET("/productos/:id", h.getProduct)

	// Doctor directory APIs
	v1.GET("/doctores", h.listDoctors)
	v1.GET("/doctores/:id", h.getDoctor)

	// Authenticated APIs
	authed := v1.Group("", h.authManager.Middleware())
	authed.POST("/citas", h.createAppointment)
	authed.GET("/citas", h.listAppointments)
	authed.PUT("/citas/:id/cancelar", h.cancelAppointment)

	// Admin catalog management
	admin := v1.Group("/admin", h.authManager.Middleware(), auth.RequireAdmin)
	admin.POST("/productos", h.createProduct)
	admin.PUT("/productos/:id", h.updateProduct)
	admin.DELETE("/productos/:id", h.deleteProduct)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

func (h *Handler) userRegister(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Email == "" || req.Name == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email, name and a password of at least 8 characters are required",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	user := &entities.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         entities.UserRoleClient,
	}
	if err := user.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_user",
			Message: err.Error(),
		})
	}

	if err := h.users.Create(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "email_taken",
				Message: "An account with this email already exists",
			})
		}
		h.logger.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	token, err := h.authManager.GenerateToken(user)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	h.logger.Info("User registered", zap.String("userID", user.ID))
	return c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

func (h *Handler) userLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	user, err := h.users.GetByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Email or password is incorrect",
			})
		}
		h.logger.Error("Failed to look up user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Email or password is incorrect",
		})
	}

	token, err := h.authManager.GenerateToken(user)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	return c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *Handler) listProducts(c echo.Context) error {
	filter := repositories.ProductFilter{
		Category: c.QueryParam("categoria"),
		Search:   c.QueryParam("buscar"),
	}

	products, err := h.products.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if products == nil {
		products = []*entities.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c echo.Context) error {
	product, err := h.products.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c echo.Context) error {
	var product entities.Product
	if err := c.Bind(&product); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if err := product.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_product",
			Message: err.Error(),
		})
	}

	if err := h.products.Create(c.Request().Context(), &product); err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c echo.Context) error {
	var product entities.Product
	if err := c.Bind(&product); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	product.ID = c.Param("id")
	if err := product.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_product",
			Message: err.Error(),
		})
	}

	if err := h.products.Update(c.Request().Context(), &product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		h.logger.Error("Failed to update product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		h.logger.Error("Failed to delete product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listDoctors(c echo.Context) error {
	doctors, err := h.doctors.List(c.Request().Context(), c.QueryParam("especialidad"))
	if err != nil {
		h.logger.Error("Failed to list doctors", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if doctors == nil {
		doctors = []*entities.Doctor{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) getDoctor(c echo.Context) error {
	doctor, err := h.doctors.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		h.logger.Error("Failed to get doctor", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) createAppointment(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}

	doctor, err := h.doctors.GetByID(c.Request().Context(), req.DoctorID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "doctor_not_found",
				Message: "The requested doctor does not exist",
			})
		}
		h.logger.Error("Failed to get doctor", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	appointment := &entities.Appointment{
		UserID:     identity.UserID,
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		Date:       req.Date,
		Hour:       req.Hour,
		Type:       req.Type,
		Status:     entities.AppointmentStatusPending,
	}
	if err := appointment.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_appointment",
			Message: err.Error(),
		})
	}

	if !doctor.HasSlot(appointment.Weekday(), appointment.Hour) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "slot_unavailable",
			Message: "The doctor is not available at the requested time",
		})
	}

	if err := h.appointments.Create(c.Request().Context(), appointment); err != nil {
		h.logger.Error("Failed to create appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	h.logger.Info("Appointment booked",
		zap.String("userID", identity.UserID),
		zap.String("doctorID", doctor.ID),
		zap.String("fecha", appointment.Date),
		zap.String("hora", appointment.Hour))
	return c.JSON(http.StatusCreated, appointment)
}

func (h *Handler) listAppointments(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var (
		appointments []*entities.Appointment
		err          error
	)
	if identity.IsAdmin() {
		appointments, err = h.appointments.ListAll(c.Request().Context())
	} else {
		appointments, err = h.appointments.ListByUserID(c.Request().Context(), identity.UserID)
	}
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if appointments == nil {
		appointments = []*entities.Appointment{}
	}
	return c.JSON(http.StatusOK, appointments)
}

func (h *Handler) cancelAppointment(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	appointment, err := h.appointments.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		h.logger.Error("Failed to get appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	if appointment.UserID != identity.UserID && !identity.IsAdmin() {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You can only cancel your own appointments",
		})
	}

	appointment.Cancel()
	if err := h.appointments.Update(c.Request().Context(), appointment); err != nil {
		h.logger.Error("Failed to cancel appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, appointment)
}

// websocketWithAuth handles WebSocket connections with JWT authentication.
// Browsers cannot set headers on WebSocket upgrades, so the token may also
// arrive as a query parameter.
func (h *Handler) websocketWithAuth(c echo.Context) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := h.authManager.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	h.logger.Info("WebSocket connection authenticated",
		zap.String("userID", claims.UserID))
	return websocket.HandleWebSocket(h.hub, c, claims.UserID, h.logger)
}
