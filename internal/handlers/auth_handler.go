package handlers

import (
	"studentrecords/internal/logger"
	"studentrecords/internal/middleware"
	"studentrecords/internal/models"
	"studentrecords/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes. /auth/me is protected.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", middleware.AuthRequired(h.authService), h.HandleMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug().Err(err).Msg("invalid register body")
		return failWith(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusCreated, result, "User registered successfully")
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug().Err(err).Msg("invalid login body")
		return failWith(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		logger.Info().Str("email", req.Email).Msg("login failed")
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, result, "Login successful")
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return failWith(c, fiber.StatusUnauthorized, "Not authorized")
	}
	return respond(c, fiber.StatusOK, user, "")
}
