package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/models"
	"folioshare-api/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
	}
}

// Signup handles POST /api/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return writeError(c, apperr.InvalidInput("invalid request body"))
	}

	resp, err := h.accounts.Signup(ctx, creds)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(resp)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return writeError(c, apperr.InvalidInput("invalid request body"))
	}

	resp, err := h.accounts.Login(ctx, creds)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(resp)
}
