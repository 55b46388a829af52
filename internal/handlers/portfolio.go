package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/models"
	"folioshare-api/internal/services"
)

type PortfolioHandler struct {
	portfolios *services.PortfolioService
}

func NewPortfolioHandler(portfolios *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
	}
}

// Submit handles POST /api/portfolios
func (h *PortfolioHandler) Submit(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	var req models.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.InvalidInput("invalid request body"))
	}

	result, err := h.portfolios.Submit(ctx, callerID(c), req.Holdings, req.Cash)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

// Mine handles GET /api/portfolios/mine
func (h *PortfolioHandler) Mine(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	portfolios, err := h.portfolios.ListForOwner(ctx, callerID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(portfolios)
}

// GetPublic handles GET /api/portfolios/public/:id (no auth)
func (h *PortfolioHandler) GetPublic(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	p, err := h.portfolios.FetchPublic(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(p)
}

// Get handles GET /api/portfolios/:id
func (h *PortfolioHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	p, err := h.portfolios.FetchForOwner(ctx, callerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(p)
}

// Update handles PUT /api/portfolios/:id
func (h *PortfolioHandler) Update(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	var req models.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.InvalidInput("invalid request body"))
	}

	p, degraded, err := h.portfolios.Update(ctx, callerID(c), c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"portfolio":        p,
		"analysisDegraded": degraded,
	})
}

// Revoke handles DELETE /api/portfolios/:id. Deletion is modeled as a
// visibility revocation, not physical removal.
func (h *PortfolioHandler) Revoke(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	if err := h.portfolios.Revoke(ctx, callerID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
