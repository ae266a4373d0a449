package sandbox

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/httperr"
)

// SeedHandler exposes seeding over HTTP. It is only mounted in development.
type SeedHandler struct {
	seeder *Seeder
	mu     sync.Mutex
}

func NewSeedHandler(seeder *Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sandbox/seed", h.handleSeed)
	g.POST("/sandbox/seed/demo", h.handleSeedDemo)
}

// handleSeed generates synthetic data. An empty body uses
// DefaultSeedConfig.
func (h *SeedHandler) handleSeed(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var cfg SeedConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.seeder.Seed(c.Request().Context(), h.seeder.Synthetic(cfg))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SeedHandler) handleSeedDemo(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fx, err := Demo()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	result, err := h.seeder.Seed(c.Request().Context(), fx)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, result)
}
