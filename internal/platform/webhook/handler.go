package webhook

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/webhooks")
	g.POST("", h.Register)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
	g.GET("/:id/deliveries", h.Deliveries)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.POST("/deliveries/:id/retry", h.Retry)
}

type registerRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

type updateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Status string   `json:"status"`
}

func toHTTP(err error) error {
	var ie *InvalidError
	switch {
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusBadRequest, ie.Message)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ep, err := h.manager.Register(c.Request().Context(), req.URL, req.Secret, req.Events)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusCreated, ep)
}

// List hides secrets; they are only returned on registration.
func (h *Handler) List(c echo.Context) error {
	eps, err := h.manager.List(c.Request().Context())
	if err != nil {
		return toHTTP(err)
	}
	for i := range eps {
		eps[i].Secret = ""
	}
	return c.JSON(http.StatusOK, pagination.Of(eps, pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	ep, err := h.manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTP(err)
	}
	ep.Secret = ""
	return c.JSON(http.StatusOK, ep)
}

func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ep, err := h.manager.Update(c.Request().Context(), c.Param("id"), req.URL, req.Events, req.Status)
	if err != nil {
		return toHTTP(err)
	}
	ep.Secret = ""
	return c.JSON(http.StatusOK, ep)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.manager.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Test(c echo.Context) error {
	d, err := h.manager.Ping(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Deliveries(c echo.Context) error {
	ds, err := h.manager.Deliveries(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Of(ds, pagination.FromContext(c)))
}

func (h *Handler) Pause(c echo.Context) error {
	return h.setStatus(c, StatusPaused)
}

func (h *Handler) Resume(c echo.Context) error {
	return h.setStatus(c, StatusActive)
}

func (h *Handler) setStatus(c echo.Context, status string) error {
	ep, err := h.manager.SetStatus(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"id": ep.ID, "status": ep.Status})
}

func (h *Handler) Retry(c echo.Context) error {
	d, err := h.manager.Retry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
