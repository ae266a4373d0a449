package appointment

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/httperr"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("", h.DeleteMany)
	g.POST("/reload", h.Reload)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/start", h.Start)
	g.POST("/:id/complete", h.Complete)
	g.POST("/:id/cancel", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	cr := ViewConfig.CriteriaFromQuery(c.QueryParams(), ForeignKeyParams...)
	view, err := h.svc.View(c.Request().Context(), cr)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Of(view.Items, pagination.FromContext(c)).WithStats(view.Stats))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := httperr.ParseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Create(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Create(c.Request().Context(), a)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := httperr.ParseID(c, "id")
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	updated, err := h.svc.Update(c.Request().Context(), a)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := httperr.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httperr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteMany(c echo.Context) error {
	ids, err := httperr.ParseIDs(c.QueryParam("ids"))
	if err != nil {
		return err
	}
	results, err := h.svc.DeleteMany(c.Request().Context(), ids)
	return httperr.WriteBatch(c, results, err)
}

func (h *Handler) Reload(c echo.Context) error {
	if err := h.svc.Reload(c.Request().Context()); err != nil {
		return httperr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Start(c echo.Context) error {
	return h.act(c, h.svc.Start)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.act(c, h.svc.Complete)
}

func (h *Handler) act(c echo.Context, fn func(context.Context, int64) (Appointment, error)) error {
	id, err := httperr.ParseID(c, "id")
	if err != nil {
		return err
	}
	a, err := fn(c.Request().Context(), id)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

// Cancel deletes the appointment.
func (h *Handler) Cancel(c echo.Context) error {
	id, err := httperr.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return httperr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}
