// Package httperr maps service and record store errors onto HTTP responses.
package httperr

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

// Body is the JSON error payload for failures that carry detail.
type Body struct {
	Message string                   `json:"message"`
	Fields  []recordstore.FieldError `json:"fields,omitempty"`
	Results []recordstore.Result     `json:"results,omitempty"`
}

// From converts err into an echo.HTTPError. A nil error yields nil.
func From(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ve *recordstore.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, Body{Message: ve.Error(), Fields: ve.Fields})
	}
	var re *recordstore.RejectedError
	if errors.As(err, &re) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, Body{Message: re.Error()})
	}
	var be *recordstore.BatchError
	if errors.As(err, &be) {
		return echo.NewHTTPError(http.StatusMultiStatus, Body{Message: be.Error(), Results: be.Failures})
	}

	switch {
	case errors.Is(err, recordstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, recordstore.ErrMissingID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, workset.ErrConflict), errors.Is(err, collection.ErrStale):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, recordstore.ErrUnavailable), errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// ParseID reads a positive record id from the named path parameter.
func ParseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ParseIDs reads a comma separated id list such as "1,2,3".
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id "+strconv.Quote(part))
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}
	return ids, nil
}

// WriteBatch writes the per-record outcome of a batch operation: 200 when
// every record succeeded, 207 otherwise. Errors other than a BatchError are
// returned for the caller to map.
func WriteBatch(c echo.Context, results []recordstore.Result, err error) error {
	var be *recordstore.BatchError
	if err != nil && !errors.As(err, &be) {
		return From(err)
	}
	status := http.StatusOK
	msg := "ok"
	if be != nil {
		status = http.StatusMultiStatus
		msg = be.Error()
	}
	return c.JSON(status, Body{Message: msg, Results: results})
}
