package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

func TestFrom_StatusCodes(t *testing.T) {
	ve := &recordstore.ValidationError{}
	ve.Add("phone_c", "Phone", "is required")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", fmt.Errorf("list patient: %w", recordstore.ErrUnavailable), http.StatusServiceUnavailable},
		{"not found", fmt.Errorf("get bill 3: %w", recordstore.ErrNotFound), http.StatusNotFound},
		{"missing id", recordstore.ErrMissingID, http.StatusBadRequest},
		{"validation", fmt.Errorf("create patient: %w", ve), http.StatusUnprocessableEntity},
		{"rejected", &recordstore.RejectedError{ID: 2, Message: "locked"}, http.StatusUnprocessableEntity},
		{"transition", workset.ErrInvalidTransition, http.StatusConflict},
		{"stale", collection.ErrStale, http.StatusConflict},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"batch", &recordstore.BatchError{Op: "delete", Failures: []recordstore.Result{{ID: 4}}}, http.StatusMultiStatus},
		{"http error passthrough", echo.NewHTTPError(http.StatusTeapot), http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := From(tt.err)
			if he == nil {
				t.Fatal("expected an HTTP error")
			}
			if he.Code != tt.want {
				t.Errorf("code = %d, want %d", he.Code, tt.want)
			}
		})
	}
	if he := From(nil); he != nil {
		t.Errorf("From(nil) = %v, want nil", he)
	}
}

func TestFrom_ValidationBodyListsFields(t *testing.T) {
	ve := &recordstore.ValidationError{}
	ve.Add("first_name_c", "First Name", "is required")

	body, ok := From(ve).Message.(Body)
	if !ok {
		t.Fatalf("message is %T, want Body", From(ve).Message)
	}
	if len(body.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(body.Fields))
	}
	if body.Fields[0].Label != "First Name" {
		t.Errorf("label = %q", body.Fields[0].Label)
	}
}

func TestParseID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("12")
	id, err := ParseID(c, "id")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if id != 12 {
		t.Errorf("id = %d, want 12", id)
	}

	for _, bad := range []string{"", "abc", "0", "-3"} {
		c.SetParamValues(bad)
		if _, err := ParseID(c, "id"); err == nil {
			t.Errorf("ParseID(%q) returned no error", bad)
		}
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs(" 1, 2,,3 ")
	if err != nil {
		t.Fatalf("ParseIDs: %v", err)
	}
	if !slices.Equal(ids, []int64{1, 2, 3}) {
		t.Errorf("ids = %v", ids)
	}

	for _, bad := range []string{"", "1,x"} {
		if _, err := ParseIDs(bad); err == nil {
			t.Errorf("ParseIDs(%q) returned no error", bad)
		}
	}
}

func TestWriteBatch(t *testing.T) {
	e := echo.New()
	results := []recordstore.Result{{ID: 1, Success: true}, {ID: 2, NotFound: true, Message: "record not found"}}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	if err := WriteBatch(c, results, recordstore.CheckBatch("delete", results)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if rec.Code != http.StatusMultiStatus {
		t.Errorf("partial batch status = %d, want 207", rec.Code)
	}
	var body Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Results) != 2 {
		t.Errorf("got %d results, want 2", len(body.Results))
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	if err := WriteBatch(c, results[:1], nil); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("clean batch status = %d, want 200", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	he, ok := WriteBatch(c, nil, recordstore.ErrUnavailable).(*echo.HTTPError)
	if !ok {
		t.Fatal("expected an echo.HTTPError")
	}
	if he.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", he.Code)
	}
}
