package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/platform/record"
)

const testSecret = "store-secret"

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/", Secret: testSecret, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPClient_FetchAllSendsQueryAndToken(t *testing.T) {
	var gotQuery Query
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records/patient/fetch", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(testSecret), nil },
			jwt.WithValidMethods([]string{"HS256"}))
		if assert.NoError(t, err) {
			assert.True(t, tok.Valid)
		}

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"Id": 1, "first_name_c": "Jane", "assigned_doctor_id_c": map[string]any{"Id": 4, "Name": "Dr. Chen"}},
			},
		})
	})

	recs, err := c.FetchAll(context.Background(), "patient", Query{
		Fields: []string{"first_name_c"},
		Paging: Paging{Limit: 100},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].ID())
	assert.Equal(t, record.Ref{ID: 4, Name: "Dr. Chen"}, record.Read(recs[0]).Ref("assigned_doctor_id_c"))
	assert.Equal(t, []string{"first_name_c"}, gotQuery.Fields)
	assert.Equal(t, 100, gotQuery.Paging.Limit)
}

func TestHTTPClient_FetchByIDNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/patient/9", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "no such record"})
	})
	_, err := c.FetchByID(context.Background(), "patient", 9, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_RefusedEnvelopeIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "quota exceeded"})
	})
	_, err := c.FetchAll(context.Background(), "bill", Query{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestHTTPClient_BatchResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var body struct {
			IDs []int64 `json:"ids"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{1, 2}, body.IDs)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"results": []map[string]any{
				{"id": 1, "success": true},
				{"id": 2, "success": false, "message": "locked"},
			},
		})
	})

	res, err := c.DeleteRecords(context.Background(), "staff", []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	var batch *BatchError
	require.ErrorAs(t, CheckBatch("delete staff", res), &batch)
	assert.Equal(t, "locked", batch.Failures[0].Message)
}

func TestHTTPClient_CreateValidationErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"results": []map[string]any{{
				"success": false,
				"errors":  []map[string]any{{"field": "phone_c", "message": "invalid phone"}},
			}},
		})
	})
	repo := NewRepository[ward](c, wardCodec)
	_, err := repo.Create(context.Background(), ward{Name: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid phone", verr.Fields[0].Message)
}

func TestHTTPClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.FetchAll(context.Background(), "patient", Query{})
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	_, err := c.FetchAll(context.Background(), "patient", Query{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load(), "open circuit must short-circuit the call")
}

func TestHTTPClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	for i := 0; i < 7; i++ {
		_, err := c.FetchByID(context.Background(), "patient", 1, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(7), calls.Load())
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{})
	assert.Error(t, err)
}

func TestBuildFetch(t *testing.T) {
	sql, args, err := buildFetch("bill", Query{
		OrderBy: []OrderBy{{Field: "date_c"}, {Field: "Id", Desc: true}},
		Paging:  Paging{Limit: 10, Offset: 20},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, data FROM records WHERE entity = $1 ORDER BY data->>'date_c' ASC NULLS LAST, id DESC, id ASC LIMIT $2 OFFSET $3",
		sql)
	assert.Equal(t, []any{"bill", 10, 20}, args)

	_, _, err = buildFetch("bill", Query{OrderBy: []OrderBy{{Field: "x'; DROP TABLE records; --"}}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
