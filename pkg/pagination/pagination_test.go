package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset string
		want          Params
	}{
		{"defaults", "", "", Params{Limit: DefaultLimit}},
		{"custom", "50", "10", Params{Limit: 50, Offset: 10}},
		{"capped", "5000", "", Params{Limit: MaxLimit}},
		{"negative offset", "", "-5", Params{Limit: DefaultLimit}},
		{"garbage", "ten", "x", Params{Limit: DefaultLimit}},
		{"zero limit", "0", "3", Params{Limit: DefaultLimit, Offset: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.limit, tt.offset))
		})
	}
}

func TestFromContext(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=20&offset=40", nil), httptest.NewRecorder())
	assert.Equal(t, Params{Limit: 20, Offset: 40}, FromContext(c))
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}},
		{"last partial page", Params{Limit: 2, Offset: 4}, []int{5}},
		{"past end", Params{Limit: 2, Offset: 9}, []int{}},
		{"no limit", Params{Offset: 3}, []int{4, 5}},
		{"negative offset", Params{Limit: 1, Offset: -1}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Page(items, tt.params)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOf(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	r := Of(items, Params{Limit: 2, Offset: 2})
	assert.Equal(t, []string{"c", "d"}, r.Data)
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 2, r.Count)
	assert.True(t, r.HasMore)

	r = Of(items, Params{Limit: 2, Offset: 4})
	assert.False(t, r.HasMore)
	assert.Equal(t, 1, r.Count)
}

func TestOf_EncodesEmptyPageAndStats(t *testing.T) {
	r := Of([]int(nil), Params{Limit: 10}).WithStats(map[string]int{"total": 0})
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"total":0,"count":0,"limit":10,"offset":0,"has_more":false,"stats":{"total":0}}`, string(raw))

	raw, err = json.Marshal(Of([]int{1}, Params{Limit: 10}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "stats")
}
