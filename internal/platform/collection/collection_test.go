package collection

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visit struct {
	ID     int64
	Name   string
	Reason string
	Status string
	Owner  int64
	Kind   string
	When   *time.Time
}

type visitStats struct {
	Total     int
	Scheduled int
}

func at(t time.Time) *time.Time { return &t }

var testNow = time.Date(2024, 6, 12, 10, 30, 0, 0, time.Local)

func visitConfig() Config[visit, visitStats] {
	return Config[visit, visitStats]{
		Search:     []func(visit) string{func(v visit) string { return v.Name }, func(v visit) string { return v.Reason }},
		Status:     func(v visit) string { return v.Status },
		ForeignKey: func(v visit) string { return strconv.FormatInt(v.Owner, 10) },
		Category:   func(v visit) string { return v.Kind },
		DateAxis: func(v visit) (time.Time, bool) {
			if v.When == nil {
				return time.Time{}, false
			}
			return *v.When, true
		},
		Facets: map[string]Facet[visit]{
			"initial": func(v visit, value string) bool {
				return len(v.Name) > 0 && v.Name[:1] == value
			},
		},
		Less: func(a, b visit) bool {
			if a.When == nil || b.When == nil {
				return b.When == nil && a.When != nil
			}
			return a.When.Before(*b.When)
		},
		Summarize: func(items []visit, _ time.Time) visitStats {
			s := visitStats{Total: len(items)}
			for _, it := range items {
				if it.Status == "Scheduled" {
					s.Scheduled++
				}
			}
			return s
		},
	}
}

func sampleVisits() []visit {
	day := midnight(testNow)
	return []visit{
		{ID: 1, Name: "Jane Doe", Reason: "Checkup", Status: "Scheduled", Owner: 1, Kind: "Consultation", When: at(day.Add(14 * time.Hour))},
		{ID: 2, Name: "John Roe", Reason: "Follow-up", Status: "Completed", Owner: 2, Kind: "Follow-up", When: at(day.Add(9 * time.Hour))},
		{ID: 3, Name: "Ann Lee", Reason: "Chest pain", Status: "Scheduled", Owner: 1, Kind: "Emergency", When: at(day.AddDate(0, 0, 1).Add(10 * time.Hour))},
		{ID: 4, Name: "Bob Ray", Reason: "Vaccination", Status: "Cancelled", Owner: 3, Kind: "Consultation"},
	}
}

func ids(items []visit) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestApplyFilters_EmptyCriteriaIsIdentity(t *testing.T) {
	cfg := visitConfig()
	in := sampleVisits()
	assert.Equal(t, in, cfg.ApplyFilters(in, Criteria{}, testNow))

	all := Criteria{StatusEquals: "All", CategoryEquals: "all", DateWindow: WindowAll, Facets: map[string]string{"initial": "All"}}
	assert.True(t, all.IsZero())
	assert.Equal(t, in, cfg.ApplyFilters(in, all, testNow))
}

func TestApplyFilters_SubsetAndOrder(t *testing.T) {
	cfg := visitConfig()
	in := sampleVisits()
	got := cfg.ApplyFilters(in, Criteria{StatusEquals: "Scheduled"}, testNow)
	assert.Equal(t, []int64{1, 3}, ids(got))
	assert.Len(t, in, 4, "input must not be modified")
}

func TestApplyFilters_SearchIsCaseInsensitive(t *testing.T) {
	cfg := visitConfig()
	got := cfg.ApplyFilters(sampleVisits(), Criteria{SearchText: "  CHEST "}, testNow)
	assert.Equal(t, []int64{3}, ids(got))

	got = cfg.ApplyFilters(sampleVisits(), Criteria{SearchText: "doe"}, testNow)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestApplyFilters_CriteriaCommute(t *testing.T) {
	cfg := visitConfig()
	in := sampleVisits()
	a := Criteria{StatusEquals: "Scheduled"}
	b := Criteria{ForeignKeyEquals: "1", CategoryEquals: "Emergency"}
	both := Criteria{StatusEquals: "Scheduled", ForeignKeyEquals: "1", CategoryEquals: "Emergency"}

	ab := cfg.ApplyFilters(cfg.ApplyFilters(in, a, testNow), b, testNow)
	ba := cfg.ApplyFilters(cfg.ApplyFilters(in, b, testNow), a, testNow)
	assert.Equal(t, ab, ba)
	assert.Equal(t, ab, cfg.ApplyFilters(in, both, testNow))
	assert.Equal(t, []int64{3}, ids(ab))
}

func TestApplyFilters_Facets(t *testing.T) {
	cfg := visitConfig()
	got := cfg.ApplyFilters(sampleVisits(), Criteria{Facets: map[string]string{"initial": "J", "unknown": "x"}}, testNow)
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestApplyFilters_WindowExcludesUndated(t *testing.T) {
	cfg := visitConfig()
	got := cfg.ApplyFilters(sampleVisits(), Criteria{DateWindow: WindowThisWeek}, testNow)
	assert.Equal(t, []int64{1, 2, 3}, ids(got))

	got = cfg.ApplyFilters(sampleVisits(), Criteria{}, testNow)
	assert.Contains(t, ids(got), int64(4))
}

func TestApplyFilters_StatusAndToday(t *testing.T) {
	cfg := visitConfig()
	got := cfg.ApplyFilters(sampleVisits(), Criteria{StatusEquals: "Scheduled", DateWindow: ParseWindow("today")}, testNow)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestWindow_TodayBoundaries(t *testing.T) {
	day := midnight(testNow)
	assert.True(t, WindowToday.Contains(testNow, testNow))
	assert.True(t, WindowToday.Contains(day, testNow))
	assert.False(t, WindowToday.Contains(testNow.Add(25*time.Hour), testNow))
	assert.False(t, WindowToday.Contains(day.Add(-time.Millisecond), testNow))
	assert.False(t, WindowToday.Contains(day.AddDate(0, 0, 1), testNow))
}

func TestWindow_Ranges(t *testing.T) {
	day := midnight(testNow)
	tests := []struct {
		window Window
		t      time.Time
		want   bool
	}{
		{WindowTomorrow, day.AddDate(0, 0, 1), true},
		{WindowTomorrow, day.AddDate(0, 0, 2), false},
		{WindowTomorrow, testNow, false},
		{WindowThisWeek, day.AddDate(0, 0, 6).Add(23 * time.Hour), true},
		{WindowThisWeek, day.AddDate(0, 0, 7), false},
		{WindowThisWeek, day.Add(-time.Hour), false},
		{WindowThisMonth, day.AddDate(0, 0, -30), true},
		{WindowThisMonth, day.AddDate(0, 0, -31), false},
		{WindowThisMonth, day, true},
		{WindowThisMonth, testNow, false},
		{WindowLast90Days, day.AddDate(0, 0, -90), true},
		{WindowLast90Days, day.AddDate(0, 0, -91), false},
		{WindowAll, day.AddDate(-5, 0, 0), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.window.Contains(tt.t, testNow), "%s contains %s", tt.window, tt.t)
	}
}

func TestParseWindow(t *testing.T) {
	assert.Equal(t, WindowThisWeek, ParseWindow("week"))
	assert.Equal(t, WindowThisWeek, ParseWindow("thisWeek"))
	assert.Equal(t, WindowThisMonth, ParseWindow("month"))
	assert.Equal(t, WindowLast90Days, ParseWindow("quarter"))
	assert.Equal(t, WindowToday, ParseWindow(" Today "))
	assert.Equal(t, WindowAll, ParseWindow("fortnight"))
	assert.Equal(t, WindowAll, ParseWindow(""))
	assert.False(t, Window("fortnight").Active())
}

func TestSortRecords(t *testing.T) {
	cfg := visitConfig()
	in := sampleVisits()
	sorted := SortRecords(in, cfg.Less)
	assert.Equal(t, []int64{2, 1, 3, 4}, ids(sorted))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(in))

	assert.Equal(t, ids(in), ids(SortRecords(in, nil)))
	assert.NotNil(t, SortRecords[visit](nil, nil))
}

func TestBuild_Scopes(t *testing.T) {
	cfg := visitConfig()
	cr := Criteria{StatusEquals: "Completed"}

	view := cfg.Build(sampleVisits(), cr, testNow)
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, 4, view.Total)
	assert.Equal(t, visitStats{Total: 4, Scheduled: 2}, view.Stats)

	cfg.Scope = ScopeFiltered
	view = cfg.Build(sampleVisits(), cr, testNow)
	assert.Equal(t, visitStats{Total: 1, Scheduled: 0}, view.Stats)
}

func TestBuild_Empty(t *testing.T) {
	cfg := visitConfig()
	view := cfg.Build(nil, Criteria{SearchText: "x"}, testNow)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	assert.Equal(t, visitStats{}, view.Stats)
}

func TestCriteriaFromQuery(t *testing.T) {
	cfg := visitConfig()
	q := url.Values{}
	q.Set("search", "jane")
	q.Set("status", "Scheduled")
	q.Set("ownerId", "7")
	q.Set("window", "week")
	q.Set("initial", "J")
	q.Set("ignored", "x")

	cr := cfg.CriteriaFromQuery(q, "ownerId")
	assert.Equal(t, "jane", cr.SearchText)
	assert.Equal(t, "Scheduled", cr.StatusEquals)
	assert.Equal(t, "7", cr.ForeignKeyEquals)
	assert.Equal(t, WindowThisWeek, cr.DateWindow)
	assert.Equal(t, map[string]string{"initial": "J"}, cr.Facets)
}

func TestList_LoadAndMutate(t *testing.T) {
	l := NewList(func(v visit) int64 { return v.ID })
	assert.False(t, l.Loaded())

	err := l.Load(context.Background(), func(context.Context) ([]visit, error) {
		return sampleVisits(), nil
	})
	require.NoError(t, err)
	assert.True(t, l.Loaded())
	assert.Equal(t, 4, l.Len())

	l.Upsert(visit{ID: 2, Name: "Renamed"})
	l.Upsert(visit{ID: 9, Name: "New"})
	got, ok := l.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 5, l.Len())

	assert.True(t, l.Remove(9))
	assert.False(t, l.Remove(9))
	_, ok = l.Get(9)
	assert.False(t, ok)
}

func TestList_FailedLoadKeepsItems(t *testing.T) {
	l := NewList(func(v visit) int64 { return v.ID })
	require.NoError(t, l.Load(context.Background(), func(context.Context) ([]visit, error) {
		return sampleVisits(), nil
	}))

	boom := errors.New("store down")
	err := l.Load(context.Background(), func(context.Context) ([]visit, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, l.Len())
}

func TestList_StaleLoadDiscarded(t *testing.T) {
	l := NewList(func(v visit) int64 { return v.ID })
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.Load(context.Background(), func(context.Context) ([]visit, error) {
			<-release
			return []visit{{ID: 100}}, nil
		})
	}()

	// Wait until the slow load has claimed its generation.
	require.Eventually(t, func() bool {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return l.gen == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, l.Load(context.Background(), func(context.Context) ([]visit, error) {
		return []visit{{ID: 200}}, nil
	}))
	close(release)

	assert.ErrorIs(t, <-done, ErrStale)
	_, ok := l.Get(200)
	assert.True(t, ok)
	_, ok = l.Get(100)
	assert.False(t, ok)
}

func TestList_CancelledLoadDiscarded(t *testing.T) {
	l := NewList(func(v visit) int64 { return v.ID })
	ctx, cancel := context.WithCancel(context.Background())
	err := l.Load(ctx, func(context.Context) ([]visit, error) {
		cancel()
		return []visit{{ID: 1}}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.Loaded())
	assert.Equal(t, 0, l.Len())
}
