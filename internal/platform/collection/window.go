package collection

import (
	"strings"
	"time"
)

// Window is a named relative date range evaluated against "now".
type Window string

const (
	WindowAll        Window = "all"
	WindowToday      Window = "today"
	WindowTomorrow   Window = "tomorrow"
	WindowThisWeek   Window = "thisWeek"
	WindowThisMonth  Window = "thisMonth"
	WindowLast90Days Window = "last90Days"
)

var windowAliases = map[string]Window{
	"today":      WindowToday,
	"tomorrow":   WindowTomorrow,
	"thisweek":   WindowThisWeek,
	"week":       WindowThisWeek,
	"last7":      WindowThisWeek,
	"thismonth":  WindowThisMonth,
	"month":      WindowThisMonth,
	"last30":     WindowThisMonth,
	"last90days": WindowLast90Days,
	"last90":     WindowLast90Days,
	"quarter":    WindowLast90Days,
}

// ParseWindow maps a query value to a Window. Unknown values mean no
// constraint.
func ParseWindow(s string) Window {
	if w, ok := windowAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return w
	}
	return WindowAll
}

// Active reports whether the window constrains anything.
func (w Window) Active() bool {
	return ParseWindow(string(w)) != WindowAll
}

// Contains reports whether t falls inside the window relative to now. All
// boundaries are local midnights in now's location.
func (w Window) Contains(t, now time.Time) bool {
	today := midnight(now)
	t = t.In(now.Location())

	switch ParseWindow(string(w)) {
	case WindowToday:
		return !t.Before(today) && t.Before(today.AddDate(0, 0, 1))
	case WindowTomorrow:
		return !t.Before(today.AddDate(0, 0, 1)) && t.Before(today.AddDate(0, 0, 2))
	case WindowThisWeek:
		return !t.Before(today) && t.Before(today.AddDate(0, 0, 7))
	case WindowThisMonth:
		return !t.Before(today.AddDate(0, 0, -30)) && !t.After(today)
	case WindowLast90Days:
		return !t.Before(today.AddDate(0, 0, -90)) && !t.After(today)
	default:
		return true
	}
}

// SameDay reports whether a and b fall on the same calendar day in b's
// location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
