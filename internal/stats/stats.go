// Package stats derives dashboard figures from the session log.
//
// All day boundaries are local midnights in the location of the now value
// passed in, so callers control the time zone.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// RecentLimit is the number of sessions Summary.Recent carries.
const RecentLimit = 5

// Summary is the headline view of the session log.
type Summary struct {
	Today             int                        `json:"today"`
	Week              int                        `json:"week"`
	Streak            int                        `json:"streak"`
	TotalSessions     int                        `json:"totalSessions"`
	TotalFocusSeconds int                        `json:"totalFocusSeconds"`
	Recent            []*models.CompletedSession `json:"recent"`
}

// Day is the focus time logged on one local calendar day.
type Day struct {
	Date         time.Time `json:"date"`
	Sessions     int       `json:"sessions"`
	FocusMinutes int       `json:"focusMinutes"`
}

// Label is the short weekday name, e.g. "Mon".
func (d Day) Label() string {
	return d.Date.Format("Mon")
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the Sunday starting t's week.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// Summarize computes the summary as of now. sessions may be in any order.
func Summarize(sessions []*models.CompletedSession, now time.Time) Summary {
	loc := now.Location()
	today := StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := WeekStart(now)

	var s Summary
	for _, sess := range sessions {
		at := sess.CompletedAt.In(loc)
		s.TotalSessions++
		s.TotalFocusSeconds += sess.DurationSeconds
		if !at.Before(today) && at.Before(tomorrow) {
			s.Today++
		}
		if !at.Before(weekStart) && at.Before(tomorrow) {
			s.Week++
		}
	}
	s.Streak = Streak(sessions, now)
	s.Recent = recent(sessions, RecentLimit)
	return s
}

// Streak counts consecutive days, ending today, with at least one session.
// A day without sessions today means a streak of zero.
func Streak(sessions []*models.CompletedSession, now time.Time) int {
	loc := now.Location()
	days := make(map[time.Time]bool, len(sessions))
	for _, sess := range sessions {
		days[StartOfDay(sess.CompletedAt.In(loc))] = true
	}

	streak := 0
	for day := StartOfDay(now); days[day]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// LastDays returns focus totals for the n days ending today, oldest first.
func LastDays(sessions []*models.CompletedSession, now time.Time, n int) []Day {
	if n <= 0 {
		return nil
	}
	loc := now.Location()
	first := StartOfDay(now).AddDate(0, 0, -(n - 1))

	out := make([]Day, n)
	index := make(map[time.Time]int, n)
	for i := range out {
		out[i].Date = first.AddDate(0, 0, i)
		index[out[i].Date] = i
	}

	seconds := make([]int, n)
	for _, sess := range sessions {
		i, ok := index[StartOfDay(sess.CompletedAt.In(loc))]
		if !ok {
			continue
		}
		out[i].Sessions++
		seconds[i] += sess.DurationSeconds
	}
	for i := range out {
		out[i].FocusMinutes = seconds[i] / 60
	}
	return out
}

func recent(sessions []*models.CompletedSession, n int) []*models.CompletedSession {
	sorted := append([]*models.CompletedSession(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Insight is one rule-based suggestion.
type Insight struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Insights applies the dashboard rules to a summary. It always returns at
// least one insight.
func Insights(s Summary, now time.Time) []Insight {
	var out []Insight

	switch {
	case s.Today >= 4:
		out = append(out, Insight{
			Kind: "focus",
			Text: fmt.Sprintf("Great focus today! You've completed %d Pomodoro sessions.", s.Today),
		})
	case s.Today == 0:
		out = append(out, Insight{
			Kind: "start",
			Text: "Start your first Pomodoro session today to build momentum!",
		})
	}

	if s.Streak >= 7 {
		out = append(out, Insight{
			Kind: "streak",
			Text: fmt.Sprintf("Amazing! You have a %d day study streak!", s.Streak),
		})
	}

	if h := now.Hour(); h >= 6 && h < 12 {
		out = append(out, Insight{
			Kind: "morning",
			Text: "Morning is a great time for difficult subjects. Your focus is at its peak!",
		})
	}

	if len(out) == 0 {
		out = append(out, Insight{
			Kind: "steady",
			Text: "Keep up the great work! Consistency is key to success.",
		})
	}
	return out
}
