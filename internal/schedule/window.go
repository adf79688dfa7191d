// Copyright 2026 The Brewpair Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schedule

import (
	"fmt"
	"time"
)

// All window arithmetic happens in a single fixed reference timezone,
// regardless of caller locale.
var referenceTZ = mustLoadReferenceTZ()

func mustLoadReferenceTZ() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		// Containers without tzdata still get a stable offset.
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// Default signup window: Friday 14:00-19:00 reference time.
const (
	DefaultDayOfWeek = 5
	DefaultStartHour = 14
	DefaultEndHour   = 19
)

// Window is a resolved, always-valid signup window.
type Window struct {
	DayOfWeek int `json:"day_of_week"`
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// ReferenceTime converts t into the reference timezone.
func ReferenceTime(t time.Time) time.Time {
	return t.In(referenceTZ)
}

// ResolveWindow applies per-field fallback to the compiled-in defaults so
// the rest of the system never operates on an invalid window. A nil
// schedule yields the default window.
func ResolveWindow(s *Schedule) Window {
	w := Window{
		DayOfWeek: DefaultDayOfWeek,
		StartHour: DefaultStartHour,
		EndHour:   DefaultEndHour,
	}
	if s == nil {
		return w
	}

	if s.DayOfWeek >= 0 && s.DayOfWeek <= 6 {
		w.DayOfWeek = s.DayOfWeek
	}
	if s.StartHour >= 0 && s.StartHour <= 23 {
		w.StartHour = s.StartHour
	}
	if s.EndHour >= 1 && s.EndHour <= 23 {
		w.EndHour = s.EndHour
	}

	// Keep the window valid even when stale or partially-overridden
	// config produced end <= start.
	if w.EndHour <= w.StartHour {
		switch {
		case DefaultEndHour > w.StartHour:
			w.EndHour = DefaultEndHour
		case w.StartHour < 23:
			w.EndHour = w.StartHour + 1
		default:
			// A 23:00 start leaves no room for any end hour; the whole
			// window falls back to the default.
			w.StartHour = DefaultStartHour
			w.EndHour = DefaultEndHour
		}
	}

	return w
}

// OpenAt reports whether the signup window is open at t, evaluated in the
// reference timezone.
func (w Window) OpenAt(t time.Time) bool {
	ref := ReferenceTime(t)
	if int(ref.Weekday()) != w.DayOfWeek {
		return false
	}
	return ref.Hour() >= w.StartHour && ref.Hour() < w.EndHour
}

// Describe renders the window for user-facing messages, e.g.
// "Friday from 14:00 to 19:00 CT".
func (w Window) Describe() string {
	return fmt.Sprintf("%s from %02d:00 to %02d:00 CT",
		time.Weekday(w.DayOfWeek).String(), w.StartHour, w.EndHour)
}

// WeekStart returns midnight of the Monday of t's week, in the reference
// timezone. It is the canonical "weekOf" for history records and job keys.
func WeekStart(t time.Time) time.Time {
	ref := ReferenceTime(t)
	days := int(ref.Weekday()) - 1
	if ref.Weekday() == time.Sunday {
		days = 6
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day()-days, 0, 0, 0, 0, referenceTZ)
}

// WeekKey returns the ISO date string of the week start, used to dedupe
// scheduled job runs.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format("2006-01-02")
}

// WeeksAgo returns the instant n weeks before t.
func WeeksAgo(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, -7*n)
}

// AddWeeks returns the instant n weeks after t.
func AddWeeks(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, 7*n)
}
