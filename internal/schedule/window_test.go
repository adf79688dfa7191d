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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that window resolution degrades field-by-field to
// the compiled-in defaults, so corrupt or partial schedule rows can never
// produce an invalid window.
func TestResolveWindow_Fallbacks(t *testing.T) {
	// nil schedule yields the default window
	w := ResolveWindow(nil)
	assert.Equal(t, Window{DayOfWeek: DefaultDayOfWeek, StartHour: DefaultStartHour, EndHour: DefaultEndHour}, w)

	// unconfigured overrides fall back per field
	w = ResolveWindow(&Schedule{DayOfWeek: Unset, StartHour: Unset, EndHour: Unset})
	assert.Equal(t, Window{DayOfWeek: 5, StartHour: 14, EndHour: 19}, w)

	// a valid override sticks, invalid siblings fall back
	w = ResolveWindow(&Schedule{DayOfWeek: 2, StartHour: 99, EndHour: Unset})
	assert.Equal(t, Window{DayOfWeek: 2, StartHour: 14, EndHour: 19}, w)

	// out-of-range day
	w = ResolveWindow(&Schedule{DayOfWeek: 7, StartHour: 9, EndHour: 12})
	assert.Equal(t, Window{DayOfWeek: 5, StartHour: 9, EndHour: 12}, w)
}

func TestResolveWindow_RepairsInvertedWindow(t *testing.T) {
	// end <= start with room for the default end
	w := ResolveWindow(&Schedule{DayOfWeek: 3, StartHour: 10, EndHour: 8})
	assert.Equal(t, Window{DayOfWeek: 3, StartHour: 10, EndHour: DefaultEndHour}, w)

	// start beyond the default end gets a one-hour window
	w = ResolveWindow(&Schedule{DayOfWeek: 3, StartHour: 21, EndHour: 20})
	assert.Equal(t, Window{DayOfWeek: 3, StartHour: 21, EndHour: 22}, w)

	// a 23:00 start admits no end hour at all, so the whole window
	// falls back rather than resolving to one that can never open
	w = ResolveWindow(&Schedule{DayOfWeek: 3, StartHour: 23, EndHour: 5})
	assert.Equal(t, Window{DayOfWeek: 3, StartHour: DefaultStartHour, EndHour: DefaultEndHour}, w)
	assert.Greater(t, w.EndHour, w.StartHour)
}

func TestWindow_OpenAt(t *testing.T) {
	w := Window{DayOfWeek: 5, StartHour: 14, EndHour: 19}

	// 2026-01-09 is a Friday; 16:00 CT is inside the window
	ref := time.Date(2026, 1, 9, 16, 0, 0, 0, referenceTZ)
	assert.True(t, w.OpenAt(ref))

	// the same instant expressed in UTC is still inside
	assert.True(t, w.OpenAt(ref.UTC()))

	// boundary behavior: open at the start hour, closed at the end hour
	assert.True(t, w.OpenAt(time.Date(2026, 1, 9, 14, 0, 0, 0, referenceTZ)))
	assert.False(t, w.OpenAt(time.Date(2026, 1, 9, 19, 0, 0, 0, referenceTZ)))

	// wrong day
	assert.False(t, w.OpenAt(time.Date(2026, 1, 8, 16, 0, 0, 0, referenceTZ)))
}

func TestWeekStart(t *testing.T) {
	// Wednesday maps back to its Monday
	wed := time.Date(2026, 1, 7, 15, 30, 0, 0, referenceTZ)
	start := WeekStart(wed)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, referenceTZ), start)

	// Sunday belongs to the week that started six days earlier
	sun := time.Date(2026, 1, 11, 23, 59, 0, 0, referenceTZ)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, referenceTZ), WeekStart(sun))

	// Monday is its own week start
	mon := time.Date(2026, 1, 5, 0, 0, 0, 0, referenceTZ)
	assert.Equal(t, mon, WeekStart(mon))

	assert.Equal(t, "2026-01-05", WeekKey(wed))
}

func TestWeekArithmetic(t *testing.T) {
	base := time.Date(2026, 1, 9, 12, 0, 0, 0, referenceTZ)
	assert.Equal(t, base.AddDate(0, 0, -84), WeeksAgo(base, 12))
	assert.Equal(t, base.AddDate(0, 0, 14), AddWeeks(base, 2))
}
