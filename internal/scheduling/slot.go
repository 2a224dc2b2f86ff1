package scheduling

import "sort"

// Working window for every schedulable day.
var (
	DayStart = Clock(8 * 60)  // 08:00:00
	DayEnd   = Clock(18 * 60) // 18:00:00
)

// Weekdays enumerates the schedulable days in scan order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// IsWeekday reports whether day is one of the five schedulable weekday names.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Interval is a half-open occupied span [Start, End) within a single day,
// optionally restricted to a department/level scope.
type Interval struct {
	Start Clock
	End   Clock
	Scope Scope
}

// Slot is a free interval of exactly the requested duration, carrying the
// scope inherited from the occupied interval that follows it.
type Slot struct {
	Start Clock
	End   Clock
	Scope Scope
}

// FreeSlots walks the day's occupied intervals in start order and emits every
// gap inside [DayStart, DayEnd) wide enough for durationHours whole hours.
// Slots are returned in discovery (chronological) order. A day with no
// occupied intervals yields exactly one slot starting at DayStart.
func FreeSlots(busy []Interval, durationHours int) []Slot {
	required := durationHours * 60
	if required <= 0 {
		return nil
	}
	if len(busy) == 0 {
		if int(DayEnd-DayStart) >= required {
			return []Slot{{Start: DayStart, End: DayStart.Add(required)}}
		}
		return nil
	}

	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var slots []Slot
	cursor := DayStart
	for _, occupied := range sorted {
		if int(occupied.Start)-int(cursor) >= required {
			slots = append(slots, Slot{
				Start: cursor,
				End:   cursor.Add(required),
				Scope: inheritedScope(occupied),
			})
		}
		// Advance monotonically: a nested or overlapping interval must not
		// pull the cursor back inside an earlier occupied block.
		if occupied.End > cursor {
			cursor = occupied.End
		}
	}
	if int(DayEnd)-int(cursor) >= required {
		slots = append(slots, Slot{Start: cursor, End: cursor.Add(required)})
	}
	return slots
}

// inheritedScope tags a free slot with the scope of the occupied interval
// immediately following it. A gap before a department-scoped lecture is
// therefore only offered to that department; the trailing gap of the day
// carries no scope. This mirrors how scoping is threaded through placement
// and is kept as its own step so tests can target it directly.
func inheritedScope(next Interval) Scope {
	return next.Scope
}
