package calendar

import (
	"sort"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

// Interval is a half-open [Start, End) span.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// BusyBlocks clips events to the window. All-day events block the whole
// window and transparent events block nothing.
func BusyBlocks(events []contractx.CalendarEvent, window Interval) []Interval {
	var out []Interval
	for _, ev := range events {
		if ev.Transparent {
			continue
		}
		if ev.AllDay {
			if (Interval{Start: ev.Start, End: ev.End}).overlaps(window) || ev.End.IsZero() {
				out = append(out, window)
			}
			continue
		}
		start, end := ev.Start, ev.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		if start.Before(end) {
			out = append(out, Interval{Start: start, End: end})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FreeSlots walks the window in fixed strides and keeps every start whose
// [start, start+duration) fits the window and misses every busy block.
func FreeSlots(window Interval, busy []Interval, duration, stride time.Duration) []time.Time {
	if duration <= 0 || stride <= 0 {
		return nil
	}
	var out []time.Time
	for s := window.Start; !s.Add(duration).After(window.End); s = s.Add(stride) {
		candidate := Interval{Start: s, End: s.Add(duration)}
		free := true
		for _, b := range busy {
			if candidate.overlaps(b) {
				free = false
				break
			}
		}
		if free {
			out = append(out, s)
		}
	}
	return out
}
