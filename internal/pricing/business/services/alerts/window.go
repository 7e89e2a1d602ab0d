package alerts

import (
	"time"

	"pricewatch_api/config/values"
)

// Window — окно активных часов [start, end) в локальном смещении от UTC.
// start > end означает окно через полночь.
type Window struct {
	start     int
	end       int
	utcOffset int
}

func NewWindow(v values.AlertingValues) *Window {
	return &Window{
		start:     v.ActiveHoursStart,
		end:       v.ActiveHoursEnd,
		utcOffset: v.UTCOffsetHours,
	}
}

func (w *Window) Contains(now time.Time) bool {
	hour := now.UTC().Add(time.Duration(w.utcOffset) * time.Hour).Hour()

	switch {
	case w.start < w.end:
		return hour >= w.start && hour < w.end
	case w.start > w.end:
		return hour >= w.start || hour < w.end
	default:
		return false
	}
}
