package metrics

import (
	"fmt"
	"math"
	"time"

	"carretometro-backend/internal/model"
)

// DurationSeconds returns (end-start) in seconds, or 0 when either side is
// missing or end precedes start.
func DurationSeconds(start, end *int64) float64 {
	if start == nil || end == nil || *end < *start {
		return 0
	}
	return float64(*end-*start) / 1000
}

// ElapsedSince returns the seconds between start and now, never negative.
func ElapsedSince(start int64, now time.Time) float64 {
	elapsed := now.UnixMilli() - start
	if elapsed < 0 {
		return 0
	}
	return float64(elapsed) / 1000
}

// TimerStart returns the timestamp the running clock of the visit's current
// status counts from.
func TimerStart(v model.Visit) int64 {
	switch v.Status {
	case model.StatusInMaintenance:
		return firstSet(v.ArrivalTimestamp, v.MaintenanceStartTimestamp)
	case model.StatusAwaitingPart:
		return firstSet(v.ArrivalTimestamp, v.AwaitingPartTimestamp, v.MaintenanceStartTimestamp)
	default:
		return v.ArrivalTimestamp
	}
}

// StampedSeconds is the running time the bucket averages use. Unlike
// TimerStart it does not fall back: a visit in maintenance or awaiting a part
// whose status stamp is missing contributes 0.
func StampedSeconds(v model.Visit, now time.Time) float64 {
	switch v.Status {
	case model.StatusInMaintenance:
		if v.MaintenanceStartTimestamp == nil {
			return 0
		}
		return ElapsedSince(*v.MaintenanceStartTimestamp, now)
	case model.StatusAwaitingPart:
		if v.AwaitingPartTimestamp == nil {
			return 0
		}
		return ElapsedSince(*v.AwaitingPartTimestamp, now)
	default:
		return ElapsedSince(v.ArrivalTimestamp, now)
	}
}

// RunningSeconds is the time spent so far in the visit's current status.
func RunningSeconds(v model.Visit, now time.Time) float64 {
	return ElapsedSince(TimerStart(v), now)
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not capped at 24.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func firstSet(fallback int64, candidates ...*int64) int64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}
