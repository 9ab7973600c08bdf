// Package view builds filtered and sorted projections of the visit list.
package view

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
)

// All disables a filter.
const All = "all"

// Filters narrows the visit list. Empty values behave like All.
type Filters struct {
	Status    string
	OrderType string
	Workshop  string
	// Date keeps visits that arrived on that calendar day in Location.
	Date     *time.Time
	Location *time.Location
	// Fleet matches fleet ID or plate, case-insensitively, by substring.
	Fleet string
}

// Times holds the derived duration keys of a visit, in seconds.
type Times struct {
	QueueTime       float64 `json:"queueTime"`
	MaintenanceTime float64 `json:"maintenanceTime"`
	PartsTime       float64 `json:"partsTime"`
	TotalTime       float64 `json:"totalTime"`
}

// DerivedTimes computes the duration keys of v at now. A status that is
// currently running reports its live clock; otherwise the closed interval.
func DerivedTimes(v model.Visit, now time.Time) Times {
	arrival := model.Ptr(v.ArrivalTimestamp)
	var t Times

	if v.Status == model.StatusQueued {
		t.QueueTime = metrics.ElapsedSince(v.ArrivalTimestamp, now)
	} else {
		t.QueueTime = metrics.DurationSeconds(arrival, v.MaintenanceStartTimestamp)
	}

	if v.Status == model.StatusInMaintenance {
		t.MaintenanceTime = metrics.RunningSeconds(v, now)
	} else {
		end := v.AwaitingPartTimestamp
		if end == nil {
			end = v.FinishTimestamp
		}
		t.MaintenanceTime = metrics.DurationSeconds(v.MaintenanceStartTimestamp, end)
	}

	if v.Status == model.StatusAwaitingPart {
		t.PartsTime = metrics.RunningSeconds(v, now)
	} else {
		t.PartsTime = metrics.DurationSeconds(v.AwaitingPartTimestamp, v.FinishTimestamp)
	}

	if v.IsFinished() {
		t.TotalTime = metrics.DurationSeconds(arrival, v.FinishTimestamp)
	} else {
		t.TotalTime = metrics.ElapsedSince(v.ArrivalTimestamp, now)
	}
	return t
}

// Build filters visits and sorts the result. The input slice is not modified
// and the output only contains elements of the input.
func Build(visits []model.Visit, f Filters, s SortState, now time.Time) []model.Visit {
	return Sort(Filter(visits, f), s, now)
}

// Filter returns the visits matching every active filter.
func Filter(visits []model.Visit, f Filters) []model.Visit {
	var dayStart, dayEnd int64
	if f.Date != nil {
		dayStart, dayEnd = metrics.DayBounds(*f.Date, f.Location)
	}
	fleet := strings.ToLower(strings.TrimSpace(f.Fleet))

	out := make([]model.Visit, 0, len(visits))
	for _, v := range visits {
		if active(f.Status) && string(v.Status) != f.Status {
			continue
		}
		if active(f.OrderType) && !v.OrderType.Contains(model.OrderType(f.OrderType)) {
			continue
		}
		if active(f.Workshop) && string(v.Workshop) != f.Workshop {
			continue
		}
		if f.Date != nil && (v.ArrivalTimestamp < dayStart || v.ArrivalTimestamp >= dayEnd) {
			continue
		}
		if fleet != "" &&
			!strings.Contains(strings.ToLower(v.FleetID), fleet) &&
			!strings.Contains(strings.ToLower(v.Plate), fleet) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func active(filter string) bool {
	return filter != "" && filter != All
}

// Sort returns a stably sorted copy of visits. Missing values sort last in
// both directions; an unknown or empty key keeps the input order.
func Sort(visits []model.Visit, s SortState, now time.Time) []model.Visit {
	extract, ok := sortKeys[s.Key]
	if !ok {
		return append([]model.Visit(nil), visits...)
	}

	type keyed struct {
		visit model.Visit
		value any
	}
	entries := make([]keyed, len(visits))
	for i, v := range visits {
		entries[i] = keyed{visit: v, value: extract(v, now)}
	}
	col := collate.New(language.BrazilianPortuguese)
	desc := s.Direction == Desc

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].value, entries[j].value
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		cmp := compare(col, a, b)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	out := make([]model.Visit, len(entries))
	for i, e := range entries {
		out[i] = e.visit
	}
	return out
}

func compare(col *collate.Collator, a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return col.CompareString(av, bv)
	}
	return 0
}
