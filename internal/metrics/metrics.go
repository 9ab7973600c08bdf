// Package metrics computes running durations and SLA aggregates over a
// snapshot of visits. Every function is pure and cheap enough to run on
// each monitor tick.
package metrics

import (
	"sort"
	"time"

	"carretometro-backend/internal/model"
)

// NoVehiclesLabel is shown for a bucket without members.
const NoVehiclesLabel = "Nenhum veículo"

// Options narrows the visit set before aggregation.
type Options struct {
	// Date keeps only visits that arrived on that calendar day, for the
	// active lists and averages as well as the finalized list.
	Date *time.Time
	// Workshop, when set, excludes every visit of other workshops.
	Workshop model.Workshop
	// Location defines day boundaries for Date. Defaults to time.Local.
	Location *time.Location
}

// BucketStat is the aggregate of one bucket.
type BucketStat struct {
	Bucket         Bucket  `json:"bucket"`
	Count          int     `json:"count"`
	AverageSeconds float64 `json:"averageSeconds"`
	Average        string  `json:"average"`
	TargetSeconds  int64   `json:"targetSeconds,omitempty"`
	Progress       float64 `json:"progress"`
	Breached       bool    `json:"breached"`
	HasVehicles    bool    `json:"hasVehicles"`
}

// ActiveVisit is a visit in a running status together with its clock.
type ActiveVisit struct {
	Visit          model.Visit `json:"visit"`
	StartedAt      int64       `json:"startedAt"`
	ElapsedSeconds float64     `json:"elapsedSeconds"`
	Elapsed        string      `json:"elapsed"`
}

// OrderTypeCount is one slice of the finalized-orders chart.
type OrderTypeCount struct {
	OrderType model.OrderType `json:"orderType"`
	Count     int             `json:"count"`
}

// Snapshot is the full dashboard state at a point in time.
type Snapshot struct {
	GeneratedAt          int64                `json:"generatedAt"`
	StatusCounts         map[model.Status]int `json:"statusCounts"`
	Queue                BucketStat           `json:"queue"`
	Maintenance          []BucketStat         `json:"maintenance"`
	AwaitingPart         BucketStat           `json:"awaitingPart"`
	InQueue              []ActiveVisit        `json:"inQueue"`
	InMaintenance        []ActiveVisit        `json:"inMaintenance"`
	AwaitingParts        []ActiveVisit        `json:"awaitingParts"`
	Finalized            []model.Visit        `json:"finalized"`
	FinalizedCount       int                  `json:"finalizedCount"`
	FinalizedByOrderType []OrderTypeCount     `json:"finalizedByOrderType"`
	Breaches             []Breach             `json:"breaches"`
}

// MaintenanceBucket returns the stat for b, or an empty stat when b is not a
// maintenance bucket.
func (s Snapshot) MaintenanceBucket(b Bucket) BucketStat {
	for _, stat := range s.Maintenance {
		if stat.Bucket == b {
			return stat
		}
	}
	return emptyStat(b)
}

// Compute builds the dashboard snapshot. visits is read only.
func Compute(visits []model.Visit, now time.Time, opts Options) Snapshot {
	scoped := FilterWorkshop(visits, opts.Workshop)
	dated := FilterArrivalDay(scoped, opts)

	snap := Snapshot{
		GeneratedAt:  now.UnixMilli(),
		StatusCounts: make(map[model.Status]int, len(model.AllStatuses)),
	}
	for _, s := range model.AllStatuses {
		snap.StatusCounts[s] = 0
	}

	queue := newAccumulator(BucketQueue)
	waiting := newAccumulator(BucketAwaitingPart)
	maintenance := make(map[Bucket]*accumulator, len(MaintenanceBuckets))
	for _, b := range MaintenanceBuckets {
		maintenance[b] = newAccumulator(b)
	}

	for _, v := range dated {
		snap.StatusCounts[v.Status]++
	}

	snap.InQueue = ActiveByStatus(dated, model.StatusQueued, now)
	for _, a := range snap.InQueue {
		queue.add(StampedSeconds(a.Visit, now))
	}
	snap.InMaintenance = ActiveByStatus(dated, model.StatusInMaintenance, now)
	for _, a := range snap.InMaintenance {
		seconds := StampedSeconds(a.Visit, now)
		for _, b := range BucketsFor(a.Visit.OrderType) {
			maintenance[b].add(seconds)
		}
	}
	snap.AwaitingParts = ActiveByStatus(dated, model.StatusAwaitingPart, now)
	for _, a := range snap.AwaitingParts {
		waiting.add(StampedSeconds(a.Visit, now))
	}

	snap.Queue = queue.stat()
	snap.AwaitingPart = waiting.stat()
	for _, b := range MaintenanceBuckets {
		snap.Maintenance = append(snap.Maintenance, maintenance[b].stat())
	}

	snap.Finalized = FinalizedInPeriod(dated, now, opts)
	snap.FinalizedCount = len(snap.Finalized)
	snap.FinalizedByOrderType = FinalizedByOrderType(snap.Finalized)
	snap.Breaches = Breaches(scoped, now)
	return snap
}

// FilterWorkshop keeps visits of the given workshop; an empty workshop keeps all.
func FilterWorkshop(visits []model.Visit, workshop model.Workshop) []model.Visit {
	if workshop == "" {
		return visits
	}
	out := make([]model.Visit, 0, len(visits))
	for _, v := range visits {
		if v.Workshop == workshop {
			out = append(out, v)
		}
	}
	return out
}

// FilterArrivalDay keeps visits that arrived on opts.Date; without a date it
// keeps all.
func FilterArrivalDay(visits []model.Visit, opts Options) []model.Visit {
	if opts.Date == nil {
		return visits
	}
	start, end := DayBounds(*opts.Date, opts.Location)
	out := make([]model.Visit, 0, len(visits))
	for _, v := range visits {
		if v.ArrivalTimestamp >= start && v.ArrivalTimestamp < end {
			out = append(out, v)
		}
	}
	return out
}

// FinalizedInPeriod returns finalized visits that arrived on opts.Date, or,
// without a date, those finalized within the 24 hours before now. The result
// is ordered by finish time, most recent first.
func FinalizedInPeriod(visits []model.Visit, now time.Time, opts Options) []model.Visit {
	var keep func(model.Visit) bool
	if opts.Date != nil {
		start, end := DayBounds(*opts.Date, opts.Location)
		keep = func(v model.Visit) bool {
			return v.ArrivalTimestamp >= start && v.ArrivalTimestamp < end
		}
	} else {
		since := now.Add(-24 * time.Hour).UnixMilli()
		keep = func(v model.Visit) bool {
			return v.FinishTimestamp != nil && *v.FinishTimestamp >= since
		}
	}

	out := []model.Visit{}
	for _, v := range visits {
		if v.IsFinished() && keep(v) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return finishOf(out[i]) > finishOf(out[j])
	})
	return out
}

// DayBounds returns the [start, end) epoch milliseconds of day in loc.
func DayBounds(day time.Time, loc *time.Location) (int64, int64) {
	if loc == nil {
		loc = time.Local
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start.UnixMilli(), start.AddDate(0, 0, 1).UnixMilli()
}

// FinalizedByOrderType counts every order type completed by the given visits,
// both the ones rolled into the service history and the ones still listed on
// the visit. Each order type counts once per visit.
func FinalizedByOrderType(visits []model.Visit) []OrderTypeCount {
	counts := make(map[model.OrderType]int)
	for _, v := range visits {
		seen := make(map[model.OrderType]bool)
		for _, log := range v.ServiceHistory {
			seen[log.OrderType] = true
		}
		for _, o := range v.OrderType {
			seen[o] = true
		}
		for o := range seen {
			counts[o]++
		}
	}

	out := []OrderTypeCount{}
	for _, o := range model.AllOrderTypes {
		if counts[o] > 0 {
			out = append(out, OrderTypeCount{OrderType: o, Count: counts[o]})
		}
	}
	return out
}

// ActiveByStatus returns visits in status, oldest running clock first.
func ActiveByStatus(visits []model.Visit, status model.Status, now time.Time) []ActiveVisit {
	out := []ActiveVisit{}
	for _, v := range visits {
		if v.Status == status {
			out = append(out, activeOf(v, now))
		}
	}
	sortActive(out)
	return out
}

func activeOf(v model.Visit, now time.Time) ActiveVisit {
	start := TimerStart(v)
	elapsed := ElapsedSince(start, now)
	return ActiveVisit{
		Visit:          v,
		StartedAt:      start,
		ElapsedSeconds: elapsed,
		Elapsed:        FormatDuration(elapsed),
	}
}

func sortActive(list []ActiveVisit) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartedAt < list[j].StartedAt
	})
}

func finishOf(v model.Visit) int64 {
	if v.FinishTimestamp == nil {
		return 0
	}
	return *v.FinishTimestamp
}

type accumulator struct {
	bucket Bucket
	sum    float64
	n      int
}

func newAccumulator(b Bucket) *accumulator {
	return &accumulator{bucket: b}
}

func (a *accumulator) add(seconds float64) {
	a.sum += seconds
	a.n++
}

func (a *accumulator) stat() BucketStat {
	if a.n == 0 {
		return emptyStat(a.bucket)
	}
	avg := a.sum / float64(a.n)
	target := a.bucket.Target()
	progress := Progress(avg, target)
	return BucketStat{
		Bucket:         a.bucket,
		Count:          a.n,
		AverageSeconds: avg,
		Average:        FormatDuration(avg),
		TargetSeconds:  target,
		Progress:       progress,
		Breached:       target > 0 && progress >= 100,
		HasVehicles:    true,
	}
}

func emptyStat(b Bucket) BucketStat {
	return BucketStat{
		Bucket:        b,
		Average:       NoVehiclesLabel,
		TargetSeconds: b.Target(),
	}
}
