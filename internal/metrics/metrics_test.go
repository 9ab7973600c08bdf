package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carretometro-backend/internal/model"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func msAgo(d time.Duration) int64 {
	return now.Add(-d).UnixMilli()
}

func TestDurationSeconds(t *testing.T) {
	testCases := []struct {
		name       string
		start, end *int64
		expected   float64
	}{
		{name: "Both set", start: model.Ptr(int64(1000)), end: model.Ptr(int64(5000)), expected: 4},
		{name: "Missing start", start: nil, end: model.Ptr(int64(5000)), expected: 0},
		{name: "Missing end", start: model.Ptr(int64(1000)), end: nil, expected: 0},
		{name: "End before start", start: model.Ptr(int64(5000)), end: model.Ptr(int64(1000)), expected: 0},
		{name: "Equal", start: model.Ptr(int64(5000)), end: model.Ptr(int64(5000)), expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DurationSeconds(tc.start, tc.end))
		})
	}
}

func TestElapsedSince_NeverNegative(t *testing.T) {
	assert.Equal(t, float64(0), ElapsedSince(now.Add(time.Minute).UnixMilli(), now))
	assert.Equal(t, float64(90), ElapsedSince(msAgo(90*time.Second), now))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "01:01:01", FormatDuration(3661))
	assert.Equal(t, "100:00:00", FormatDuration(360000))
	assert.Equal(t, "00:00:59", FormatDuration(59.9))
	assert.Equal(t, "00:00:00", FormatDuration(-5))
}

func TestTimerStart(t *testing.T) {
	arrival := int64(1000)
	maint := model.Ptr(int64(2000))
	waiting := model.Ptr(int64(3000))

	testCases := []struct {
		name     string
		visit    model.Visit
		expected int64
	}{
		{name: "Queue counts from arrival", visit: model.Visit{Status: model.StatusQueued, ArrivalTimestamp: arrival, MaintenanceStartTimestamp: maint}, expected: 1000},
		{name: "Maintenance uses its start", visit: model.Visit{Status: model.StatusInMaintenance, ArrivalTimestamp: arrival, MaintenanceStartTimestamp: maint}, expected: 2000},
		{name: "Maintenance falls back to arrival", visit: model.Visit{Status: model.StatusInMaintenance, ArrivalTimestamp: arrival}, expected: 1000},
		{name: "Awaiting part uses its start", visit: model.Visit{Status: model.StatusAwaitingPart, ArrivalTimestamp: arrival, MaintenanceStartTimestamp: maint, AwaitingPartTimestamp: waiting}, expected: 3000},
		{name: "Awaiting part falls back to maintenance", visit: model.Visit{Status: model.StatusAwaitingPart, ArrivalTimestamp: arrival, MaintenanceStartTimestamp: maint}, expected: 2000},
		{name: "Awaiting part falls back to arrival", visit: model.Visit{Status: model.StatusAwaitingPart, ArrivalTimestamp: arrival}, expected: 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TimerStart(tc.visit))
		})
	}
}

func TestCompute_Empty(t *testing.T) {
	snap := Compute(nil, now, Options{})

	assert.Equal(t, 0, snap.Queue.Count)
	assert.Equal(t, float64(0), snap.Queue.AverageSeconds)
	assert.False(t, snap.Queue.HasVehicles)
	assert.Equal(t, NoVehiclesLabel, snap.Queue.Average)
	require.Len(t, snap.Maintenance, 4)
	for _, stat := range snap.Maintenance {
		assert.Equal(t, 0, stat.Count)
		assert.Equal(t, float64(0), stat.AverageSeconds)
		assert.Equal(t, float64(0), stat.Progress)
		assert.False(t, stat.Breached)
		assert.False(t, stat.HasVehicles)
	}
	for _, count := range snap.StatusCounts {
		assert.Equal(t, 0, count)
	}
	assert.Equal(t, 0, snap.FinalizedCount)
	assert.Empty(t, snap.FinalizedByOrderType)
	assert.Empty(t, snap.Breaches)
}

func TestCompute_MultiMembershipBuckets(t *testing.T) {
	visits := []model.Visit{
		{
			ID: "V001", Status: model.StatusInMaintenance,
			OrderType:                 model.OrderTypes{model.OrderCorrective},
			ArrivalTimestamp:          msAgo(5 * time.Hour),
			MaintenanceStartTimestamp: model.Ptr(msAgo(3600 * time.Second)),
		},
		{
			ID: "V002", Status: model.StatusInMaintenance,
			OrderType:                 model.OrderTypes{model.OrderCorrective, model.OrderCalibration},
			ArrivalTimestamp:          msAgo(5 * time.Hour),
			MaintenanceStartTimestamp: model.Ptr(msAgo(1800 * time.Second)),
		},
	}

	snap := Compute(visits, now, Options{})

	corrective := snap.MaintenanceBucket(BucketCorrective)
	assert.Equal(t, 2, corrective.Count)
	assert.Equal(t, float64(2700), corrective.AverageSeconds)
	assert.Equal(t, "00:45:00", corrective.Average)
	assert.InDelta(t, 7.5, corrective.Progress, 0.0001)
	assert.False(t, corrective.Breached)

	calibration := snap.MaintenanceBucket(BucketCalibration)
	assert.Equal(t, 1, calibration.Count)
	assert.Equal(t, float64(1800), calibration.AverageSeconds)
	assert.InDelta(t, 50, calibration.Progress, 0.0001)

	preventive := snap.MaintenanceBucket(BucketPreventive)
	assert.False(t, preventive.HasVehicles)
	assert.Equal(t, 2, snap.StatusCounts[model.StatusInMaintenance])
}

func TestCompute_PreventiveAndPredictiveShareBucket(t *testing.T) {
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderPreventive}, ArrivalTimestamp: msAgo(7 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(2 * time.Hour))},
		{ID: "V002", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderPredictive}, ArrivalTimestamp: msAgo(7 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(4 * time.Hour))},
		{ID: "V003", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderPreventive, model.OrderPredictive}, ArrivalTimestamp: msAgo(7 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(6 * time.Hour))},
	}

	snap := Compute(visits, now, Options{})
	stat := snap.MaintenanceBucket(BucketPreventive)
	assert.Equal(t, 3, stat.Count, "a visit with both types counts once")
	assert.Equal(t, float64(4*3600), stat.AverageSeconds)
}

func TestCompute_QueueBreach(t *testing.T) {
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusQueued, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(11 * time.Hour)},
		{ID: "V002", Status: model.StatusQueued, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(10 * time.Hour)},
	}

	snap := Compute(visits, now, Options{})
	assert.Equal(t, float64(100), snap.Queue.Progress)
	assert.True(t, snap.Queue.Breached)
	require.Len(t, snap.InQueue, 2)
	assert.Equal(t, "V001", snap.InQueue[0].Visit.ID, "oldest first")
	assert.Equal(t, "11:00:00", snap.InQueue[0].Elapsed)
	assert.Len(t, snap.Breaches, 2)
}

func TestCompute_WorkshopFilterAppliesFirst(t *testing.T) {
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusQueued, Workshop: model.WorkshopCMC, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(time.Hour)},
		{ID: "V002", Status: model.StatusQueued, Workshop: model.WorkshopMonteLibano, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(3 * time.Hour)},
		{ID: "V003", Status: model.StatusFinished, Workshop: model.WorkshopMonteLibano, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(3 * time.Hour), FinishTimestamp: model.Ptr(msAgo(time.Hour))},
	}

	snap := Compute(visits, now, Options{Workshop: model.WorkshopCMC})
	assert.Equal(t, 1, snap.Queue.Count)
	assert.Equal(t, float64(3600), snap.Queue.AverageSeconds)
	assert.Equal(t, 0, snap.FinalizedCount)
	assert.Equal(t, 1, snap.StatusCounts[model.StatusQueued])
}

func TestCompute_DateNarrowsActiveVisits(t *testing.T) {
	loc := time.UTC
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusQueued, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, loc).UnixMilli()},
		{ID: "V002", Status: model.StatusQueued, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(4 * time.Hour)},
		{ID: "V003", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: time.Date(2026, 3, 2, 8, 0, 0, 0, loc).UnixMilli(), MaintenanceStartTimestamp: model.Ptr(msAgo(30 * time.Hour))},
	}
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	snap := Compute(visits, now, Options{Date: &day, Location: loc})
	require.Len(t, snap.InQueue, 1)
	assert.Equal(t, "V002", snap.InQueue[0].Visit.ID)
	assert.Equal(t, 1, snap.Queue.Count)
	assert.Equal(t, float64(4*3600), snap.Queue.AverageSeconds)
	assert.Empty(t, snap.InMaintenance)
	assert.False(t, snap.MaintenanceBucket(BucketCorrective).HasVehicles)
	assert.Equal(t, 1, snap.StatusCounts[model.StatusQueued])
	assert.Equal(t, 0, snap.StatusCounts[model.StatusInMaintenance])

	all := Compute(visits, now, Options{Location: loc})
	assert.Equal(t, 2, all.Queue.Count)
	assert.Len(t, all.InMaintenance, 1)
}

func TestCompute_MissingStampCountsAsZero(t *testing.T) {
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(5 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(2 * time.Hour))},
		{ID: "V002", Status: model.StatusInMaintenance, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(5 * time.Hour)},
		{ID: "V003", Status: model.StatusAwaitingPart, OrderType: model.OrderTypes{model.OrderCorrective}, ArrivalTimestamp: msAgo(5 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(4 * time.Hour))},
	}

	snap := Compute(visits, now, Options{})
	corrective := snap.MaintenanceBucket(BucketCorrective)
	assert.Equal(t, 2, corrective.Count)
	assert.Equal(t, float64(3600), corrective.AverageSeconds)
	assert.Equal(t, 1, snap.AwaitingPart.Count)
	assert.Equal(t, float64(0), snap.AwaitingPart.AverageSeconds)

	require.Len(t, snap.InMaintenance, 2)
	assert.Equal(t, "V002", snap.InMaintenance[0].Visit.ID, "the list clock still falls back to arrival")
}

func TestStampedSeconds(t *testing.T) {
	testCases := []struct {
		name     string
		visit    model.Visit
		expected float64
	}{
		{name: "Queue from arrival", visit: model.Visit{Status: model.StatusQueued, ArrivalTimestamp: msAgo(time.Hour)}, expected: 3600},
		{name: "Maintenance from its start", visit: model.Visit{Status: model.StatusInMaintenance, ArrivalTimestamp: msAgo(2 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(time.Hour))}, expected: 3600},
		{name: "Maintenance without start", visit: model.Visit{Status: model.StatusInMaintenance, ArrivalTimestamp: msAgo(2 * time.Hour)}, expected: 0},
		{name: "Awaiting part from its start", visit: model.Visit{Status: model.StatusAwaitingPart, ArrivalTimestamp: msAgo(3 * time.Hour), AwaitingPartTimestamp: model.Ptr(msAgo(30 * time.Minute))}, expected: 1800},
		{name: "Awaiting part without start", visit: model.Visit{Status: model.StatusAwaitingPart, ArrivalTimestamp: msAgo(3 * time.Hour), MaintenanceStartTimestamp: model.Ptr(msAgo(time.Hour))}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StampedSeconds(tc.visit, now))
		})
	}
}

func TestFinalizedInPeriod(t *testing.T) {
	loc := time.UTC
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusFinished, ArrivalTimestamp: time.Date(2026, 3, 9, 8, 0, 0, 0, loc).UnixMilli(), FinishTimestamp: model.Ptr(msAgo(2 * time.Hour))},
		{ID: "V002", Status: model.StatusFinished, ArrivalTimestamp: time.Date(2026, 3, 8, 8, 0, 0, 0, loc).UnixMilli(), FinishTimestamp: model.Ptr(msAgo(30 * time.Hour))},
		{ID: "V003", Status: model.StatusInMaintenance, ArrivalTimestamp: time.Date(2026, 3, 9, 9, 0, 0, 0, loc).UnixMilli()},
		{ID: "V004", Status: model.StatusFinished, ArrivalTimestamp: time.Date(2026, 3, 9, 23, 59, 0, 0, loc).UnixMilli(), FinishTimestamp: model.Ptr(msAgo(1 * time.Hour))},
	}

	t.Run("Trailing 24 hours without a date", func(t *testing.T) {
		got := FinalizedInPeriod(visits, now, Options{})
		require.Len(t, got, 2)
		assert.Equal(t, "V004", got[0].ID, "most recent finish first")
		assert.Equal(t, "V001", got[1].ID)
	})

	t.Run("Arrival day with a date", func(t *testing.T) {
		day := time.Date(2026, 3, 9, 12, 0, 0, 0, loc)
		got := FinalizedInPeriod(visits, now, Options{Date: &day, Location: loc})
		ids := []string{}
		for _, v := range got {
			ids = append(ids, v.ID)
		}
		assert.ElementsMatch(t, []string{"V001", "V004"}, ids)
	})

	t.Run("Arrival day excludes other days", func(t *testing.T) {
		day := time.Date(2026, 3, 8, 0, 0, 0, 0, loc)
		got := FinalizedInPeriod(visits, now, Options{Date: &day, Location: loc})
		require.Len(t, got, 1)
		assert.Equal(t, "V002", got[0].ID)
	})
}

func TestDayBounds_UsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*3600)
	day := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC) // 22:00 on the 9th in BRT

	start, end := DayBounds(day, saoPaulo)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, saoPaulo).UnixMilli(), start)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, saoPaulo).UnixMilli(), end)
}

func TestFinalizedByOrderType(t *testing.T) {
	visits := []model.Visit{
		{
			Status:         model.StatusFinished,
			OrderType:      model.OrderTypes{model.OrderCalibration},
			ServiceHistory: []model.ServiceLog{{OrderType: model.OrderPreventive}},
		},
		{Status: model.StatusFinished, OrderType: model.OrderTypes{model.OrderCorrective}},
		{Status: model.StatusFinished, OrderType: model.OrderTypes{model.OrderCorrective, model.OrderCorrective}},
	}

	got := FinalizedByOrderType(visits)
	assert.Equal(t, []OrderTypeCount{
		{OrderType: model.OrderPreventive, Count: 1},
		{OrderType: model.OrderCorrective, Count: 2},
		{OrderType: model.OrderCalibration, Count: 1},
	}, got)
}

func TestBreaches(t *testing.T) {
	visits := []model.Visit{
		{
			ID: "V001", FleetID: "F1", Status: model.StatusInMaintenance,
			OrderType:                 model.OrderTypes{model.OrderCorrective, model.OrderCalibration},
			ArrivalTimestamp:          msAgo(3 * time.Hour),
			MaintenanceStartTimestamp: model.Ptr(msAgo(2 * time.Hour)),
		},
		{ID: "V002", Status: model.StatusAwaitingPart, OrderType: model.OrderTypes{model.OrderInspection}, ArrivalTimestamp: msAgo(48 * time.Hour)},
		{ID: "V003", Status: model.StatusFinished, OrderType: model.OrderTypes{model.OrderInspection}, ArrivalTimestamp: msAgo(48 * time.Hour)},
	}

	got := Breaches(visits, now)
	require.Len(t, got, 1)
	assert.Equal(t, BucketCalibration, got[0].Bucket)
	assert.Equal(t, "V001|Calibragem", got[0].Key())
	assert.Equal(t, float64(7200), got[0].ElapsedSeconds)
}

func TestActiveByStatus(t *testing.T) {
	visits := []model.Visit{
		{ID: "V001", Status: model.StatusAwaitingPart, ArrivalTimestamp: msAgo(time.Hour), AwaitingPartTimestamp: model.Ptr(msAgo(10 * time.Minute))},
		{ID: "V002", Status: model.StatusAwaitingPart, ArrivalTimestamp: msAgo(2 * time.Hour), AwaitingPartTimestamp: model.Ptr(msAgo(20 * time.Minute))},
		{ID: "V003", Status: model.StatusQueued, ArrivalTimestamp: msAgo(3 * time.Hour)},
	}

	got := ActiveByStatus(visits, model.StatusAwaitingPart, now)
	require.Len(t, got, 2)
	assert.Equal(t, "V002", got[0].Visit.ID)
	assert.Equal(t, "00:20:00", got[0].Elapsed)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	visits := []model.Visit{
		{ID: "V002", Status: model.StatusQueued, ArrivalTimestamp: msAgo(time.Hour)},
		{ID: "V001", Status: model.StatusQueued, ArrivalTimestamp: msAgo(2 * time.Hour)},
	}
	Compute(visits, now, Options{})
	assert.Equal(t, "V002", visits[0].ID)
	assert.Equal(t, "V001", visits[1].ID)
}
