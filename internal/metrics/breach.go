package metrics

import (
	"time"

	"carretometro-backend/internal/model"
)

// Breach is a single active visit whose running clock exceeded the target of
// one of its buckets.
type Breach struct {
	VisitID        string         `json:"visitId"`
	FleetID        string         `json:"fleetId"`
	Plate          string         `json:"plate"`
	Workshop       model.Workshop `json:"workshop,omitempty"`
	Bucket         Bucket         `json:"bucket"`
	ElapsedSeconds float64        `json:"elapsedSeconds"`
	TargetSeconds  int64          `json:"targetSeconds"`
}

// Key identifies a breach across ticks.
func (b Breach) Key() string {
	return b.VisitID + "|" + string(b.Bucket)
}

// Breaches lists per-visit SLA breaches. Queued visits are measured against
// the queue target; visits in maintenance against every bucket they belong to.
func Breaches(visits []model.Visit, now time.Time) []Breach {
	out := []Breach{}
	for _, v := range visits {
		var buckets []Bucket
		switch v.Status {
		case model.StatusQueued:
			buckets = []Bucket{BucketQueue}
		case model.StatusInMaintenance:
			buckets = BucketsFor(v.OrderType)
		default:
			continue
		}

		elapsed := RunningSeconds(v, now)
		for _, b := range buckets {
			target := b.Target()
			if target > 0 && elapsed >= float64(target) {
				out = append(out, Breach{
					VisitID:        v.ID,
					FleetID:        v.FleetID,
					Plate:          v.Plate,
					Workshop:       v.Workshop,
					Bucket:         b,
					ElapsedSeconds: elapsed,
					TargetSeconds:  target,
				})
			}
		}
	}
	return out
}
