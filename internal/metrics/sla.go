package metrics

import "carretometro-backend/internal/model"

// Bucket groups visits for aggregate timing.
type Bucket string

const (
	BucketQueue        Bucket = "Em Fila"
	BucketCorrective   Bucket = "Corretiva"
	BucketPreventive   Bucket = "Preventiva/Preditiva"
	BucketInspection   Bucket = "Inspeção"
	BucketCalibration  Bucket = "Calibragem"
	BucketAwaitingPart Bucket = "Aguardando Peça"
)

// SLA targets in seconds.
const (
	QueueTargetSeconds       int64 = 36000
	CorrectiveTargetSeconds  int64 = 36000
	PreventiveTargetSeconds  int64 = 72000
	InspectionTargetSeconds  int64 = 7200
	CalibrationTargetSeconds int64 = 3600
)

// MaintenanceBuckets lists the maintenance buckets in display order.
var MaintenanceBuckets = []Bucket{BucketCorrective, BucketPreventive, BucketInspection, BucketCalibration}

// Target returns the SLA target of the bucket, 0 when it has none.
func (b Bucket) Target() int64 {
	switch b {
	case BucketQueue:
		return QueueTargetSeconds
	case BucketCorrective:
		return CorrectiveTargetSeconds
	case BucketPreventive:
		return PreventiveTargetSeconds
	case BucketInspection:
		return InspectionTargetSeconds
	case BucketCalibration:
		return CalibrationTargetSeconds
	}
	return 0
}

// Targets returns every bucket with an SLA target.
func Targets() map[Bucket]int64 {
	out := map[Bucket]int64{BucketQueue: QueueTargetSeconds}
	for _, b := range MaintenanceBuckets {
		out[b] = b.Target()
	}
	return out
}

// BucketsFor returns every maintenance bucket the visit's order types belong to.
// A visit carrying several order types is a member of several buckets.
func BucketsFor(orderTypes model.OrderTypes) []Bucket {
	var out []Bucket
	if orderTypes.Contains(model.OrderCorrective) {
		out = append(out, BucketCorrective)
	}
	if orderTypes.Contains(model.OrderPreventive) || orderTypes.Contains(model.OrderPredictive) {
		out = append(out, BucketPreventive)
	}
	if orderTypes.Contains(model.OrderInspection) {
		out = append(out, BucketInspection)
	}
	if orderTypes.Contains(model.OrderCalibration) {
		out = append(out, BucketCalibration)
	}
	return out
}

// Progress is min(100, average/target*100); 0 for buckets without a target.
func Progress(averageSeconds float64, targetSeconds int64) float64 {
	if targetSeconds <= 0 {
		return 0
	}
	p := averageSeconds / float64(targetSeconds) * 100
	if p > 100 {
		return 100
	}
	return p
}
