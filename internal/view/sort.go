package view

import (
	"slices"
	"strings"
	"time"

	"carretometro-backend/internal/model"
)

// Direction of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort keys accepted by Sort.
const (
	KeyID               = "id"
	KeyFleetID          = "fleetId"
	KeyPlate            = "plate"
	KeyEquipmentType    = "equipmentType"
	KeyOrderType        = "orderType"
	KeyStatus           = "status"
	KeyWorkshop         = "workshop"
	KeyBoxNumber        = "boxNumber"
	KeyArrival          = "arrivalTimestamp"
	KeyMaintenanceStart = "maintenanceStartTimestamp"
	KeyAwaitingPart     = "awaitingPartTimestamp"
	KeyFinish           = "finishTimestamp"
	KeyQueueTime        = "queueTime"
	KeyMaintenanceTime  = "maintenanceTime"
	KeyPartsTime        = "partsTime"
	KeyTotalTime        = "totalTime"
)

// SortState is the current sort of a list.
type SortState struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// Toggle selects key: the same key flips direction, a new key starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		if s.Direction == Asc {
			return SortState{Key: key, Direction: Desc}
		}
		return SortState{Key: key, Direction: Asc}
	}
	return SortState{Key: key, Direction: Asc}
}

// ParseDirection maps user input to a direction, defaulting to ascending.
func ParseDirection(raw string) Direction {
	if strings.EqualFold(raw, string(Desc)) {
		return Desc
	}
	return Asc
}

// ValidKey reports whether key is a sortable key.
func ValidKey(key string) bool {
	_, ok := sortKeys[key]
	return ok
}

// SortKeys lists the sortable keys in a stable order.
func SortKeys() []string {
	keys := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type extractor func(model.Visit, time.Time) any

var sortKeys = map[string]extractor{
	KeyID:               func(v model.Visit, _ time.Time) any { return str(v.ID) },
	KeyFleetID:          func(v model.Visit, _ time.Time) any { return str(v.FleetID) },
	KeyPlate:            func(v model.Visit, _ time.Time) any { return str(v.Plate) },
	KeyEquipmentType:    func(v model.Visit, _ time.Time) any { return str(v.EquipmentType) },
	KeyOrderType:        func(v model.Visit, _ time.Time) any { return str(strings.Join(v.OrderType.Strings(), ", ")) },
	KeyStatus:           func(v model.Visit, _ time.Time) any { return str(string(v.Status)) },
	KeyWorkshop:         func(v model.Visit, _ time.Time) any { return str(string(v.Workshop)) },
	KeyBoxNumber:        func(v model.Visit, _ time.Time) any { return str(v.BoxNumber) },
	KeyArrival:          func(v model.Visit, _ time.Time) any { return float64(v.ArrivalTimestamp) },
	KeyMaintenanceStart: func(v model.Visit, _ time.Time) any { return num(v.MaintenanceStartTimestamp) },
	KeyAwaitingPart:     func(v model.Visit, _ time.Time) any { return num(v.AwaitingPartTimestamp) },
	KeyFinish:           func(v model.Visit, _ time.Time) any { return num(v.FinishTimestamp) },
	KeyQueueTime:        func(v model.Visit, now time.Time) any { return DerivedTimes(v, now).QueueTime },
	KeyMaintenanceTime:  func(v model.Visit, now time.Time) any { return DerivedTimes(v, now).MaintenanceTime },
	KeyPartsTime:        func(v model.Visit, now time.Time) any { return DerivedTimes(v, now).PartsTime },
	KeyTotalTime:        func(v model.Visit, now time.Time) any { return DerivedTimes(v, now).TotalTime },
}

func str(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func num(p *int64) any {
	if p == nil {
		return nil
	}
	return float64(*p)
}
