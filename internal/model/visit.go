package model

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
)

// Status is the position of a visit in the workshop lifecycle.
type Status string

const (
	StatusQueued        Status = "Em Fila"
	StatusInMaintenance Status = "Em Manutenção"
	StatusAwaitingPart  Status = "Aguardando Peça"
	StatusRollover      Status = "Movimentação"
	StatusFinished      Status = "Finalizado"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{StatusQueued, StatusInMaintenance, StatusAwaitingPart, StatusRollover, StatusFinished}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderType is a category of maintenance work.
type OrderType string

const (
	OrderPreventive  OrderType = "Preventiva"
	OrderCorrective  OrderType = "Corretiva"
	OrderPredictive  OrderType = "Preditiva"
	OrderCalibration OrderType = "Calibragem"
	OrderInspection  OrderType = "Inspeção"
)

var AllOrderTypes = []OrderType{OrderPreventive, OrderCorrective, OrderPredictive, OrderCalibration, OrderInspection}

func (o OrderType) Valid() bool {
	for _, known := range AllOrderTypes {
		if o == known {
			return true
		}
	}
	return false
}

// Workshop identifies the physical workshop a visit is serviced in.
type Workshop string

const (
	WorkshopMonteLibano     Workshop = "Monte Líbano"
	WorkshopValeDasCarretas Workshop = "Vale das Carretas"
	WorkshopCMC             Workshop = "CMC"
)

var AllWorkshops = []Workshop{WorkshopMonteLibano, WorkshopValeDasCarretas, WorkshopCMC}

func (w Workshop) Valid() bool {
	return slices.Contains(AllWorkshops, w)
}

var ErrNoOrderTypes = errors.New("at least one valid order type is required")

// OrderTypes is the ordered set of order types a visit still has to complete.
type OrderTypes []OrderType

// NewOrderTypes normalises raw values into an ordered set. Unknown values and
// duplicates are dropped; an empty result is an error.
func NewOrderTypes(values ...string) (OrderTypes, error) {
	out := normalizeOrderTypes(values)
	if len(out) == 0 {
		return nil, ErrNoOrderTypes
	}
	return out, nil
}

func normalizeOrderTypes(values []string) OrderTypes {
	out := make(OrderTypes, 0, len(values))
	for _, raw := range values {
		o := OrderType(strings.TrimSpace(raw))
		if !o.Valid() || out.Contains(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Contains reports whether t is in the set.
func (o OrderTypes) Contains(t OrderType) bool {
	for _, v := range o {
		if v == t {
			return true
		}
	}
	return false
}

// Without returns a copy of the set with t removed.
func (o OrderTypes) Without(t OrderType) OrderTypes {
	out := make(OrderTypes, 0, len(o))
	for _, v := range o {
		if v != t {
			out = append(out, v)
		}
	}
	return out
}

func (o OrderTypes) Strings() []string {
	out := make([]string, len(o))
	for i, v := range o {
		out[i] = string(v)
	}
	return out
}

// UnmarshalJSON accepts either a single string or a list of strings.
func (o *OrderTypes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		var single string
		if errSingle := json.Unmarshal(data, &single); errSingle != nil {
			return err
		}
		list = []string{single}
	}
	*o = normalizeOrderTypes(list)
	return nil
}

// TirePressures holds PSI readings for the four tyre positions of a trailer.
type TirePressures struct {
	Axle1Left  *float64 `json:"axle1Left,omitempty"`
	Axle1Right *float64 `json:"axle1Right,omitempty"`
	Axle2Left  *float64 `json:"axle2Left,omitempty"`
	Axle2Right *float64 `json:"axle2Right,omitempty"`
}

// CalibrationData holds tyre readings for up to three trailers.
type CalibrationData struct {
	Trailer1 *TirePressures `json:"trailer1,omitempty"`
	Trailer2 *TirePressures `json:"trailer2,omitempty"`
	Trailer3 *TirePressures `json:"trailer3,omitempty"`
}

// Clone returns a deep copy; a nil receiver yields nil.
func (c *CalibrationData) Clone() *CalibrationData {
	if c == nil {
		return nil
	}
	return &CalibrationData{
		Trailer1: c.Trailer1.clone(),
		Trailer2: c.Trailer2.clone(),
		Trailer3: c.Trailer3.clone(),
	}
}

func (t *TirePressures) clone() *TirePressures {
	if t == nil {
		return nil
	}
	return &TirePressures{
		Axle1Left:  clonePtr(t.Axle1Left),
		Axle1Right: clonePtr(t.Axle1Right),
		Axle2Left:  clonePtr(t.Axle2Left),
		Axle2Right: clonePtr(t.Axle2Right),
	}
}

// ServiceLog is the closed record of one order type executed within a visit.
type ServiceLog struct {
	OrderType        OrderType        `json:"orderType"`
	ServicePerformed string           `json:"servicePerformed,omitempty"`
	PartUsed         string           `json:"partUsed,omitempty"`
	PartQuantity     *int             `json:"partQuantity,omitempty"`
	CalibrationData  *CalibrationData `json:"calibrationData,omitempty"`
	StartTimestamp   int64            `json:"startTimestamp"`
	FinishTimestamp  int64            `json:"finishTimestamp"`
	Workshop         Workshop         `json:"workshop,omitempty"`
	BoxNumber        string           `json:"boxNumber,omitempty"`
}

// Visit is one vehicle's stay at the workshop. Timestamps are epoch milliseconds.
type Visit struct {
	ID            string     `gorm:"primaryKey;size:16" json:"id"`
	FleetID       string     `gorm:"index;size:64;not null" json:"fleetId"`
	Plate         string     `gorm:"size:16" json:"plate"`
	EquipmentType string     `gorm:"size:128" json:"equipmentType"`
	OrderType     OrderTypes `gorm:"serializer:json;type:text;not null" json:"orderType"`
	Status        Status     `gorm:"index;size:32;not null" json:"status"`

	ArrivalTimestamp          int64  `gorm:"not null" json:"arrivalTimestamp"`
	MaintenanceStartTimestamp *int64 `json:"maintenanceStartTimestamp,omitempty"`
	AwaitingPartTimestamp     *int64 `json:"awaitingPartTimestamp,omitempty"`
	FinishTimestamp           *int64 `json:"finishTimestamp,omitempty"`
	BoxNumber                 string `gorm:"size:32" json:"boxNumber,omitempty"`
	BoxEntryTimestamp         *int64 `json:"boxEntryTimestamp,omitempty"`

	ImageURL         string           `gorm:"column:image_url;type:text" json:"imageUrl,omitempty"`
	Notes            string           `gorm:"type:text" json:"notes,omitempty"`
	ServicePerformed string           `gorm:"type:text" json:"servicePerformed,omitempty"`
	PartUsed         string           `gorm:"size:256" json:"partUsed,omitempty"`
	PartQuantity     *int             `json:"partQuantity,omitempty"`
	Workshop         Workshop         `gorm:"index;size:64" json:"workshop,omitempty"`
	CalibrationData  *CalibrationData `gorm:"serializer:json;type:text" json:"calibrationData,omitempty"`
	ServiceHistory   []ServiceLog     `gorm:"serializer:json;type:text" json:"serviceHistory"`

	CreatedBy string `gorm:"size:128" json:"createdBy,omitempty"`
	CreatedAt int64  `gorm:"autoCreateTime:false" json:"createdAt,omitempty"`
	UpdatedBy string `gorm:"size:128" json:"updatedBy,omitempty"`
	UpdatedAt *int64 `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
}

// Clone returns a deep copy so engines can derive new values without
// touching the caller's visit.
func (v Visit) Clone() Visit {
	out := v
	out.OrderType = append(OrderTypes(nil), v.OrderType...)
	out.MaintenanceStartTimestamp = clonePtr(v.MaintenanceStartTimestamp)
	out.AwaitingPartTimestamp = clonePtr(v.AwaitingPartTimestamp)
	out.FinishTimestamp = clonePtr(v.FinishTimestamp)
	out.BoxEntryTimestamp = clonePtr(v.BoxEntryTimestamp)
	out.PartQuantity = clonePtr(v.PartQuantity)
	out.UpdatedAt = clonePtr(v.UpdatedAt)
	out.CalibrationData = v.CalibrationData.Clone()
	if v.ServiceHistory != nil {
		out.ServiceHistory = make([]ServiceLog, len(v.ServiceHistory))
		for i, log := range v.ServiceHistory {
			log.PartQuantity = clonePtr(log.PartQuantity)
			log.CalibrationData = log.CalibrationData.Clone()
			out.ServiceHistory[i] = log
		}
	}
	return out
}

func (v Visit) IsFinished() bool {
	return v.Status == StatusFinished
}

func (v Visit) HasMultipleOrders() bool {
	return len(v.OrderType) > 1
}

// FinishedWithPendingOrders flags a visit that was finalised while more than
// one order type was still open, i.e. without rolling every task over.
func (v Visit) FinishedWithPendingOrders() bool {
	return v.IsFinished() && len(v.OrderType) > 1
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
