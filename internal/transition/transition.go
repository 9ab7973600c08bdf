// Package transition applies status changes to visits. It is pure: Apply
// never touches its input and never performs I/O.
package transition

import (
	"encoding/json"
	"errors"
	"time"

	"carretometro-backend/internal/model"
	"carretometro-backend/internal/parse"
)

var (
	ErrOrderTypeForServiceRequired = errors.New("selecione qual tipo de ordem está sendo executada")
	ErrOrderTypeNotInVisit         = errors.New("o tipo de ordem selecionado não pertence a esta visita")
	ErrRolloverNeedsMultipleOrders = errors.New("movimentação exige uma visita com mais de um tipo de ordem")
	ErrVisitFinished               = errors.New("visita finalizada não admite novas alterações de status")
	ErrUnknownStatus               = errors.New("status desconhecido")
)

// Request carries a status-change intent together with the current-task
// form values submitted with it.
type Request struct {
	Status              model.Status           `json:"status"`
	OrderTypeForService model.OrderType        `json:"orderTypeForService,omitempty"`
	Workshop            model.Workshop         `json:"workshop,omitempty"`
	BoxNumber           string                 `json:"boxNumber,omitempty"`
	BoxEntryTimestamp   *int64                 `json:"boxEntryTimestamp,omitempty"`
	FinishTimestamp     *int64                 `json:"finishTimestamp,omitempty"`
	CalibrationData     *model.CalibrationData `json:"calibrationData,omitempty"`
	ServicePerformed    string                 `json:"servicePerformed,omitempty"`
	PartUsed            string                 `json:"partUsed,omitempty"`
	PartQuantity        *int                   `json:"partQuantity,omitempty"`
}

// UnmarshalJSON accepts partQuantity as a number or a numeric string, the
// way form inputs submit it.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	aux := struct {
		*plain
		PartQuantity any `json:"partQuantity"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.PartQuantity = parse.Quantity(aux.PartQuantity)
	return nil
}

// Validate checks a request against the visit without applying it.
func Validate(visit model.Visit, req Request) error {
	if !req.Status.Valid() {
		return ErrUnknownStatus
	}
	if visit.IsFinished() {
		return ErrVisitFinished
	}
	if visit.HasMultipleOrders() && req.Status != model.StatusQueued {
		if req.OrderTypeForService == "" {
			return ErrOrderTypeForServiceRequired
		}
		if !visit.OrderType.Contains(req.OrderTypeForService) {
			return ErrOrderTypeNotInVisit
		}
	}
	if req.Status == model.StatusRollover && !visit.HasMultipleOrders() {
		return ErrRolloverNeedsMultipleOrders
	}
	return nil
}

// Apply validates req and returns the visit that results from it.
func Apply(visit model.Visit, req Request, now time.Time) (model.Visit, error) {
	if err := Validate(visit, req); err != nil {
		return model.Visit{}, err
	}

	ts := now.UnixMilli()
	if req.Status == model.StatusRollover {
		return rollover(visit, req, ts), nil
	}

	next := visit.Clone()
	next.Workshop = req.Workshop
	next.Status = req.Status
	next.BoxNumber = req.BoxNumber
	next.CalibrationData = req.CalibrationData.Clone()
	next.ServicePerformed = req.ServicePerformed
	next.PartUsed = req.PartUsed
	next.PartQuantity = clone(req.PartQuantity)

	if req.BoxEntryTimestamp != nil {
		next.BoxEntryTimestamp = model.Ptr(notBefore(*req.BoxEntryTimestamp, visit.ArrivalTimestamp))
	} else if req.BoxNumber != "" && visit.BoxEntryTimestamp == nil {
		next.BoxEntryTimestamp = model.Ptr(notBefore(ts, visit.ArrivalTimestamp))
	}

	if req.Status != visit.Status {
		switch req.Status {
		case model.StatusInMaintenance:
			if next.MaintenanceStartTimestamp == nil {
				next.MaintenanceStartTimestamp = model.Ptr(notBefore(ts, visit.ArrivalTimestamp))
			}
		case model.StatusAwaitingPart:
			// A stamp older than the maintenance start belongs to a task
			// already rolled into the service history.
			if next.AwaitingPartTimestamp == nil || stale(next.AwaitingPartTimestamp, next.MaintenanceStartTimestamp) {
				next.AwaitingPartTimestamp = model.Ptr(notBefore(ts, latest(visit.ArrivalTimestamp, visit.MaintenanceStartTimestamp)))
			}
		case model.StatusFinished:
			if next.FinishTimestamp == nil {
				finish := ts
				if req.FinishTimestamp != nil {
					finish = *req.FinishTimestamp
				}
				floor := latest(visit.ArrivalTimestamp, visit.MaintenanceStartTimestamp, visit.AwaitingPartTimestamp)
				next.FinishTimestamp = model.Ptr(notBefore(finish, floor))
			}
		}
	}
	return next, nil
}

// rollover closes the task for req.OrderTypeForService into the service
// history and restarts the maintenance clock for the remaining order types.
func rollover(visit model.Visit, req Request, ts int64) model.Visit {
	next := visit.Clone()

	start := visit.ArrivalTimestamp
	if visit.MaintenanceStartTimestamp != nil {
		start = *visit.MaintenanceStartTimestamp
	}
	finish := notBefore(ts, start)

	entry := model.ServiceLog{
		OrderType:        req.OrderTypeForService,
		ServicePerformed: req.ServicePerformed,
		PartUsed:         req.PartUsed,
		PartQuantity:     clone(req.PartQuantity),
		CalibrationData:  req.CalibrationData.Clone(),
		StartTimestamp:   start,
		FinishTimestamp:  finish,
		Workshop:         req.Workshop,
		BoxNumber:        req.BoxNumber,
	}
	next.ServiceHistory = append(next.ServiceHistory, entry)

	next.ServicePerformed = ""
	next.PartUsed = ""
	next.PartQuantity = nil
	next.CalibrationData = nil
	next.BoxNumber = ""
	next.BoxEntryTimestamp = nil

	next.MaintenanceStartTimestamp = model.Ptr(finish)
	next.Status = model.StatusInMaintenance
	next.OrderType = visit.OrderType.Without(req.OrderTypeForService)
	return next
}

func stale(stamp, since *int64) bool {
	return since != nil && *stamp < *since
}

func latest(base int64, others ...*int64) int64 {
	out := base
	for _, p := range others {
		if p != nil && *p > out {
			out = *p
		}
	}
	return out
}

func notBefore(ts, floor int64) int64 {
	if ts < floor {
		return floor
	}
	return ts
}

func clone(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
