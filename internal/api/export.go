package api

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"carretometro-backend/internal/model"
)

var csvHeader = []string{
	"ID", "Frota ID", "Placa", "Tipo Equipamento", "Tipo Ordem", "Status",
	"Data Chegada", "Início Manutenção", "Aguardando Peça", "Data Finalização",
	"Box", "Entrada Box", "Oficina", "Observações", "Serviço Realizado",
	"Peça Utilizada", "Quantidade Peça", "Criado Por", "Criado Em",
	"Atualizado Por", "Atualizado Em",
}

// writeVisitsCSV writes one row per visit with timestamps as local
// date-times in loc.
func writeVisitsCSV(w io.Writer, visits []model.Visit, loc *time.Location) error {
	stamp := func(ms *int64) string {
		if ms == nil || *ms == 0 {
			return ""
		}
		return time.UnixMilli(*ms).In(loc).Format(time.DateTime)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range visits {
		quantity := ""
		if v.PartQuantity != nil {
			quantity = strconv.Itoa(*v.PartQuantity)
		}
		row := []string{
			v.ID, v.FleetID, v.Plate, v.EquipmentType,
			strings.Join(v.OrderType.Strings(), ", "), string(v.Status),
			stamp(&v.ArrivalTimestamp), stamp(v.MaintenanceStartTimestamp),
			stamp(v.AwaitingPartTimestamp), stamp(v.FinishTimestamp),
			v.BoxNumber, stamp(v.BoxEntryTimestamp), string(v.Workshop), v.Notes,
			v.ServicePerformed, v.PartUsed, quantity,
			v.CreatedBy, stamp(&v.CreatedAt), v.UpdatedBy, stamp(v.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
