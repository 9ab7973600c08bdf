package assistant

import (
	"context"
	"encoding/json"
	"errors"

	"carretometro-backend/internal/model"
)

// Messages shown in place of an answer when the service fails.
const (
	ChatFailure        = "Desculpe, ocorreu um erro ao me comunicar com a IA. Por favor, tente novamente."
	AnalysisFailure    = "Ocorreu um erro ao gerar a análise da frota. Por favor, tente novamente mais tarde."
	SuggestionsFailure = "Ocorreu um erro ao gerar as sugestões. Por favor, tente novamente mais tarde."
	ReportFailure      = "Ocorreu um erro ao gerar o relatório. Por favor, tente novamente mais tarde."
	DiagnosisFailure   = "Não foi possível gerar o diagnóstico. Preencha os campos manualmente."
)

// AnalysisType selects the focus of a fleet analysis.
type AnalysisType string

const (
	AnalysisFull            AnalysisType = "FULL"
	AnalysisSummary         AnalysisType = "SUMMARY"
	AnalysisRecurringIssues AnalysisType = "RECURRING_ISSUES"
	AnalysisDowntime        AnalysisType = "DOWNTIME"
)

var ErrUnknownAnalysis = errors.New("tipo de análise desconhecido")

func (a AnalysisType) Valid() bool {
	switch a {
	case AnalysisFull, AnalysisSummary, AnalysisRecurringIssues, AnalysisDowntime:
		return true
	}
	return false
}

// chartColors are assigned to report chart slices in order.
var chartColors = []string{
	"hsl(var(--primary))",
	"hsl(var(--secondary-foreground))",
	"hsl(var(--muted-foreground))",
	"hsl(var(--destructive))",
	"#8884d8",
}

type ChartSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill"`
}

type KeyMetrics struct {
	TotalVisits            int    `json:"totalVisits"`
	AverageQueueTime       string `json:"averageQueueTime"`
	AverageMaintenanceTime string `json:"averageMaintenanceTime"`
}

// Report is the analytics report generated over a set of visits.
type Report struct {
	ReportTitle       string       `json:"reportTitle"`
	Summary           string       `json:"summary"`
	KeyMetrics        KeyMetrics   `json:"keyMetrics"`
	VisitsByOrderType []ChartSlice `json:"visitsByOrderType"`
	VisitsByWorkshop  []ChartSlice `json:"visitsByWorkshop"`
	Insights          []string     `json:"insights"`
}

// Diagnosis is a suggested classification of a visit from its notes.
type Diagnosis struct {
	OrderType        model.OrderType `json:"orderType"`
	SuggestedPart    string          `json:"suggestedPart"`
	SuggestedService string          `json:"suggestedService"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateReport asks for an analytics report over visits.
func (c *Client) GenerateReport(ctx context.Context, visits []model.Visit) (Report, error) {
	raw, err := json.Marshal(visits)
	if err != nil {
		return Report{}, err
	}
	var report Report
	if err := c.call(ctx, "generateReport", map[string]string{"visitsJson": string(raw)}, &report, true); err != nil {
		c.log.WithError(err).Error("report generation failed")
		return Report{}, err
	}
	paint(report.VisitsByOrderType)
	paint(report.VisitsByWorkshop)
	return report, nil
}

// FleetChat answers a question about one vehicle's history. Failures are
// answered with ChatFailure.
func (c *Client) FleetChat(ctx context.Context, fleetID string, history []model.Visit, question string) string {
	raw, err := json.Marshal(history)
	if err != nil {
		return ChatFailure
	}
	input := map[string]string{"fleetId": fleetID, "visitHistory": string(raw), "question": question}
	var answer string
	if err := c.call(ctx, "fleetChat", input, &answer, false); err != nil {
		c.log.WithError(err).WithField("fleet", fleetID).Error("fleet chat failed")
		return ChatFailure
	}
	return answer
}

// AnalyzeFleet writes an analysis of a vehicle's history. Failures are
// answered with AnalysisFailure.
func (c *Client) AnalyzeFleet(ctx context.Context, fleetID string, history []model.Visit, kind AnalysisType) string {
	raw, err := json.Marshal(history)
	if err != nil {
		return AnalysisFailure
	}
	input := map[string]string{"fleetId": fleetID, "visitHistory": string(raw), "analysisType": string(kind)}
	var out struct {
		Analysis string `json:"analysis"`
	}
	if err := c.call(ctx, "fleetAnalysis", input, &out, true); err != nil {
		c.log.WithError(err).WithField("fleet", fleetID).Error("fleet analysis failed")
		return AnalysisFailure
	}
	return out.Analysis
}

// SuggestionData is the context sent for proactive suggestions: the
// vehicle, its own visits and the visits of vehicles of the same equipment type.
type SuggestionData struct {
	VehicleDetails       model.Fleet   `json:"vehicleDetails"`
	HistoricalVisits     []model.Visit `json:"historicalVisits"`
	SimilarVehicleVisits []model.Visit `json:"similarVehicleVisits"`
}

// NewSuggestionData selects the visits relevant to vehicle.
func NewSuggestionData(vehicle model.Fleet, visits []model.Visit) SuggestionData {
	data := SuggestionData{
		VehicleDetails:       vehicle,
		HistoricalVisits:     []model.Visit{},
		SimilarVehicleVisits: []model.Visit{},
	}
	for _, v := range visits {
		switch {
		case v.FleetID == vehicle.ID:
			data.HistoricalVisits = append(data.HistoricalVisits, v)
		case v.EquipmentType == vehicle.EquipmentType:
			data.SimilarVehicleVisits = append(data.SimilarVehicleVisits, v)
		}
	}
	return data
}

// Suggestions proposes proactive maintenance for a vehicle. Failures are
// answered with SuggestionsFailure.
func (c *Client) Suggestions(ctx context.Context, data SuggestionData) string {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return SuggestionsFailure
	}
	input := map[string]string{"vehicleId": data.VehicleDetails.ID, "fleetData": string(raw)}
	var out struct {
		Suggestions string `json:"suggestions"`
	}
	if err := c.call(ctx, "proactiveSuggestions", input, &out, true); err != nil {
		c.log.WithError(err).WithField("fleet", data.VehicleDetails.ID).Error("suggestions failed")
		return SuggestionsFailure
	}
	return out.Suggestions
}

// Diagnose suggests the order type, part and service for a new visit.
func (c *Client) Diagnose(ctx context.Context, notes, imageURL string) (Diagnosis, error) {
	input := map[string]string{"notes": notes}
	if imageURL != "" {
		input["imageUrl"] = imageURL
	}
	var out Diagnosis
	if err := c.call(ctx, "diagnoseVisit", input, &out, false); err != nil {
		c.log.WithError(err).Error("diagnosis failed")
		return Diagnosis{}, err
	}
	if !out.OrderType.Valid() {
		return Diagnosis{}, errors.New("diagnosis returned an unknown order type")
	}
	return out, nil
}

// Ask answers a free question over every visit and fleet. Failures are
// answered with ChatFailure.
func (c *Client) Ask(ctx context.Context, history []ChatMessage, question string, visits []model.Visit, fleets []model.Fleet) string {
	visitsJSON, err := json.Marshal(visits)
	if err != nil {
		return ChatFailure
	}
	fleetsJSON, err := json.Marshal(fleets)
	if err != nil {
		return ChatFailure
	}
	if history == nil {
		history = []ChatMessage{}
	}
	input := map[string]any{
		"history":       history,
		"question":      question,
		"allVisitsJSON": string(visitsJSON),
		"allFleetsJSON": string(fleetsJSON),
	}
	var answer string
	if err := c.call(ctx, "assistant", input, &answer, false); err != nil {
		c.log.WithError(err).Error("assistant failed")
		return ChatFailure
	}
	return answer
}

func paint(slices []ChartSlice) {
	for i := range slices {
		slices[i].Fill = chartColors[i%len(chartColors)]
	}
}
