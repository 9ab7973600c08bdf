package workshop

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/model"
)

// SeedData is the initial board written into an empty store.
type SeedData struct {
	Fleets []model.Fleet `json:"fleets"`
	Visits []model.Visit `json:"visits"`
}

// LoadSeed reads seed data from a JSON file.
func LoadSeed(path string) (SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return SeedData{}, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return data, nil
}

// Seed writes data when the store holds neither visits nor fleets and
// reports whether it did.
func (s *Service) Seed(ctx context.Context, data SeedData) (bool, error) {
	visits, err := s.repo.ListVisits(ctx)
	if err != nil {
		return false, err
	}
	fleets, err := s.repo.ListFleets(ctx)
	if err != nil {
		return false, err
	}
	if len(visits) > 0 || len(fleets) > 0 {
		return false, nil
	}

	for i := range data.Fleets {
		data.Fleets[i] = normalizeFleet(data.Fleets[i])
	}
	for i := range data.Visits {
		v := &data.Visits[i]
		v.FleetID = normalizeFleetID(v.FleetID)
		if v.ServiceHistory == nil {
			v.ServiceHistory = []model.ServiceLog{}
		}
	}

	if err := s.repo.SaveFleets(ctx, data.Fleets); err != nil {
		return false, err
	}
	if err := s.repo.SaveVisits(ctx, data.Visits); err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{"fleets": len(data.Fleets), "visits": len(data.Visits)}).Info("seeded workshop board")
	return true, nil
}
