package workshop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carretometro-backend/internal/model"
)

const seedJSON = `{
  "fleets": [{"id": "f100", "plate": "abc1d23", "equipmentType": "Bitrem", "carrier": "Rodonorte"}],
  "visits": [{
    "id": "V007", "fleetId": "f100", "plate": "ABC1D23", "equipmentType": "Bitrem",
    "orderType": "Corretiva", "status": "Em Fila", "arrivalTimestamp": 1700000000000
  }]
}`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	data, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, data.Visits, 1)
	assert.Equal(t, model.OrderTypes{model.OrderCorrective}, data.Visits[0].OrderType)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestService_Seed(t *testing.T) {
	svc, _, _, s := newTestService(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))
	data, err := LoadSeed(path)
	require.NoError(t, err)

	seeded, err := svc.Seed(ctx, data)
	require.NoError(t, err)
	assert.True(t, seeded)

	fleet, err := s.GetFleet(ctx, "F100")
	require.NoError(t, err)
	assert.Equal(t, "RODONORTE", fleet.Carrier)

	visit, err := s.GetVisit(ctx, "V007")
	require.NoError(t, err)
	assert.Equal(t, "F100", visit.FleetID)
	assert.NotNil(t, visit.ServiceHistory)

	next, err := svc.CreateVisit(ctx, editor, intake("F100", model.OrderInspection))
	require.NoError(t, err)
	assert.Equal(t, "V008", next.ID)

	seeded, err = svc.Seed(ctx, data)
	require.NoError(t, err)
	assert.False(t, seeded, "a store with data is never reseeded")
}
