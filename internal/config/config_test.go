package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, 1500, cfg.Planner.TimeBudgetMs)
	require.Equal(t, 0.5, cfg.Planner.ExploreSpot)
	require.NotNil(t, cfg.Planner.SymmetricDepotReturn)
	require.True(t, *cfg.Planner.SymmetricDepotReturn)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9090"
depot:
  name: Tokyo Station
  lat: 35.681
  lng: 139.767
planner:
  time_budget_ms: 3000
  symmetric_depot_return: false
ingest:
  concurrency: 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "Tokyo Station", cfg.Depot.Name)
	require.Equal(t, 3000, cfg.Planner.TimeBudgetMs)
	require.False(t, *cfg.Planner.SymmetricDepotReturn)
	require.Equal(t, 4, cfg.Ingest.Concurrency)
	// Untouched keys keep their defaults.
	require.Equal(t, 0.4, cfg.Planner.ExploreHotel)
	require.Equal(t, "gpt-4o-mini", cfg.Ingest.Model)

	d := cfg.DepotDestination()
	require.Equal(t, "Tokyo Station", d.Name)
	require.Equal(t, 35.681, d.Location.Lat)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestPortOverride(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.Addr)
}
