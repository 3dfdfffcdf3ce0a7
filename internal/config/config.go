// Package config loads the YAML service configuration with environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tripnav/internal/model"
)

type Config struct {
	Addr    string  `yaml:"addr"`
	Depot   Depot   `yaml:"depot"`
	Planner Planner `yaml:"planner"`
	Ingest  Ingest  `yaml:"ingest"`
}

// Depot identifies the origin hub itineraries start from and return to.
// It is synthesized into the catalog index, never loaded from the store.
type Depot struct {
	Name      string  `yaml:"name"`
	LocalName string  `yaml:"local_name"`
	Lat       float64 `yaml:"lat"`
	Lng       float64 `yaml:"lng"`
}

type Planner struct {
	TimeBudgetMs         int     `yaml:"time_budget_ms"`
	ExploreSpot          float64 `yaml:"explore_spot"`
	ExploreHotel         float64 `yaml:"explore_hotel"`
	SymmetricDepotReturn *bool   `yaml:"symmetric_depot_return"`
}

type Ingest struct {
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	EstimatorURL  string  `yaml:"estimator_url"`
	Model         string  `yaml:"model"`
	CacheTTLHours int     `yaml:"cache_ttl_hours"`
}

// Default returns the production defaults; Load layers a file on top.
func Default() Config {
	symmetric := true
	return Config{
		Addr: ":8080",
		Depot: Depot{
			Name:      "Osaka Station",
			LocalName: "大阪駅",
			Lat:       34.702485,
			Lng:       135.495951,
		},
		Planner: Planner{
			TimeBudgetMs:         1500,
			ExploreSpot:          0.5,
			ExploreHotel:         0.4,
			SymmetricDepotReturn: &symmetric,
		},
		Ingest: Ingest{
			Concurrency:   8,
			RatePerSecond: 2,
			Model:         "gpt-4o-mini",
			CacheTTLHours: 24 * 30,
		},
	}
}

// Load reads the config file at path, if it exists, over the defaults.
// PORT overrides the listen address.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	return cfg, nil
}

// DepotDestination converts the configured depot into a catalog record.
func (c Config) DepotDestination() model.Destination {
	return model.Destination{
		Name:      c.Depot.Name,
		LocalName: c.Depot.LocalName,
		Location:  model.GeoPoint{Lat: c.Depot.Lat, Lng: c.Depot.Lng},
	}
}
