package dashboard

import "time"

// Observation is the raw upstream weather reading in metric units.
type Observation struct {
	TempC       float64
	HumidityPct int
	WindMS      float64
}

// Snapshot is the dashboard weather card, recomputed on each load.
type Snapshot struct {
	TemperatureC int `json:"temperatureC"`
	HumidityPct  int `json:"humidityPct"`
	WindKph      int `json:"windKph"`
	UVIndex      int `json:"uvIndex"`
}

// MarketEntry is one row of the mock market price board.
type MarketEntry struct {
	Crop   string  `json:"crop"`
	Price  float64 `json:"price"`
	Unit   string  `json:"unit"`
	Trend  string  `json:"trend"`
	Change string  `json:"change"`
}

// FieldStatus is one row of the mock field health board.
type FieldStatus struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Health    int    `json:"health"`
	Status    string `json:"status"`
	LastCheck string `json:"lastCheck"`
}

// Config wires runtime settings for the dashboard domain.
type Config struct {
	Latitude  float64
	Longitude float64
	UVIndex   int
	CacheTTL  time.Duration
}
