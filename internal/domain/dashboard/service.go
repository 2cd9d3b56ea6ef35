package dashboard

import (
	"context"
	"log/slog"
	"math"
)

// Service exposes the weather/market dashboard data.
type Service interface {
	Weather(ctx context.Context) Snapshot
	Market(ctx context.Context) []MarketEntry
	Fields(ctx context.Context) []FieldStatus
}

// WeatherClient fetches current conditions from the upstream provider.
type WeatherClient interface {
	Fetch(ctx context.Context, lat, lon float64) (Observation, error)
}

// SnapshotStore caches rendered snapshots between dashboard loads.
type SnapshotStore interface {
	Get(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

type service struct {
	cfg     Config
	weather WeatherClient
	store   SnapshotStore
	logger  *slog.Logger
}

// NewService wires up the dashboard domain.
func NewService(cfg Config, weather WeatherClient, store SnapshotStore, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		weather: weather,
		store:   store,
		logger:  logger.With("component", "dashboard.service"),
	}
}

// fallbackSnapshot is rendered when the upstream fetch fails so the
// dashboard always shows something.
var fallbackSnapshot = Snapshot{
	TemperatureC: 28,
	HumidityPct:  65,
	WindKph:      12,
	UVIndex:      7,
}

func (s *service) Weather(ctx context.Context) Snapshot {
	if cached, ok, err := s.store.Get(ctx); err == nil && ok {
		return cached
	} else if err != nil {
		s.logger.Warn("weather cache read failed", "error", err)
	}

	obs, err := s.weather.Fetch(ctx, s.cfg.Latitude, s.cfg.Longitude)
	if err != nil {
		s.logger.Error("weather fetch failed, serving fallback", "error", err)
		return fallbackSnapshot
	}

	snap := Snapshot{
		TemperatureC: int(math.Round(obs.TempC)),
		HumidityPct:  obs.HumidityPct,
		// upstream reports m/s
		WindKph: int(math.Round(obs.WindMS * 3.6)),
		UVIndex: s.cfg.UVIndex,
	}

	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Warn("weather cache write failed", "error", err)
	}
	return snap
}

func (s *service) Market(_ context.Context) []MarketEntry {
	return []MarketEntry{
		{Crop: "Tomato (Local)", Price: 65, Unit: "kg", Trend: "up", Change: "+5.2%"},
		{Crop: "Rice (Mansuli)", Price: 95, Unit: "kg", Trend: "stable", Change: "0.0%"},
		{Crop: "Potato (Red)", Price: 55, Unit: "kg", Trend: "down", Change: "-2.1%"},
		{Crop: "Onion (Dry)", Price: 85, Unit: "kg", Trend: "up", Change: "+8.5%"},
	}
}

func (s *service) Fields(_ context.Context) []FieldStatus {
	return []FieldStatus{
		{ID: 1, Name: "Tomato Field A", Health: 92, Status: "healthy", LastCheck: "2 hours ago"},
		{ID: 2, Name: "Wheat Field B", Health: 78, Status: "warning", LastCheck: "5 hours ago"},
		{ID: 3, Name: "Corn Field C", Health: 65, Status: "critical", LastCheck: "1 day ago"},
	}
}
