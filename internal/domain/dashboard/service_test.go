package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(weather WeatherClient, store SnapshotStore) Service {
	return NewService(
		Config{Latitude: 27.7172, Longitude: 85.3240, UVIndex: 6},
		weather,
		store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestWeatherConvertsWindToKph(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(&stubWeather{obs: Observation{TempC: 22.4, HumidityPct: 61, WindMS: 10}}, store)

	snap := svc.Weather(context.Background())
	require.Equal(t, 22, snap.TemperatureC)
	require.Equal(t, 61, snap.HumidityPct)
	require.Equal(t, 36, snap.WindKph)
	require.Equal(t, 6, snap.UVIndex)
	require.Equal(t, snap, store.saved)
}

func TestWeatherFallbackOnFetchFailure(t *testing.T) {
	svc := newTestService(&stubWeather{err: errors.New("boom")}, &stubStore{})

	snap := svc.Weather(context.Background())
	require.Equal(t, fallbackSnapshot, snap)
}

func TestWeatherServedFromCache(t *testing.T) {
	cached := Snapshot{TemperatureC: 30, HumidityPct: 40, WindKph: 5, UVIndex: 9}
	weather := &stubWeather{obs: Observation{TempC: 1}}
	svc := newTestService(weather, &stubStore{cached: &cached})

	snap := svc.Weather(context.Background())
	require.Equal(t, cached, snap)
	require.Zero(t, weather.calls)
}

func TestMarketBoardShape(t *testing.T) {
	svc := newTestService(&stubWeather{}, &stubStore{})
	entries := svc.Market(context.Background())
	require.Len(t, entries, 4)
	require.Equal(t, "Tomato (Local)", entries[0].Crop)
}

type stubWeather struct {
	obs   Observation
	err   error
	calls int
}

func (s *stubWeather) Fetch(context.Context, float64, float64) (Observation, error) {
	s.calls++
	if s.err != nil {
		return Observation{}, s.err
	}
	return s.obs, nil
}

type stubStore struct {
	cached *Snapshot
	saved  Snapshot
}

func (s *stubStore) Get(context.Context) (Snapshot, bool, error) {
	if s.cached == nil {
		return Snapshot{}, false, nil
	}
	return *s.cached, true, nil
}

func (s *stubStore) Save(_ context.Context, snap Snapshot) error {
	s.saved = snap
	return nil
}
