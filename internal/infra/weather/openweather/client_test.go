package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchDecodesObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "27.7172", r.URL.Query().Get("lat"))
		require.Equal(t, "85.3240", r.URL.Query().Get("lon"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		require.Equal(t, "demo", r.URL.Query().Get("appid"))
		w.Write([]byte(`{"main":{"temp":22.4,"humidity":61},"wind":{"speed":10}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "demo")
	obs, err := client.Fetch(context.Background(), 27.7172, 85.3240)
	require.NoError(t, err)
	require.Equal(t, 22.4, obs.TempC)
	require.Equal(t, 61, obs.HumidityPct)
	require.Equal(t, 10.0, obs.WindMS)
}

func TestFetchUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "demo")
	_, err := client.Fetch(context.Background(), 0, 0)
	require.Error(t, err)
}
