package osrmhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/stretchr/testify/require"
)

var (
	saoPaulo = models.Coordinate{Lat: -23.5505, Lng: -46.6333}
	rio      = models.Coordinate{Lat: -22.9068, Lng: -43.1729}
)

func TestClient_Route_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/route/v1/driving/")
		require.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"distance": 429500.0,
				"duration": 18600.0,
				"geometry": {"coordinates": [[-46.6333,-23.5505],[-44.9,-23.2],[-43.1729,-22.9068]]}
			}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	res, err := c.Route(context.Background(), saoPaulo, rio)
	require.NoError(t, err)
	require.InDelta(t, 429.5, res.DistanceKm, 0.001)
	require.Equal(t, time.Duration(18600)*time.Second, res.Duration)
	require.Len(t, res.Path, 3)
	require.InDelta(t, -23.5505, res.Path[0].Lat, 0.0001)
	require.InDelta(t, -46.6333, res.Path[0].Lng, 0.0001)
}

func TestClient_Route_FallsBackToAlternateEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1000,"duration":60,"geometry":{"coordinates":[[0,0],[1,1]]}}]}`))
	}))
	defer ok.Close()

	c := New(broken.URL, ok.URL, time.Second)
	res, err := c.Route(context.Background(), saoPaulo, rio)
	require.NoError(t, err)
	require.InDelta(t, 1.0, res.DistanceKm, 0.001)
}

func TestClient_Route_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.Route(context.Background(), saoPaulo, rio)
	require.Error(t, err)
}

func TestClient_Route_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.Route(context.Background(), saoPaulo, rio)
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestClient_Route_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := New(srv.URL, srv.URL, time.Second)
	_, err := c.Route(ctx, saoPaulo, rio)
	require.Error(t, err)
}
