package osrmhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/EcoChain/delivery-core/internal/integrations/routing"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/pkg/errors"
)

// Client queries an OSRM-compatible routing API. Each configured base URL is
// tried in order with its own bounded timeout; the first usable route wins.
type Client struct {
	baseURLs []string
	httpc    *http.Client
}

func New(baseURL, alternateBaseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	urls := []string{baseURL}
	if alternateBaseURL != "" {
		urls = append(urls, alternateBaseURL)
	}
	return &Client{
		baseURLs: urls,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type respRoute struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
}

type respBody struct {
	Code   string      `json:"code"`
	Routes []respRoute `json:"routes"`
}

func (c *Client) Route(ctx context.Context, origin, destination models.Coordinate) (routing.RouteResult, error) {
	var lastErr error
	for _, base := range c.baseURLs {
		res, err := c.routeOnce(ctx, base, origin, destination)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return routing.RouteResult{}, ctx.Err()
		}
	}
	return routing.RouteResult{}, lastErr
}

func (c *Client) routeOnce(ctx context.Context, base string, origin, destination models.Coordinate) (routing.RouteResult, error) {
	u, err := url.Parse(base)
	if err != nil {
		return routing.RouteResult{}, errors.Wrap(err, "parse base url")
	}
	// OSRM ожидает координаты в порядке lng,lat.
	u.Path += fmt.Sprintf("/route/v1/driving/%f,%f;%f,%f",
		origin.Lng, origin.Lat, destination.Lng, destination.Lat)
	q := u.Query()
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return routing.RouteResult{}, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return routing.RouteResult{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return routing.RouteResult{}, fmt.Errorf("routing service rate limit (429)")
	}
	if resp.StatusCode/100 != 2 {
		return routing.RouteResult{}, fmt.Errorf("routing service http %d", resp.StatusCode)
	}

	var rb respBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return routing.RouteResult{}, errors.Wrap(err, "decode")
	}
	if rb.Code != "Ok" || len(rb.Routes) == 0 {
		return routing.RouteResult{}, fmt.Errorf("no route found (code=%s)", rb.Code)
	}

	r := rb.Routes[0]
	path := make([]models.Coordinate, 0, len(r.Geometry.Coordinates))
	for _, c := range r.Geometry.Coordinates {
		if len(c) != 2 {
			continue
		}
		path = append(path, models.Coordinate{Lat: c[1], Lng: c[0]})
	}

	return routing.RouteResult{
		DistanceKm: r.Distance / 1000,
		Duration:   time.Duration(r.Duration * float64(time.Second)),
		Path:       path,
	}, nil
}
