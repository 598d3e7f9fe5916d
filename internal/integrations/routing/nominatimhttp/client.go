package nominatimhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/pkg/errors"
)

// Client resolves free-text addresses through a Nominatim-compatible
// geocoding API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type respPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinate, bool, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "parse base url")
	}
	u.Path += "/search"
	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.Coordinate{}, false, errors.Errorf("geocoder http %d", resp.StatusCode)
	}

	var places []respPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "decode")
	}
	// Адрес не найден — это не ошибка, caller решает, что делать дальше.
	if len(places) == 0 {
		return models.Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "parse lat")
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, false, errors.Wrap(err, "parse lon")
	}

	return models.Coordinate{Lat: lat, Lng: lng}, true, nil
}
