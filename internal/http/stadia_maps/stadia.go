package stadiamaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

const (
	defaultStadiaBaseURL = "https://api.stadiamaps.com"
	defaultResultSize    = 5
	maxResultSize        = 20
)

var ErrNoPlace = errors.New("no place found")

// Client looks up addresses and points of interest that zones can be anchored to.
type Client struct {
	BaseURL    *url.URL
	APIKey     string
	HTTPClient *http.Client
}

// NewClient returns nil when no API key is configured; place lookup is then unavailable.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	if baseURL == "" {
		baseURL = defaultStadiaBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse stadia base url")
	}
	return &Client{
		BaseURL: u,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}, nil
}

type geocodeQuery struct {
	Text          string   `url:"text,omitempty"`
	PointLat      *float64 `url:"point.lat,omitempty"`
	PointLon      *float64 `url:"point.lon,omitempty"`
	Size          int      `url:"size,omitempty"`
	FocusPointLat *float64 `url:"focus.point.lat,omitempty"`
	FocusPointLon *float64 `url:"focus.point.lon,omitempty"`
}

type featureCollection struct {
	Features []struct {
		Geometry *struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Gid   string `json:"gid"`
			Name  string `json:"name"`
			Label string `json:"label"`
			Layer string `json:"layer"`
		} `json:"properties"`
	} `json:"features"`
}

// Place is a geocoding candidate for a zone's center.
type Place struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	Layer     string  `json:"layer"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Place) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

func clampSize(size int) int {
	if size <= 0 {
		return defaultResultSize
	}
	if size > maxResultSize {
		return maxResultSize
	}
	return size
}

// Search performs forward geocoding, biased towards focus when given.
func (c *Client) Search(ctx context.Context, text string, focus *geo.Coordinate, size int) ([]Place, error) {
	params := geocodeQuery{Text: text, Size: clampSize(size)}
	if focus != nil {
		params.FocusPointLat = &focus.Latitude
		params.FocusPointLon = &focus.Longitude
	}

	var result featureCollection
	if err := c.get(ctx, "/geocoding/v1/search", params, &result); err != nil {
		return nil, errors.Wrap(err, "search places")
	}
	return result.places(), nil
}

// Reverse returns the nearest named place to at.
func (c *Client) Reverse(ctx context.Context, at geo.Coordinate) (Place, error) {
	params := geocodeQuery{PointLat: &at.Latitude, PointLon: &at.Longitude, Size: 1}

	var result featureCollection
	if err := c.get(ctx, "/geocoding/v1/reverse", params, &result); err != nil {
		return Place{}, errors.Wrap(err, "reverse geocode")
	}
	places := result.places()
	if len(places) == 0 {
		return Place{}, ErrNoPlace
	}
	return places[0], nil
}

// places drops features without a point geometry.
func (fc featureCollection) places() []Place {
	out := make([]Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		out = append(out, Place{
			ID:        f.Properties.Gid,
			Name:      f.Properties.Name,
			Label:     f.Properties.Label,
			Layer:     f.Properties.Layer,
			Latitude:  f.Geometry.Coordinates[1],
			Longitude: f.Geometry.Coordinates[0],
		})
	}
	return out
}

func (c *Client) buildURL(endpoint string, queryParams interface{}) (string, error) {
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	u := c.BaseURL.ResolveReference(rel)

	q := u.Query()
	q.Set("api_key", c.APIKey)

	if queryParams != nil {
		v, err := query.Values(queryParams)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		for k, vals := range v {
			for _, val := range vals {
				q.Add(k, val)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params interface{}, v interface{}) error {
	reqURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
