package stadiamaps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.405, 52.52]},
     "properties": {"gid": "openstreetmap:venue:1", "name": "Alexanderplatz", "label": "Alexanderplatz, Berlin, Germany", "layer": "venue"}},
    {"type": "Feature", "geometry": null,
     "properties": {"gid": "whosonfirst:region:2", "name": "Berlin", "layer": "region"}}
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "key")
	require.NoError(t, err)
	return c
}

func TestNewClientWithoutKey(t *testing.T) {
	c, err := NewClient("", "")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v1/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "alexanderplatz", q.Get("text"))
		assert.Equal(t, "5", q.Get("size"))
		assert.Equal(t, "52.5", q.Get("focus.point.lat"))
		_, _ = w.Write([]byte(searchBody))
	})

	places, err := c.Search(context.Background(), "alexanderplatz", &geo.Coordinate{Latitude: 52.5, Longitude: 13.4}, 0)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Alexanderplatz", places[0].Name)
	assert.Equal(t, geo.Coordinate{Latitude: 52.52, Longitude: 13.405}, places[0].Coordinate())
}

func TestSearchClampsSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		assert.Empty(t, r.URL.Query().Get("focus.point.lat"))
		_, _ = w.Write([]byte(`{"features": []}`))
	})

	places, err := c.Search(context.Background(), "cafe", nil, 500)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestReverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v1/reverse", r.URL.Path)
		assert.Equal(t, "13.405", r.URL.Query().Get("point.lon"))
		_, _ = w.Write([]byte(searchBody))
	})

	place, err := c.Reverse(context.Background(), geo.Coordinate{Latitude: 52.52, Longitude: 13.405})
	require.NoError(t, err)
	assert.Equal(t, "openstreetmap:venue:1", place.ID)
}

func TestReverseNoPlace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	})

	_, err := c.Reverse(context.Background(), geo.Coordinate{})
	assert.ErrorIs(t, err, ErrNoPlace)
}

func TestUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), "cafe", nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
