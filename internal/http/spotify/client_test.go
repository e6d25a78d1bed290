package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticTokens struct {
	token *oauth2.Token
	err   error
}

func (s staticTokens) ValidCredential(context.Context, uuid.UUID) (*oauth2.Token, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/v1", staticTokens{token: &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}})
	require.NoError(t, err)
	return c
}

func TestListDevices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me/player/devices", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"devices":[{"id":"d1","name":"Phone","type":"Smartphone","is_active":true},{"id":"","name":"Restricted"}]}`)
	})

	devices, err := c.ListDevices(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "d1", devices[0].ID)
	assert.True(t, devices[0].IsActive)
}

func TestPlayContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/me/player/play", r.URL.Path)
		assert.Equal(t, "d1", r.URL.Query().Get("device_id"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "spotify:playlist:pl1", body["context_uri"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.PlayContext(context.Background(), uuid.New(), "pl1", "d1"))
}

func TestPlayContextErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no active device", http.StatusNotFound, `{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`, ErrNoActiveDevice},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"status":401,"message":"The access token expired"}}`, ErrUnauthorized},
		{"missing playlist", http.StatusNotFound, `{"error":{"status":404,"message":"Not found."}}`, ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			err := c.PlayContext(context.Background(), uuid.New(), "pl1", "")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPlayContextServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.PlayContext(context.Background(), uuid.New(), "pl1", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveDevice)
	assert.Contains(t, err.Error(), "502")
}

func TestCallWithoutCredential(t *testing.T) {
	c, err := NewClient("", staticTokens{})
	require.NoError(t, err)

	_, err = c.ListDevices(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotConnected)

	c, err = NewClient("", staticTokens{err: errors.New("db down")})
	require.NoError(t, err)
	_, err = c.ListDevices(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestGetPlaylist(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/playlists/pl1", r.URL.Path)
		assert.Equal(t, "id,name,images,tracks.total", r.URL.Query().Get("fields"))
		_, _ = io.WriteString(w, `{"id":"pl1","name":"Focus","images":[{"url":"https://i.scdn.co/image/cover"}],"tracks":{"total":42}}`)
	})

	p, err := c.GetPlaylist(context.Background(), uuid.New(), "pl1")
	require.NoError(t, err)
	assert.Equal(t, "Focus", p.Name)
	assert.Equal(t, 42, p.Tracks)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, "https://i.scdn.co/image/cover", *p.ImageURL)
}

func TestListPlaylists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me/playlists", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		_, _ = io.WriteString(w, `{"items":[{"id":"a","name":"A","images":[]},{"id":"b","name":"B","tracks":{"total":3}}]}`)
	})

	playlists, err := c.ListPlaylists(context.Background(), uuid.New(), 20, 40)
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Nil(t, playlists[0].ImageURL)
	assert.Equal(t, 3, playlists[1].Tracks)
}

func TestAddTrack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/playlists/pl1/tracks", r.URL.Path)

		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"spotify:track:4uLU6hMCjMI75M1A2tKUQC"}, body["uris"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"snapshot_id":"x"}`)
	})

	require.NoError(t, c.AddTrack(context.Background(), uuid.New(), "pl1", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"))
}
