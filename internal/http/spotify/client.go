package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	defaultSpotifyBaseURL = "https://api.spotify.com/v1/"

	reasonNoActiveDevice = "NO_ACTIVE_DEVICE"
)

var (
	ErrNoActiveDevice = model.ErrNoActiveDevice
	ErrUnauthorized   = errors.New("spotify: access token rejected")
	ErrNotConnected   = errors.New("spotify: account not connected")
	ErrNotFound       = errors.New("spotify: resource not found")
)

// CredentialSource returns a usable access token for a user, or nil when the
// user never connected an account.
type CredentialSource interface {
	ValidCredential(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
}

// Client handles communication with the Spotify Web API on behalf of a user.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	tokens     CredentialSource
}

// NewClient creates a Web API client. An empty baseURL uses the public API.
func NewClient(baseURL string, tokens CredentialSource) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultSpotifyBaseURL
	}
	if baseURL[len(baseURL)-1] != '/' {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse spotify base url")
	}

	return &Client{
		BaseURL: u,
		tokens:  tokens,
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

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

type imageObject struct {
	URL string `json:"url"`
}

type playlistObject struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Images []imageObject `json:"images"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

func (p playlistObject) toModel() model.Playlist {
	out := model.Playlist{ID: p.ID, Name: p.Name, Tracks: p.Tracks.Total}
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		img := p.Images[0].URL
		out.ImageURL = &img
	}
	return out
}

type deviceQuery struct {
	DeviceID string `url:"device_id,omitempty"`
}

type pageQuery struct {
	Limit  int `url:"limit,omitempty"`
	Offset int `url:"offset,omitempty"`
}

type playlistFieldsQuery struct {
	Fields string `url:"fields"`
}

// ListDevices returns the user's available playback devices.
// Endpoint: GET /me/player/devices
func (c *Client) ListDevices(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	var result struct {
		Devices []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Type     string `json:"type"`
			IsActive bool   `json:"is_active"`
		} `json:"devices"`
	}
	if err := c.call(ctx, userID, http.MethodGet, "me/player/devices", nil, nil, &result); err != nil {
		return nil, errors.Wrap(err, "list devices")
	}

	devices := make([]model.Device, 0, len(result.Devices))
	for _, d := range result.Devices {
		if d.ID == "" {
			continue
		}
		devices = append(devices, model.Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive})
	}
	return devices, nil
}

// PlayContext starts a playlist on deviceID, or on the active device when deviceID is empty.
// Endpoint: PUT /me/player/play
func (c *Client) PlayContext(ctx context.Context, userID uuid.UUID, playlistID, deviceID string) error {
	body := map[string]string{"context_uri": "spotify:playlist:" + playlistID}
	if err := c.call(ctx, userID, http.MethodPut, "me/player/play", deviceQuery{DeviceID: deviceID}, body, nil); err != nil {
		return errors.Wrapf(err, "play playlist %s", playlistID)
	}
	return nil
}

// AddTrack appends a track to a playlist.
// Endpoint: POST /playlists/{id}/tracks
func (c *Client) AddTrack(ctx context.Context, userID uuid.UUID, playlistID, trackURI string) error {
	body := map[string][]string{"uris": {trackURI}}
	endpoint := fmt.Sprintf("playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.call(ctx, userID, http.MethodPost, endpoint, nil, body, nil); err != nil {
		return errors.Wrapf(err, "add track to playlist %s", playlistID)
	}
	return nil
}

// GetPlaylist fetches playlist name, cover and track count.
// Endpoint: GET /playlists/{id}
func (c *Client) GetPlaylist(ctx context.Context, userID uuid.UUID, playlistID string) (*model.Playlist, error) {
	var result playlistObject
	endpoint := "playlists/" + url.PathEscape(playlistID)
	params := playlistFieldsQuery{Fields: "id,name,images,tracks.total"}
	if err := c.call(ctx, userID, http.MethodGet, endpoint, params, nil, &result); err != nil {
		return nil, errors.Wrapf(err, "get playlist %s", playlistID)
	}
	p := result.toModel()
	return &p, nil
}

// ListPlaylists returns one page of the user's playlists.
// Endpoint: GET /me/playlists
func (c *Client) ListPlaylists(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Playlist, error) {
	var result struct {
		Items []playlistObject `json:"items"`
	}
	if err := c.call(ctx, userID, http.MethodGet, "me/playlists", pageQuery{Limit: limit, Offset: offset}, nil, &result); err != nil {
		return nil, errors.Wrap(err, "list playlists")
	}

	playlists := make([]model.Playlist, 0, len(result.Items))
	for _, p := range result.Items {
		playlists = append(playlists, p.toModel())
	}
	return playlists, nil
}

// buildURL constructs the API URL with query parameters.
func (c *Client) buildURL(endpoint string, queryParams interface{}) (string, error) {
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	u := c.BaseURL.ResolveReference(rel)

	if queryParams != nil {
		v, err := query.Values(queryParams)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

func (c *Client) call(ctx context.Context, userID uuid.UUID, method, endpoint string, params, body, v interface{}) error {
	token, err := c.tokens.ValidCredential(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load credential")
	}
	if token == nil {
		return ErrNotConnected
	}

	reqURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if v != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var apiErr apiError
	_ = json.Unmarshal(bodyBytes, &apiErr)

	switch {
	case resp.StatusCode == http.StatusNotFound && apiErr.Error.Reason == reasonNoActiveDevice:
		return ErrNoActiveDevice
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	}
	return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
}
