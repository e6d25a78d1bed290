package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	deps "github.com/bwise1/geoplaylists/internal/debs"
	"github.com/bwise1/geoplaylists/internal/dispatch"
	"github.com/bwise1/geoplaylists/internal/http/spotify"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticCredential struct {
	token *oauth2.Token
}

func (s staticCredential) ValidCredential(context.Context, uuid.UUID) (*oauth2.Token, error) {
	return s.token, nil
}

var connectedCredential = staticCredential{token: &oauth2.Token{AccessToken: "access", TokenType: "Bearer"}}

// withSpotify points the API's Spotify client and zone tracker at h.
func (e *testEnv) withSpotify(t *testing.T, creds staticCredential, h http.HandlerFunc) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := spotify.NewClient(srv.URL, creds)
	require.NoError(t, err)
	e.api.Spotify = client
	e.api.Deps = &deps.Dependencies{}
	e.api.Tracker = dispatch.NewService(
		e.api,
		nil,
		tracker.NewMemoryBaseline(),
		tracker.NewMemoryBaseline(),
		dispatch.NewDispatcher(creds, client, nil, nil, nil),
		nil,
	)
}

func TestGetAllZones(t *testing.T) {
	e := newTestEnv(t)
	anchored := testZone(e.userID)
	unanchored := testZone(e.userID)
	unanchored.Location = nil

	e.expectLogin()
	e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE owner_id = \$1\s+ORDER BY created_at`).
		WithArgs(e.userID).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).
			AddRow(zoneRow(anchored)...).
			AddRow(zoneRow(unanchored)...))

	w := e.request(t, http.MethodGet, "/zones/", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var zones []model.Zone
	decodeResponse(t, w, &zones)
	require.Len(t, zones, 2)
	assert.Equal(t, anchored.Location, zones[0].Location)
	assert.Nil(t, zones[1].Location)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestCreateZone(t *testing.T) {
	t.Run("stores zone", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)

		e.expectLogin()
		e.mock.ExpectQuery("INSERT INTO geo_playlists").
			WithArgs(pgxmock.AnyArg(), e.userID, "Office", pgxmock.AnyArg(), pgxmock.AnyArg(), 100.0,
				z.Playlist.ID, "Focus", pgxmock.AnyArg(), true, false, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

		w := e.request(t, http.MethodPost, "/zones/", map[string]interface{}{
			"name":     "Office",
			"location": map[string]float64{"latitude": 52.52, "longitude": 13.405},
			"radius":   100,
			"playlist": map[string]string{"id": z.Playlist.ID, "name": "Focus"},
		}, true)

		require.Equal(t, http.StatusCreated, w.Code)
		var created model.Zone
		decodeResponse(t, w, &created)
		assert.Equal(t, z.ID, created.ID)
		assert.True(t, created.IsActive)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})

	t.Run("fills playlist name from spotify", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)
		e.withSpotify(t, connectedCredential, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/playlists/"+z.Playlist.ID, r.URL.Path)
			_, _ = w.Write([]byte(`{"id": "` + z.Playlist.ID + `", "name": "Focus", "images": [], "tracks": {"total": 12}}`))
		})

		e.expectLogin()
		e.mock.ExpectQuery("INSERT INTO geo_playlists").
			WithArgs(pgxmock.AnyArg(), e.userID, "Office", pgxmock.AnyArg(), pgxmock.AnyArg(), 100.0,
				z.Playlist.ID, "Focus", pgxmock.AnyArg(), false, false, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

		w := e.request(t, http.MethodPost, "/zones/", map[string]interface{}{
			"name":      "Office",
			"radius":    100,
			"playlist":  map[string]string{"id": z.Playlist.ID},
			"is_active": false,
		}, true)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive radius", func(t *testing.T) {
		e := newTestEnv(t)
		e.expectLogin()

		w := e.request(t, http.MethodPost, "/zones/", map[string]interface{}{
			"name":     "Office",
			"radius":   0,
			"playlist": map[string]string{"id": "p1"},
		}, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})
}

func TestGetZone(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		e := newTestEnv(t)
		id := uuid.New()

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(id, e.userID).
			WillReturnError(pgx.ErrNoRows)

		w := e.request(t, http.MethodGet, "/zones/"+id.String(), nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})

	t.Run("bad id", func(t *testing.T) {
		e := newTestEnv(t)
		e.expectLogin()

		w := e.request(t, http.MethodGet, "/zones/not-a-uuid", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateZone(t *testing.T) {
	e := newTestEnv(t)
	z := testZone(e.userID)
	updated := z
	updated.Radius = 250

	e.expectLogin()
	e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(z.ID, e.userID).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))
	e.mock.ExpectQuery(`UPDATE geo_playlists\s+SET name = \$3`).
		WithArgs(z.ID, e.userID, "Office", pgxmock.AnyArg(), pgxmock.AnyArg(), 250.0,
			z.Playlist.ID, "Focus", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(updated)...))

	w := e.request(t, http.MethodPut, "/zones/"+z.ID.String(), map[string]interface{}{"radius": 250}, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.Zone
	decodeResponse(t, w, &got)
	assert.Equal(t, 250.0, got.Radius)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestSetZoneActive(t *testing.T) {
	e := newTestEnv(t)
	z := testZone(e.userID)
	z.IsActive = false

	e.expectLogin()
	e.mock.ExpectQuery(`SET is_active = \$3`).
		WithArgs(z.ID, e.userID, false).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

	w := e.request(t, http.MethodPatch, "/zones/"+z.ID.String()+"/active", map[string]bool{"is_active": false}, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.Zone
	decodeResponse(t, w, &got)
	assert.False(t, got.IsActive)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestDeleteZone(t *testing.T) {
	for name, tc := range map[string]struct {
		affected int64
		want     int
	}{
		"deleted":   {affected: 1, want: http.StatusOK},
		"not found": {affected: 0, want: http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			e := newTestEnv(t)
			id := uuid.New()

			e.expectLogin()
			e.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM geo_playlists WHERE id = $1 AND owner_id = $2")).
				WithArgs(id, e.userID).
				WillReturnResult(pgxmock.NewResult("DELETE", tc.affected))

			w := e.request(t, http.MethodDelete, "/zones/"+id.String(), nil, true)
			assert.Equal(t, tc.want, w.Code)
			assert.NoError(t, e.mock.ExpectationsWereMet())
		})
	}
}

func TestRefreshZonePlaylist(t *testing.T) {
	e := newTestEnv(t)
	z := testZone(e.userID)
	cover := "https://i.scdn.co/image/cover"
	refreshed := z
	refreshed.Playlist.Name = "Deep Focus"
	refreshed.Playlist.ImageURL = &cover

	e.withSpotify(t, connectedCredential, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "` + z.Playlist.ID + `", "name": "Deep Focus", "images": [{"url": "` + cover + `"}], "tracks": {"total": 3}}`))
	})

	e.expectLogin()
	e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(z.ID, e.userID).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))
	e.mock.ExpectQuery(`SET playlist_name = \$3, playlist_image = \$4`).
		WithArgs(z.ID, e.userID, "Deep Focus", &cover).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(refreshed)...))

	w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/refresh", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.Zone
	decodeResponse(t, w, &got)
	assert.Equal(t, "Deep Focus", got.Playlist.Name)
	require.NotNil(t, got.Playlist.ImageURL)
	assert.Equal(t, cover, *got.Playlist.ImageURL)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestPlayZone(t *testing.T) {
	t.Run("playing", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)
		e.withSpotify(t, connectedCredential, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/me/player/devices":
				_, _ = w.Write([]byte(`{"devices": [{"id": "phone", "name": "Phone", "type": "Smartphone", "is_active": true}]}`))
			case "/me/player/play":
				assert.Equal(t, "phone", r.URL.Query().Get("device_id"))
				w.WriteHeader(http.StatusNoContent)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(z.ID, e.userID).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

		w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/play", nil, true)

		require.Equal(t, http.StatusOK, w.Code)
		var data map[string]string
		resp := decodeResponse(t, w, &data)
		assert.Equal(t, "Playing Office", resp.Message)
		assert.Equal(t, model.KindPlaying, data["result"])
	})

	t.Run("not connected", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)
		e.withSpotify(t, staticCredential{}, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected spotify call %s", r.URL.Path)
		})

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(z.ID, e.userID).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

		w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/play", nil, true)

		require.Equal(t, http.StatusForbidden, w.Code)
		var data map[string]string
		decodeResponse(t, w, &data)
		assert.Equal(t, model.KindSpotifyNotConnected, data["result"])
	})

	t.Run("no device", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)
		e.withSpotify(t, connectedCredential, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"devices": []}`))
		})

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(z.ID, e.userID).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

		w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/play", nil, true)

		require.Equal(t, http.StatusConflict, w.Code)
		var data map[string]string
		decodeResponse(t, w, &data)
		assert.Equal(t, model.KindNoDevice, data["result"])
		assert.Equal(t, model.SpotifyDeepLink, data["url"])
	})

	for _, tc := range []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantKind string
	}{
		{"no active device", http.StatusNotFound, `{"error":{"status":404,"reason":"NO_ACTIVE_DEVICE"}}`, http.StatusConflict, model.KindNoActiveDevice},
		{"token rejected", http.StatusUnauthorized, `{"error":{"status":401}}`, http.StatusBadGateway, model.KindError},
		{"upstream failure", http.StatusInternalServerError, `{"error":{"status":500}}`, http.StatusBadGateway, model.KindError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			z := testZone(e.userID)
			e.withSpotify(t, connectedCredential, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/me/player/devices" {
					_, _ = w.Write([]byte(`{"devices": [{"id": "phone", "name": "Phone", "type": "Smartphone"}]}`))
					return
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			e.expectLogin()
			e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
				WithArgs(z.ID, e.userID).
				WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

			w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/play", nil, true)

			require.Equal(t, tc.wantCode, w.Code)
			var data map[string]string
			decodeResponse(t, w, &data)
			assert.Equal(t, tc.wantKind, data["result"])
		})
	}
}

func TestAddTrackToSharedZone(t *testing.T) {
	e := newTestEnv(t)
	z := testZone(e.userID)
	z.IsShared = true
	original := uuid.New()
	z.OriginalOwnerID = &original

	e.expectLogin()
	e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(z.ID, e.userID).
		WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))

	w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/tracks",
		map[string]string{"track_uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC"}, true)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestShareZone(t *testing.T) {
	t.Run("creates invitation", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)
		recipient := uuid.New()
		inv := model.Invitation{
			ID:         uuid.New(),
			FromUserID: e.userID,
			ToUserID:   recipient,
			ZoneID:     z.ID,
			ZoneName:   z.Name,
			Location:   z.Location,
			Radius:     z.Radius,
			Playlist:   z.Playlist,
			Status:     model.InvitationPending,
			CreatedAt:  z.CreatedAt,
		}

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(z.ID, e.userID).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))
		e.mock.ExpectQuery("get-user-by-email").
			WithArgs("friend@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "password_hash", "created_at", "updated_at"}).
				AddRow(recipient, "friend@example.com", (*string)(nil), "hash", z.CreatedAt, z.CreatedAt))
		e.mock.ExpectQuery("INSERT INTO invitations").
			WithArgs(pgxmock.AnyArg(), e.userID, recipient, z.ID, "Office", pgxmock.AnyArg(), pgxmock.AnyArg(),
				100.0, z.Playlist.ID, "Focus", pgxmock.AnyArg(), model.InvitationPending).
			WillReturnRows(pgxmock.NewRows(invitationRowColumns).AddRow(invitationRow(inv)...))

		w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/share",
			map[string]string{"email": "Friend@Example.com"}, true)

		require.Equal(t, http.StatusCreated, w.Code)
		var got model.Invitation
		decodeResponse(t, w, &got)
		assert.Equal(t, recipient, got.ToUserID)
		assert.Equal(t, model.InvitationPending, got.Status)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})

	t.Run("rejects sharing with yourself", func(t *testing.T) {
		e := newTestEnv(t)
		z := testZone(e.userID)

		e.expectLogin()
		e.mock.ExpectQuery(`FROM geo_playlists\s+WHERE id = \$1 AND owner_id = \$2`).
			WithArgs(z.ID, e.userID).
			WillReturnRows(pgxmock.NewRows(zoneRowColumns).AddRow(zoneRow(z)...))
		e.mock.ExpectQuery("get-user-by-email").
			WithArgs("me@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "password_hash", "created_at", "updated_at"}).
				AddRow(e.userID, "me@example.com", (*string)(nil), "hash", z.CreatedAt, z.CreatedAt))

		w := e.request(t, http.MethodPost, "/zones/"+z.ID.String()+"/share",
			map[string]string{"email": "me@example.com"}, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})
}
