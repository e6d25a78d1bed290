package rest

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/bwise1/geoplaylists/internal/http/spotify"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

func TestUpdateProfile(t *testing.T) {
	e := newTestEnv(t)
	name := "Robin"
	now := time.Now()

	e.expectLogin()
	e.mock.ExpectQuery(`UPDATE users\s+SET display_name = \$2`).
		WithArgs(e.userID, &name).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "created_at", "updated_at"}).
			AddRow(e.userID, "me@example.com", &name, now, now))

	w := e.request(t, http.MethodPut, "/users/profile", map[string]string{"display_name": name}, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"Robin"`)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestChangePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("old password"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("updates hash", func(t *testing.T) {
		e := newTestEnv(t)
		e.expectLogin()
		e.mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM users WHERE id = $1")).
			WithArgs(e.userID).
			WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
		e.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $2")).
			WithArgs(e.userID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		w := e.request(t, http.MethodPut, "/users/password", map[string]string{
			"old_password": "old password",
			"new_password": "new password",
		}, true)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})

	t.Run("wrong current password", func(t *testing.T) {
		e := newTestEnv(t)
		e.expectLogin()
		e.mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM users WHERE id = $1")).
			WithArgs(e.userID).
			WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))

		w := e.request(t, http.MethodPut, "/users/password", map[string]string{
			"old_password": "guess",
			"new_password": "new password",
		}, true)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, e.mock.ExpectationsWereMet())
	})
}

func TestDeleteAccountStopsTracking(t *testing.T) {
	e := newTestEnv(t)
	e.withTracker(t)

	e.expectLogin()
	w := e.request(t, http.MethodPost, "/location/tracking", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	e.expectLogin()
	e.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(e.userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	w = e.request(t, http.MethodDelete, "/users/account", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	e.expectLogin()
	w = e.request(t, http.MethodPost, "/location/background", map[string]float64{
		"latitude": insideOffice.Latitude, "longitude": insideOffice.Longitude,
	}, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestSpotifyTokenRepo(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	e.mock.ExpectQuery("FROM spotify_tokens WHERE user_id").
		WithArgs(e.userID).
		WillReturnError(pgx.ErrNoRows)
	_, err := e.api.GetSpotifyToken(ctx, e.userID)
	assert.ErrorIs(t, err, spotify.ErrNoToken)

	e.mock.ExpectExec(`INSERT INTO spotify_tokens[\s\S]+ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(e.userID, "access", "refresh", "Bearer", expiry).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, e.api.SaveSpotifyToken(ctx, e.userID, &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}))

	e.mock.ExpectQuery("FROM spotify_tokens WHERE user_id").
		WithArgs(e.userID).
		WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token", "token_type", "expiry"}).
			AddRow("access", "refresh", "Bearer", expiry))
	token, err := e.api.GetSpotifyToken(ctx, e.userID)
	require.NoError(t, err)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.Equal(t, expiry, token.Expiry)

	e.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM spotify_tokens WHERE user_id = $1")).
		WithArgs(e.userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, e.api.DeleteSpotifyToken(ctx, e.userID))

	assert.NoError(t, e.mock.ExpectationsWereMet())
}
