package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/geoplaylists/internal/http/spotify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
)

func (api *API) GetSpotifyToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	var token oauth2.Token
	stmt := `SELECT access_token, refresh_token, token_type, expiry FROM spotify_tokens WHERE user_id = $1`

	err := api.DB.QueryRow(ctx, stmt, userID).Scan(
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenType,
		&token.Expiry,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, spotify.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("getting spotify token: %w", err)
	}
	return &token, nil
}

func (api *API) SaveSpotifyToken(ctx context.Context, userID uuid.UUID, token *oauth2.Token) error {
	stmt := `
        INSERT INTO spotify_tokens (user_id, access_token, refresh_token, token_type, expiry)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE
        SET access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            token_type = EXCLUDED.token_type,
            expiry = EXCLUDED.expiry,
            updated_at = NOW()
    `
	_, err := api.DB.Exec(ctx, stmt, userID, token.AccessToken, token.RefreshToken, token.Type(), token.Expiry)
	if err != nil {
		return fmt.Errorf("saving spotify token: %w", err)
	}
	return nil
}

func (api *API) DeleteSpotifyToken(ctx context.Context, userID uuid.UUID) error {
	if _, err := api.DB.Exec(ctx, `DELETE FROM spotify_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting spotify token: %w", err)
	}
	return nil
}
