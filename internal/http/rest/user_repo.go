package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (api *API) UpdateUserRepo(ctx context.Context, userID uuid.UUID, displayName *string) (model.User, error) {
	var user model.User
	stmt := `
        UPDATE users
        SET display_name = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, email, display_name, created_at, updated_at
    `
	err := api.DB.QueryRow(ctx, stmt, userID, displayName).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

func (api *API) GetPasswordHashRepo(ctx context.Context, userID uuid.UUID) (string, error) {
	var hash string
	err := api.DB.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting password hash: %w", err)
	}
	return hash, nil
}

func (api *API) UpdatePasswordRepo(ctx context.Context, userID uuid.UUID, hash string) error {
	stmt := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := api.DB.Exec(ctx, stmt, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (api *API) DeleteUserRepo(ctx context.Context, userID uuid.UUID) error {
	stmt := `DELETE FROM users WHERE id = $1`

	_, err := api.DB.Exec(ctx, stmt, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
