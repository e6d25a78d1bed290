package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/geoplaylists/internal/db"
	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInvitationNotFound means there is no pending invitation with that id for the user.
var ErrInvitationNotFound = errors.New("invitation not found")

const invitationColumns = `id, from_user_id, to_user_id, zone_id, zone_name,
               ST_Y(location) AS latitude, ST_X(location) AS longitude,
               radius, playlist_id, playlist_name, playlist_image, status, created_at`

func scanInvitation(row pgx.Row) (model.Invitation, error) {
	var (
		inv      model.Invitation
		lat, lon *float64
	)
	err := row.Scan(
		&inv.ID,
		&inv.FromUserID,
		&inv.ToUserID,
		&inv.ZoneID,
		&inv.ZoneName,
		&lat,
		&lon,
		&inv.Radius,
		&inv.Playlist.ID,
		&inv.Playlist.Name,
		&inv.Playlist.ImageURL,
		&inv.Status,
		&inv.CreatedAt,
	)
	if err != nil {
		return model.Invitation{}, err
	}
	if lat != nil && lon != nil {
		inv.Location = &geo.Coordinate{Latitude: *lat, Longitude: *lon}
	}
	return inv, nil
}

func (api *API) CreateInvitationRepo(ctx context.Context, inv model.Invitation) (model.Invitation, error) {
	lon, lat := lonLat(inv.Location)
	stmt := `
        INSERT INTO invitations (
            id, from_user_id, to_user_id, zone_id, zone_name, location, radius,
            playlist_id, playlist_name, playlist_image, status
        ) VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326), $8, $9, $10, $11, $12)
        RETURNING ` + invitationColumns

	created, err := scanInvitation(api.DB.QueryRow(ctx, stmt,
		inv.ID,
		inv.FromUserID,
		inv.ToUserID,
		inv.ZoneID,
		inv.ZoneName,
		lon,
		lat,
		inv.Radius,
		inv.Playlist.ID,
		inv.Playlist.Name,
		inv.Playlist.ImageURL,
		inv.Status,
	))
	if err != nil {
		return model.Invitation{}, fmt.Errorf("creating invitation: %w", err)
	}
	return created, nil
}

// ListIncomingInvitationsRepo returns the user's pending invitations, newest first.
func (api *API) ListIncomingInvitationsRepo(ctx context.Context, toUserID uuid.UUID) ([]model.Invitation, error) {
	stmt := `SELECT ` + invitationColumns + `
        FROM invitations
        WHERE to_user_id = $1 AND status = $2
        ORDER BY created_at DESC`

	rows, err := api.DB.Query(ctx, stmt, toUserID, model.InvitationPending)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	invitations := []model.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	return invitations, nil
}

// answerInvitation moves a pending invitation to status and returns it. Only one
// caller can win the pending -> answered transition.
func answerInvitation(ctx context.Context, q db.Querier, toUserID, id uuid.UUID, status string) (model.Invitation, error) {
	stmt := `
        UPDATE invitations
        SET status = $3
        WHERE id = $1 AND to_user_id = $2 AND status = 'pending'
        RETURNING ` + invitationColumns

	inv, err := scanInvitation(q.QueryRow(ctx, stmt, id, toUserID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return model.Invitation{}, fmt.Errorf("answering invitation: %w", err)
	}
	return inv, nil
}

// AcceptInvitationRepo marks the invitation accepted and gives the recipient an
// independent copy of the sender's zone as it is now. If the sender deleted the
// zone in the meantime the snapshot taken at share time is used.
func (api *API) AcceptInvitationRepo(ctx context.Context, toUserID, id uuid.UUID) (model.Zone, error) {
	var zone model.Zone

	err := db.RunInTx(ctx, api.DB, func(tx pgx.Tx) error {
		inv, err := answerInvitation(ctx, tx, toUserID, id, model.InvitationAccepted)
		if err != nil {
			return err
		}

		source, err := getZone(ctx, tx, inv.FromUserID, inv.ZoneID)
		switch {
		case errors.Is(err, ErrZoneNotFound):
			source = model.Zone{
				Name:     inv.ZoneName,
				Location: inv.Location,
				Radius:   inv.Radius,
				Playlist: inv.Playlist,
			}
		case err != nil:
			return err
		}

		original := inv.FromUserID
		zone, err = insertZone(ctx, tx, model.Zone{
			ID:              uuid.New(),
			OwnerID:         toUserID,
			Name:            source.Name,
			Location:        source.Location,
			Radius:          source.Radius,
			Playlist:        source.Playlist,
			IsActive:        true,
			IsShared:        true,
			OriginalOwnerID: &original,
		})
		return err
	})
	if err != nil {
		return model.Zone{}, err
	}
	return zone, nil
}

func (api *API) DeclineInvitationRepo(ctx context.Context, toUserID, id uuid.UUID) error {
	_, err := answerInvitation(ctx, api.DB, toUserID, id, model.InvitationDeclined)
	return err
}
