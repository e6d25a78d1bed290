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

var ErrZoneNotFound = errors.New("zone not found")

const zoneColumns = `id, owner_id, name,
               ST_Y(location) AS latitude, ST_X(location) AS longitude,
               radius, playlist_id, playlist_name, playlist_image,
               is_active, is_shared, original_owner_id, created_at, updated_at`

func scanZone(row pgx.Row) (model.Zone, error) {
	var (
		z        model.Zone
		lat, lon *float64
	)
	err := row.Scan(
		&z.ID,
		&z.OwnerID,
		&z.Name,
		&lat,
		&lon,
		&z.Radius,
		&z.Playlist.ID,
		&z.Playlist.Name,
		&z.Playlist.ImageURL,
		&z.IsActive,
		&z.IsShared,
		&z.OriginalOwnerID,
		&z.CreatedAt,
		&z.UpdatedAt,
	)
	if err != nil {
		return model.Zone{}, err
	}
	if lat != nil && lon != nil {
		z.Location = &geo.Coordinate{Latitude: *lat, Longitude: *lon}
	}
	return z, nil
}

// lonLat splits an optional coordinate into PostGIS argument order.
func lonLat(c *geo.Coordinate) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lon, lat := c.Longitude, c.Latitude
	return &lon, &lat
}

func zoneRowErr(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrZoneNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

// ListZones returns every zone owned by ownerID, oldest first.
func (api *API) ListZones(ctx context.Context, ownerID uuid.UUID) ([]model.Zone, error) {
	stmt := `SELECT ` + zoneColumns + `
        FROM geo_playlists
        WHERE owner_id = $1
        ORDER BY created_at`

	rows, err := api.DB.Query(ctx, stmt, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	defer rows.Close()

	zones := []model.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	return zones, nil
}

func insertZone(ctx context.Context, q db.Querier, z model.Zone) (model.Zone, error) {
	lon, lat := lonLat(z.Location)
	stmt := `
        INSERT INTO geo_playlists (
            id, owner_id, name, location, radius,
            playlist_id, playlist_name, playlist_image,
            is_active, is_shared, original_owner_id
        ) VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326), $6, $7, $8, $9, $10, $11, $12)
        RETURNING ` + zoneColumns

	created, err := scanZone(q.QueryRow(ctx, stmt,
		z.ID,
		z.OwnerID,
		z.Name,
		lon,
		lat,
		z.Radius,
		z.Playlist.ID,
		z.Playlist.Name,
		z.Playlist.ImageURL,
		z.IsActive,
		z.IsShared,
		z.OriginalOwnerID,
	))
	if err != nil {
		return model.Zone{}, fmt.Errorf("creating zone: %w", err)
	}
	return created, nil
}

func (api *API) CreateZoneRepo(ctx context.Context, z model.Zone) (model.Zone, error) {
	return insertZone(ctx, api.DB, z)
}

func getZone(ctx context.Context, q db.Querier, ownerID, id uuid.UUID) (model.Zone, error) {
	stmt := `SELECT ` + zoneColumns + `
        FROM geo_playlists
        WHERE id = $1 AND owner_id = $2`

	z, err := scanZone(q.QueryRow(ctx, stmt, id, ownerID))
	if err != nil {
		return model.Zone{}, zoneRowErr(err, "getting zone")
	}
	return z, nil
}

func (api *API) GetZoneRepo(ctx context.Context, ownerID, id uuid.UUID) (model.Zone, error) {
	return getZone(ctx, api.DB, ownerID, id)
}

// UpdateZoneRepo writes the editable fields of z.
func (api *API) UpdateZoneRepo(ctx context.Context, z model.Zone) (model.Zone, error) {
	lon, lat := lonLat(z.Location)
	stmt := `
        UPDATE geo_playlists
        SET name = $3,
            location = ST_SetSRID(ST_MakePoint($4, $5), 4326),
            radius = $6,
            playlist_id = $7,
            playlist_name = $8,
            playlist_image = $9,
            updated_at = NOW()
        WHERE id = $1 AND owner_id = $2
        RETURNING ` + zoneColumns

	updated, err := scanZone(api.DB.QueryRow(ctx, stmt,
		z.ID,
		z.OwnerID,
		z.Name,
		lon,
		lat,
		z.Radius,
		z.Playlist.ID,
		z.Playlist.Name,
		z.Playlist.ImageURL,
	))
	if err != nil {
		return model.Zone{}, zoneRowErr(err, "updating zone")
	}
	return updated, nil
}

func (api *API) SetZoneActiveRepo(ctx context.Context, ownerID, id uuid.UUID, active bool) (model.Zone, error) {
	stmt := `
        UPDATE geo_playlists
        SET is_active = $3, updated_at = NOW()
        WHERE id = $1 AND owner_id = $2
        RETURNING ` + zoneColumns

	z, err := scanZone(api.DB.QueryRow(ctx, stmt, id, ownerID, active))
	if err != nil {
		return model.Zone{}, zoneRowErr(err, "setting zone active")
	}
	return z, nil
}

// UpdateZonePlaylistMetaRepo refreshes the cached playlist name and cover.
func (api *API) UpdateZonePlaylistMetaRepo(ctx context.Context, ownerID, id uuid.UUID, name string, imageURL *string) (model.Zone, error) {
	stmt := `
        UPDATE geo_playlists
        SET playlist_name = $3, playlist_image = $4, updated_at = NOW()
        WHERE id = $1 AND owner_id = $2
        RETURNING ` + zoneColumns

	z, err := scanZone(api.DB.QueryRow(ctx, stmt, id, ownerID, name, imageURL))
	if err != nil {
		return model.Zone{}, zoneRowErr(err, "updating playlist metadata")
	}
	return z, nil
}

func (api *API) DeleteZoneRepo(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := api.DB.Exec(ctx, `DELETE FROM geo_playlists WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}
