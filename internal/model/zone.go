package model

import (
	"time"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/google/uuid"
)

// PlaylistRef points at a playlist owned by the streaming service.
// Name and ImageURL are cached copies refreshed on demand.
type PlaylistRef struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Zone is a geo-playlist: a circle on the map bound to a streaming playlist.
// A nil Location means the zone is not anchored yet.
type Zone struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Name            string          `json:"name"`
	Location        *geo.Coordinate `json:"location"`
	Radius          float64         `json:"radius"`
	Playlist        PlaylistRef     `json:"playlist"`
	IsActive        bool            `json:"is_active"`
	IsShared        bool            `json:"is_shared"`
	OriginalOwnerID *uuid.UUID      `json:"original_owner_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateZoneRequest struct {
	Name     string          `json:"name" validate:"required,min=1,max=80"`
	Location *geo.Coordinate `json:"location"`
	Radius   float64         `json:"radius" validate:"required,gt=0,max=1000"`
	Playlist PlaylistRef     `json:"playlist" validate:"required"`
	IsActive *bool           `json:"is_active"`
}

type UpdateZoneRequest struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=80"`
	Location *geo.Coordinate `json:"location"`
	Radius   *float64        `json:"radius" validate:"omitempty,gt=0,max=1000"`
	Playlist *PlaylistRef    `json:"playlist"`
}

type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type AddTrackRequest struct {
	TrackURI string `json:"track_uri" validate:"required,startswith=spotify:track:"`
}
