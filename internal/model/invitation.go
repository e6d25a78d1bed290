package model

import (
	"time"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/google/uuid"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation offers a copy of FromUserID's zone to ToUserID.
// The zone fields are a snapshot taken when the invitation was sent.
type Invitation struct {
	ID         uuid.UUID       `json:"id"`
	FromUserID uuid.UUID       `json:"from_user_id"`
	ToUserID   uuid.UUID       `json:"to_user_id"`
	ZoneID     uuid.UUID       `json:"zone_id"`
	ZoneName   string          `json:"zone_name"`
	Location   *geo.Coordinate `json:"location"`
	Radius     float64         `json:"radius"`
	Playlist   PlaylistRef     `json:"playlist"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ShareZoneRequest struct {
	Email string `json:"email" validate:"required,email"`
}
