package model

import (
	"time"

	"github.com/google/uuid"
)

// notification kinds produced by background dispatch
const (
	KindPlaying             = "playing"
	KindNoActiveDevice      = "no_active_device"
	KindNoDevice            = "no_device"
	KindSpotifyNotConnected = "spotify_not_connected"
	KindError               = "error"
)

// SpotifyDeepLink opens the Spotify app on the device.
const SpotifyDeepLink = "spotify://"

type Notification struct {
	Kind  string            `json:"kind"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	// SentAt is set by the notifier.
	SentAt time.Time `json:"sent_at"`
}

// Alert is shown immediately while the app is in the foreground.
type Alert struct {
	ZoneID   uuid.UUID `json:"zone_id"`
	ZoneName string    `json:"zone_name"`
	Distance float64   `json:"distance"`
	Message  string    `json:"message"`
	// Playback is the playback outcome kind when auto play was requested.
	Playback string `json:"playback,omitempty"`
}
