package model

import "github.com/pkg/errors"

// ErrNoActiveDevice is returned by a player when no device can take the
// playback command.
var ErrNoActiveDevice = errors.New("spotify: no active device")

type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type Playlist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url,omitempty"`
	Tracks   int     `json:"tracks"`
}
