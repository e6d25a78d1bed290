package model

import (
	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/google/uuid"
)

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	// AutoPlay asks the foreground path to start playback as well as alert.
	AutoPlay bool `json:"auto_play"`
}

func (r LocationRequest) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// BatchLocationRequest carries background samples as an encoded polyline (precision 1e5), oldest first.
type BatchLocationRequest struct {
	Polyline string `json:"polyline" validate:"required"`
}

// EvaluationResponse reports the zone edges produced by one or more samples.
type EvaluationResponse struct {
	Active  []uuid.UUID `json:"active"`
	Entered []uuid.UUID `json:"entered"`
	Exited  []uuid.UUID `json:"exited"`
	Alerts  []Alert     `json:"alerts,omitempty"`
}
