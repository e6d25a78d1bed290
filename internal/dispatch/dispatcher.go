// Package dispatch turns zone entry edges into alerts, notifications and playback.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bwise1/geoplaylists/internal/metrics"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenProvider hands out a usable streaming credential, refreshing it if needed.
// A nil token with a nil error means the user has not connected an account.
type TokenProvider interface {
	ValidCredential(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
}

// Player is the streaming service's playback API. PlayContext returns
// model.ErrNoActiveDevice when no device accepts the command.
type Player interface {
	ListDevices(ctx context.Context, userID uuid.UUID) ([]model.Device, error)
	PlayContext(ctx context.Context, userID uuid.UUID, playlistID, deviceID string) error
}

// Notifier delivers a notification regardless of whether the app is open.
type Notifier interface {
	Schedule(ctx context.Context, userID uuid.UUID, n model.Notification) error
}

// Alerter shows an alert in the running app.
type Alerter interface {
	Alert(userID uuid.UUID, a model.Alert) error
}

type Dispatcher struct {
	tokens   TokenProvider
	player   Player
	notifier Notifier
	alerter  Alerter
	metrics  *metrics.Metrics
}

func NewDispatcher(tokens TokenProvider, player Player, notifier Notifier, alerter Alerter, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		tokens:   tokens,
		player:   player,
		notifier: notifier,
		alerter:  alerter,
		metrics:  m,
	}
}

// Foreground raises one alert per entered zone. With autoPlay set it also tries
// to start the zone's playlist and reports the outcome in the alert.
func (d *Dispatcher) Foreground(ctx context.Context, userID uuid.UUID, entered tracker.IDSet, zones map[uuid.UUID]model.Zone, distances map[uuid.UUID]float64, autoPlay bool) []model.Alert {
	alerts := make([]model.Alert, 0, len(entered))

	for _, id := range entered.Slice() {
		zone, ok := zones[id]
		if !ok {
			log.Printf("[Dispatch]: entered zone %s not found for user %s", id, userID)
			continue
		}

		alert := model.Alert{
			ZoneID:   zone.ID,
			ZoneName: zone.Name,
			Distance: distances[id],
			Message:  fmt.Sprintf("You are in %s (%.0f m from its center)", zone.Name, distances[id]),
		}

		if autoPlay {
			alert.Playback = d.attemptPlayback(ctx, userID, zone)
			alert.Message = alert.Message + ". " + playbackSummary(alert.Playback, zone)
		}

		if d.alerter != nil {
			if err := d.alerter.Alert(userID, alert); err != nil {
				log.Printf("[Dispatch]: alert for zone %s not delivered: %v", zone.ID, err)
			}
		}
		d.metrics.RecordAlert()
		alerts = append(alerts, alert)
	}

	return alerts
}

// Background handles entries detected while the app is not open: it tries
// playback and always schedules exactly one notification per entered zone.
// Nothing is retried and no error escapes.
func (d *Dispatcher) Background(ctx context.Context, userID uuid.UUID, entered tracker.IDSet, zones map[uuid.UUID]model.Zone) []model.Notification {
	sent := make([]model.Notification, 0, len(entered))

	for _, id := range entered.Slice() {
		zone, ok := zones[id]
		if !ok {
			log.Printf("[Dispatch]: entered zone %s not found for user %s", id, userID)
			continue
		}

		kind := d.attemptPlayback(ctx, userID, zone)
		n := NotificationFor(kind, zone)

		if err := d.notifier.Schedule(ctx, userID, n); err != nil {
			log.Printf("[Dispatch]: scheduling %s notification for zone %s: %v", kind, zone.ID, err)
		}
		d.metrics.RecordNotification(kind)
		sent = append(sent, n)
	}

	return sent
}

// Play starts zone's playlist on request and reports the outcome kind.
func (d *Dispatcher) Play(ctx context.Context, userID uuid.UUID, zone model.Zone) string {
	return d.attemptPlayback(ctx, userID, zone)
}

// attemptPlayback returns the notification kind describing what happened.
func (d *Dispatcher) attemptPlayback(ctx context.Context, userID uuid.UUID, zone model.Zone) string {
	token, err := d.tokens.ValidCredential(ctx, userID)
	if err != nil {
		log.Printf("[Dispatch]: credential for user %s: %v", userID, err)
		return model.KindError
	}
	if token == nil {
		return model.KindSpotifyNotConnected
	}

	devices, err := d.player.ListDevices(ctx, userID)
	if err != nil {
		log.Printf("[Dispatch]: listing devices for user %s: %v", userID, err)
		return model.KindError
	}
	if len(devices) == 0 {
		return model.KindNoDevice
	}

	if err := d.player.PlayContext(ctx, userID, zone.Playlist.ID, pickDevice(devices)); err != nil {
		log.Printf("[Dispatch]: playing %s for user %s: %v", zone.Playlist.ID, userID, err)
		if errors.Is(err, model.ErrNoActiveDevice) {
			return model.KindNoActiveDevice
		}
		return model.KindError
	}
	return model.KindPlaying
}

// pickDevice prefers the device that is already active.
func pickDevice(devices []model.Device) string {
	for _, dev := range devices {
		if dev.IsActive {
			return dev.ID
		}
	}
	return devices[0].ID
}
