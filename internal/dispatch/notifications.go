package dispatch

import (
	"fmt"

	"github.com/bwise1/geoplaylists/internal/model"
)

// NotificationFor builds the user-facing notification for a playback outcome.
func NotificationFor(kind string, zone model.Zone) model.Notification {
	n := model.Notification{
		Kind: kind,
		Data: map[string]string{
			"type":        kind,
			"zone_id":     zone.ID.String(),
			"zone_name":   zone.Name,
			"playlist_id": zone.Playlist.ID,
		},
	}

	switch kind {
	case model.KindPlaying:
		n.Title = fmt.Sprintf("Now playing in %s", zone.Name)
		n.Body = fmt.Sprintf("Started %s.", playlistLabel(zone))
	case model.KindNoActiveDevice:
		n.Title = fmt.Sprintf("You entered %s", zone.Name)
		n.Body = fmt.Sprintf("Open Spotify on one of your devices to play %s.", playlistLabel(zone))
	case model.KindNoDevice:
		n.Title = fmt.Sprintf("You entered %s", zone.Name)
		n.Body = "No Spotify device is available. Tap to open Spotify."
		n.Data["url"] = model.SpotifyDeepLink
	case model.KindSpotifyNotConnected:
		n.Title = fmt.Sprintf("You entered %s", zone.Name)
		n.Body = "Connect your Spotify account to start playlists automatically."
	default:
		n.Kind = model.KindError
		n.Data["type"] = model.KindError
		n.Title = fmt.Sprintf("You entered %s", zone.Name)
		n.Body = fmt.Sprintf("Could not start %s. Open the app to play it manually.", playlistLabel(zone))
	}

	return n
}

func playbackSummary(kind string, zone model.Zone) string {
	switch kind {
	case model.KindPlaying:
		return fmt.Sprintf("Playing %s", playlistLabel(zone))
	case model.KindNoActiveDevice:
		return "No active Spotify device, open Spotify and try again"
	case model.KindNoDevice:
		return "No Spotify device available"
	case model.KindSpotifyNotConnected:
		return "Spotify is not connected"
	default:
		return "Playback failed"
	}
}

func playlistLabel(zone model.Zone) string {
	if zone.Playlist.Name != "" {
		return zone.Playlist.Name
	}
	return "the zone playlist"
}
