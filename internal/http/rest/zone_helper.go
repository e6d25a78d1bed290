package rest

import (
	"context"
	"errors"
	"log"

	"github.com/bwise1/geoplaylists/internal/http/spotify"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/google/uuid"
)

func zoneLookupStatus(err error) (string, string) {
	if errors.Is(err, ErrZoneNotFound) {
		return values.NotFound, "Zone not found"
	}
	return values.Error, "Failed to get zone"
}

func spotifyStatus(err error) (string, string) {
	switch {
	case errors.Is(err, spotify.ErrNotConnected), errors.Is(err, spotify.ErrUnauthorized):
		return values.NotAllowed, "Spotify is not connected"
	case errors.Is(err, spotify.ErrNotFound):
		return values.NotFound, "Playlist not found on Spotify"
	}
	return values.Failed, "Spotify request failed"
}

func (api *API) CreateZoneHelper(ctx context.Context, ownerID uuid.UUID, req model.CreateZoneRequest) (model.Zone, string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return model.Zone{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	zone := model.Zone{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     req.Name,
		Location: req.Location,
		Radius:   req.Radius,
		Playlist: req.Playlist,
		IsActive: true,
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}

	// Cached name and cover are best effort; the playlist id is what matters.
	if zone.Playlist.Name == "" {
		if p, err := api.Spotify.GetPlaylist(ctx, ownerID, zone.Playlist.ID); err == nil {
			zone.Playlist.Name = p.Name
			zone.Playlist.ImageURL = p.ImageURL
		} else {
			log.Printf("[Zones]: playlist metadata for %s: %v", zone.Playlist.ID, err)
		}
	}

	created, err := api.CreateZoneRepo(ctx, zone)
	if err != nil {
		return model.Zone{}, values.Error, "Failed to create zone", err
	}
	return created, values.Created, "Zone created successfully", nil
}

func (api *API) UpdateZoneHelper(ctx context.Context, ownerID, id uuid.UUID, req model.UpdateZoneRequest) (model.Zone, string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return model.Zone{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	zone, err := api.GetZoneRepo(ctx, ownerID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return model.Zone{}, status, message, err
	}

	if req.Name != nil {
		zone.Name = *req.Name
	}
	if req.Location != nil {
		zone.Location = req.Location
	}
	if req.Radius != nil {
		zone.Radius = *req.Radius
	}
	if req.Playlist != nil {
		if req.Playlist.ID == "" {
			return model.Zone{}, values.BadRequestBody, "playlist id is required", errors.New("empty playlist id")
		}
		zone.Playlist = *req.Playlist
	}

	updated, err := api.UpdateZoneRepo(ctx, zone)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return model.Zone{}, status, message, err
	}
	return updated, values.Success, "Zone updated successfully", nil
}

// RefreshZonePlaylistHelper re-reads the playlist's name and cover from Spotify
// and mirrors the cover image when storage is configured.
func (api *API) RefreshZonePlaylistHelper(ctx context.Context, ownerID, id uuid.UUID) (model.Zone, string, string, error) {
	zone, err := api.GetZoneRepo(ctx, ownerID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return model.Zone{}, status, message, err
	}

	playlist, err := api.Spotify.GetPlaylist(ctx, ownerID, zone.Playlist.ID)
	if err != nil {
		status, message := spotifyStatus(err)
		return model.Zone{}, status, message, err
	}

	image := playlist.ImageURL
	if image != nil {
		mirrored, err := api.Deps.Cloudinary.MirrorCover(ctx, zone.ID, *image)
		if err != nil {
			log.Printf("[Zones]: mirroring cover for zone %s: %v", zone.ID, err)
		} else {
			image = &mirrored
		}
	}

	updated, err := api.UpdateZonePlaylistMetaRepo(ctx, ownerID, id, playlist.Name, image)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return model.Zone{}, status, message, err
	}
	return updated, values.Success, "Playlist details refreshed", nil
}

func (api *API) PlayZoneHelper(ctx context.Context, ownerID, id uuid.UUID) (map[string]string, string, string, error) {
	zone, err := api.GetZoneRepo(ctx, ownerID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return nil, status, message, err
	}

	kind := api.Tracker.PlayZone(ctx, ownerID, zone)
	data := map[string]string{"result": kind, "zone_id": zone.ID.String()}

	switch kind {
	case model.KindPlaying:
		return data, values.Success, "Playing " + zone.Name, nil
	case model.KindSpotifyNotConnected:
		return data, values.NotAllowed, "Spotify is not connected", errors.New(kind)
	case model.KindNoDevice:
		data["url"] = model.SpotifyDeepLink
		return data, values.Conflict, "No Spotify device available", errors.New(kind)
	case model.KindNoActiveDevice:
		return data, values.Conflict, "No active Spotify device, open Spotify and try again", errors.New(kind)
	}
	return data, values.Failed, "Playback failed", errors.New(kind)
}

func (api *API) AddTrackHelper(ctx context.Context, ownerID, id uuid.UUID, req model.AddTrackRequest) (string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return values.BadRequestBody, util.ValidationMessage(err), err
	}

	zone, err := api.GetZoneRepo(ctx, ownerID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return status, message, err
	}
	if zone.IsShared {
		return values.NotAllowed, "Tracks cannot be added to a shared zone's playlist", errors.New("zone is shared")
	}

	if err := api.Spotify.AddTrack(ctx, ownerID, zone.Playlist.ID, req.TrackURI); err != nil {
		status, message := spotifyStatus(err)
		return status, message, err
	}
	return values.Success, "Track added", nil
}

func (api *API) ShareZoneHelper(ctx context.Context, ownerID, id uuid.UUID, req model.ShareZoneRequest) (model.Invitation, string, string, error) {
	req.Email = util.NormalizeEmail(req.Email)
	if err := util.ValidateStruct(req); err != nil {
		return model.Invitation{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	zone, err := api.GetZoneRepo(ctx, ownerID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return model.Invitation{}, status, message, err
	}

	recipient, err := api.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return model.Invitation{}, values.NotFound, "No user with that email", err
	}
	if err != nil {
		return model.Invitation{}, values.Error, "Failed to look up recipient", err
	}
	if recipient.ID == ownerID {
		return model.Invitation{}, values.BadRequestBody, "You cannot share a zone with yourself", errors.New("self share")
	}

	inv := model.Invitation{
		ID:         uuid.New(),
		FromUserID: ownerID,
		ToUserID:   recipient.ID,
		ZoneID:     zone.ID,
		ZoneName:   zone.Name,
		Location:   zone.Location,
		Radius:     zone.Radius,
		Playlist:   zone.Playlist,
		Status:     model.InvitationPending,
	}

	created, err := api.CreateInvitationRepo(ctx, inv)
	if err != nil {
		return model.Invitation{}, values.Error, "Failed to create invitation", err
	}
	return created, values.Created, "Invitation sent", nil
}
