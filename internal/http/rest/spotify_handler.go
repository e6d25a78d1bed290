package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/tracing"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPlaylistPage   = 50
	spotifyRedirectSource = "spotify-redirect"
)

func (api *API) SpotifyRoutes() chi.Router {
	mux := chi.NewRouter()

	// the accounts service redirects the browser here with neither our bearer
	// token nor the tracing header
	mux.With(DefaultRequestSource(spotifyRedirectSource)).
		Method(http.MethodGet, "/callback", Handler(api.SpotifyCallback))

	mux.Group(func(r chi.Router) {
		r.Use(RequestTracing)
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/authorize", Handler(api.SpotifyAuthorize))
		r.Method(http.MethodDelete, "/", Handler(api.SpotifyDisconnect))
		r.Method(http.MethodGet, "/devices", Handler(api.SpotifyDevices))
		r.Method(http.MethodGet, "/playlists", Handler(api.SpotifyPlaylists))
	})

	return mux
}

func (api *API) SpotifyAuthorize(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	authURL, err := api.SpotifyAuth.AuthURL(userID)
	if err != nil {
		return respondWithError(err, "failed to start Spotify authorization", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Open the URL to connect Spotify",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       map[string]string{"url": authURL},
	}
}

func (api *API) SpotifyCallback(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	q := r.URL.Query()
	if errStr := q.Get("error"); errStr != "" {
		return respondWithError(errors.New(errStr), "Spotify authorization was denied", values.NotAllowed, &tc)
	}

	code := q.Get("code")
	if code == "" {
		return respondWithError(errors.New("missing code"), "code is required", values.BadRequestBody, &tc)
	}

	userID, err := api.SpotifyAuth.Connect(r.Context(), q.Get("state"), code)
	if err != nil {
		return respondWithError(err, "failed to connect Spotify", values.NotAllowed, &tc)
	}

	return &ServerResponse{
		Message:    "Spotify connected",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       map[string]string{"user_id": userID.String()},
	}
}

func (api *API) SpotifyDisconnect(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	if err := api.SpotifyAuth.Disconnect(r.Context(), userID); err != nil {
		return respondWithError(err, "failed to disconnect Spotify", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Spotify disconnected",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}

func (api *API) SpotifyDevices(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	devices, err := api.Spotify.ListDevices(r.Context(), userID)
	if err != nil {
		status, message := spotifyStatus(err)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Devices retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       devices,
	}
}

func (api *API) SpotifyPlaylists(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	limit, offset := defaultPlaylistPage, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > defaultPlaylistPage {
			return respondWithError(errors.New("invalid limit"), "limit must be between 1 and 50", values.BadRequestBody, &tc)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return respondWithError(errors.New("invalid offset"), "offset must be a non-negative number", values.BadRequestBody, &tc)
		}
	}

	playlists, err := api.Spotify.ListPlaylists(r.Context(), userID, limit, offset)
	if err != nil {
		status, message := spotifyStatus(err)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Playlists retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       playlists,
	}
}
