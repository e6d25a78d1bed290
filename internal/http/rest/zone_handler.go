package rest

import (
	"net/http"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/tracing"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) ZoneRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Route("/", func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/", Handler(api.GetAllZones))
		r.Method(http.MethodPost, "/", Handler(api.CreateZone))
		r.Method(http.MethodGet, "/{id}", Handler(api.GetZone))
		r.Method(http.MethodPut, "/{id}", Handler(api.UpdateZone))
		r.Method(http.MethodPatch, "/{id}/active", Handler(api.SetZoneActive))
		r.Method(http.MethodDelete, "/{id}", Handler(api.DeleteZone))
		r.Method(http.MethodPost, "/{id}/refresh", Handler(api.RefreshZonePlaylist))
		r.Method(http.MethodPost, "/{id}/play", Handler(api.PlayZone))
		r.Method(http.MethodPost, "/{id}/tracks", Handler(api.AddTrackToZone))
		r.Method(http.MethodPost, "/{id}/share", Handler(api.ShareZone))
	})

	return mux
}

// ownerAndID reads the authenticated user and the {id} path parameter.
func ownerAndID(r *http.Request, tc *tracing.Context) (uuid.UUID, uuid.UUID, *ServerResponse) {
	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, respondWithError(err, "unable to get user ID from context", values.NotAuthorised, tc)
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, respondWithError(err, "invalid ID format", values.BadRequestBody, tc)
	}
	return userID, id, nil
}

func (api *API) GetAllZones(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	zones, err := api.ListZones(r.Context(), userID)
	if err != nil {
		return respondWithError(err, "failed to get zones", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Zones retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       zones,
	}
}

func (api *API) CreateZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	var req model.CreateZoneRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	zone, status, message, err := api.CreateZoneHelper(r.Context(), userID, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       zone,
	}
}

func (api *API) GetZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	zone, err := api.GetZoneRepo(r.Context(), userID, id)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Zone retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       zone,
	}
}

func (api *API) UpdateZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	var req model.UpdateZoneRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	zone, status, message, err := api.UpdateZoneHelper(r.Context(), userID, id, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       zone,
	}
}

func (api *API) SetZoneActive(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	var req model.SetActiveRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	zone, err := api.SetZoneActiveRepo(r.Context(), userID, id, req.IsActive)
	if err != nil {
		status, message := zoneLookupStatus(err)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Zone updated successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       zone,
	}
}

func (api *API) DeleteZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	if err := api.DeleteZoneRepo(r.Context(), userID, id); err != nil {
		status, message := zoneLookupStatus(err)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Zone deleted successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}

func (api *API) RefreshZonePlaylist(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	zone, status, message, err := api.RefreshZonePlaylistHelper(r.Context(), userID, id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       zone,
	}
}

func (api *API) PlayZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	data, status, message, err := api.PlayZoneHelper(r.Context(), userID, id)
	if err != nil {
		resp := respondWithError(err, message, status, &tc)
		resp.Data = data
		return resp
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       data,
	}
}

func (api *API) AddTrackToZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	var req model.AddTrackRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	status, message, err := api.AddTrackHelper(r.Context(), userID, id, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func (api *API) ShareZone(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	var req model.ShareZoneRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	inv, status, message, err := api.ShareZoneHelper(r.Context(), userID, id, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       inv,
	}
}
