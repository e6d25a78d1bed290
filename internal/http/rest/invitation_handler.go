package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/tracing"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) InvitationRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Route("/", func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/", Handler(api.GetInvitations))
		r.Method(http.MethodPost, "/{id}/accept", Handler(api.AcceptInvitation))
		r.Method(http.MethodPost, "/{id}/decline", Handler(api.DeclineInvitation))
	})

	return mux
}

func invitationStatus(err error, action string) (string, string) {
	if errors.Is(err, ErrInvitationNotFound) {
		return values.NotFound, "No pending invitation found"
	}
	return values.Error, "Failed to " + action + " invitation"
}

func (api *API) AcceptInvitationHelper(ctx context.Context, userID, id uuid.UUID) (model.Zone, string, string, error) {
	zone, err := api.AcceptInvitationRepo(ctx, userID, id)
	if err != nil {
		status, message := invitationStatus(err, "accept")
		return model.Zone{}, status, message, err
	}
	return zone, values.Created, "Invitation accepted", nil
}

func (api *API) GetInvitations(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Not authorized", values.NotAuthorised, &tc)
	}

	invitations, err := api.ListIncomingInvitationsRepo(r.Context(), userID)
	if err != nil {
		return respondWithError(err, "failed to get invitations", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Invitations retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       invitations,
	}
}

func (api *API) AcceptInvitation(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	zone, status, message, err := api.AcceptInvitationHelper(r.Context(), userID, id)
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

func (api *API) DeclineInvitation(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, id, errResp := ownerAndID(r, &tc)
	if errResp != nil {
		return errResp
	}

	if err := api.DeclineInvitationRepo(r.Context(), userID, id); err != nil {
		status, message := invitationStatus(err, "decline")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Invitation declined",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}
