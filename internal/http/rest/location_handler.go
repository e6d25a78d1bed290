package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/geoplaylists/internal/dispatch"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/tracing"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) LocationRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Route("/", func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodPost, "/", Handler(api.ReportLocation))
		r.Method(http.MethodPost, "/background", Handler(api.ReportBackgroundLocation))
		r.Method(http.MethodPost, "/batch", Handler(api.ReportLocationBatch))
		r.Method(http.MethodPost, "/tracking", Handler(api.StartTracking))
		r.Method(http.MethodDelete, "/tracking", Handler(api.StopTracking))
	})

	return mux
}

func evaluationResponse(res tracker.Result, alerts []model.Alert) model.EvaluationResponse {
	return model.EvaluationResponse{
		Active:  res.Active.Slice(),
		Entered: res.Entered.Slice(),
		Exited:  res.Exited.Slice(),
		Alerts:  alerts,
	}
}

// ReportLocation evaluates a sample from the open app and returns alerts for
// zones just entered.
func (api *API) ReportLocation(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	var req model.LocationRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	sample := tracker.Sample{Coordinate: req.Coordinate(), At: time.Now().UTC()}
	res, alerts, err := api.Tracker.ObserveForeground(r.Context(), userID, sample, req.AutoPlay)
	if err != nil {
		return respondWithError(err, "failed to evaluate location", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Location evaluated",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       evaluationResponse(res, alerts),
	}
}

// ReportBackgroundLocation stores a sample from the device's background task and
// evaluates it against the persisted baseline.
func (api *API) ReportBackgroundLocation(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	var req model.LocationRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	sample := tracker.Sample{Coordinate: req.Coordinate(), At: time.Now().UTC()}
	res, err := api.Tracker.RecordBackground(r.Context(), userID, sample)
	if errors.Is(err, dispatch.ErrNotTracking) {
		return respondWithError(err, "background tracking is not enabled", values.NotAllowed, &tc)
	}
	if err != nil {
		return respondWithError(err, "failed to evaluate location", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Location recorded",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       evaluationResponse(res, nil),
	}
}

// ReportLocationBatch replays background samples that queued up while the
// device was offline, oldest first.
func (api *API) ReportLocationBatch(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	var req model.BatchLocationRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	coords, err := util.DecodePolyLines(req.Polyline)
	if err != nil {
		return respondWithError(err, "invalid polyline", values.BadRequestBody, &tc)
	}
	for i, c := range coords {
		if err := util.ValidateStruct(c); err != nil {
			return respondWithError(err, fmt.Sprintf("sample %d is out of range", i), values.BadRequestBody, &tc)
		}
	}

	entered, exited := tracker.NewIDSet(), tracker.NewIDSet()
	var last tracker.Result
	for _, c := range coords {
		res, err := api.Tracker.RecordBackground(r.Context(), userID, tracker.Sample{Coordinate: c, At: time.Now().UTC()})
		if errors.Is(err, dispatch.ErrNotTracking) {
			return respondWithError(err, "background tracking is not enabled", values.NotAllowed, &tc)
		}
		if err != nil {
			return respondWithError(err, "failed to evaluate location", values.Error, &tc)
		}
		for id := range res.Entered {
			entered[id] = struct{}{}
		}
		for id := range res.Exited {
			exited[id] = struct{}{}
		}
		last = res
	}

	return &ServerResponse{
		Message:    fmt.Sprintf("%d samples recorded", len(coords)),
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data: model.EvaluationResponse{
			Active:  last.Active.Slice(),
			Entered: entered.Slice(),
			Exited:  exited.Slice(),
		},
	}
}

func (api *API) StartTracking(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	if err := api.Tracker.StartTracking(r.Context(), userID); err != nil {
		return respondWithError(err, "failed to start tracking", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Background tracking started",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}

func (api *API) StopTracking(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	if err := api.Tracker.StopTracking(r.Context(), userID); err != nil {
		return respondWithError(err, "failed to stop tracking", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Background tracking stopped",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}
