package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwise1/geoplaylists/internal/geo"
	stadiamaps "github.com/bwise1/geoplaylists/internal/http/stadia_maps"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/tracing"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
)

// PlacesRoutes lets clients pick a zone center by address instead of coordinates.
func (api *API) PlacesRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)

		// ?text=...&lat=...&lon=...&size=...
		r.Method(http.MethodGet, "/search", Handler(api.SearchPlaces))
		// ?lat=...&lon=...
		r.Method(http.MethodGet, "/reverse", Handler(api.ReverseGeocode))
	})
	return mux
}

// parseCoordinate reads lat and lon query parameters. ok is false when both are absent.
func parseCoordinate(r *http.Request) (c geo.Coordinate, ok bool, err error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return c, false, nil
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return c, false, errors.New("invalid latitude or longitude")
	}
	c = geo.Coordinate{Latitude: lat, Longitude: lon}
	if err := util.ValidateStruct(c); err != nil {
		return c, false, err
	}
	return c, true, nil
}

func (api *API) SearchPlaces(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	if api.Places == nil {
		return respondWithError(nil, "place search is not configured", values.NotAllowed, &tc)
	}

	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		return respondWithError(nil, "missing or empty 'text' query parameter", values.BadRequestBody, &tc)
	}

	var focus *geo.Coordinate
	c, ok, err := parseCoordinate(r)
	if err != nil {
		return respondWithError(err, "invalid focus point", values.BadRequestBody, &tc)
	}
	if ok {
		focus = &c
	}

	size := 0
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		size, err = strconv.Atoi(sizeStr)
		if err != nil {
			return respondWithError(err, "invalid 'size' query parameter", values.BadRequestBody, &tc)
		}
	}

	places, err := api.Places.Search(r.Context(), text, focus, size)
	if err != nil {
		return respondWithError(err, "failed to search places", values.Failed, &tc)
	}

	return &ServerResponse{
		Message:    "Places found",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       places,
	}
}

func (api *API) ReverseGeocode(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	if api.Places == nil {
		return respondWithError(nil, "place search is not configured", values.NotAllowed, &tc)
	}

	c, ok, err := parseCoordinate(r)
	if err != nil || !ok {
		return respondWithError(err, "missing or invalid 'lat' and 'lon' query parameters", values.BadRequestBody, &tc)
	}

	place, err := api.Places.Reverse(r.Context(), c)
	if errors.Is(err, stadiamaps.ErrNoPlace) {
		return respondWithError(err, "no place found at this location", values.NotFound, &tc)
	}
	if err != nil {
		return respondWithError(err, "failed to reverse geocode", values.Failed, &tc)
	}

	return &ServerResponse{
		Message:    "Place found",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       place,
	}
}
