package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/geoplaylists/config"
	"github.com/bwise1/geoplaylists/internal/db"
	deps "github.com/bwise1/geoplaylists/internal/debs"
	"github.com/bwise1/geoplaylists/internal/dispatch"
	"github.com/bwise1/geoplaylists/internal/http/spotify"
	stadiamaps "github.com/bwise1/geoplaylists/internal/http/stadia_maps"
	"github.com/bwise1/geoplaylists/internal/notify"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server      *http.Server
	Config      *config.Config
	Deps        *deps.Dependencies
	DB          db.Querier
	SpotifyAuth *spotify.Auth
	Spotify     *spotify.Client
	Places      *stadiamaps.Client
	Tracker     *dispatch.Service
}

// Init wires the Spotify collaborators and the zone tracker. DB and Deps must be set.
func (api *API) Init() error {
	api.SpotifyAuth = spotify.NewAuth(spotify.AuthConfig{
		ClientID:     api.Config.SpotifyClientID,
		ClientSecret: api.Config.SpotifyClientSecret,
		RedirectURL:  api.Config.SpotifyRedirectURL,
		StateSecret:  api.Config.JwtSecret,
	}, api)

	client, err := spotify.NewClient(api.Config.SpotifyAPIURL, api.SpotifyAuth)
	if err != nil {
		return err
	}
	api.Spotify = client

	places, err := stadiamaps.NewClient(api.Config.StadiaURL, api.Config.StadiaAPIKey)
	if err != nil {
		return err
	}
	api.Places = places

	var publisher notify.Publisher
	if api.Deps.NATS != nil {
		publisher = api.Deps.NATS
	}
	notifier := notify.New(api.Deps.WebSocket, publisher)

	dispatcher := dispatch.NewDispatcher(api.SpotifyAuth, api.Spotify, notifier, api.Deps.WebSocket, api.Deps.Metrics)
	api.Tracker = dispatch.NewService(
		api,
		tracker.NewRedisLocations(api.Deps.Redis, api.Config.LocationTTL),
		tracker.NewMemoryBaseline(),
		tracker.NewRedisBaseline(api.Deps.Redis),
		dispatcher,
		api.Deps.Metrics,
	)
	return nil
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", values.HeaderRequestSource, values.HeaderRequestID},
		ExposedHeaders:   []string{values.HeaderRequestID},
		AllowCredentials: !allowsAnyOrigin(api.Config.AllowedOrigins),
		MaxAge:           300,
	}))

	if api.Deps != nil && api.Deps.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(api.Deps.Registry, promhttp.HandlerOpts{}))
	}

	mux.Group(func(r chi.Router) {
		r.Use(RequestTracing)

		r.Get("/",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("geoplaylists"))
			},
		)

		r.Mount("/auth", api.AuthRoutes())
		r.Mount("/users", api.UserRoutes())
		r.Mount("/zones", api.ZoneRoutes())
		r.Mount("/invitations", api.InvitationRoutes())
		r.Mount("/location", api.LocationRoutes())
		r.Mount("/places", api.PlacesRoutes())
	})

	// traces its own routes; the OAuth callback is a browser redirect
	mux.Mount("/spotify", api.SpotifyRoutes())

	// websocket clients cannot always set custom headers
	mux.With(api.RequireLogin).Get("/ws", api.ServeWebSocket)

	return mux
}

// allowsAnyOrigin mirrors cors, which treats an empty list as a wildcard.
func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (api *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
