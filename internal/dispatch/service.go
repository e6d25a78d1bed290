package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwise1/geoplaylists/internal/metrics"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/google/uuid"
)

// backgroundDispatchTimeout bounds the playback calls for one background evaluation.
const backgroundDispatchTimeout = 30 * time.Second

// ErrNotTracking is returned for background samples of users who stopped tracking.
var ErrNotTracking = errors.New("background tracking is not enabled")

type ZoneLister interface {
	ListZones(ctx context.Context, ownerID uuid.UUID) ([]model.Zone, error)
}

// Locations is the device-fed location store plus the background task registry.
type Locations interface {
	tracker.LocationProvider
	Record(ctx context.Context, userID uuid.UUID, s tracker.Sample) error
	Track(ctx context.Context, userID uuid.UUID) error
	Untrack(ctx context.Context, userID uuid.UUID) error
	IsTracked(ctx context.Context, userID uuid.UUID) (bool, error)
	TrackedUsers(ctx context.Context) ([]uuid.UUID, error)
}

// Service wires evaluation to dispatch. The foreground and background runners
// keep separate baselines on purpose.
type Service struct {
	zones      ZoneLister
	locations  Locations
	foreground *tracker.Runner
	background *tracker.Runner
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
}

func NewService(zones ZoneLister, locations Locations, foreground, background tracker.Baseline, d *Dispatcher, m *metrics.Metrics) *Service {
	return &Service{
		zones:      zones,
		locations:  locations,
		foreground: tracker.NewRunner(foreground),
		background: tracker.NewRunner(background),
		dispatcher: d,
		metrics:    m,
	}
}

// ObserveForeground evaluates a sample reported by the open app.
func (s *Service) ObserveForeground(ctx context.Context, userID uuid.UUID, sample tracker.Sample, autoPlay bool) (tracker.Result, []model.Alert, error) {
	zones, byID, err := s.loadZones(ctx, userID)
	if err != nil {
		return tracker.Result{}, nil, err
	}

	res, err := s.foreground.Step(ctx, userID, sample, zones)
	if err != nil {
		return tracker.Result{}, nil, err
	}
	s.metrics.RecordEvaluation(metrics.ModeForeground, len(res.Entered))

	alerts := s.dispatcher.Foreground(ctx, userID, res.Entered, byID, res.Distances, autoPlay)
	return res, alerts, nil
}

// RecordBackground stores a sample sent by the device's background task and evaluates it.
func (s *Service) RecordBackground(ctx context.Context, userID uuid.UUID, sample tracker.Sample) (tracker.Result, error) {
	tracked, err := s.locations.IsTracked(ctx, userID)
	if err != nil {
		return tracker.Result{}, err
	}
	if !tracked {
		return tracker.Result{}, ErrNotTracking
	}

	if err := s.locations.Record(ctx, userID, sample); err != nil {
		return tracker.Result{}, err
	}
	return s.RunBackground(ctx, userID, sample)
}

// RunBackground evaluates sample against the persisted baseline and dispatches
// newly entered zones. The baseline is advanced before dispatching, so a zone
// recorded as active is never dispatched twice, even across restarts. Dispatch
// outlives the caller's cancellation: once the entry is recorded it must be
// delivered.
func (s *Service) RunBackground(ctx context.Context, userID uuid.UUID, sample tracker.Sample) (tracker.Result, error) {
	zones, byID, err := s.loadZones(ctx, userID)
	if err != nil {
		return tracker.Result{}, err
	}

	res, err := s.background.Step(ctx, userID, sample, zones)
	if err != nil {
		return tracker.Result{}, err
	}
	s.metrics.RecordEvaluation(metrics.ModeBackground, len(res.Entered))

	if len(res.Entered) > 0 {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundDispatchTimeout)
		defer cancel()
		s.dispatcher.Background(dctx, userID, res.Entered, byID)
	}
	return res, nil
}

// RunScheduled is the background task body: one evaluation per tracked user
// using the last location the device reported.
func (s *Service) RunScheduled(ctx context.Context) {
	users, err := s.locations.TrackedUsers(ctx)
	if err != nil {
		log.Printf("[Tracker]: listing tracked users: %v", err)
		return
	}

	for _, userID := range users {
		sample, err := s.locations.CurrentLocation(ctx, userID)
		if errors.Is(err, tracker.ErrNoLocation) {
			continue
		}
		if err != nil {
			log.Printf("[Tracker]: location for user %s: %v", userID, err)
			continue
		}

		if _, err := s.RunBackground(ctx, userID, sample); err != nil {
			log.Printf("[Tracker]: background evaluation for user %s: %v", userID, err)
		}
	}
}

// PlayZone is the manual "play now" action for a single zone.
func (s *Service) PlayZone(ctx context.Context, userID uuid.UUID, zone model.Zone) string {
	return s.dispatcher.Play(ctx, userID, zone)
}

func (s *Service) StartTracking(ctx context.Context, userID uuid.UUID) error {
	return s.locations.Track(ctx, userID)
}

// StopTracking unregisters the background task and clears both baselines.
func (s *Service) StopTracking(ctx context.Context, userID uuid.UUID) error {
	if err := s.locations.Untrack(ctx, userID); err != nil {
		return fmt.Errorf("untracking: %w", err)
	}
	if err := s.background.Reset(ctx, userID); err != nil {
		return fmt.Errorf("clearing background baseline: %w", err)
	}
	return s.foreground.Reset(ctx, userID)
}

func (s *Service) loadZones(ctx context.Context, userID uuid.UUID) ([]model.Zone, map[uuid.UUID]model.Zone, error) {
	zones, err := s.zones.ListZones(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing zones: %w", err)
	}

	byID := make(map[uuid.UUID]model.Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	return zones, byID, nil
}
