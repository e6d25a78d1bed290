package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/bwise1/geoplaylists/internal/metrics"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/internal/tracker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeZones struct {
	zones []model.Zone
	err   error
}

func (f *fakeZones) ListZones(context.Context, uuid.UUID) ([]model.Zone, error) {
	return f.zones, f.err
}

type harness struct {
	svc      *Service
	notifier *fakeNotifier
	alerter  *fakeAlerter
	rdb      *redis.Client
	locs     *tracker.RedisLocations
	zones    *fakeZones
}

func newHarness(t *testing.T, zones ...model.Zone) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := &harness{
		notifier: &fakeNotifier{},
		alerter:  &fakeAlerter{},
		rdb:      rdb,
		locs:     tracker.NewRedisLocations(rdb, time.Minute),
		zones:    &fakeZones{zones: zones},
	}
	d := NewDispatcher(&fakeTokens{token: connected}, &fakePlayer{devices: []model.Device{{ID: "phone"}}}, h.notifier, h.alerter, metrics.New())
	h.svc = NewService(h.zones, h.locs, tracker.NewMemoryBaseline(), tracker.NewRedisBaseline(rdb), d, metrics.New())
	return h
}

var inside = tracker.Sample{Coordinate: geo.Coordinate{Latitude: 52.52, Longitude: 13.405}}
var outside = tracker.Sample{Coordinate: geo.Coordinate{Latitude: 52.52, Longitude: 13.415}}

func TestRunBackgroundDispatchesOncePerEntry(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	res, err := h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.True(t, res.Entered.Has(z.ID))
	assert.Len(t, h.notifier.sent, 1)
	assert.Equal(t, model.KindPlaying, h.notifier.sent[0].Kind)

	_, err = h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.Len(t, h.notifier.sent, 1)

	_, err = h.svc.RunBackground(ctx, user, outside)
	require.NoError(t, err)
	_, err = h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.Len(t, h.notifier.sent, 2)
}

func TestRunBackgroundPersistedBaselineSurvivesRestart(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, tracker.NewRedisBaseline(h.rdb).CompareAndSwap(ctx, user, nil, tracker.NewIDSet(z.ID)))

	res, err := h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.True(t, res.Active.Has(z.ID))
	assert.Empty(t, h.notifier.sent)
}

func TestForegroundAndBackgroundBaselinesAreSeparate(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	_, alerts, err := h.svc.ObserveForeground(ctx, user, inside, false)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	_, err = h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.Len(t, h.notifier.sent, 1)

	_, alerts, err = h.svc.ObserveForeground(ctx, user, inside, false)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestZoneListingFailureLeavesBaselineUntouched(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	h.zones.err = errors.New("connection refused")
	_, err := h.svc.RunBackground(ctx, user, inside)
	assert.Error(t, err)
	assert.Empty(t, h.notifier.sent)

	h.zones.err = nil
	res, err := h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.True(t, res.Entered.Has(z.ID))
}

func TestRecordBackgroundRequiresTracking(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	_, err := h.svc.RecordBackground(ctx, user, inside)
	assert.ErrorIs(t, err, ErrNotTracking)

	require.NoError(t, h.svc.StartTracking(ctx, user))
	res, err := h.svc.RecordBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.True(t, res.Entered.Has(z.ID))

	stored, err := h.locs.CurrentLocation(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, inside.Coordinate, stored.Coordinate)
}

func TestStopTrackingClearsBaselines(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, h.svc.StartTracking(ctx, user))
	_, err := h.svc.RecordBackground(ctx, user, inside)
	require.NoError(t, err)
	_, _, err = h.svc.ObserveForeground(ctx, user, inside, false)
	require.NoError(t, err)

	require.NoError(t, h.svc.StopTracking(ctx, user))

	stored, err := tracker.NewRedisBaseline(h.rdb).Load(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, stored)

	tracked, err := h.locs.IsTracked(ctx, user)
	require.NoError(t, err)
	assert.False(t, tracked)

	_, alerts, err := h.svc.ObserveForeground(ctx, user, inside, false)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestRunScheduled(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	ctx := context.Background()
	withLocation, withoutLocation := uuid.New(), uuid.New()

	require.NoError(t, h.svc.StartTracking(ctx, withLocation))
	require.NoError(t, h.svc.StartTracking(ctx, withoutLocation))
	require.NoError(t, h.locs.Record(ctx, withLocation, inside))

	h.svc.RunScheduled(ctx)
	assert.Len(t, h.notifier.sent, 1)

	h.svc.RunScheduled(ctx)
	assert.Len(t, h.notifier.sent, 1)
}

// cancellingTokens cancels the caller's context the moment a credential is
// requested, like a device dropping its background request mid-dispatch.
type cancellingTokens struct {
	cancel context.CancelFunc
}

func (c *cancellingTokens) ValidCredential(context.Context, uuid.UUID) (*oauth2.Token, error) {
	c.cancel()
	return connected, nil
}

type contextPlayer struct {
	fakePlayer
}

func (p *contextPlayer) ListDevices(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.fakePlayer.ListDevices(ctx, userID)
}

func (p *contextPlayer) PlayContext(ctx context.Context, userID uuid.UUID, playlistID, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.fakePlayer.PlayContext(ctx, userID, playlistID, deviceID)
}

func TestRunBackgroundDispatchSurvivesCallerCancellation(t *testing.T) {
	z := testZone()
	h := newHarness(t, z)
	user := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	player := &contextPlayer{fakePlayer{devices: []model.Device{{ID: "phone"}}}}
	h.svc.dispatcher = NewDispatcher(&cancellingTokens{cancel: cancel}, player, h.notifier, nil, nil)

	res, err := h.svc.RunBackground(ctx, user, inside)
	require.NoError(t, err)
	assert.True(t, res.Entered.Has(z.ID))
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, model.KindPlaying, h.notifier.sent[0].Kind)
	assert.Equal(t, []string{z.Playlist.ID}, player.played)
}
