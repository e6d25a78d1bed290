package deps

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bwise1/geoplaylists/config"
	"github.com/bwise1/geoplaylists/internal/db"
	"github.com/bwise1/geoplaylists/internal/metrics"
	"github.com/bwise1/geoplaylists/util/storage"
	"github.com/bwise1/geoplaylists/util/websockets"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	DB         *db.DB
	Redis      *redis.Client
	NATS       *nats.Conn
	Cloudinary *storage.Cloudinary
	WebSocket  *websockets.WebSocketManager
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

func New(cfg *config.Config) *Dependencies {
	database, err := db.New(cfg.Dsn)
	if err != nil {
		log.Panicln("failed to connect to database", "error", err)
	}

	rdb, err := initRedis(cfg.RedisURL)
	if err != nil {
		log.Panicln("failed to connect to redis", "error", err)
	}

	// NATS only feeds the push gateway; run without it rather than refuse to start.
	nc, err := initNATS(cfg.NatsURL)
	if err != nil {
		log.Printf("[NATS]: %v, push notifications disabled", err)
		nc = nil
	}

	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		log.Panicln("failed to register metrics", "error", err)
	}

	deps := Dependencies{
		DB:         database,
		Redis:      rdb,
		NATS:       nc,
		Cloudinary: storage.NewCloudinary(cfg),
		WebSocket:  websockets.NewWebSocketManager(),
		Metrics:    m,
		Registry:   registry,
	}
	return &deps
}

func initRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func initNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("no NATS url configured")
	}

	options := []nats.Option{
		nats.Name("geoplaylists"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS]: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS]: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("[NATS]: connection closed")
		}),
	}

	return nats.Connect(url, options...)
}

func (d *Dependencies) Pool() *pgxpool.Pool {
	return d.DB.Pool()
}

// Close releases connections in reverse order of acquisition.
func (d *Dependencies) Close() {
	if d.NATS != nil {
		if err := d.NATS.Drain(); err != nil {
			log.Printf("[NATS]: drain: %v", err)
		}
	}
	if err := d.Redis.Close(); err != nil {
		log.Printf("[Redis]: close: %v", err)
	}
	d.DB.Close()
}
