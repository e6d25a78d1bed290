package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/geoplaylists/config"
	deps "github.com/bwise1/geoplaylists/internal/debs"
	api "github.com/bwise1/geoplaylists/internal/http/rest"
	"github.com/bwise1/geoplaylists/internal/tracker"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	cfg := config.New()
	deps := deps.New(cfg)

	a := &api.API{
		Config: cfg,
		Deps:   deps,
		DB:     deps.Pool(),
	}
	if err := a.Init(); err != nil {
		log.Panicln("failed to initialise api", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go deps.WebSocket.Run(ctx)
	go tracker.NewPoller(cfg.BackgroundInterval, a.Tracker.RunScheduled).Run(ctx)
	go func() {
		log.Printf("Server running on port %v ...", cfg.Port)
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	log.Println("Request to shutdown server. Doing nothing for ", allowConnectionsAfterShutdown)
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	log.Println("Shutting down server...")
	cancel()

	if err := a.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	deps.Close()
	log.Println("Connections closed.")
}
