package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sky-sprint/internal/api"
	"sky-sprint/internal/config"
	"sky-sprint/internal/leaderboard"
	"sky-sprint/internal/match"
	"sky-sprint/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	cfg := config.Load()

	log.Println("sky-sprint multiplayer server")
	log.Printf("config: port=%d frame=%dfps tick=%s room-max-age=%s",
		cfg.Server.Port, cfg.Server.FrameRate, cfg.Sync.NetworkTick, cfg.Rooms.MaxAge)

	memStore := store.NewMemoryStore()
	memStore.OnFinish = func(winner string) {
		result := "win"
		if winner == match.Draw {
			result = "draw"
		}
		api.RecordMatchFinished(result)
	}

	board := leaderboard.NewMemoryBoard()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stale-room janitor and room gauge run for the life of the process.
	go memStore.RunJanitor(ctx, cfg.Rooms.JanitorInterval, cfg.Rooms.MaxAge)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				api.UpdateRoomCount(memStore.RoomCount())
			case <-ctx.Done():
				return
			}
		}
	}()

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(memStore, board)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("server stopped")
}
