package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/routeplay/internal/api"
	"github.com/banshee-data/routeplay/internal/config"
	"github.com/banshee-data/routeplay/internal/db"
	"github.com/banshee-data/routeplay/internal/monitoring"
	"github.com/banshee-data/routeplay/internal/version"
	"github.com/banshee-data/routeplay/internal/ws"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode")
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "routeplay.db", "Path to sqlite database")
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to playback config JSON")
)

func main() {
	flag.Parse()

	monitoring.Logf("routeplay %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.LoadPlaybackConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load playback config: %v", err)
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsHandler := ws.NewHandler(cfg)

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or
		// over Tailscale)
		database.AttachAdminRoutes(mux)

		// playback websocket endpoint
		mux.Handle("/ws", wsHandler)

		// route management API
		mux.Handle("/api/", api.NewServer(database, cfg).ServeMux())

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			monitoring.Logf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		// Closing the listener unblocks the websocket read loops, which tear
		// down their playback sessions on the way out.
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
