// Command kde-server serves the density runs recorded by channel-kde.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/channelkde/internal/api"
	"github.com/banshee-data/channelkde/internal/db"
	"github.com/banshee-data/channelkde/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "density_runs.db", "sqlite database written by channel-kde")
	assetsURL   = flag.String("assets-url", "", "override the echarts assets host of chart pages")
	migrate     = flag.Bool("migrate", false, "apply pending migrations instead of refusing to start")
	showVersion = flag.Bool("version", false, "print version and exit")
)

// newHandler mounts the API and the debug routes on one mux.
func newHandler(store *db.DB, assetsHost string) http.Handler {
	mux := api.NewServer(store, assetsHost).ServeMux()
	store.AttachAdminRoutes(mux)
	return api.LoggingMiddleware(mux)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("kde-server"))
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	store, err := db.NewDBWithMigrationCheck(*dbPath, *migrate)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *listen,
		Handler:           newHandler(store, *assetsURL),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("serving density runs from %s on %s", *dbPath, *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}
