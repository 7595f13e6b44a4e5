// convkit/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"convkit/api"
	"convkit/blob"
	"convkit/config"
	"convkit/fetch"
	"convkit/gallery"
	"convkit/session"
	"convkit/throttle"
	"convkit/tools"
)

func main() {
	_ = godotenv.Load()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize the artifact store and the tool registry over it
	store, err := blob.NewFileStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	log.Printf("Using blob directory: %s", store.Dir())
	registry := tools.NewRegistry(store)

	// 3. Session manager owns queue lifecycles; expiry releases blobs
	sessions := session.NewManager(registry, cfg.SessionTTL)
	sessions.Start()
	defer sessions.Stop()

	// 4. Set up router and server
	router := api.SetupRouter(api.Deps{
		Cfg:      cfg,
		Registry: registry,
		Sessions: sessions,
		Fetcher:  fetch.NewFetcher(cfg.FetchTimeout, cfg.MaxFetchSize),
		Guard:    throttle.NewGuard(cfg, store.Dir()),
		Gallery:  gallery.New(cfg.GalleryDir),
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 5. Start HTTP server, then wait for interrupt for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
