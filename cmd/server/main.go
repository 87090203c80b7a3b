package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/facturevox/facturevox/internal/autosave"
	"github.com/facturevox/facturevox/internal/config"
	"github.com/facturevox/facturevox/internal/db"
	"github.com/facturevox/facturevox/internal/server"
	"github.com/facturevox/facturevox/internal/services"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			log.Fatalf("migrate-only failed: %v", err)
		}
		log.Println("migrations completed; exiting as requested")
		return
	}

	cfg := config.Load()
	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		log.Fatalf("Erreur connexion DB: %v", err)
	}
	log.Printf("Starting server env=%s port=%s", cfg.Env, cfg.Port)

	coord := autosave.NewCoordinator(services.NewInvoiceStore(dbConn), cfg.AutosaveInterval)
	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		coord.Run(flushCtx)
		close(flushDone)
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(dbConn, cfg, coord),
	}
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	// stop the flush loop after the server so in-flight saves still land
	stopFlush()
	select {
	case <-flushDone:
	case <-ctx.Done():
		log.Println("autosave flush timed out during shutdown")
	}
	log.Println("Server gracefully stopped")
}
