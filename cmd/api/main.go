package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/clinical"
	"medrecord.org/internal/httpapi"
	"medrecord.org/internal/message"
	"medrecord.org/internal/obs"
	"medrecord.org/internal/pharmacy"
	"medrecord.org/internal/store/memory"
	"medrecord.org/internal/store/pg"
	"medrecord.org/internal/stream"
	"medrecord.org/internal/verify"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if os.Getenv("MEDRECORD_AUTH_SECRET") == "" {
		log.Fatal("MEDRECORD_AUTH_SECRET is required")
	}

	// Persistent store when a DSN is configured, in-memory otherwise.
	var (
		accountStore  account.Store
		verifyStore   verify.Store
		clinicalStore clinical.Store
		messageStore  message.Store
		pharmacyStore pharmacy.Store
		pgStore       *pg.Store
	)
	if dsn := os.Getenv("MEDRECORD_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		accountStore = pgStore
		verifyStore = pgStore
		clinicalStore = pgStore
		messageStore = pgStore
		pharmacyStore = pgStore
	} else {
		log.Println("MEDRECORD_PG_DSN not set, using in-memory store")
		mem := memory.New()
		accountStore = mem
		verifyStore = mem
		clinicalStore = clinical.NewInMemory()
		messageStore = message.NewInMemory()
		pharmacyStore = pharmacy.NewInMemory()
	}

	accounts, err := account.NewService(accountStore)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}
	verifier, err := verify.NewService(verifyStore, verify.Config{
		AutoApprove: os.Getenv("MEDRECORD_AUTO_APPROVE_DOCTORS") == "true",
	})
	if err != nil {
		log.Fatalf("verify service: %v", err)
	}
	clinic, err := clinical.NewService(clinicalStore)
	if err != nil {
		log.Fatalf("clinical service: %v", err)
	}
	live := stream.New()
	messenger, err := message.NewService(messageStore, live)
	if err != nil {
		log.Fatalf("message service: %v", err)
	}
	pharmacies, err := pharmacy.NewService(pharmacyStore)
	if err != nil {
		log.Fatalf("pharmacy service: %v", err)
	}

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(probe, version, httpapi.Deps{
		Accounts:     accounts,
		AccountStore: accountStore,
		Verify:       verifier,
		Clinical:     clinic,
		Messages:     messenger,
		Pharmacies:   pharmacies,
		Stream:       live,
	})

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // the SSE stream holds its connection open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting medrecord-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
