package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riderly/riderledger/internal/config"
	"github.com/riderly/riderledger/internal/dispatch"
	"github.com/riderly/riderledger/internal/handlers"
	"github.com/riderly/riderledger/internal/income"
	"github.com/riderly/riderledger/internal/ledger"
	"github.com/riderly/riderledger/internal/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.DatabaseURI != "" {
		store, err = storage.NewPostgresStore(ctx, cfg.DatabaseURI, log)
	} else {
		store, err = storage.NewFileStore(cfg.DataDir, log)
	}
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer store.Close()

	if cfg.DispatchAddress != "" {
		dispatchClient := dispatch.NewClient(cfg.DispatchAddress, cfg.RiderID, store, log)
		go dispatchClient.Start(ctx)
	}

	ledgerService := ledger.NewService(store, log)
	incomeService := income.NewService(ledgerService, store, log)

	api := handlers.NewAPI(ledgerService, incomeService, log)
	router := handlers.NewRouter(api, cfg.RiderID)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Infof("server started on %s", cfg.RunAddress)

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %+v", err)
	}

	log.Info("server exited properly")
}
