package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chachabrian/zapshift-backend/internal/config"
	"github.com/chachabrian/zapshift-backend/internal/database"
	"github.com/chachabrian/zapshift-backend/internal/handlers"
	"github.com/chachabrian/zapshift-backend/internal/identity"
	"github.com/chachabrian/zapshift-backend/internal/logger"
	"github.com/chachabrian/zapshift-backend/internal/payment"
	"github.com/chachabrian/zapshift-backend/internal/services"
	"github.com/chachabrian/zapshift-backend/internal/store"
	"github.com/chachabrian/zapshift-backend/internal/store/gormstore"
	"github.com/chachabrian/zapshift-backend/internal/store/memstore"
)

const shutdownTimeout = 10 * time.Second

var serveMigrate bool

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			l := logger.New(os.Stdout, cfg.LogLevel)
			gin.SetMode(cfg.GinMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, l)
		},
	}

	cmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply schema migrations before serving")

	return cmd
}

func openStore(cfg *config.Config, l logrus.FieldLogger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		l.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}

	db, err := database.InitDB(cfg.Database, l)
	if err != nil {
		return nil, err
	}
	if serveMigrate {
		if err := database.RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return gormstore.New(db), nil
}

func runServe(ctx context.Context, cfg *config.Config, l *logrus.Logger) error {
	st, err := openStore(cfg, l)
	if err != nil {
		return err
	}
	defer st.Close()

	health := map[string]handlers.Pinger{"database": st}

	var sinks []services.EventSink

	var verifier identity.Verifier
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		fb, err := services.NewFirebase(ctx, cfg.Auth.FirebaseServiceAccountPath)
		if err != nil {
			return err
		}
		verifier = identity.NewFirebaseVerifier(fb.Auth)
		if cfg.Auth.RidersTopic != "" {
			sinks = append(sinks, services.NewTopicPusher(fb.Messaging, cfg.Auth.RidersTopic))
		}
	default:
		verifier = identity.NewJWTVerifier(cfg.Auth.JWTSecret)
	}

	if cfg.RedisURL != "" {
		rdb, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publisher := services.NewRedisPublisher(rdb)
		sinks = append(sinks, publisher)
		health["redis"] = publisher
	}

	hub := services.NewHub(l, cfg.Origins())
	go hub.Run(ctx)
	sinks = append(sinks, hub)

	storage, err := services.NewStorage(cfg.Storage)
	if err != nil {
		return err
	}
	var uploadDir string
	if local, ok := storage.(*services.LocalStorage); ok {
		uploadDir = local.Dir()
	}

	notifier := services.NewNotifier(l, sinks...)
	provider := payment.NewStripeProvider(cfg.Payment.StripeSecretKey, l)

	router, err := handlers.NewRouter(handlers.RouterArgs{
		Logger:         l,
		Store:          st,
		Verifier:       verifier,
		Checkout:       payment.NewCheckout(provider, cfg.Payment.Currency, cfg.Payment.SiteDomain, l),
		Confirmer:      payment.NewConfirmer(provider, st, notifier, l),
		Notifier:       notifier,
		Storage:        storage,
		Hub:            hub,
		AllowedOrigins: cfg.Origins(),
		UploadDir:      uploadDir,
		Health:         health,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Error("graceful shutdown failed")
	}
	notifier.Wait()
	return nil
}
