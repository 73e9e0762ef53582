package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtbook/courtbook/internal/api"
	"github.com/courtbook/courtbook/internal/config"
	"github.com/courtbook/courtbook/internal/crypto"
	"github.com/courtbook/courtbook/internal/event"
	"github.com/courtbook/courtbook/internal/mailer"
	"github.com/courtbook/courtbook/internal/metrics"
	"github.com/courtbook/courtbook/internal/ui"
	"github.com/courtbook/courtbook/internal/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Courtbook server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	cipher, err := crypto.New(cfg.Encryption.Key)
	if err != nil {
		return err
	}
	if cipher == nil {
		slog.Warn("no encryption key configured, SMTP password will be stored in plaintext")
	}

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	userStore := user.NewStore(pool, cfg.Sessions.TTL)
	eventStore := event.NewStore(pool)
	eventService := event.NewService(eventStore)
	mailStore := mailer.NewStore(pool, cipher)

	dispatcher := mailer.NewDispatcher(
		mailStore,
		userStore,
		mailer.NewSMTPSender(),
		m,
		cfg.Notify.QueueSize,
		cfg.Notify.SendTimeout,
	)
	go dispatcher.Start(ctx)

	go cleanExpiredSessions(ctx, userStore, cfg.Sessions.CleanupInterval)

	router := api.NewRouter(api.RouterDeps{
		Events:         eventService,
		Users:          userStore,
		MailConfig:     mailStore,
		Notifier:       dispatcher,
		Sessions:       user.NewAuthAdapter(userStore),
		Metrics:        m,
		DBPool:         pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UI:             ui.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting requests first, then block until the dispatcher has
	// drained its queue so accepted notifications are not lost.
	err = srv.Shutdown(shutdownCtx)
	dispatcher.Stop()

	return err
}

// cleanExpiredSessions periodically deletes expired login sessions.
func cleanExpiredSessions(ctx context.Context, store *user.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned expired sessions", "count", n)
			}
		}
	}
}
