package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/config"
	"github.com/alekspetrov/taskbot/internal/conversation"
	"github.com/alekspetrov/taskbot/internal/gateway"
	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/maintenance"
	"github.com/alekspetrov/taskbot/internal/metrics"
	"github.com/alekspetrov/taskbot/internal/store"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port > 0 {
				cfg.Gateway.Port = port
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("failed to init logging: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override gateway port")
	return cmd
}

// serve wires the bot together and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.WithComponent("serve")

	tasks, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = tasks.Close() }()

	m := metrics.New()

	client := messenger.NewClient(cfg.Messenger.PageAccessToken, cfg.Messenger.GraphURL, cfg.Messenger.Timeout)
	outbox := messenger.NewBackgroundSender(client, m.SendResult)
	defer outbox.Wait()

	commands, err := cfg.Commands()
	if err != nil {
		return err
	}
	limiter := messenger.NewRateLimiter(cfg.Bot.RateLimit)

	dispatcher := conversation.NewDispatcher(tasks, outbox, conversation.Config{
		Commands: commands,
		Render: conversation.RenderOptions{
			DeleteButtons: cfg.Bot.ListDeleteButtons,
			MaxElements:   cfg.Bot.ListMaxElements,
		},
		Limiter:  limiter,
		Observer: m,
	})

	server := gateway.NewServer(cfg.Gateway, gateway.WebhookConfig{
		VerifyToken: cfg.Messenger.VerifyToken,
		AppSecret:   cfg.Messenger.AppSecret,
	}, dispatcher, tasks, gateway.WithMetrics(m))

	tasks.OnChange(func(c store.Change) {
		m.TaskChanges.WithLabelValues(string(c.Type)).Inc()
		server.PublishChange(c)
	})

	if n, err := tasks.Count(ctx); err == nil {
		m.TasksStored.Set(float64(n))
	}

	scheduler := maintenance.NewScheduler(tasks, limiter, cfg.Maintenance, func(r maintenance.Report) {
		m.TasksStored.Set(float64(r.Tasks))
	})
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	log.Info("Taskbot ready",
		slog.String("version", version),
		slog.String("driver", cfg.Storage.Driver),
		slog.Bool("signature_checks", cfg.Messenger.AppSecret != ""),
	)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("gateway stopped: %w", err)
	}
	log.Info("Taskbot stopped")
	return nil
}
