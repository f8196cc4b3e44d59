package cli

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryan-buckman/hearth/internal/config"
	"github.com/bryan-buckman/hearth/internal/notify"
	"github.com/bryan-buckman/hearth/internal/server"
	"github.com/bryan-buckman/hearth/internal/session"
)

const sweepInterval = time.Minute

func newServeCmd(load loader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return serve(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	g, ctx := errgroup.WithContext(cmd.Context())

	var sessions session.Store
	if cfg.Redis.Addr != "" {
		rs := session.NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.SessionTTL)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		sessions = rs
		logger.Info("using redis session store", zap.String("addr", cfg.Redis.Addr))
	} else {
		ms := session.NewMemoryStore(cfg.SessionTTL)
		sessions = ms
		sweeper := session.NewSweeper(ms, sweepInterval, logger)
		g.Go(func() error { return sweeper.Run(ctx) })
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChats, cfg.BaseURL, logger)
		if err != nil {
			return err
		}
		notifier = tg
		logger.Info("telegram notifications enabled", zap.Int("chats", len(cfg.Telegram.AdminChats)))
	}

	manager := session.NewManager(sessions, logger, session.Options{
		RevealLatency: cfg.RevealLatency,
		PromoCooldown: cfg.PromoCooldown,
		TTL:           cfg.SessionTTL,
		SecureCookie:  cfg.SecureCookie,
	})
	srv, err := server.New(server.Deps{
		Store:    store,
		Sessions: manager,
		Notifier: notifier,
		Logger:   logger,
		Config:   cfg,
	})
	if err != nil {
		return err
	}

	g.Go(func() error { return srv.Run(ctx, cfg.Addr) })
	return g.Wait()
}
