// Package app wires the configuration, storage, Telegram surface,
// aggregator, dispatcher and trigger into one runnable unit.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"newsbot/internal/bot"
	"newsbot/internal/config"
	"newsbot/internal/egress"
	"newsbot/internal/feed"
	"newsbot/internal/services/broadcast"
	"newsbot/internal/services/trigger"
	"newsbot/internal/state"
	"newsbot/internal/storage"
	"newsbot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store      storage.Store
	aggregator *feed.Aggregator
	gate       *state.Cooldown
	bot        *bot.Bot
	dispatcher *broadcast.Service
	trigger    *trigger.Service

	wg sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DedupLimit:  cfg.Broadcast.DedupLimit,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	probeTimeout, _ := config.ParseDurationOrDefault("broadcast.probe_timeout", cfg.Broadcast.ProbeTimeout, 10*time.Second)
	dialer := egress.NewDialer(egress.Config{
		Proxies:      cfg.Proxies,
		ProbeURL:     probeURL(cfg),
		ProbeTimeout: probeTimeout,
	}, log.With(logx.String("comp", "egress")))

	fetchTimeout, _ := config.ParseDurationOrDefault("broadcast.fetch_timeout", cfg.Broadcast.FetchTimeout, 30*time.Second)
	aggregator := feed.NewAggregator(sources(cfg), dialer, fetchTimeout, log.With(logx.String("comp", "feed")))

	registry := state.NewRegistry(store, log.With(logx.String("comp", "registry")))
	dedup := state.NewDedup(store)
	gate := state.NewCooldown(store, cfg.CooldownOr(time.Hour))

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	tgBot, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		TradeURL:    cfg.Telegram.TradeURL,
		DownloadURL: cfg.Telegram.DownloadURL,
	}, registry, gate, aggregator, log.With(logx.String("comp", "bot")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	dispatcher := broadcast.New(broadcast.Config{
		SendRatePerSec: cfg.Broadcast.SendRatePerSec,
	}, aggregator, dedup, gate, registry, tgBot, log.With(logx.String("comp", "broadcast")))

	cycleLog := log.With(logx.String("comp", "broadcast"))
	trg := trigger.New(cfg.PollIntervalOr(5*time.Minute), func(ctx context.Context) {
		if _, err := dispatcher.RunCycle(ctx); err != nil {
			cycleLog.Error("broadcast cycle failed", logx.Err(err))
		}
	}, log.With(logx.String("comp", "trigger")))

	return &App{
		cfgMgr:     mgr,
		logSvc:     logSvc,
		log:        log,
		store:      store,
		aggregator: aggregator,
		gate:       gate,
		bot:        tgBot,
		dispatcher: dispatcher,
		trigger:    trg,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.bot.Start(ctx)
	}()

	a.trigger.Start(ctx)

	// Config hot reload: logging, feed sources and the cooldown window can
	// change at runtime; the poll interval needs a restart.
	a.wg.Add(2)
	reloads := a.cfgMgr.Subscribe(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(ctx)
	}()
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-reloads:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	// Best-effort: no-op when not running under systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("newsbot started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.trigger.Stop(ctx)
	a.bot.Stop()
	a.wg.Wait()

	err := a.store.Close()
	_ = a.logSvc.Close()
	a.log.Info("newsbot stopped")
	return err
}

func (a *App) applyReload(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	a.aggregator.SetSources(sources(cfg))
	a.gate.SetInterval(cfg.CooldownOr(time.Hour))
	a.log.Info("runtime config applied", logx.Int("feeds", len(cfg.Feeds)))
}

func sources(cfg *config.Config) []feed.Source {
	out := make([]feed.Source, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		out = append(out, feed.Source{Name: f.Name, URL: f.URL, Priority: f.Priority})
	}
	return out
}

// probeURL picks the endpoint used to verify a proxy: the configured one,
// or the first feed as a known-good default.
func probeURL(cfg *config.Config) string {
	if cfg.Broadcast.ProbeURL != "" {
		return cfg.Broadcast.ProbeURL
	}
	if len(cfg.Feeds) > 0 {
		return cfg.Feeds[0].URL
	}
	return ""
}
