package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Feeds     []FeedConfig    `json:"feeds"`
	Proxies   []string        `json:"proxies,omitempty"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Storage   StorageConfig   `json:"storage"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	TradeURL    string `json:"trade_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// FeedConfig describes one syndication source. Lower priority ranks first
// in the merged stream.
type FeedConfig struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// BroadcastConfig tunes the broadcast cycle.
//
// All durations are Go duration strings. Defaults (when omitted):
//   - cooldown: "1h"
//   - poll_interval: "5m"
//   - probe_timeout: "10s"
//   - fetch_timeout: "30s"
//   - dedup_limit: 500
//   - send_rate_per_sec: 10
type BroadcastConfig struct {
	Cooldown       string `json:"cooldown,omitempty"`
	PollInterval   string `json:"poll_interval,omitempty"`
	ProbeURL       string `json:"probe_url,omitempty"`
	ProbeTimeout   string `json:"probe_timeout,omitempty"`
	FetchTimeout   string `json:"fetch_timeout,omitempty"`
	DedupLimit     int    `json:"dedup_limit,omitempty"`
	SendRatePerSec int    `json:"send_rate_per_sec,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/newsbot" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Validate checks the parts of the config that must be right before startup.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if len(c.Feeds) == 0 {
		return errors.New("at least one feed source is required")
	}
	seen := map[string]bool{}
	for i, f := range c.Feeds {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("feeds[%d] (%s): url is required", i, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("feeds[%d]: duplicate name %q", i, f.Name)
		}
		seen[f.Name] = true
	}
	for _, raw := range []struct{ path, v string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"broadcast.cooldown", c.Broadcast.Cooldown},
		{"broadcast.poll_interval", c.Broadcast.PollInterval},
		{"broadcast.probe_timeout", c.Broadcast.ProbeTimeout},
		{"broadcast.fetch_timeout", c.Broadcast.FetchTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(raw.path, raw.v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) CooldownOr(def time.Duration) time.Duration {
	d, _ := ParseDurationOrDefault("broadcast.cooldown", c.Broadcast.Cooldown, def)
	return d
}

func (c *Config) PollIntervalOr(def time.Duration) time.Duration {
	d, _ := ParseDurationOrDefault("broadcast.poll_interval", c.Broadcast.PollInterval, def)
	return d
}
