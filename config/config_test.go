package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/JokingLove/whale-alert-sync/flags"
)

func validConfig() Config {
	return Config{
		Feed: FeedConfig{
			BaseUrl:         "https://api.whale-alert.io/v1",
			ApiKey:          "key",
			MinCallInterval: 100 * time.Millisecond,
			RequestTimeout:  30 * time.Second,
		},
		Poller: PollerConfig{
			Interval:        5 * time.Minute,
			CycleTimeout:    4 * time.Minute,
			InitialLookback: 5 * time.Minute,
			MaxWindow:       time.Hour,
			Blockchains:     []string{"bitcoin", "ethereum"},
			MinValueUsd:     decimal.NewFromInt(100_000),
			Limit:           256,
		},
		Notifier: NotifierConfig{DefaultTimezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing api key", func(c *Config) { c.Feed.ApiKey = "" }},
		{"no blockchains", func(c *Config) { c.Poller.Blockchains = nil }},
		{"zero interval", func(c *Config) { c.Poller.Interval = 0 }},
		{"limit too large", func(c *Config) { c.Poller.Limit = 257 }},
		{"limit zero", func(c *Config) { c.Poller.Limit = 0 }},
		{"negative threshold", func(c *Config) { c.Poller.MinValueUsd = decimal.NewFromInt(-1) }},
		{"bad timezone", func(c *Config) { c.Notifier.DefaultTimezone = "Mars/Olympus" }},
		{"zero min call interval", func(c *Config) { c.Feed.MinCallInterval = 0 }},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"bitcoin", "ethereum", "tron"}, splitList([]string{"bitcoin, ethereum", "", "tron"}))
	require.Nil(t, splitList(nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg Config
	app := &cli.App{
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			var err error
			cfg, err = LoadConfig(ctx)
			return err
		},
	}
	require.NoError(t, app.Run([]string{"whale-alert",
		"--master-db-host", "localhost",
		"--master-db-user", "whale",
		"--master-db-name", "whale_alert",
	}))

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 100*time.Millisecond, cfg.Feed.MinCallInterval)
	require.Equal(t, []string{"bitcoin", "ethereum", "tron"}, cfg.Poller.Blockchains)
	require.True(t, decimal.NewFromInt(100_000).Equal(cfg.Poller.MinValueUsd))
}
