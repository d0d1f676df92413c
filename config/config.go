package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/JokingLove/whale-alert-sync/flags"
)

const maxFeedLimit = 256

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

type FeedConfig struct {
	BaseUrl         string
	ApiKey          string
	MinCallInterval time.Duration
	RequestTimeout  time.Duration
}

type PollerConfig struct {
	Interval         time.Duration
	CycleTimeout     time.Duration
	InitialLookback  time.Duration
	MaxWindow        time.Duration
	Blockchains      []string
	MinValueUsd      decimal.Decimal
	Limit            int
	WatchedAddresses []string
}

type NotifierConfig struct {
	EntitlementFeature string
	EmailRelayUrl      string
	DefaultTimezone    string
}

type RedisConfig struct {
	Url     string
	LockKey string
	LockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ServerConfig struct {
	Host string
	Port int
}

type Config struct {
	LogLevel string
	MasterDB DBConfig
	Feed     FeedConfig
	Poller   PollerConfig
	Notifier NotifierConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Server   ServerConfig
}

func LoadConfig(cliCtx *cli.Context) (Config, error) {
	minValue, err := decimal.NewFromString(cliCtx.String(flags.MinValueUsdFlag.Name))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", flags.MinValueUsdFlag.Name, err)
	}

	cfg := Config{
		LogLevel: cliCtx.String(flags.LogLevelFlag.Name),
		MasterDB: DBConfig{
			Host:     cliCtx.String(flags.MasterDbHostFlag.Name),
			Port:     cliCtx.Int(flags.MasterDbPortFlag.Name),
			Name:     cliCtx.String(flags.MasterDbNameFlag.Name),
			User:     cliCtx.String(flags.MasterDbUserFlag.Name),
			Password: cliCtx.String(flags.MasterDbPasswordFlag.Name),
		},
		Feed: LoadFeedConfig(cliCtx),
		Poller: PollerConfig{
			Interval:         cliCtx.Duration(flags.PollIntervalFlag.Name),
			CycleTimeout:     cliCtx.Duration(flags.CycleTimeoutFlag.Name),
			InitialLookback:  cliCtx.Duration(flags.InitialLookbackFlag.Name),
			MaxWindow:        cliCtx.Duration(flags.MaxWindowFlag.Name),
			Blockchains:      splitList(cliCtx.StringSlice(flags.BlockchainsFlag.Name)),
			MinValueUsd:      minValue,
			Limit:            cliCtx.Int(flags.FeedLimitFlag.Name),
			WatchedAddresses: splitList(cliCtx.StringSlice(flags.WatchedAddressesFlag.Name)),
		},
		Notifier: NotifierConfig{
			EntitlementFeature: cliCtx.String(flags.EntitlementFeatureFlag.Name),
			EmailRelayUrl:      cliCtx.String(flags.EmailRelayUrlFlag.Name),
			DefaultTimezone:    cliCtx.String(flags.DefaultTimezoneFlag.Name),
		},
		Redis: RedisConfig{
			Url:     cliCtx.String(flags.RedisUrlFlag.Name),
			LockKey: cliCtx.String(flags.RedisLockKeyFlag.Name),
			LockTTL: cliCtx.Duration(flags.RedisLockTtlFlag.Name),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(cliCtx.StringSlice(flags.KafkaBrokersFlag.Name)),
			Topic:   cliCtx.String(flags.KafkaTopicFlag.Name),
		},
		Server: ServerConfig{
			Host: cliCtx.String(flags.HttpHostFlag.Name),
			Port: cliCtx.Int(flags.HttpPortFlag.Name),
		},
	}
	return cfg, nil
}

// LoadFeedConfig reads only the feed flags, for commands that never touch the database.
func LoadFeedConfig(cliCtx *cli.Context) FeedConfig {
	return FeedConfig{
		BaseUrl:         cliCtx.String(flags.FeedBaseUrlFlag.Name),
		ApiKey:          cliCtx.String(flags.FeedApiKeyFlag.Name),
		MinCallInterval: cliCtx.Duration(flags.FeedMinCallIntervalFlag.Name),
		RequestTimeout:  cliCtx.Duration(flags.FeedRequestTimeoutFlag.Name),
	}
}

func (c FeedConfig) Validate() error {
	if c.ApiKey == "" {
		return fmt.Errorf("feed api key is not configured")
	}
	if c.BaseUrl == "" {
		return fmt.Errorf("feed base url is empty")
	}
	if c.MinCallInterval <= 0 {
		return fmt.Errorf("feed min call interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("feed request timeout must be positive")
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Feed.Validate(); err != nil {
		return err
	}
	if len(c.Poller.Blockchains) == 0 {
		return fmt.Errorf("no blockchains configured")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Poller.CycleTimeout <= 0 {
		return fmt.Errorf("cycle timeout must be positive")
	}
	if c.Poller.InitialLookback <= 0 || c.Poller.MaxWindow <= 0 {
		return fmt.Errorf("initial lookback and max window must be positive")
	}
	if c.Poller.Limit < 1 || c.Poller.Limit > maxFeedLimit {
		return fmt.Errorf("feed limit must be within [1, %d], got %d", maxFeedLimit, c.Poller.Limit)
	}
	if c.Poller.MinValueUsd.IsNegative() {
		return fmt.Errorf("min value usd must not be negative")
	}
	if _, err := time.LoadLocation(c.Notifier.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.Notifier.DefaultTimezone, err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka brokers configured without a topic")
	}
	return nil
}

// splitList accepts both repeated flags and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
