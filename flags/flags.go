package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/JokingLove/whale-alert-sync/common"
)

const envVarPrefix = "WHALE_ALERT"

func prefixEnvVars(name string) []string {
	return common.PrefixEnvVar(envVarPrefix, name)
}

var (
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "The lowest log level that will be output (trace, debug, info, warn, error, crit)",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Value:   "info",
	}

	// Database
	MasterDbHostFlag = &cli.StringFlag{
		Name:     "master-db-host",
		Usage:    "The host of the master database",
		EnvVars:  prefixEnvVars("MASTER_DB_HOST"),
		Required: true,
	}
	MasterDbPortFlag = &cli.IntFlag{
		Name:    "master-db-port",
		Usage:   "The port of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_PORT"),
		Value:   5432,
	}
	MasterDbUserFlag = &cli.StringFlag{
		Name:     "master-db-user",
		Usage:    "The user of the master database",
		EnvVars:  prefixEnvVars("MASTER_DB_USER"),
		Required: true,
	}
	MasterDbPasswordFlag = &cli.StringFlag{
		Name:    "master-db-password",
		Usage:   "The password of the master database",
		EnvVars: prefixEnvVars("MASTER_DB_PASSWORD"),
	}
	MasterDbNameFlag = &cli.StringFlag{
		Name:     "master-db-name",
		Usage:    "The db name of the master database",
		EnvVars:  prefixEnvVars("MASTER_DB_NAME"),
		Required: true,
	}

	// Feed
	FeedBaseUrlFlag = &cli.StringFlag{
		Name:    "feed-base-url",
		Usage:   "Base URL of the whale transaction feed API",
		EnvVars: prefixEnvVars("FEED_BASE_URL"),
		Value:   "https://api.whale-alert.io/v1",
	}
	FeedApiKeyFlag = &cli.StringFlag{
		Name:    "feed-api-key",
		Usage:   "API key of the whale transaction feed",
		EnvVars: prefixEnvVars("FEED_API_KEY"),
	}
	FeedMinCallIntervalFlag = &cli.DurationFlag{
		Name:    "feed-min-call-interval",
		Usage:   "Minimum delay between two feed calls",
		EnvVars: prefixEnvVars("FEED_MIN_CALL_INTERVAL"),
		Value:   100 * time.Millisecond,
	}
	FeedRequestTimeoutFlag = &cli.DurationFlag{
		Name:    "feed-request-timeout",
		Usage:   "Timeout of a single feed request",
		EnvVars: prefixEnvVars("FEED_REQUEST_TIMEOUT"),
		Value:   30 * time.Second,
	}

	// Poller
	PollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "Interval between two polling cycles",
		EnvVars: prefixEnvVars("POLL_INTERVAL"),
		Value:   5 * time.Minute,
	}
	CycleTimeoutFlag = &cli.DurationFlag{
		Name:    "cycle-timeout",
		Usage:   "Maximum duration of the fetch phase of one cycle",
		EnvVars: prefixEnvVars("CYCLE_TIMEOUT"),
		Value:   4 * time.Minute,
	}
	InitialLookbackFlag = &cli.DurationFlag{
		Name:    "initial-lookback",
		Usage:   "Window queried by the very first cycle",
		EnvVars: prefixEnvVars("INITIAL_LOOKBACK"),
		Value:   5 * time.Minute,
	}
	MaxWindowFlag = &cli.DurationFlag{
		Name:    "max-window",
		Usage:   "Maximum feed window; older checkpoints are clamped",
		EnvVars: prefixEnvVars("MAX_WINDOW"),
		Value:   time.Hour,
	}
	BlockchainsFlag = &cli.StringSliceFlag{
		Name:    "blockchains",
		Usage:   "Blockchains polled each cycle",
		EnvVars: prefixEnvVars("BLOCKCHAINS"),
		Value:   cli.NewStringSlice("bitcoin", "ethereum", "tron"),
	}
	MinValueUsdFlag = &cli.StringFlag{
		Name:    "min-value-usd",
		Usage:   "Minimum USD value of transactions requested from the feed",
		EnvVars: prefixEnvVars("MIN_VALUE_USD"),
		Value:   "100000",
	}
	FeedLimitFlag = &cli.IntFlag{
		Name:    "feed-limit",
		Usage:   "Maximum transactions requested per blockchain per cycle (max 256)",
		EnvVars: prefixEnvVars("FEED_LIMIT"),
		Value:   256,
	}
	WatchedAddressesFlag = &cli.StringSliceFlag{
		Name:    "watched-addresses",
		Usage:   "Addresses whose transactions are looked up every cycle",
		EnvVars: prefixEnvVars("WATCHED_ADDRESSES"),
	}

	// Notifier
	EntitlementFeatureFlag = &cli.StringFlag{
		Name:    "entitlement-feature",
		Usage:   "Feature name a user must be entitled to for whale alerts",
		EnvVars: prefixEnvVars("ENTITLEMENT_FEATURE"),
		Value:   "whale_alerts",
	}
	EmailRelayUrlFlag = &cli.StringFlag{
		Name:    "email-relay-url",
		Usage:   "Base URL of the email relay service; email channel is skipped when empty",
		EnvVars: prefixEnvVars("EMAIL_RELAY_URL"),
	}
	DefaultTimezoneFlag = &cli.StringFlag{
		Name:    "default-timezone",
		Usage:   "IANA timezone used for quiet hours when a subscriber has none",
		EnvVars: prefixEnvVars("DEFAULT_TIMEZONE"),
		Value:   "UTC",
	}

	// Redis
	RedisUrlFlag = &cli.StringFlag{
		Name:    "redis-url",
		Usage:   "Redis URL of the distributed cycle lock; in-process lock when empty",
		EnvVars: prefixEnvVars("REDIS_URL"),
	}
	RedisLockKeyFlag = &cli.StringFlag{
		Name:    "redis-lock-key",
		Usage:   "Key of the distributed cycle lock",
		EnvVars: prefixEnvVars("REDIS_LOCK_KEY"),
		Value:   "whale-alert:poll-cycle",
	}
	RedisLockTtlFlag = &cli.DurationFlag{
		Name:    "redis-lock-ttl",
		Usage:   "Expiry of the distributed cycle lock",
		EnvVars: prefixEnvVars("REDIS_LOCK_TTL"),
		Value:   5 * time.Minute,
	}

	// Kafka
	KafkaBrokersFlag = &cli.StringSliceFlag{
		Name:    "kafka-brokers",
		Usage:   "Kafka brokers receiving newly stored whale transactions; disabled when empty",
		EnvVars: prefixEnvVars("KAFKA_BROKERS"),
	}
	KafkaTopicFlag = &cli.StringFlag{
		Name:    "kafka-topic",
		Usage:   "Kafka topic of newly stored whale transactions",
		EnvVars: prefixEnvVars("KAFKA_TOPIC"),
		Value:   "whale-transactions",
	}

	// Status server
	HttpHostFlag = &cli.StringFlag{
		Name:    "http-host",
		Usage:   "Host of the status and metrics server; loopback unless a scraper needs outside access",
		EnvVars: prefixEnvVars("HTTP_HOST"),
		Value:   "127.0.0.1",
	}
	HttpPortFlag = &cli.IntFlag{
		Name:    "http-port",
		Usage:   "Port of the status and metrics server; 0 disables it",
		EnvVars: prefixEnvVars("HTTP_PORT"),
		Value:   8987,
	}
)

var requireFlags = []cli.Flag{
	MasterDbHostFlag,
	MasterDbUserFlag,
	MasterDbNameFlag,
}

var optionalFlags = []cli.Flag{
	LogLevelFlag,
	MasterDbPortFlag,
	MasterDbPasswordFlag,
	FeedBaseUrlFlag,
	FeedApiKeyFlag,
	FeedMinCallIntervalFlag,
	FeedRequestTimeoutFlag,
	PollIntervalFlag,
	CycleTimeoutFlag,
	InitialLookbackFlag,
	MaxWindowFlag,
	BlockchainsFlag,
	MinValueUsdFlag,
	FeedLimitFlag,
	WatchedAddressesFlag,
	EntitlementFeatureFlag,
	EmailRelayUrlFlag,
	DefaultTimezoneFlag,
	RedisUrlFlag,
	RedisLockKeyFlag,
	RedisLockTtlFlag,
	KafkaBrokersFlag,
	KafkaTopicFlag,
	HttpHostFlag,
	HttpPortFlag,
}

func init() {
	Flags = append(requireFlags, optionalFlags...)
}

var Flags []cli.Flag

// FeedFlags is the subset needed by commands that only talk to the feed.
var FeedFlags = []cli.Flag{
	LogLevelFlag,
	FeedBaseUrlFlag,
	FeedApiKeyFlag,
	FeedMinCallIntervalFlag,
	FeedRequestTimeoutFlag,
}

// EnvVarPrefix is exported for env var validation in main.
const EnvVarPrefix = envVarPrefix
