package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	whale_alert_sync "github.com/JokingLove/whale-alert-sync"
	"github.com/JokingLove/whale-alert-sync/common/address"
	"github.com/JokingLove/whale-alert-sync/common/cliapp"
	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/feedclient"
	flags2 "github.com/JokingLove/whale-alert-sync/flags"
	"github.com/JokingLove/whale-alert-sync/notifier"
	"github.com/JokingLove/whale-alert-sync/worker"
)

var (
	BlockchainFlag = &cli.StringFlag{
		Name:  "blockchain",
		Usage: "Blockchain identifier, e.g. bitcoin or ethereum",
	}
	HashFlag = &cli.StringFlag{
		Name:     "hash",
		Usage:    "Transaction hash",
		Required: true,
	}
	AddressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "Wallet address",
		Required: true,
	}
	SinceFlag = &cli.DurationFlag{
		Name:  "since",
		Usage: "How far back to look up address transactions",
		Value: time.Hour,
	}
)

func NewCli(GitCommit string, GitDate string) *cli.App {
	flags := flags2.Flags
	feedFlags := flags2.FeedFlags
	app := &cli.App{
		Version:              versionWithCommit(GitCommit, GitDate),
		Description:          "Whale transaction monitor: polls the whale feed, stores large transfers and alerts subscribers",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:        "sync",
				Flags:       flags,
				Description: "Run the polling loop and the status server",
				Action:      cliapp.LifecycleCmd(runWhaleAlertSync),
			},
			{
				Name:        "poll",
				Flags:       flags,
				Description: "Run a single polling cycle and print its summary",
				Action:      runPollOnce,
			},
			{
				Name:        "migrate",
				Flags:       flags,
				Description: "Apply database migrations",
				Action:      runMigrations,
			},
			{
				Name:        "feed-status",
				Flags:       feedFlags,
				Description: "Show the whale feed status per blockchain",
				Action:      runFeedStatus,
			},
			{
				Name:        "fetch-tx",
				Flags:       append([]cli.Flag{BlockchainFlag, HashFlag}, feedFlags...),
				Description: "Fetch a single transaction from the whale feed",
				Action:      runFetchTransaction,
			},
			{
				Name:        "lookup-address",
				Flags:       append([]cli.Flag{AddressFlag, SinceFlag}, feedFlags...),
				Description: "List recent whale transactions touching an address",
				Action:      runLookupAddress,
			},
			{
				Name:        "classify",
				Flags:       []cli.Flag{AddressFlag},
				Description: "Detect the blockchain of an address",
				Action:      runClassify,
			},
		},
	}
	// --log-level is a command flag, so the level is applied per command
	for _, cmd := range app.Commands {
		cmd.Before = setupLogging
	}
	return app
}

func versionWithCommit(gitCommit, gitDate string) string {
	version := "1.0.0"
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}

func setupLogging(ctx *cli.Context) error {
	lvl := ctx.String(flags2.LogLevelFlag.Name)
	if lvl == "" {
		return nil
	}
	level, err := log.LvlFromString(lvl)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true)))
	return nil
}

func loadValidConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		return config.Config{}, err
	}
	return cfg, nil
}

func runWhaleAlertSync(ctx *cli.Context, shutdown context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	log.Info("exec whale alert sync")
	cfg, err := loadValidConfig(ctx)
	if err != nil {
		return nil, err
	}
	return whale_alert_sync.NewWhaleAlertSync(ctx.Context, &cfg, shutdown)
}

func runPollOnce(ctx *cli.Context) error {
	cfg, err := loadValidConfig(ctx)
	if err != nil {
		return err
	}
	db, err := database.NewDB(ctx.Context, cfg.MasterDB)
	if err != nil {
		return err
	}
	defer db.Close()

	feed, err := feedclient.NewClient(cfg.Feed)
	if err != nil {
		return err
	}
	dispatcher, err := notifier.NewDispatcher(db, cfg.Notifier, clock.SystemClock)
	if err != nil {
		return err
	}
	poller, err := worker.NewPoller(cfg.Poller, db, feed, dispatcher, nil, nil, clock.SystemClock)
	if err != nil {
		return err
	}

	summary, cycleErr := poller.RunCycle(ctx.Context)
	if err := printJSON(summary); err != nil {
		return err
	}
	return cycleErr
}

func runMigrations(ctx *cli.Context) error {
	log.Info("running migrations...")
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Error("failed to load config", "err", err)
		return err
	}
	db, err := database.NewDB(ctx.Context, cfg.MasterDB)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		return err
	}
	defer func(db *database.DB) {
		if err := db.Close(); err != nil {
			log.Error("fail to close database", "err", err)
		}
	}(db)
	return db.RunMigrations(cfg.MasterDB.Name)
}

func newFeedClient(ctx *cli.Context) (*feedclient.Client, error) {
	cfg := config.LoadFeedConfig(ctx)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return feedclient.NewClient(cfg)
}

func runFeedStatus(ctx *cli.Context) error {
	feed, err := newFeedClient(ctx)
	if err != nil {
		return err
	}
	status, err := feed.Status(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runFetchTransaction(ctx *cli.Context) error {
	feed, err := newFeedClient(ctx)
	if err != nil {
		return err
	}
	blockchain, err := database.ParseBlockchain(ctx.String(BlockchainFlag.Name))
	if err != nil {
		return err
	}
	tx, err := feed.GetTransaction(ctx.Context, blockchain, ctx.String(HashFlag.Name))
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("transaction %s not found on %s", ctx.String(HashFlag.Name), blockchain)
	}
	return printJSON(tx)
}

func runLookupAddress(ctx *cli.Context) error {
	feed, err := newFeedClient(ctx)
	if err != nil {
		return err
	}
	normalized, blockchain, err := address.Normalize(ctx.String(AddressFlag.Name))
	if err != nil {
		return err
	}
	end := time.Now()
	start := end.Add(-ctx.Duration(SinceFlag.Name))
	txs := feed.GetAddressTransactions(ctx.Context, blockchain, normalized, start, end, feedclient.MaxLimit)
	log.Info("address lookup finished", "address", normalized, "blockchain", blockchain, "transactions", len(txs))
	return printJSON(txs)
}

func runClassify(ctx *cli.Context) error {
	normalized, blockchain, err := address.Normalize(ctx.String(AddressFlag.Name))
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", blockchain, normalized)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
