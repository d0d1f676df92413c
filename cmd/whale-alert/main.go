package main

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"github.com/JokingLove/whale-alert-sync/common"
	"github.com/JokingLove/whale-alert-sync/flags"
)

var (
	GitCommit = ""
	GitDate   = ""
)

func main() {
	// a missing .env is fine, flags and the environment still apply
	_ = godotenv.Load()

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))
	common.ValidateEnvVars(flags.EnvVarPrefix, flags.Flags, log.Root())

	app := NewCli(GitCommit, GitDate)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Error("application failed", "err", err)
		os.Exit(1)
	}
}
