package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blutspende/qcgraph"
	"github.com/blutspende/qcgraph/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configuration, err := config.ReadConfiguration()
	if err != nil {
		log.Fatal().Err(err).Msg(config.MsgFailedToReadConfiguration)
	}

	zerolog.SetGlobalLevel(configuration.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if configuration.Development {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	service, err := qcgraph.NewWithConfiguration(ctx, &configuration)
	if err != nil {
		log.Fatal().Err(err).Msg("creating qcgraph service failed")
	}

	if err = service.Start(); err != nil {
		log.Fatal().Err(err).Msg(qcgraph.ApiFailedToStartMsg)
	}
}
