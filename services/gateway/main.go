// gateway is the HTTP face of jsforge.
//
//	POST /code          generate or improve JavaScript, optionally saving it
//	GET  /code/history  recent requests (when HISTORY_DB is set)
//	GET  /api/status    provider, workspace and client counts
//	GET  /metrics       Prometheus metrics
//	/ws                 live feed of code.* events
//
// With AMQP_URL set, results are published on RabbitMQ and relayed back to
// WebSocket clients, and "async": true requests are queued for the codegen worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/jsforge/services/gateway/internal"
	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/config"
	"github.com/forge-ai/jsforge/shared/history"
	"github.com/forge-ai/jsforge/shared/llm"
	"github.com/forge-ai/jsforge/shared/mq"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info().Msg("shutdown signal, stopping gateway")
		cancel()
	}()

	provider, err := llm.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("model provider")
	}
	ws, err := codegen.NewWorkspace(cfg.WorkDir, cfg.DefaultFilename)
	if err != nil {
		log.Fatal().Err(err).Msg("workspace")
	}

	var broker *mq.Broker
	if cfg.AMQPURL != "" {
		if broker, err = mq.New(cfg.AMQPURL); err != nil {
			log.Fatal().Err(err).Msg("mq connect")
		}
		defer broker.Close()
	}

	var hist *history.Store
	if cfg.HistoryDB != "" {
		if hist, err = history.Open(ctx, cfg.HistoryDB); err != nil {
			log.Fatal().Err(err).Msg("history")
		}
		defer hist.Close()
	}

	g := internal.New(cfg, codegen.NewAgent(provider, ws), broker, hist)

	log.Info().
		Str("provider", provider.Name()).
		Str("workspace", ws.Dir()).
		Bool("broker", broker != nil).
		Bool("history", hist != nil).
		Msg("gateway online")

	if err := g.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("gateway exited")
	}
}
