// codegen subscribes to code.requested, runs the request through the model
// and publishes code.generated, code.improved or code.failed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/config"
	"github.com/forge-ai/jsforge/shared/events"
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
	if cfg.AMQPURL == "" {
		log.Fatal().Str("key", "AMQP_URL").Msg("required env var missing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; cancel() }()

	provider, err := llm.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("model provider")
	}
	ws, err := codegen.NewWorkspace(cfg.WorkDir, cfg.DefaultFilename)
	if err != nil {
		log.Fatal().Err(err).Msg("workspace")
	}

	broker, err := mq.New(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("mq connect")
	}
	defer broker.Close()

	deliveries, err := broker.Subscribe("svc.codegen", events.CodeRequested)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}

	w := &worker{agent: codegen.NewAgent(provider, ws), pub: broker}
	log.Info().Str("provider", provider.Name()).Str("workspace", ws.Dir()).Msg("codegen worker started")

	// The workspace keeps one "last response", so requests run one at a time.
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Error().Msg("delivery channel closed")
				return
			}
			if err := w.handle(ctx, d.Body); err != nil {
				log.Error().Err(err).Msg("codegen error")
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}
}
