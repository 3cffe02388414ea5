package internal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/config"
	"github.com/forge-ai/jsforge/shared/events"
	"github.com/forge-ai/jsforge/shared/history"
	"github.com/forge-ai/jsforge/shared/mq"
)

type historyStore interface {
	Record(ctx context.Context, e history.Entry) error
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Gateway serves POST /code and fans results out to WebSocket clients.
// The broker and history store are optional.
type Gateway struct {
	cfg     config.Config
	agent   *codegen.Agent
	hub     *Hub
	broker  *mq.Broker
	pub     mq.Publisher
	history historyStore
}

func New(cfg config.Config, agent *codegen.Agent, broker *mq.Broker, hist *history.Store) *Gateway {
	g := &Gateway{
		cfg:    cfg,
		agent:  agent,
		hub:    NewHub(),
		broker: broker,
	}
	if broker != nil {
		g.pub = broker
	}
	if hist != nil {
		g.history = hist
	}
	return g
}

// Run starts the hub, the HTTP API and, with a broker, the result relay.
func (g *Gateway) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error { return g.hub.Run(ctx) })
	eg.Go(func() error { return g.serveAPI(ctx) })

	if g.broker != nil {
		deliveries, err := g.broker.Subscribe("gateway.relay", events.ResultPattern)
		if err != nil {
			return fmt.Errorf("subscribe relay: %w", err)
		}
		eg.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return fmt.Errorf("relay channel closed")
					}
					g.relay(d.Body)
					d.Ack(false)
				}
			}
		})
	}

	return eg.Wait()
}

// relay forwards a broker message to WebSocket clients. Queued requests
// and bodies that are not envelopes stay off the feed.
func (g *Gateway) relay(body []byte) {
	env, err := events.UnwrapEnvelope(body)
	if err != nil {
		log.Warn().Err(err).Msg("relay: dropping malformed event")
		return
	}
	if env.RoutingKey == events.CodeRequested {
		return
	}
	g.hub.BroadcastRaw(body)
}

// emit publishes an event on the broker, or straight to the hub without one.
// With a broker the relay delivers it to the hub.
func (g *Gateway) emit(ctx context.Context, key string, payload any) {
	b, err := events.Wrap(key, payload)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("wrap event")
		return
	}
	if g.pub != nil {
		err := g.pub.Publish(ctx, key, b)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("key", key).Msg("publish failed, broadcasting locally")
	}
	g.hub.BroadcastRaw(b)
}

func (g *Gateway) record(ctx context.Context, e history.Entry) {
	if g.history == nil {
		return
	}
	if err := g.history.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("request_id", e.RequestID).Msg("history record failed")
	}
}
