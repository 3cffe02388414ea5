package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/events"
	"github.com/forge-ai/jsforge/shared/mq"
)

type worker struct {
	agent *codegen.Agent
	pub   mq.Publisher
}

// handle runs one queued request. Request-level failures are published as
// code.failed and are not returned; only undecodable bodies and publish
// errors are.
func (w *worker) handle(ctx context.Context, body []byte) error {
	p, err := events.Unwrap[events.CodeRequestedPayload](body)
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	log.Info().
		Str("request_id", p.RequestID).
		Str("mode", p.Mode).
		Bool("auto_save", p.AutoSave).
		Msg("handling queued request")

	out, err := w.agent.Handle(ctx, codegen.Request{
		Mode:     p.Mode,
		Prompt:   p.Prompt,
		Code:     p.Code,
		AutoSave: p.AutoSave,
		Filename: p.Filename,
	})
	if err != nil {
		return w.publish(ctx, events.CodeFailed, events.CodeFailedPayload{
			RequestID: p.RequestID, Mode: p.Mode, Error: err.Error(),
		})
	}

	if err := w.publish(ctx, out.EventKey(), events.CodeResultPayload{
		RequestID: p.RequestID,
		Mode:      out.Mode,
		Text:      out.Text,
		FilePath:  out.FilePath,
		Provider:  w.agent.ProviderName(),
	}); err != nil {
		return err
	}
	if out.FilePath != nil {
		return w.publish(ctx, events.CodeSaved, events.CodeSavedPayload{RequestID: p.RequestID, FilePath: *out.FilePath})
	}
	return nil
}

func (w *worker) publish(ctx context.Context, key string, payload any) error {
	b, err := events.Wrap(key, payload)
	if err != nil {
		return err
	}
	return w.pub.Publish(ctx, key, b)
}
