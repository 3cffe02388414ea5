package codegen

import (
	"context"
	"errors"

	"github.com/forge-ai/jsforge/shared/events"
)

const (
	ModeGenerate = "generate"
	ModeImprove  = "improve"
)

var (
	ErrPromptRequired = errors.New("prompt is required for code generation")
	ErrCodeRequired   = errors.New("code is required for improvement")
	ErrInvalidMode    = errors.New("invalid mode")
)

// Request is one generate or improve call as accepted over HTTP or the queue.
type Request struct {
	Mode     string
	Prompt   string
	Code     string
	AutoSave bool
	Filename string
}

// Validate checks the fields the selected mode needs.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeGenerate:
		if r.Prompt == "" {
			return ErrPromptRequired
		}
	case ModeImprove:
		if r.Code == "" {
			return ErrCodeRequired
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

// Outcome is the mode-independent result of Handle.
type Outcome struct {
	Mode     string
	Text     string
	FilePath *string
}

// EventKey is the routing key the outcome is published under.
func (o Outcome) EventKey() string {
	if o.Mode == ModeImprove {
		return events.CodeImproved
	}
	return events.CodeGenerated
}

// Input is the text the model was given for this request.
func (r Request) Input() string {
	if r.Mode == ModeImprove {
		return r.Code
	}
	return r.Prompt
}

// Handle validates req and routes it to ProcessPrompt or ImproveCode.
func (a *Agent) Handle(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{Mode: req.Mode}, err
	}
	if req.Mode == ModeImprove {
		res, err := a.ImproveCode(ctx, req.Code, req.AutoSave, req.Filename)
		return Outcome{Mode: req.Mode, Text: res.Improved, FilePath: res.FilePath}, err
	}
	res, err := a.ProcessPrompt(ctx, req.Prompt, req.AutoSave, req.Filename)
	return Outcome{Mode: req.Mode, Text: res.Original, FilePath: res.FilePath}, err
}
