// Package codegen holds the prompt → generate → critique → save flow shared by
// the gateway, the console and the queue worker.
package codegen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/forge-ai/jsforge/shared/llm"
	"github.com/forge-ai/jsforge/shared/metrics"
)

const (
	SenderCodeGen = "CodeGen"
	SenderCritic  = "CriticAgent"
)

const criticPrompt = "Review the following JavaScript code. " +
	"Suggest improvements using arrow functions, const/let, and modern syntax.\n\n"

type GenerateResult struct {
	Original string  `json:"original"`
	FilePath *string `json:"file_path"`
}

type ImproveResult struct {
	Improved string  `json:"improved"`
	FilePath *string `json:"file_path"`
}

// Agent sequences calls to the model and the workspace.
type Agent struct {
	provider  llm.Provider
	workspace *Workspace
}

func NewAgent(provider llm.Provider, workspace *Workspace) *Agent {
	return &Agent{provider: provider, workspace: workspace}
}

func (a *Agent) Workspace() *Workspace { return a.workspace }

func (a *Agent) ProviderName() string { return a.provider.Name() }

// FailureText is what Ask returns in place of a reply when the model call fails.
func (a *Agent) FailureText() string {
	return fmt.Sprintf("Error: %s API failed.", a.provider.Name())
}

// Ask sends prompt to the model. Any provider error is logged and replaced by FailureText.
func (a *Agent) Ask(ctx context.Context, prompt string) string {
	name := a.provider.Name()
	log.Debug().Str("provider", name).Int("prompt_len", len(prompt)).Msg("sending prompt")

	start := time.Now()
	text, err := a.provider.Generate(ctx, prompt)
	metrics.ModelLatencySeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelErrorsTotal.WithLabelValues(name).Inc()
		log.Error().Err(err).Str("provider", name).Msg("model call failed")
		return a.FailureText()
	}
	return strings.TrimSpace(text)
}

// Improve asks the model to critique and modernise code.
func (a *Agent) Improve(ctx context.Context, code string) string {
	return a.Ask(ctx, criticPrompt+code)
}

// Receive records a reply as the latest response and, when autoSave is set and
// the reply looks like JavaScript, writes it to the workspace.
func (a *Agent) Receive(message, sender string, autoSave bool, filename string) (string, error) {
	content := strings.TrimSpace(message)
	if content == "" {
		log.Warn().Str("sender", sender).Msg("no usable content received")
		return "", nil
	}

	log.Debug().Str("sender", sender).Msg(content)
	a.workspace.Remember(content)

	if autoSave && LooksLikeJS(content) {
		return a.save(content, filename)
	}
	return "", nil
}

// ProcessPrompt sends the user's prompt unmodified and optionally saves the reply.
func (a *Agent) ProcessPrompt(ctx context.Context, prompt string, autoSave bool, filename string) (GenerateResult, error) {
	generated := a.Ask(ctx, prompt)
	path, err := a.Receive(generated, SenderCodeGen, autoSave, filename)
	if err != nil {
		return GenerateResult{Original: generated}, err
	}
	return GenerateResult{Original: generated, FilePath: optional(path)}, nil
}

// ImproveCode critiques code. With autoSave the reply is written unconditionally.
func (a *Agent) ImproveCode(ctx context.Context, code string, autoSave bool, filename string) (ImproveResult, error) {
	improved := a.Improve(ctx, code)
	var path string
	if autoSave {
		var err error
		if path, err = a.save(improved, filename); err != nil {
			return ImproveResult{Improved: improved}, err
		}
	}
	if _, err := a.Receive(improved, SenderCritic, false, filename); err != nil {
		return ImproveResult{Improved: improved}, err
	}
	return ImproveResult{Improved: improved, FilePath: optional(path)}, nil
}

// SaveLast writes the most recent reply, used by the console after a y/n question.
func (a *Agent) SaveLast(filename string) (string, error) {
	last := a.workspace.LastResponse()
	if last == "" {
		return "", fmt.Errorf("nothing to save")
	}
	return a.save(last, filename)
}

func (a *Agent) save(content, filename string) (string, error) {
	path, err := a.workspace.Save(content, filename)
	if err != nil {
		return "", err
	}
	metrics.FilesSavedTotal.Inc()
	return path, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
