package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/events"
	"github.com/forge-ai/jsforge/shared/history"
	"github.com/forge-ai/jsforge/shared/metrics"
)

type ctxKey struct{}

// maxBodyBytes caps a /code body; prompts and code snippets are far smaller.
const maxBodyBytes = 1 << 20

func (g *Gateway) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + g.cfg.APIPort,
		Handler:      g.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // generation calls can be slow
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("addr", srv.Addr).Msg("gateway listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler is the full HTTP surface, wrapped in CORS and request ids.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /code", g.handleCode)
	mux.HandleFunc("GET /code/history", g.handleHistory)
	mux.HandleFunc("GET /api/status", g.handleStatus)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/ws", g.hub.ServeWS)

	return cors(withRequestID(mux))
}

type codeRequest struct {
	Mode     string `json:"mode"`
	Prompt   string `json:"prompt"`
	Code     string `json:"code"`
	AutoSave bool   `json:"auto_save"`
	Filename string `json:"filename"`
	Async    bool   `json:"async"`
}

func (g *Gateway) handleCode(w http.ResponseWriter, r *http.Request) {
	rid := requestID(r)

	var body codeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		metrics.RequestsTotal.WithLabelValues(modeLabel(""), "invalid").Inc()
		jsonErr(w, "invalid body", 400)
		return
	}
	req := codegen.Request{
		Mode:     body.Mode,
		Prompt:   body.Prompt,
		Code:     body.Code,
		AutoSave: body.AutoSave,
		Filename: body.Filename,
	}
	if err := req.Validate(); err != nil {
		metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), "invalid").Inc()
		jsonErr(w, detailFor(err), 400)
		return
	}

	if body.Async && g.pub != nil {
		g.enqueue(w, r, rid, req)
		return
	}

	logger := log.With().Str("request_id", rid).Str("mode", req.Mode).Logger()
	logger.Info().Msg("handling code request")

	out, err := g.agent.Handle(r.Context(), req)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), "error").Inc()
		logger.Error().Err(err).Msg("code request failed")
		g.emit(r.Context(), events.CodeFailed, events.CodeFailedPayload{RequestID: rid, Mode: req.Mode, Error: err.Error()})
		if errors.Is(err, codegen.ErrBadFilename) {
			jsonErr(w, "Invalid filename.", 400)
			return
		}
		jsonErr(w, "save failed", 500)
		return
	}
	metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), "ok").Inc()

	g.publishOutcome(r.Context(), rid, out)
	entry := history.Entry{RequestID: rid, Mode: req.Mode, Input: req.Input(), Response: out.Text}
	if out.FilePath != nil {
		entry.FilePath = *out.FilePath
	}
	g.record(r.Context(), entry)

	jsonOK(w, renderOutcome(out), 200)
}

func (g *Gateway) enqueue(w http.ResponseWriter, r *http.Request, rid string, req codegen.Request) {
	b, _ := events.Wrap(events.CodeRequested, events.CodeRequestedPayload{
		RequestID: rid,
		Mode:      req.Mode,
		Prompt:    req.Prompt,
		Code:      req.Code,
		AutoSave:  req.AutoSave,
		Filename:  req.Filename,
	})
	if err := g.pub.Publish(r.Context(), events.CodeRequested, b); err != nil {
		metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), "error").Inc()
		jsonErr(w, "queue error", 500)
		return
	}
	metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), "queued").Inc()
	jsonOK(w, map[string]any{"request_id": rid, "status": "queued"}, 202)
}

func (g *Gateway) publishOutcome(ctx context.Context, rid string, out codegen.Outcome) {
	g.emit(ctx, out.EventKey(), events.CodeResultPayload{
		RequestID: rid,
		Mode:      out.Mode,
		Text:      out.Text,
		FilePath:  out.FilePath,
		Provider:  g.agent.ProviderName(),
	})
	if out.FilePath != nil {
		g.emit(ctx, events.CodeSaved, events.CodeSavedPayload{RequestID: rid, FilePath: *out.FilePath})
	}
}

// renderOutcome keeps the response shape clients of the endpoint expect:
// "original" for generate, "improved" for improve.
func renderOutcome(out codegen.Outcome) any {
	if out.Mode == codegen.ModeImprove {
		return codegen.ImproveResult{Improved: out.Text, FilePath: out.FilePath}
	}
	return codegen.GenerateResult{Original: out.Text, FilePath: out.FilePath}
}

// modeLabel keeps the metrics mode label to a fixed set whatever clients send.
func modeLabel(mode string) string {
	switch mode {
	case codegen.ModeGenerate, codegen.ModeImprove:
		return mode
	}
	return "unknown"
}

func detailFor(err error) string {
	switch {
	case errors.Is(err, codegen.ErrPromptRequired):
		return "Prompt is required for code generation."
	case errors.Is(err, codegen.ErrCodeRequired):
		return "Code is required for improvement."
	default:
		return "Invalid mode. Use 'generate' or 'improve'."
	}
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if g.history == nil {
		jsonOK(w, []history.Entry{}, 200)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := g.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("history query failed")
		jsonErr(w, "history unavailable", 500)
		return
	}
	jsonOK(w, items, 200)
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"status":       "online",
		"provider":     g.agent.ProviderName(),
		"clients":      g.hub.ClientCount(),
		"current_file": g.agent.Workspace().CurrentFile(),
		"broker":       g.brokerStatus(),
		"history":      g.history != nil,
	}, 200)
}

func (g *Gateway) brokerStatus() string {
	switch {
	case g.broker == nil:
		return "disabled"
	case g.broker.Healthy():
		return "connected"
	}
	return "down"
}

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// jsonErr writes {"detail": msg}, the error shape the endpoint has always used.
func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
