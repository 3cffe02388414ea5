// Package events defines the messages jsforge publishes on RabbitMQ and
// relays to WebSocket clients. Services share only this contract.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ── Routing keys (RabbitMQ topic exchange: jsforge.events) ───────────────────
const (
	CodeRequested = "code.requested"
	CodeGenerated = "code.generated"
	CodeImproved  = "code.improved"
	CodeSaved     = "code.saved"
	CodeFailed    = "code.failed"

	// ResultPattern matches every result key, used by relays.
	ResultPattern = "code.#"
)

// ── Envelope wraps every message ─────────────────────────────────────────────

type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func Wrap(routingKey string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload:    p,
	})
}

func Unwrap[T any](raw []byte) (*T, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var t T
	return &t, json.Unmarshal(env.Payload, &t)
}

func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	return &env, json.Unmarshal(raw, &env)
}

// ── Payload types ─────────────────────────────────────────────────────────────

// CodeRequestedPayload is a queued generate or improve request.
type CodeRequestedPayload struct {
	RequestID string `json:"request_id"`
	Mode      string `json:"mode"`
	Prompt    string `json:"prompt,omitempty"`
	Code      string `json:"code,omitempty"`
	AutoSave  bool   `json:"auto_save"`
	Filename  string `json:"filename,omitempty"`
}

// CodeResultPayload is published for code.generated and code.improved.
type CodeResultPayload struct {
	RequestID string  `json:"request_id"`
	Mode      string  `json:"mode"`
	Text      string  `json:"text"`
	FilePath  *string `json:"file_path"`
	Provider  string  `json:"provider"`
}

type CodeSavedPayload struct {
	RequestID string `json:"request_id"`
	FilePath  string `json:"file_path"`
}

type CodeFailedPayload struct {
	RequestID string `json:"request_id"`
	Mode      string `json:"mode"`
	Error     string `json:"error"`
}
