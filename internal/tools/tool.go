// Package tools exposes the table client to a conversational agent as a set
// of named tools.
//
// Two flavours exist. Low-level tools (airtable_*) mirror single client
// operations and return a structured payload with a "status" key.
// High-level tools (tasks_for_today, list_tasks, search_records) build a
// formula from catalog names, fetch, and return rendered text.
//
// Failures never escape as Go errors from a tool: every error is converted
// at this boundary. Low-level tools use Failure, which sets both the
// structured payload and the Describe text. High-level tools use
// TextFailure, which sets only the text.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is one capability offered to the agent.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for LLM context.
	Description() string

	// InputSchema returns the JSON Schema for tool parameters.
	InputSchema() *JSONSchema

	// Execute runs the tool. Arguments have already been validated against
	// InputSchema when called through a Registry.
	Execute(ctx context.Context, args map[string]any) *Result
}

// Result is the outcome of one tool call.
type Result struct {
	// Success is false when Error is set.
	Success bool `json:"success"`

	// Data is the structured payload: {"status": "success", ...} or
	// {"status": "error", "error": {...}}. Text results and text failures
	// carry {"status": ..., "text": ...} instead.
	Data map[string]any `json:"data"`

	// Text is what the agent reads. High-level tools render records here;
	// low-level tools carry the JSON encoding of Data.
	Text string `json:"text"`

	// Error is set on failure.
	Error *ResultError `json:"error,omitempty"`
}

// ResultError is the structured form of a failure.
type ResultError struct {
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
}

// Success wraps a payload; "status": "success" is added.
func Success(data map[string]any) *Result {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = "success"
	return &Result{Success: true, Data: data, Text: encode(data)}
}

// Text wraps a rendered message.
func Text(text string) *Result {
	return &Result{Success: true, Data: map[string]any{"status": "success", "text": text}, Text: text}
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"status":"error","error":{"kind":"UNKNOWN","message":"result is not JSON-encodable"}}`
	}
	return string(data)
}
