package glimpse

import (
	"context"
	"fmt"
	"net/http"
)

// Result is the structured outcome of a resource execution. The runtime runs
// every Result through the result-execution boundary, which writes it to the
// adapter; a failure in that stage is caught and logged, never propagated.
type Result interface {
	// Respond writes the result to the host response.
	Respond(ctx context.Context, adapter Adapter, serializer Serializer) error
}

// StatusResult carries a status code and a descriptive message. It is used
// for policy denials (403), unknown resources (404) and ambiguous
// registrations (500).
type StatusResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewStatusResult creates a status result.
func NewStatusResult(code int, message string) *StatusResult {
	return &StatusResult{Code: code, Message: message}
}

// Respond writes the status and message to the host response.
func (r *StatusResult) Respond(ctx context.Context, adapter Adapter, serializer Serializer) error {
	body, err := serializer.Serialize(r)
	if err != nil {
		return fmt.Errorf("failed to serialize status result: %w", err)
	}
	return adapter.WriteResponse(r.Code, serializer.ContentType(), body)
}

// DataResult carries structured diagnostic data serialized into the
// response with a 200 status.
type DataResult struct {
	Data any
}

// NewDataResult creates a data result.
func NewDataResult(data any) *DataResult {
	return &DataResult{Data: data}
}

// Respond serializes the data to the host response.
func (r *DataResult) Respond(ctx context.Context, adapter Adapter, serializer Serializer) error {
	body, err := serializer.Serialize(r.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize data result: %w", err)
	}
	return adapter.WriteResponse(http.StatusOK, serializer.ContentType(), body)
}

// exceptionResult reports a resource execution failure without exposing the
// failure to the host request.
type exceptionResult struct {
	resource string
	err      error
}

// Respond writes a 500 with the failure summary.
func (r *exceptionResult) Respond(ctx context.Context, adapter Adapter, serializer Serializer) error {
	body, err := serializer.Serialize(map[string]string{
		"code":     "500",
		"resource": r.resource,
		"error":    r.err.Error(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize exception result: %w", err)
	}
	return adapter.WriteResponse(http.StatusInternalServerError, serializer.ContentType(), body)
}
