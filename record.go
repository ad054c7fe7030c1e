package glimpse

import (
	"time"

	"github.com/google/uuid"
)

// RequestRecord is the immutable snapshot of a request's diagnostic data,
// built once at EndRequest and never mutated after persistence.
type RequestRecord struct {
	ID             uuid.UUID      `json:"id"`
	RequestURI     string         `json:"requestUri"`
	Method         string         `json:"method"`
	ClientID       string         `json:"clientId"`
	TabResults     map[string]any `json:"tabResults"`
	DisplayResults map[string]any `json:"displayResults"`
	Duration       time.Duration  `json:"duration"`
	RecordedAt     time.Time      `json:"recordedAt"`
}

// buildRecord snapshots the context into a write-once record.
func buildRecord(rc *RequestContext) *RequestRecord {
	md := rc.Adapter().Metadata()
	return &RequestRecord{
		ID:             rc.ID(),
		RequestURI:     md.RequestURI(),
		Method:         md.Method(),
		ClientID:       md.ClientID(),
		TabResults:     rc.TabResults(),
		DisplayResults: rc.DisplayResults(),
		Duration:       rc.Duration(),
		RecordedAt:     time.Now(),
	}
}

// Metadata describes the runtime environment. It is written once at
// initialization so display clients can discover the registered resources.
type Metadata struct {
	Version     string            `json:"version"`
	Resources   map[string]string `json:"resources"`
	Environment map[string]string `json:"environment"`
}
