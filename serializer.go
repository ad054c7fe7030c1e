package glimpse

import (
	"encoding/json"
	"html"
)

// Serializer converts structured diagnostic data into bytes for persistence
// and for resource responses.
type Serializer interface {
	// Serialize encodes v. The content type of the encoding is reported by
	// ContentType.
	Serialize(v any) ([]byte, error)

	// ContentType returns the MIME type produced by Serialize.
	ContentType() string
}

// jsonSerializer is the default Serializer.
type jsonSerializer struct{}

// NewJSONSerializer returns a Serializer producing JSON.
func NewJSONSerializer() Serializer {
	return jsonSerializer{}
}

func (jsonSerializer) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerializer) ContentType() string {
	return "application/json; charset=utf-8"
}

// HTMLEncoder escapes text destined for HTML attribute and element content.
type HTMLEncoder interface {
	// Encode escapes s for safe inclusion in markup.
	Encode(s string) string
}

// htmlEncoder is the default HTMLEncoder.
type htmlEncoder struct{}

// NewHTMLEncoder returns the default HTMLEncoder.
func NewHTMLEncoder() HTMLEncoder {
	return htmlEncoder{}
}

func (htmlEncoder) Encode(s string) string {
	return html.EscapeString(s)
}
