// Package glimpsehttp binds the glimpse runtime to net/http hosts. It
// provides the Adapter implementation over a buffered response, a middleware
// that drives the request lifecycle, and a context-based request id tracker.
package glimpsehttp

import (
	"bytes"
	"net"
	"net/http"
	"strings"

	"github.com/glimpse-go/glimpse"
)

// bufferedResponse captures the downstream response so diagnostics can
// decorate it (headers, cookies, injected markup) after the host handler has
// run. Nothing reaches the wire until flush.
type bufferedResponse struct {
	w      http.ResponseWriter
	header http.Header
	buf    bytes.Buffer
	status int
}

func newBufferedResponse(w http.ResponseWriter) *bufferedResponse {
	return &bufferedResponse{w: w, header: make(http.Header)}
}

// Header implements http.ResponseWriter.
func (b *bufferedResponse) Header() http.Header { return b.header }

// WriteHeader implements http.ResponseWriter. Only the first status sticks.
func (b *bufferedResponse) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

// Write implements http.ResponseWriter.
func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.buf.Write(p)
}

// inject inserts markup before the closing body tag, or appends it when the
// response has no such tag.
func (b *bufferedResponse) inject(content string) {
	body := b.buf.Bytes()
	idx := lastIndexFold(body, "</body>")
	if idx < 0 {
		b.buf.WriteString(content)
		return
	}

	var out bytes.Buffer
	out.Grow(len(body) + len(content))
	out.Write(body[:idx])
	out.WriteString(content)
	out.Write(body[idx:])
	b.buf = out
}

// replace swaps the buffered response for a resource result.
func (b *bufferedResponse) replace(status int, contentType string, body []byte) {
	b.buf.Reset()
	b.status = status
	b.header.Set("Content-Type", contentType)
	b.buf.Write(body)
}

// flush writes the buffered response to the wire.
func (b *bufferedResponse) flush() error {
	dst := b.w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.w.WriteHeader(b.status)
	_, err := b.w.Write(b.buf.Bytes())
	return err
}

// lastIndexFold returns the last ASCII case-insensitive occurrence of sub in
// body. The fold is byte-wise so the returned index is valid for the original
// bytes; a Unicode-aware lowering can change byte lengths and shift offsets.
func lastIndexFold(body []byte, sub string) int {
	lowered := make([]byte, len(body))
	for i, c := range body {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		lowered[i] = c
	}
	return bytes.LastIndex(lowered, []byte(strings.ToLower(sub)))
}

// adapter implements glimpse.Adapter for a single net/http exchange.
type adapter struct {
	resp       *bufferedResponse
	meta       *requestMetadata
	cookiePath string
}

// NewAdapter wraps an http exchange in a glimpse.Adapter. The response
// writer must be the bufferedResponse the middleware created; callers
// integrating without the middleware should use Middleware instead.
func newAdapter(resp *bufferedResponse, req *http.Request, clientCookieName string) *adapter {
	return &adapter{
		resp: resp,
		meta: &requestMetadata{req: req, clientCookieName: clientCookieName},
	}
}

// Metadata returns the read-only request metadata.
func (a *adapter) Metadata() glimpse.RequestMetadata { return a.meta }

// SetResponseHeader sets a response header on the buffered response.
func (a *adapter) SetResponseHeader(name, value string) {
	a.resp.Header().Set(name, value)
}

// SetCookie sets a response cookie on the buffered response.
func (a *adapter) SetCookie(name, value string) {
	http.SetCookie(a.resp, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	})
}

// InjectResponseBody inserts markup before the response's closing body tag.
func (a *adapter) InjectResponseBody(content string) error {
	a.resp.inject(content)
	return nil
}

// WriteResponse replaces the buffered response with a resource result.
func (a *adapter) WriteResponse(status int, contentType string, body []byte) error {
	a.resp.replace(status, contentType, body)
	return nil
}

// requestMetadata implements glimpse.RequestMetadata over *http.Request.
type requestMetadata struct {
	req              *http.Request
	clientCookieName string
}

func (m *requestMetadata) RequestURI() string { return m.req.URL.RequestURI() }

func (m *requestMetadata) Method() string { return m.req.Method }

func (m *requestMetadata) Header(name string) string { return m.req.Header.Get(name) }

func (m *requestMetadata) Cookie(name string) (string, bool) {
	c, err := m.req.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (m *requestMetadata) ClientID() string {
	value, _ := m.Cookie(m.clientCookieName)
	return value
}

func (m *requestMetadata) IsLocal() bool {
	host, _, err := net.SplitHostPort(m.req.RemoteAddr)
	if err != nil {
		host = m.req.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
