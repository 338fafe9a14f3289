package supervisor

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// responseCapture implements http.ResponseWriter over a memory buffer.
// Workers dispatch to the Application Object through one of these and then
// serialize the finished response onto the connection, so a handler that
// panics halfway through writing never puts a half-written response on the
// wire.
type responseCapture struct {
	req         *http.Request
	header      http.Header
	buf         bytes.Buffer
	status      int
	wroteHeader bool
}

func newResponseCapture(req *http.Request) *responseCapture {
	return &responseCapture{
		req:    req,
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Header returns the response header map.
func (c *responseCapture) Header() http.Header {
	return c.header
}

// WriteHeader records the status code. Only the first call has an effect.
func (c *responseCapture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
}

// Write buffers response body bytes.
func (c *responseCapture) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.buf.Write(b)
}

// DiscardAndError discards whatever the handler produced and replaces the
// response with a plain-text error. The worker's panic backstop uses it,
// and recovery middleware detects it through an interface assertion so a
// panic after partial output still yields a clean error response.
func (c *responseCapture) DiscardAndError(code int) {
	c.header = make(http.Header)
	c.header.Set("Content-Type", "text/plain; charset=utf-8")
	c.buf.Reset()
	c.buf.WriteString(http.StatusText(code) + "\n")
	c.status = code
	c.wroteHeader = true
}

// response builds the serializable response. The ContentLength field is
// authoritative; any Content-Length header the handler set is dropped.
func (c *responseCapture) response() *http.Response {
	header := c.header.Clone()
	header.Del("Content-Length")

	body := c.buf.Bytes()

	protoMajor, protoMinor := 1, 1
	if c.req != nil && c.req.ProtoMajor > 0 {
		protoMajor, protoMinor = c.req.ProtoMajor, c.req.ProtoMinor
	}

	return &http.Response{
		StatusCode:    c.status,
		ProtoMajor:    protoMajor,
		ProtoMinor:    protoMinor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       c.req,
	}
}

// errHeaderTooLarge is returned by headerLimitReader when a request's
// header section exceeds the configured limit.
var errHeaderTooLarge = errors.New("request header exceeds configured limit")

// headerLimitReader bounds the bytes read while parsing a request line and
// headers. The limit is re-armed before each request on a keep-alive
// connection and released once headers are parsed, so request bodies are
// not counted against it.
type headerLimitReader struct {
	r         io.Reader
	limit     int
	remaining int
	unlimited bool
	hitLimit  bool
}

func newHeaderLimitReader(r io.Reader, limit int) *headerLimitReader {
	return &headerLimitReader{
		r:         r,
		limit:     limit,
		remaining: limit,
		unlimited: limit <= 0,
	}
}

func (l *headerLimitReader) Read(p []byte) (int, error) {
	if l.unlimited {
		return l.r.Read(p)
	}
	if l.remaining <= 0 {
		l.hitLimit = true
		return 0, errHeaderTooLarge
	}
	if len(p) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= n
	return n, err
}

// release lifts the limit for the body phase of the current request.
func (l *headerLimitReader) release() {
	if l.limit > 0 {
		l.unlimited = true
	}
}

// reset re-arms the limit before parsing the next request.
func (l *headerLimitReader) reset() {
	if l.limit > 0 {
		l.unlimited = false
		l.remaining = l.limit
		l.hitLimit = false
	}
}
