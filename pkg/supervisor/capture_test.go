package supervisor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseCaptureDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := newResponseCapture(req)

	if _, err := rec.Write([]byte("hello")); err != nil {
		t.Fatalf("Write error = %v", err)
	}

	resp := rec.response()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("implicit status = %d, want 200", resp.StatusCode)
	}
	if resp.ContentLength != 5 {
		t.Errorf("ContentLength = %d, want 5", resp.ContentLength)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestResponseCaptureFirstWriteHeaderWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := newResponseCapture(req)

	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)

	if resp := rec.response(); resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestResponseCaptureContentLengthAuthoritative(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := newResponseCapture(req)

	// A handler that lies about its length must not poison the connection.
	rec.Header().Set("Content-Length", "9999")
	_, _ = rec.Write([]byte("abc"))

	resp := rec.response()
	if resp.ContentLength != 3 {
		t.Errorf("ContentLength = %d, want 3", resp.ContentLength)
	}
	if got := resp.Header.Get("Content-Length"); got != "" {
		t.Errorf("Content-Length header = %q, want it removed", got)
	}
}

func TestResponseCaptureOverrideError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := newResponseCapture(req)

	rec.Header().Set("X-Leak", "secret")
	_, _ = rec.Write([]byte("partial output"))
	rec.DiscardAndError(http.StatusInternalServerError)

	resp := rec.response()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if resp.Header.Get("X-Leak") != "" {
		t.Error("override should discard handler headers")
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Internal Server Error\n" {
		t.Errorf("body = %q, want the status text", body)
	}
}

func TestResponseCaptureProtoFollowsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.ProtoMajor, req.ProtoMinor = 1, 0

	resp := newResponseCapture(req).response()
	if resp.ProtoMajor != 1 || resp.ProtoMinor != 0 {
		t.Errorf("proto = %d.%d, want 1.0", resp.ProtoMajor, resp.ProtoMinor)
	}
}
