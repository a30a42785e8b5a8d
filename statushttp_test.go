package filmroom

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusHandler(t *testing.T) {
	h := newHarness(t, nil)
	handler := StatusHandler(h.rc)

	t.Run("disconnected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
		var resp StatusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Connected || resp.State != StateDisconnected {
			t.Errorf("unexpected body %+v", resp)
		}
	})

	t.Run("connected", func(t *testing.T) {
		h.connected(t)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		var resp StatusResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if !resp.Connected || resp.State != StateConnected || resp.Attempts != 0 || resp.RetryPending {
			t.Errorf("unexpected body %+v", resp)
		}
	})

	t.Run("reconnecting reports attempts", func(t *testing.T) {
		h.net.last(t).events.OnClose(1006, "")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var resp StatusResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.State != StateReconnecting || resp.Attempts != 1 || !resp.RetryPending {
			t.Errorf("unexpected body %+v", resp)
		}
	})

	t.Run("head has no body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/status", nil))
		if rec.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", rec.Body.String())
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "GET, HEAD" {
			t.Errorf("unexpected Allow header %q", got)
		}
	})
}
