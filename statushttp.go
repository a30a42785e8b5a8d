package filmroom

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is the body served by StatusHandler.
type StatusResponse struct {
	Connected    bool            `json:"connected"`
	State        ConnectionState `json:"state"`
	Attempts     int             `json:"attempts"`
	RetryPending bool            `json:"retry_pending"`
}

// StatusHandler returns an http.Handler reporting the realtime link state.
//
// Example:
//
//	http.Handle("/status", filmroom.StatusHandler(rc))
func StatusHandler(rc *RealtimeClient) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			rw.Header().Set("Allow", "GET, HEAD")
			rw.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(rw).Encode(map[string]string{"error": "Method not allowed"})
			return
		}

		state := rc.State()
		resp := StatusResponse{
			Connected:    state == StateConnected,
			State:        state,
			Attempts:     rc.Attempts(),
			RetryPending: rc.RetryPending(),
		}
		code := http.StatusOK
		if !resp.Connected {
			code = http.StatusServiceUnavailable
		}
		rw.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		json.NewEncoder(rw).Encode(resp)
	})
}
