package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

var (
	watchEvents []string
	watchListen string
	watchJSON   bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVarP(&watchEvents, "event", "e", nil, "Only print these event types (repeatable)")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Serve connection status over HTTP on this address (e.g. :8090)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print each event as a JSON line")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live capture events",
	Long: "Connect to the realtime endpoint and print clip and session events as they arrive.\n" +
		"The connection is retried automatically; press Ctrl+C to stop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := parseEventTypes(watchEvents)
		if err != nil {
			return err
		}

		cfg := mustLoadConfig()
		logger := newLogger(cfg.Log)
		client := newClient(cfg, logger)

		rcfg, err := realtimeConfig(cfg, logger)
		if err != nil {
			return err
		}
		rc, err := client.Realtime(rcfg)
		if err != nil {
			return fmt.Errorf("failed to set up realtime client: %w", err)
		}
		defer rc.Close()

		p := &eventPrinter{json: watchJSON, colorize: shouldColorize(os.Stdout)}
		for _, t := range types {
			rc.Subscribe(t, func(payload json.RawMessage) error {
				return p.event(t, payload)
			})
		}
		rc.OnStatusChange(p.status)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watchListen != "" {
			srv := &http.Server{
				Addr:              watchListen,
				Handler:           statusRoutes(rc),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("status server failed", "addr", watchListen, "error", err)
					stop()
				}
			}()
			defer shutdown(srv, logger)
			logger.Info("serving status", "addr", watchListen)
		}

		rc.Connect()
		<-ctx.Done()
		return nil
	},
}

// statusRoutes exposes the realtime link state for health checks.
func statusRoutes(rc *filmroom.RealtimeClient) http.Handler {
	r := chi.NewRouter()
	r.Handle("/status", filmroom.StatusHandler(rc))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return r
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("status server shutdown", "error", err)
	}
}

func parseEventTypes(names []string) ([]filmroom.EventType, error) {
	if len(names) == 0 {
		return filmroom.EventTypes, nil
	}
	types := make([]filmroom.EventType, 0, len(names))
	for _, n := range names {
		t, err := filmroom.ParseEventType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ============================================================================
// Event printing
// ============================================================================

type eventPrinter struct {
	mu       sync.Mutex
	json     bool
	colorize bool
}

func (p *eventPrinter) status(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		return
	}
	state := "disconnected"
	if connected {
		state = "connected"
	}
	fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), statusCell(state, p.colorize))
}

func (p *eventPrinter) event(t filmroom.EventType, payload json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		line, err := json.Marshal(filmroom.Envelope{Type: t, Payload: payload})
		if err != nil {
			return err
		}
		fmt.Println(string(line))
		return nil
	}

	summary, err := summarize(t, payload, p.colorize)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %-18s %s\n", time.Now().Format(time.TimeOnly), t, summary)
	return nil
}

// summarize renders a one-line description of an event payload.
func summarize(t filmroom.EventType, payload json.RawMessage, colorize bool) (string, error) {
	switch t {
	case filmroom.EventClipCreated, filmroom.EventClipReady:
		var p filmroom.ClipReadyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("clip %s %s %s on %s", shortID(p.Clip.ID),
			statusCell(string(p.Clip.Status), colorize),
			formatSeconds(p.Clip.DurationSeconds), shortID(p.Clip.ChannelID)), nil
	case filmroom.EventClipFailed:
		var p filmroom.ClipFailedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", err
		}
		return paint(fmt.Sprintf("clip %s failed on %s: %s",
			valueOrDefault(shortID(p.ClipID), "?"), shortID(p.ChannelID), p.Error), ansiRed, colorize), nil
	case filmroom.EventClipSegmentReady:
		var p filmroom.ClipSegmentReadyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", err
		}
		final := ""
		if p.IsFinal {
			final = " (final)"
		}
		return fmt.Sprintf("segment #%d of play %s on %s%s", p.Sequence, shortID(p.PlayID), shortID(p.ChannelID), final), nil
	case filmroom.EventSessionStart, filmroom.EventSessionEnd:
		var p filmroom.SessionEventPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("session %s %q %s", shortID(p.Session.ID), p.Session.Name,
			statusCell(string(p.Session.Status), colorize)), nil
	}
	return string(payload), nil
}
