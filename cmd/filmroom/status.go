package main

import (
	"context"
	"fmt"
	"os"
	"time"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var statusProbeTimeout time.Duration

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().DurationVar(&statusProbeTimeout, "timeout", 5*time.Second, "How long to wait for the realtime connection")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and service status",
	Long:  "Display the current configuration, check that the API answers, and try to open the realtime event stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger(cfg.Log)

		rcfg, err := realtimeConfig(cfg, logger)
		if err != nil {
			return err
		}
		realtimeURL := rcfg.URL
		if realtimeURL == "" && cfg.Default.BaseURL != "" {
			realtimeURL, _ = filmroom.RealtimeURL(cfg.Default.BaseURL)
		}

		fmt.Println("Configuration:")
		fmt.Printf("  Base URL:     %s\n", valueOrDefault(cfg.Default.BaseURL, "(not set)"))
		fmt.Printf("  Realtime URL: %s\n", valueOrDefault(realtimeURL, "(not set)"))
		fmt.Printf("  Reconnect:    every %s, up to %d attempts\n",
			valueOrDefault(cfg.Realtime.ReconnectInterval, filmroom.DefaultReconnectInterval.String()),
			maxAttemptsOrDefault(cfg.Realtime.MaxReconnectAttempts))
		fmt.Printf("  Log:          %s (%s)\n", valueOrDefault(cfg.Log.Level, "info"), valueOrDefault(cfg.Log.Format, "text"))

		if cfg.Default.BaseURL == "" {
			fmt.Println()
			fmt.Println("Run 'filmroom init <base-url>' to configure the capture server.")
			return nil
		}

		colorize := shouldColorize(os.Stdout)
		client := newClient(cfg, logger)

		fmt.Println()
		fmt.Println("Live status:")

		ctx, cancel := requestContext()
		defer cancel()

		active, err := client.Sessions.List(ctx, filmroom.SessionQuery{
			ListOptions: filmroom.ListOptions{Limit: 1},
			Status:      filmroom.SessionActive,
		})
		if err != nil {
			fmt.Println(statusLine("API", false, err.Error(), colorize))
		} else {
			fmt.Println(statusLine("API", true, fmt.Sprintf("%d active session(s)", active.Total), colorize))
		}

		if agents, err := client.Agents.List(ctx, filmroom.AgentQuery{}); err == nil {
			online := 0
			for _, a := range agents.Data {
				if a.Status == filmroom.AgentOnline || a.Status == filmroom.AgentRecording {
					online++
				}
			}
			fmt.Println(statusLine("Agents", online > 0, fmt.Sprintf("%d of %d online", online, agents.Total), colorize))
		}

		rcfg.MaxReconnectAttempts = -1
		rc, err := client.Realtime(rcfg)
		if err != nil {
			fmt.Println(statusLine("Realtime", false, err.Error(), colorize))
			return nil
		}
		connected := probeRealtime(rc, statusProbeTimeout)
		msg := "connected"
		if !connected {
			msg = fmt.Sprintf("no connection within %s", statusProbeTimeout)
		}
		fmt.Println(statusLine("Realtime", connected, msg, colorize))
		return nil
	},
}

// probeRealtime connects once and reports whether the link came up in time.
func probeRealtime(rc *filmroom.RealtimeClient, timeout time.Duration) bool {
	up := make(chan bool, 1)
	rc.OnStatusChange(func(connected bool) {
		select {
		case up <- connected:
		default:
		}
	})
	defer rc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	rc.Connect()
	for {
		select {
		case c := <-up:
			if c {
				return true
			}
		case <-ticker.C:
			if rc.State() == filmroom.StateDisconnected {
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}

func maxAttemptsOrDefault(n int) int {
	if n == 0 {
		return filmroom.DefaultMaxReconnectAttempts
	}
	return n
}
