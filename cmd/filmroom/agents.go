package main

import (
	"fmt"
	"os"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	agentsStatus string
	agentsJSON   bool
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect capture agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered capture agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := requestContext()
		defer cancel()

		page, err := client.Agents.List(ctx, filmroom.AgentQuery{Status: filmroom.AgentStatus(agentsStatus)})
		if err != nil {
			return fmt.Errorf("failed to list agents: %w", err)
		}

		if agentsJSON {
			return printJSON(page)
		}
		if len(page.Data) == 0 {
			fmt.Println("No agents registered.")
			return nil
		}

		colorize := shouldColorize(os.Stdout)
		rows := make([][]string, 0, len(page.Data))
		for _, a := range page.Data {
			rows = append(rows, []string{
				shortID(a.ID),
				a.Name,
				statusCell(string(a.Status), colorize),
				valueOrDefault(shortID(a.ChannelID), "-"),
				valueOrDefault(shortID(a.SessionID), "-"),
				valueOrDefault(a.Hostname, "-"),
				valueOrDefault(a.Version, "-"),
				formatAgo(a.LastSeenAt),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Name", "Status", "Channel", "Session", "Host", "Version", "Last seen"},
			rows,
			nil,
		))
		fmt.Printf("%d of %d agents\n", len(page.Data), page.Total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd)

	agentsListCmd.Flags().StringVar(&agentsStatus, "status", "", "Filter by status (online, recording, error, offline)")
	agentsListCmd.Flags().BoolVar(&agentsJSON, "json", false, "Output raw JSON")
}
