package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	sessionsStatus string
	sessionsType   string
	sessionsLimit  int
	sessionsJSON   bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage recording sessions",
	Long:  "List recording sessions and move them through their lifecycle.",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := requestContext()
		defer cancel()

		page, err := client.Sessions.List(ctx, filmroom.SessionQuery{
			ListOptions: filmroom.ListOptions{Limit: sessionsLimit, SortBy: "created_at", SortOrder: "desc"},
			Status:      filmroom.SessionStatus(sessionsStatus),
			SessionType: filmroom.SessionType(sessionsType),
		})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		if sessionsJSON {
			return printJSON(page)
		}
		if len(page.Data) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		colorize := shouldColorize(os.Stdout)
		rows := make([][]string, 0, len(page.Data))
		for _, s := range page.Data {
			rows = append(rows, []string{
				shortID(s.ID),
				s.Name,
				string(s.SessionType),
				statusCell(string(s.Status), colorize),
				strconv.Itoa(s.ClipCount),
				formatSeconds(s.TotalDurationSeconds),
				formatAgo(s.CreatedAt),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Name", "Type", "Status", "Clips", "Duration", "Created"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		fmt.Printf("%d of %d sessions\n", len(page.Data), page.Total)
		return nil
	},
}

type sessionAction func(*filmroom.SessionsClient, context.Context, string) (*filmroom.Session, error)

// sessionActionCmd builds a `sessions <verb> <id>` command.
func sessionActionCmd(use, short string, action sessionAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			ctx, cancel := requestContext()
			defer cancel()

			session, err := action(client.Sessions, ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to %s session: %w", use, err)
			}
			if sessionsJSON {
				return printJSON(session)
			}
			fmt.Printf("Session %s (%s) is now %s\n", session.ID, session.Name,
				statusCell(string(session.Status), shouldColorize(os.Stdout)))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(
		sessionActionCmd("start", "Start recording a session", (*filmroom.SessionsClient).Start),
		sessionActionCmd("pause", "Pause a recording session", (*filmroom.SessionsClient).Pause),
		sessionActionCmd("resume", "Resume a paused session", (*filmroom.SessionsClient).Resume),
		sessionActionCmd("complete", "Mark a session as completed", (*filmroom.SessionsClient).Complete),
		sessionActionCmd("archive", "Archive a completed session", (*filmroom.SessionsClient).Archive),
	)

	sessionsListCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status (scheduled, active, paused, completed, archived)")
	sessionsListCmd.Flags().StringVar(&sessionsType, "type", "", "Filter by session type (game, practice, scrimmage, training, other)")
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum number of sessions to return")
	sessionsCmd.PersistentFlags().BoolVar(&sessionsJSON, "json", false, "Output raw JSON")
}
