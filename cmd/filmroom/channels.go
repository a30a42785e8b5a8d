package main

import (
	"context"
	"fmt"
	"os"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	channelsStatus string
	channelsJSON   bool
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage capture channels",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List capture channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := requestContext()
		defer cancel()

		page, err := client.Channels.List(ctx, filmroom.ChannelQuery{
			Status: filmroom.ChannelStatus(channelsStatus),
		})
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		if channelsJSON {
			return printJSON(page)
		}
		if len(page.Data) == 0 {
			fmt.Println("No channels configured.")
			return nil
		}

		colorize := shouldColorize(os.Stdout)
		rows := make([][]string, 0, len(page.Data))
		for _, ch := range page.Data {
			seen := "-"
			if ch.LastSeenAt != nil {
				seen = formatAgo(*ch.LastSeenAt)
			}
			rows = append(rows, []string{
				shortID(ch.ID),
				ch.Name,
				valueOrDefault(ch.InputType, "-"),
				valueOrDefault(ch.Resolution, "-"),
				statusCell(string(ch.Status), colorize),
				seen,
				valueOrDefault(ch.ErrorMessage, ""),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Name", "Input", "Resolution", "Status", "Last seen", "Error"},
			rows,
			nil,
		))
		return nil
	},
}

func channelActionCmd(use, short string, action func(*filmroom.ChannelsClient, context.Context, string) (*filmroom.Channel, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <channel-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			ctx, cancel := requestContext()
			defer cancel()

			ch, err := action(client.Channels, ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to %s channel: %w", use, err)
			}
			if channelsJSON {
				return printJSON(ch)
			}
			fmt.Printf("Channel %s (%s) is now %s\n", ch.ID, ch.Name,
				statusCell(string(ch.Status), shouldColorize(os.Stdout)))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.AddCommand(
		channelsListCmd,
		channelActionCmd("activate", "Start capturing on a channel", (*filmroom.ChannelsClient).Activate),
		channelActionCmd("deactivate", "Stop capturing on a channel", (*filmroom.ChannelsClient).Deactivate),
	)

	channelsListCmd.Flags().StringVar(&channelsStatus, "status", "", "Filter by status (active, inactive, error)")
	channelsCmd.PersistentFlags().BoolVar(&channelsJSON, "json", false, "Output raw JSON")
}
