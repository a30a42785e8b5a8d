package main

import (
	"context"
	"fmt"
	"os"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	clipsSession  string
	clipsChannel  string
	clipsStatus   string
	clipsFavorite bool
	clipsSearch   string
	clipsLimit    int
	clipsJSON     bool
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "Browse generated clips",
}

var clipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clips, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := requestContext()
		defer cancel()

		q := filmroom.ClipQuery{
			ListOptions: filmroom.ListOptions{Limit: clipsLimit, SortBy: "created_at", SortOrder: "desc"},
			SessionID:   clipsSession,
			ChannelID:   clipsChannel,
			Status:      filmroom.ClipStatus(clipsStatus),
			Search:      clipsSearch,
		}
		if cmd.Flags().Changed("favorite") {
			q.Favorite = &clipsFavorite
		}

		page, err := client.Clips.List(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to list clips: %w", err)
		}

		if clipsJSON {
			return printJSON(page)
		}
		if len(page.Data) == 0 {
			fmt.Println("No clips found.")
			return nil
		}

		colorize := shouldColorize(os.Stdout)
		rows := make([][]string, 0, len(page.Data))
		for _, c := range page.Data {
			fav := ""
			if c.IsFavorite {
				fav = "*"
			}
			rows = append(rows, []string{
				shortID(c.ID),
				valueOrDefault(c.Title, "-"),
				statusCell(string(c.Status), colorize),
				formatSeconds(c.DurationSeconds),
				formatBytes(c.FileSizeBytes),
				fav,
				formatAgo(c.CreatedAt),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Title", "Status", "Duration", "Size", "Fav", "Created"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		))
		fmt.Printf("%d of %d clips\n", len(page.Data), page.Total)
		return nil
	},
}

func clipFavoriteCmd(use, short string, action func(*filmroom.ClipsClient, context.Context, string) (*filmroom.Clip, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <clip-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()

			ctx, cancel := requestContext()
			defer cancel()

			clip, err := action(client.Clips, ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to %s clip: %w", use, err)
			}
			if clipsJSON {
				return printJSON(clip)
			}
			state := "removed from"
			if clip.IsFavorite {
				state = "added to"
			}
			fmt.Printf("Clip %s %s favourites\n", clip.ID, state)
			return nil
		},
	}
}

var clipsURLCmd = &cobra.Command{
	Use:   "url <clip-id>",
	Short: "Print stream, thumbnail and download URLs for a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()
		id := args[0]
		fmt.Printf("Stream:    %s\n", client.Clips.StreamURL(id))
		fmt.Printf("Thumbnail: %s\n", client.Clips.ThumbnailURL(id))
		fmt.Printf("Download:  %s\n", client.Clips.DownloadURL(id))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clipsCmd)
	clipsCmd.AddCommand(
		clipsListCmd,
		clipFavoriteCmd("favorite", "Mark a clip as favourite", (*filmroom.ClipsClient).Favorite),
		clipFavoriteCmd("unfavorite", "Remove a clip from favourites", (*filmroom.ClipsClient).Unfavorite),
		clipsURLCmd,
	)

	clipsListCmd.Flags().StringVar(&clipsSession, "session", "", "Filter by session ID")
	clipsListCmd.Flags().StringVar(&clipsChannel, "channel", "", "Filter by channel ID")
	clipsListCmd.Flags().StringVar(&clipsStatus, "status", "", "Filter by status (pending, processing, ready, failed)")
	clipsListCmd.Flags().BoolVar(&clipsFavorite, "favorite", false, "Only favourites (or --favorite=false for the rest)")
	clipsListCmd.Flags().StringVar(&clipsSearch, "search", "", "Free-text search")
	clipsListCmd.Flags().IntVarP(&clipsLimit, "limit", "n", 20, "Maximum number of clips to return")
	clipsCmd.PersistentFlags().BoolVar(&clipsJSON, "json", false, "Output raw JSON")
}
