package main

import (
	"fmt"
	"strconv"
	"strings"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	tagsSession   string
	tagsClip      string
	tagsPlayType  string
	tagsImportant bool
	tagsLimit     int
	tagsJSON      bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Browse play tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List play tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := requestContext()
		defer cancel()

		q := filmroom.TagQuery{
			ListOptions: filmroom.ListOptions{Limit: tagsLimit},
			SessionID:   tagsSession,
			ClipID:      tagsClip,
			PlayType:    tagsPlayType,
		}
		if cmd.Flags().Changed("important") {
			q.IsImportant = &tagsImportant
		}

		page, err := client.Tags.List(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}

		if tagsJSON {
			return printJSON(page)
		}
		if len(page.Data) == 0 {
			fmt.Println("No tags found.")
			return nil
		}

		rows := make([][]string, 0, len(page.Data))
		for _, t := range page.Data {
			situation := "-"
			if t.Down > 0 {
				situation = fmt.Sprintf("Q%d %d&%d @%d", t.Quarter, t.Down, t.Distance, t.YardLine)
			}
			flags := ""
			if t.IsImportant {
				flags += "!"
			}
			if t.IsReviewed {
				flags += "R"
			}
			rows = append(rows, []string{
				shortID(t.ID),
				shortID(t.ClipID),
				situation,
				valueOrDefault(t.PlayType, "-"),
				valueOrDefault(t.Result, "-"),
				strconv.Itoa(t.YardsGained),
				strings.Join(t.Labels, ","),
				flags,
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Clip", "Situation", "Play", "Result", "Yds", "Labels", "Flags"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		))
		fmt.Printf("%d of %d tags\n", len(page.Data), page.Total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsListCmd)

	tagsListCmd.Flags().StringVar(&tagsSession, "session", "", "Filter by session ID")
	tagsListCmd.Flags().StringVar(&tagsClip, "clip", "", "Filter by clip ID")
	tagsListCmd.Flags().StringVar(&tagsPlayType, "play-type", "", "Filter by play type (run, pass, ...)")
	tagsListCmd.Flags().BoolVar(&tagsImportant, "important", false, "Only important tags")
	tagsListCmd.Flags().IntVarP(&tagsLimit, "limit", "n", 50, "Maximum number of tags to return")
	tagsListCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output raw JSON")
}
