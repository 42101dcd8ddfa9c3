package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Manage translated series",
	}

	var genre, tone, language string
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Register a new series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			series, err := s.CreateSeries(cmd.Context(), args[0], genre, tone, language)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created series %s (%s)\n", series.Title, series.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&genre, "genre", "", "Series genre")
	addCmd.Flags().StringVar(&tone, "tone", "", "Tone notes for the translator")
	addCmd.Flags().StringVar(&language, "language", "Korean", "Source language")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered series",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			all, err := s.ListSeries(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(all))
			for _, series := range all {
				rows = append(rows, []string{series.ID, series.Title, series.Genre, series.SourceLanguage})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Genre", "Language"}, rows))
			return nil
		},
	}

	seriesCmd.AddCommand(addCmd, listCmd)
	return seriesCmd
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	chaptersCmd := &cobra.Command{
		Use:   "chapters",
		Short: "Manage chapters within a series",
	}

	listCmd := &cobra.Command{
		Use:   "list <series-id>",
		Short: "List a series' chapters and their pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			chapters, err := s.ListChapters(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(chapters))
			for _, chapter := range chapters {
				note := chapter.ErrorMessage
				rows = append(rows, []string{
					strconv.Itoa(chapter.Number),
					chapter.ID,
					string(chapter.Status),
					note,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "ID", "Status", "Note"}, rows))
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <series-id> <number>",
		Short: "Register a pending chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("chapter number %q is not an integer", args[1])
			}
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			chapter, err := s.CreateChapter(cmd.Context(), args[0], number)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created chapter %d (%s)\n", chapter.Number, chapter.ID)
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <chapter-id>",
		Short: "Show a chapter's translation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ListHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.CreatedAt.Format("2006-01-02 15:04"),
					entry.Reason,
					fmt.Sprintf("%d chars", len(entry.TranslatedText)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"When", "Reason", "Size"}, rows))
			return nil
		},
	}

	chaptersCmd.AddCommand(listCmd, addCmd, historyCmd)
	return chaptersCmd
}
