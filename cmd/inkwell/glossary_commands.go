package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inkwell/internal/glossary"
)

func newGlossaryCommand(ctx *commandContext) *cobra.Command {
	glossaryCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage a series' glossary terms",
	}

	listCmd := &cobra.Command{
		Use:   "list <series-id>",
		Short: "List glossary terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			terms, err := s.ListGlossaryTerms(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(terms))
			for _, term := range terms {
				auto := ""
				if term.AutoSuggested {
					auto = "auto"
				}
				rows = append(rows, []string{
					term.SourceTerm,
					term.TranslatedTerm,
					string(term.EntityType),
					string(term.Gender),
					string(term.Role),
					auto,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "Translation", "Type", "Gender", "Role", ""}, rows))
			return nil
		},
	}

	var entityType, gender, role, notes string
	addCmd := &cobra.Command{
		Use:   "add <series-id> <source-term> <translated-term>",
		Short: "Add or update a glossary term",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			term := glossary.Term{
				SourceTerm:     args[1],
				TranslatedTerm: args[2],
				EntityType:     glossary.EntityType(entityType),
				Gender:         glossary.Gender(gender),
				Role:           glossary.Role(role),
				Notes:          notes,
				Status:         glossary.StatusApproved,
			}
			if preserved, ok := glossary.LookupHonorific(term.SourceTerm); ok && term.TranslatedTerm != preserved.TranslatedTerm {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"warning: %q is a known honorific; it is normally kept as %q\n",
					term.SourceTerm, preserved.TranslatedTerm)
			}
			if err := s.UpsertGlossaryTerm(cmd.Context(), args[0], term); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s -> %s\n", term.SourceTerm, term.TranslatedTerm)
			return nil
		},
	}
	addCmd.Flags().StringVar(&entityType, "type", string(glossary.EntityTerm), "Entity type")
	addCmd.Flags().StringVar(&gender, "gender", string(glossary.GenderUnknown), "Character gender")
	addCmd.Flags().StringVar(&role, "role", string(glossary.RoleOther), "Narrative role")
	addCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	removeCmd := &cobra.Command{
		Use:   "remove <series-id> <source-term>",
		Short: "Remove a glossary term",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteGlossaryTerm(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[1])
			return nil
		},
	}

	var suggestText string
	var suggestSave bool
	suggestCmd := &cobra.Command{
		Use:   "suggest <series-id>",
		Short: "Detect candidate terms in source text and propose glossary entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := os.ReadFile(suggestText)
			if err != nil {
				return fmt.Errorf("reading source text: %w", err)
			}

			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			existing, err := s.GlossaryMap(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			candidates := glossary.DetectCandidates(string(source), existing)
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No new candidate terms found")
				return nil
			}

			resolver := glossary.NewResolver(cfg.Translator, ctx.ensureLogger())
			proposed := resolver.Propose(cmd.Context(), candidates, existing, string(source))
			if len(proposed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestions for the detected candidates")
				return nil
			}

			rows := make([][]string, 0, len(proposed))
			for _, term := range proposed {
				rows = append(rows, []string{
					term.SourceTerm,
					term.TranslatedTerm,
					string(term.EntityType),
					term.Notes,
				})
				if suggestSave {
					if err := s.UpsertGlossaryTerm(cmd.Context(), args[0], term); err != nil {
						return err
					}
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "Translation", "Type", "Notes"}, rows))
			if suggestSave {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d pending suggestions\n", len(proposed))
			}
			return nil
		},
	}
	suggestCmd.Flags().StringVar(&suggestText, "text", "", "Path to source text to scan")
	suggestCmd.Flags().BoolVar(&suggestSave, "save", false, "Persist suggestions as pending terms")
	_ = suggestCmd.MarkFlagRequired("text")

	glossaryCmd.AddCommand(listCmd, addCmd, removeCmd, suggestCmd)
	return glossaryCmd
}
