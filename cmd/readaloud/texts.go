package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/readaloud/internal/config"
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/store"
)

var (
	textsListLevel string
	textsAddLevel  string
	textsDB        string
)

func newTextsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "texts",
		Short: "Manage the custom text library",
	}
	cmd.PersistentFlags().StringVar(&textsDB, "db", "", "library database path (default: XDG data dir)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List custom texts",
		Args:  cobra.NoArgs,
		RunE:  runTextsListCmd,
	}
	list.Flags().StringVar(&textsListLevel, "level", "", "level filter")

	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a custom text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTextsAddCmd,
	}
	add.Flags().StringVar(&textsAddLevel, "level", string(model.Expert), "level for the text")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a custom text",
		Args:  cobra.ExactArgs(1),
		RunE:  runTextsRemoveCmd,
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func openLibrary() (*store.Store, error) {
	path := textsDB
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeLibrary(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runTextsListCmd(cmd *cobra.Command, _ []string) error {
	var level model.Difficulty
	if textsListLevel != "" {
		parsed, err := model.ParseDifficulty(textsListLevel)
		if err != nil {
			return fmt.Errorf("--level: %w", err)
		}
		level = parsed
	}
	st, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary(st)

	texts, err := st.ListTexts(cmd.Context(), level)
	if err != nil {
		return fmt.Errorf("failed to list texts: %w", err)
	}
	if len(texts) == 0 {
		logErrf("No custom texts. Add one with: readaloud texts add --level expert \"...\"\n")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, t := range texts {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Level, t.CreatedAt.Local().Format("2006-01-02"), t.Body); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runTextsAddCmd(cmd *cobra.Command, args []string) error {
	level, err := model.ParseDifficulty(textsAddLevel)
	if err != nil {
		return fmt.Errorf("--level: %w", err)
	}
	st, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary(st)

	id, err := st.AddText(cmd.Context(), level, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to add text: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "added text %d (%s)\n", id, level); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runTextsRemoveCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid text id %q", args[0])
	}
	st, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary(st)

	if err := st.RemoveText(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to remove text: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "removed text %d\n", id); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
