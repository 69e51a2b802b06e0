package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aidebate/internal/config"
	"aidebate/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived debates",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived debate",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// requireArchive opens the archive for commands that cannot work without it.
func requireArchive(cfg *config.Config) (*db.Store, error) {
	store, err := openArchive(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if store == nil {
		return nil, errors.New("archive is disabled in config")
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := requireArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	debates, err := store.ListDebates()
	if err != nil {
		return fmt.Errorf("failed to list debates: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(debates) == 0 {
		fmt.Fprintln(out, "No archived debates")
		return nil
	}
	for _, d := range debates {
		fmt.Fprintf(out, "%s  %s  %s\n", shortID(d.ID), d.CreatedAt.Format("2006-01-02 15:04"), d.Topic)
		fmt.Fprintf(out, "    %s, %s, AFF %.1f / NEG %.1f", d.Mode, d.Status, d.SideA, d.SideB)
		if d.Winner != "" {
			fmt.Fprintf(out, ", winner %s", d.Winner)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := requireArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// accepts an ID prefix, as printed by history
	d, err := store.GetDebate(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteDebate(d.ID); err != nil {
		return fmt.Errorf("failed to delete debate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(d.ID), d.Topic)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
