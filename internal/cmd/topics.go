package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aidebate/internal/logging"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [category]",
	Short: "List debate topics offered by the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	category := ""
	if len(args) == 1 {
		category = args[0]
	}

	client := newClient(cfg, logging.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level))
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.HTTP.Timeout)*time.Second)
	defer cancel()

	topics, err := client.ListTopics(ctx, category)
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(topics) == 0 {
		fmt.Fprintln(out, "No topics")
		return nil
	}
	for _, t := range topics {
		fmt.Fprintf(out, "[%s] %s", t.ID, t.Title)
		if t.Category != "" {
			fmt.Fprintf(out, " (%s)", t.Category)
		}
		fmt.Fprintln(out)
		if t.Description != "" {
			fmt.Fprintf(out, "    %s\n", t.Description)
		}
	}
	return nil
}
