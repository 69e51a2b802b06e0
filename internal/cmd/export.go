package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"aidebate/internal/export"
	"aidebate/internal/ui"
)

var (
	exportDir    string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export an archived debate to markdown",
	Long: `Export writes an archived debate to <dir>/debates/YYYY-MM-DD-topic.md.
The ID may be any unique prefix shown by "aidebate history".`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "output directory (default from config, then the working directory)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "print the markdown instead of writing a file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := requireArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := ui.LoadArchived(store, args[0])
	if err != nil {
		return err
	}

	if exportStdout {
		fmt.Fprint(cmd.OutOrStdout(), export.ExportDebate(doc))
		return nil
	}

	dir := exportDir
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = "."
	}
	path, err := export.WriteDebate(doc, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}
