package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"covrun.dev/pkg/covrun/internal/controller"
	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously collected coverage",
		Long:  "View coverage from the snapshots in the output directory. Multiple per-process snapshots are merged before display.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			outDir := m.Path(viper.GetString(outputFlagName))

			snapshots, err := snapshotStore.ListSnapshots(outDir)
			if err != nil {
				return err
			}

			if len(snapshots) == 0 {
				return fmt.Errorf("no coverage snapshots in %s", outDir)
			}

			maps := make([]m.CoverageMap, 0, len(snapshots))

			for _, path := range snapshots {
				coverage, err := snapshotStore.LoadSnapshot(path)
				if err != nil {
					return err
				}

				maps = append(maps, coverage)
			}

			merged, err := domain.MergeSnapshots(maps)
			if err != nil {
				return err
			}

			summary := domain.Summarize(merged)

			if controller.IsTTY(os.Stdout) {
				return controller.NewTUI(cmd.OutOrStdout()).DisplayCoverageSummary(summary)
			}

			return ui.DisplaySummary(cmd.Context(), summary)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
