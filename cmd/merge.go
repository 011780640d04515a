package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/tools/cover"

	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
)

const profileFlagName = "profile"

var mergeProfileFlag bool

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [snapshots...]",
		Short: "Merge coverage snapshots into one",
		Long: `Merge per-process coverage snapshots into a single coverage.json in the
output directory. Without arguments, every coverage*.json in the output
directory is merged. With --profile the inputs are Go cover profiles and
the result is a merged coverage.out instead.`,
		RunE: func(_ *cobra.Command, args []string) error {
			outDir := m.Path(viper.GetString(outputFlagName))

			if mergeProfileFlag {
				return mergeCoverProfiles(parsePaths(args), outDir)
			}

			return mergeSnapshotFiles(parsePaths(args), outDir)
		},
	}

	cmd.Flags().BoolVar(&mergeProfileFlag, profileFlagName, false, "merge Go cover profiles instead of raw snapshots")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func mergeSnapshotFiles(paths []m.Path, outDir m.Path) error {
	if len(paths) == 0 {
		var err error

		paths, err = snapshotStore.ListSnapshots(outDir)
		if err != nil {
			return err
		}
	}

	if len(paths) == 0 {
		return fmt.Errorf("no coverage snapshots in %s", outDir)
	}

	maps := make([]m.CoverageMap, 0, len(paths))

	for _, path := range paths {
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

	target := fsAdapter.JoinPath(string(outDir), "coverage.json")

	return snapshotStore.SaveSnapshot(target, merged)
}

func mergeCoverProfiles(paths []m.Path, outDir m.Path) error {
	if len(paths) == 0 {
		return fmt.Errorf("merge --profile requires at least one profile file")
	}

	var merged []*cover.Profile

	for _, path := range paths {
		profiles, err := cover.ParseProfiles(string(path))
		if err != nil {
			return fmt.Errorf("failed to parse profile %s: %w", path, err)
		}

		for _, profile := range profiles {
			merged, err = domain.AddProfile(merged, profile)
			if err != nil {
				return err
			}
		}
	}

	var buf bytes.Buffer
	if err := domain.DumpProfiles(merged, &buf); err != nil {
		return err
	}

	target := fsAdapter.JoinPath(string(outDir), "coverage.out")

	return fsAdapter.WriteFile(target, buf.Bytes(), 0o600)
}
