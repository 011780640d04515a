package cmd

import (
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"covrun.dev/pkg/covrun/internal/controller"
	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

const listLongDescription = `List coverable source files and the number of statements, branches and
functions that would be instrumented in each.`

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List source files and construct counts",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)
			if len(paths) == 0 {
				paths = []m.Path{"."}
			}

			inst := domain.NewInstrumenter(goFileAdapter, covrt.NewKey())
			counts := []controller.ConstructCount{}

			for _, root := range paths {
				sources, err := fsAdapter.DiscoverSources(root, viper.GetStringSlice(excludeConfigKey))
				if err != nil {
					return err
				}

				for _, source := range sources {
					content, err := fsAdapter.ReadFile(source)
					if err != nil {
						return err
					}

					if err := inst.Discover(content, source); err != nil {
						return err
					}

					meta, ok := inst.Meta(source)
					if !ok {
						continue
					}

					counts = append(counts, controller.ConstructCount{
						Path:       source,
						Statements: len(meta.Statements),
						Branches:   len(meta.Branches),
						Functions:  len(meta.Functions),
					})
				}
			}

			sort.Slice(counts, func(i, j int) bool { return counts[i].Path < counts[j].Path })

			return ui.DisplayConstructCounts(cmd.Context(), counts)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
