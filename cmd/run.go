package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
)

var runPatterns []string
var runCoverConfigFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run tests with coverage collection",
		Long:  runLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := m.Path(".")
			if len(args) == 1 {
				root = m.Path(args[0])
			}

			err := orchestrator.Configure(domain.RunConfig{
				TestPatterns:       viper.GetStringSlice(patternConfigKey),
				CoverageConfigFile: viper.GetString(coverConfigKey),
			})
			if err != nil {
				return err
			}

			// Emission happens on every exit path, including an
			// interrupted run. Finalize is safe to invoke from both
			// the signal handler and the normal return below.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			defer signal.Stop(sigCh)

			go func() {
				sig := <-sigCh
				slog.Info("signal received, finalizing coverage", "signal", sig)

				if finalizeErr := orchestrator.Finalize(); finalizeErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), finalizeErr)
				}

				os.Exit(130)
			}()

			failures, runErr := orchestrator.Run(cmd.Context(), root)
			finalizeErr := orchestrator.Finalize()

			if runErr != nil {
				return runErr
			}

			if orchestrator.Armed() {
				ui.DisplayRunInfo(cmd.Context(), orchestrator.SourceCount())
			}

			ui.DisplayFailures(cmd.Context(), failures)

			if coverage := orchestrator.Coverage(); coverage != nil {
				if err := ui.DisplaySummary(cmd.Context(), domain.Summarize(coverage)); err != nil {
					return err
				}
			}

			if finalizeErr != nil {
				return finalizeErr
			}

			if failures > 0 {
				return fmt.Errorf("%d test(s) failed", failures)
			}

			return nil
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&runPatterns, patternFlagName, "t", viper.GetStringSlice(patternConfigKey), "test file glob (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(patternFlagName), patternConfigKey)

	cmd.Flags().StringVarP(&runCoverConfigFlag, coverConfigFlagName, "c", viper.GetString(coverConfigKey), "coverage config file, relative to the project root")
	bindFlagToConfig(cmd.Flags().Lookup(coverConfigFlagName), coverConfigKey)
}
