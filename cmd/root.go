// Package cmd provides the root command and CLI setup for covrun.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"covrun.dev/pkg/covrun/internal/adapter"
	"covrun.dev/pkg/covrun/internal/controller"
	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
)

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.SourceFSAdapter
var snapshotStore adapter.SnapshotStore
var testEngine adapter.TestEngine
var orchestrator *domain.Orchestrator
var ui controller.UI

// outputDirFlag is a root-level flag shared by commands that read/write
// coverage artifacts.
var outputDirFlag string

// excludePatterns is a root-level flag that filters source files for
// applicable commands.
var excludePatterns []string

// verboseFlag switches logging to debug level.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewSimpleUI(rootCmd)
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	snapshotStore = adapter.NewSnapshotStore(fsAdapter)
	testEngine = adapter.NewGoTestEngine(fsAdapter)
	orchestrator = domain.NewOrchestrator(fsAdapter, goFileAdapter, testEngine)
}

const rootLongDescription = `Covrun runs your test suite with coverage instrumentation. Source files
are rewritten on the fly as they are loaded, execution counts are
recorded per statement, branch and function, and a merged coverage
report is written when the run finishes. Files never touched by the
tests still appear in the report with zeroed counters.`

const runLongDescription = `Run the test suite with coverage collection (default: current directory).

Coverage is configured by a JSON or YAML file in the project root
(default: .covrun.json). Without that file the tests run unmodified and
no report is produced.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "covrun",
		Short: "Test runner with on-the-fly coverage instrumentation",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&outputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for coverage reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "enable debug logging")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
