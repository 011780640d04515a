package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "covrun.dev/pkg/covrun/internal/model"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate default configuration files",
		Long: `Create a covrun.yaml in the current working directory populated with the
current CLI defaults, plus a starter .covrun.json coverage config, so
both can be edited manually.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := viper.SafeWriteConfigAs(targetPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			return writeDefaultCoverConfig()
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// writeDefaultCoverConfig creates a starter coverage config unless one
// already exists.
func writeDefaultCoverConfig() error {
	path := fsAdapter.JoinPath(configFolderPath, defaultCoverConfig)

	if _, err := fsAdapter.FileInfo(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	options := m.CoverOptions{
		Enabled:   true,
		SourceDir: ".",
		Reports:   m.ReportList{string(m.FormatLCOVOnly)},
	}

	content, err := json.MarshalIndent(options, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode coverage config: %w", err)
	}

	return fsAdapter.WriteFile(path, append(content, '\n'), 0o600)
}
