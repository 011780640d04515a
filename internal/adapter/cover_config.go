package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "covrun.dev/pkg/covrun/internal/model"
)

// ErrNoCoverConfig signals that the coverage config file does not
// exist. Callers treat this the same as "coverage not requested".
var ErrNoCoverConfig = errors.New("coverage config file not found")

// LoadCoverOptions reads the coverage config file at the given path.
// JSON is the canonical format; .yaml/.yml files are also accepted.
func LoadCoverOptions(fsAdapter SourceFSAdapter, path m.Path) (m.CoverOptions, error) {
	var opts m.CoverOptions

	content, err := fsAdapter.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opts, ErrNoCoverConfig
		}

		return opts, fmt.Errorf("failed to read coverage config %s: %w", path, err)
	}

	switch filepath.Ext(string(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &opts); err != nil {
			return opts, fmt.Errorf("failed to parse coverage config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(content, &opts); err != nil {
			return opts, fmt.Errorf("failed to parse coverage config %s: %w", path, err)
		}
	}

	return opts, nil
}
