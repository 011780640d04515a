package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ReportFormat identifies one of the known report renderers.
type ReportFormat string

// Known report formats. The set is closed; anything else is rejected
// with ErrUnsupportedReportFormat.
const (
	// FormatText renders a plain-text per-file summary table.
	FormatText ReportFormat = "text"
	// FormatLCOVOnly renders a line-coverage-only lcov.info file.
	FormatLCOVOnly ReportFormat = "lcovonly"
	// FormatHTML renders a single-page HTML report.
	FormatHTML ReportFormat = "html"
	// FormatCoverProfile renders a Go "mode: count" cover profile.
	FormatCoverProfile ReportFormat = "coverprofile"
)

// ErrUnsupportedReportFormat is returned for report-type identifiers
// outside the known set.
var ErrUnsupportedReportFormat = errors.New("unsupported report format")

// ParseReportFormat validates a report-type identifier.
func ParseReportFormat(name string) (ReportFormat, error) {
	switch ReportFormat(name) {
	case FormatText, FormatLCOVOnly, FormatHTML, FormatCoverProfile:
		return ReportFormat(name), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedReportFormat, name)
}

// DefaultCoverageDir is the output directory used when the coverage
// config omits relativeCoverageDir.
const DefaultCoverageDir = "coverage"

// ReportList holds the requested report format names. Hand-written
// configs sometimes carry a bare string or other non-list value here;
// any non-list decodes as empty so the default format applies instead
// of failing setup.
type ReportList []string

// UnmarshalJSON treats anything that is not a JSON array as unset.
func (r *ReportList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		*r = nil
		return nil
	}

	*r = names

	return nil
}

// UnmarshalYAML mirrors the JSON leniency for YAML configs.
func (r *ReportList) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		*r = nil
		return nil
	}

	*r = names

	return nil
}

// CoverOptions is the coverage configuration read from the coverage
// config file at setup.
type CoverOptions struct {
	Enabled        bool       `json:"enabled"         yaml:"enabled"`
	SourceDir      string     `json:"relativeSourcePath"  yaml:"relativeSourcePath"`
	IgnorePatterns []string   `json:"ignorePatterns"  yaml:"ignorePatterns"`
	CoverageDir    string     `json:"relativeCoverageDir" yaml:"relativeCoverageDir"`
	IncludePid     bool       `json:"includePid"      yaml:"includePid"`
	Reports        ReportList `json:"reports"         yaml:"reports"`
}

// ErrMissingSourcePath is the fatal setup error for an enabled coverage
// config without relativeSourcePath.
var ErrMissingSourcePath = errors.New("coverage config: relativeSourcePath is required")

// Validate checks an enabled configuration and resolves the report
// format list eagerly, so bad identifiers fail setup instead of the
// last-chance emission step.
func (o CoverOptions) Validate() ([]ReportFormat, error) {
	if !o.Enabled {
		return nil, nil
	}

	if o.SourceDir == "" {
		return nil, ErrMissingSourcePath
	}

	if len(o.Reports) == 0 {
		return []ReportFormat{FormatLCOVOnly}, nil
	}

	formats := make([]ReportFormat, 0, len(o.Reports))

	for _, name := range o.Reports {
		format, err := ParseReportFormat(name)
		if err != nil {
			return nil, err
		}

		formats = append(formats, format)
	}

	return formats, nil
}

// OutputDir resolves the coverage output directory name.
func (o CoverOptions) OutputDir() string {
	if o.CoverageDir == "" {
		return DefaultCoverageDir
	}

	return o.CoverageDir
}
