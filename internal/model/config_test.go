package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ReportFormat
		wantErr bool
	}{
		{"text", "text", FormatText, false},
		{"lcovonly", "lcovonly", FormatLCOVOnly, false},
		{"html", "html", FormatHTML, false},
		{"coverprofile", "coverprofile", FormatCoverProfile, false},
		{"unknown", "teamcity", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Text", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportFormat(tt.input)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedReportFormat)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoverOptions_Validate_Disabled(t *testing.T) {
	formats, err := CoverOptions{}.Validate()

	require.NoError(t, err)
	assert.Nil(t, formats)
}

func TestCoverOptions_Validate_MissingSourcePath(t *testing.T) {
	_, err := CoverOptions{Enabled: true}.Validate()

	require.ErrorIs(t, err, ErrMissingSourcePath)
}

func TestCoverOptions_Validate_DefaultFormat(t *testing.T) {
	formats, err := CoverOptions{Enabled: true, SourceDir: "src"}.Validate()

	require.NoError(t, err)
	assert.Equal(t, []ReportFormat{FormatLCOVOnly}, formats)
}

func TestCoverOptions_Validate_RejectsUnknownFormatEagerly(t *testing.T) {
	options := CoverOptions{
		Enabled:   true,
		SourceDir: "src",
		Reports:   ReportList{"text", "cobertura"},
	}

	_, err := options.Validate()

	require.ErrorIs(t, err, ErrUnsupportedReportFormat)
}

func TestCoverOptions_OutputDir(t *testing.T) {
	assert.Equal(t, "coverage", CoverOptions{}.OutputDir())
	assert.Equal(t, "artifacts", CoverOptions{CoverageDir: "artifacts"}.OutputDir())
}
