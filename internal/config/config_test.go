package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	require.Equal(t, "./output", cfg.OutputDir)
	require.Equal(t, "{variant}_{timestamp}_{uuid}", cfg.OutputFileFormat)
	require.Equal(t, FormatCSV, cfg.Format)
	require.Equal(t, "activity", cfg.Variant)
	require.Equal(t, "iati-activities", cfg.XMLRootElement)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, ".csv", cfg.Extension())
}

func TestLoadMainConfig(t *testing.T) {
	path := writeConfig(t, `
output_dir: /tmp/exports
format: xlsx
variant: sector
columns: [iati-identifier, sector]
csv_bom: true
xml_version: "2.03"
codelists_dir: ./codelists
log_level: debug
skip_invalid: true
strict_validation: true
write_summary: true
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	require.Equal(t, "/tmp/exports", cfg.OutputDir)
	require.Equal(t, FormatXLSX, cfg.Format)
	require.Equal(t, "sector", cfg.Variant)
	require.Equal(t, []string{"iati-identifier", "sector"}, cfg.Columns)
	require.True(t, cfg.CSVBOM)
	require.Equal(t, "2.03", cfg.XMLVersion)
	require.Equal(t, "./codelists", cfg.CodelistsDir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.SkipInvalid)
	require.True(t, cfg.StrictValidation)
	require.True(t, cfg.WriteSummary)
	require.Equal(t, ".xlsx", cfg.Extension())

	// Unset values still get defaults.
	require.Equal(t, "iati-activities", cfg.XMLRootElement)
}

func TestLoadMainConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown format", "format: pdf\n"},
		{"unknown variant", "variant: region\n"},
		{"unknown log level", "log_level: loud\n"},
		{"empty column", "columns: [title, \"\"]\n"},
		{"not yaml", "format: [csv\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}
