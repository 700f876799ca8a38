package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{variant}_{date}_{uuid}", ".csv", map[string]string{"variant": "country"})

	pattern := regexp.MustCompile(`^country_\d{8}_[0-9a-f-]{36}\.csv$`)
	require.Regexp(t, pattern, name)
}

func TestGenerateOutputFileNameKeepsExtension(t *testing.T) {
	require.Equal(t, "report.XLSX", GenerateOutputFileName("report.XLSX", ".xlsx", nil))
	require.Equal(t, "report", GenerateOutputFileName("report", "", nil))
}

func TestGenerateOutputFileNameSanitizesSeparators(t *testing.T) {
	name := GenerateOutputFileName("{input}", ".xml", map[string]string{"input": "a/b\\c"})
	require.Equal(t, "a_b_c.xml", name)
}

func TestOutputFileCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "out.csv")

	file, err := CreateOutputFile(path)
	require.NoError(t, err)
	_, err = file.WriteString("a,b\n")
	require.NoError(t, err)

	require.False(t, FileExists(path))
	require.NoError(t, file.Commit())
	file.Discard()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOutputFileDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	file, err := CreateOutputFile(path)
	require.NoError(t, err)
	_, err = file.WriteString("partial")
	require.NoError(t, err)
	file.Discard()

	require.False(t, FileExists(path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSidecarPath(t *testing.T) {
	require.Equal(t, filepath.Join("out", "country_1.validation.txt"),
		SidecarPath(filepath.Join("out", "country_1.csv"), ".validation.txt"))
	require.Equal(t, "report.summary.txt", SidecarPath("report", ".summary.txt"))
}

func TestValidationLogStreamsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.validation.txt")

	log := NewValidationLog(path, "activities.xml")
	defer log.Discard()

	log.Add(ValidationLogEntry{
		Severity:   "warning",
		ActivityID: "GB-1-1",
		Field:      "default-currency",
		Value:      "XXXX",
		Message:    "not an ISO 4217 currency code",
	})
	log.Add(ValidationLogEntry{Severity: "error", ActivityID: "GB-1-2", Message: "value is required"})
	require.Equal(t, 2, log.Count())

	// Only the temporary file exists until Commit.
	require.False(t, FileExists(path))

	logPath, err := log.Commit()
	require.NoError(t, err)
	require.Equal(t, path, logPath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "Input:     activities.xml")
	require.Contains(t, text, "Finding #2")
	require.Contains(t, text, "default-currency")
	require.Contains(t, text, "Total Findings: 2")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestValidationLogWithoutEntries(t *testing.T) {
	dir := t.TempDir()

	logPath, err := NewValidationLog(filepath.Join(dir, "export.validation.txt"), "a.xml").Commit()
	require.NoError(t, err)
	require.Empty(t, logPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestValidationLogDiscard(t *testing.T) {
	dir := t.TempDir()

	log := NewValidationLog(filepath.Join(dir, "export.validation.txt"), "a.xml")
	log.Add(ValidationLogEntry{Severity: "error", Message: "value is required"})
	log.Discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriteSummaryLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.summary.txt")
	start := time.Now()
	err := WriteSummaryLog(ExportSummary{
		StartTime:      start,
		EndTime:        start.Add(time.Second),
		InputFile:      "activities.xml",
		Format:         "csv",
		Variant:        "country",
		ActivitiesRead: 3,
		RowsWritten:    5,
	}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "activities.xml")
	require.Contains(t, text, "Rows Written:        5")
	require.True(t, strings.HasSuffix(text, "End of Summary\n"))
}
