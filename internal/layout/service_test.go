package layout_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerctl/internal/layout"
)

var fixedNormalizationInstant = time.Date(2026, time.August, 15, 8, 0, 0, 0, time.UTC)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func writeFile(testInstance *testing.T, path string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(testInstance, os.WriteFile(path, []byte(content), 0o644))
}

func newService(eventsRoot string, legacyRoots []string) *layout.Service {
	return layout.NewService(eventsRoot, legacyRoots, fixedClock{instant: fixedNormalizationInstant}, nil)
}

func findSkip(result layout.Result, reason string) []layout.SkippedFile {
	var matching []layout.SkippedFile
	for _, skippedFile := range result.Skipped {
		if skippedFile.Reason == reason {
			matching = append(matching, skippedFile)
		}
	}
	return matching
}

func TestRunMovesLegacyFileIntoTimestampBucket(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	legacyFile := filepath.Join(legacyRoot, "old-event.json")
	writeFile(testInstance, legacyFile, `{"id": "evt-1", "ts": "2026-07-04T10:00:00Z", "kind": "revenue", "amount": 1}`)

	result, runError := newService(eventsRoot, []string{legacyRoot}).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Len(testInstance, result.Relocated, 1)
	require.Empty(testInstance, result.Skipped)

	expectedTarget := filepath.Join(eventsRoot, "2026-07-04", "evt-1.json")
	require.Equal(testInstance, expectedTarget, result.Relocated[0].To)
	require.FileExists(testInstance, expectedTarget)
	require.NoFileExists(testInstance, legacyFile)
}

func TestRunBucketsUndatedFilesByCurrentDate(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	writeFile(testInstance, filepath.Join(eventsRoot, "stray.json"), `{"id": "evt-2", "kind": "spend", "amount": 2}`)

	result, runError := newService(eventsRoot, nil).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Len(testInstance, result.Relocated, 1)
	require.Equal(testInstance, filepath.Join(eventsRoot, "2026-08-15", "evt-2.json"), result.Relocated[0].To)
}

func TestRunLeavesCanonicalFilesAlone(testInstance *testing.T) {
	eventsRoot := filepath.Join(testInstance.TempDir(), "events")
	canonicalFile := filepath.Join(eventsRoot, "2026-07-04", "evt-1.json")
	writeFile(testInstance, canonicalFile, `{"id": "evt-1", "ts": "2026-07-04T10:00:00Z", "amount": 1}`)

	result, runError := newService(eventsRoot, nil).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Empty(testInstance, result.Relocated)
	require.Empty(testInstance, result.Skipped)
	require.FileExists(testInstance, canonicalFile)
}

func TestRunIsIdempotent(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	writeFile(testInstance, filepath.Join(legacyRoot, "a.json"), `{"id": "evt-1", "ts": "2026-07-04T10:00:00Z", "amount": 1}`)

	service := newService(eventsRoot, []string{legacyRoot})

	firstResult, firstRunError := service.Run(context.Background())
	require.NoError(testInstance, firstRunError)
	require.Len(testInstance, firstResult.Relocated, 1)

	secondResult, secondRunError := service.Run(context.Background())
	require.NoError(testInstance, secondRunError)
	require.Empty(testInstance, secondResult.Relocated)
	require.Empty(testInstance, secondResult.Skipped)
}

func TestRunNeverOverwritesExistingTarget(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	canonicalContent := `{"id": "evt-1", "ts": "2026-07-04T10:00:00Z", "amount": 1}`
	writeFile(testInstance, filepath.Join(eventsRoot, "2026-07-04", "evt-1.json"), canonicalContent)
	legacyFile := filepath.Join(legacyRoot, "duplicate.json")
	writeFile(testInstance, legacyFile, `{"id": "evt-1", "ts": "2026-07-04T10:00:00Z", "amount": 999}`)

	result, runError := newService(eventsRoot, []string{legacyRoot}).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Empty(testInstance, result.Relocated)
	require.Len(testInstance, findSkip(result, "target_exists"), 1)
	require.FileExists(testInstance, legacyFile)

	preservedContent, readError := os.ReadFile(filepath.Join(eventsRoot, "2026-07-04", "evt-1.json"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, canonicalContent, string(preservedContent))
}

func TestRunSplitsMultiEventFiles(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	legacyFile := filepath.Join(legacyRoot, "batch.jsonl")
	writeFile(testInstance, legacyFile,
		"{\"id\": \"evt-1\", \"ts\": \"2026-07-04T10:00:00Z\", \"amount\": 1}\n{\"id\": \"evt-2\", \"ts\": \"2026-07-05T10:00:00Z\", \"amount\": 2}\n")

	result, runError := newService(eventsRoot, []string{legacyRoot}).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Len(testInstance, result.Relocated, 2)
	require.FileExists(testInstance, filepath.Join(eventsRoot, "2026-07-04", "evt-1.json"))
	require.FileExists(testInstance, filepath.Join(eventsRoot, "2026-07-05", "evt-2.json"))
	require.NoFileExists(testInstance, legacyFile)
}

func TestRunSplitConflictKeepsSourceFile(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	writeFile(testInstance, filepath.Join(eventsRoot, "2026-07-05", "evt-2.json"), `{"id": "evt-2"}`)
	legacyFile := filepath.Join(legacyRoot, "batch.jsonl")
	writeFile(testInstance, legacyFile,
		"{\"id\": \"evt-1\", \"ts\": \"2026-07-04T10:00:00Z\", \"amount\": 1}\n{\"id\": \"evt-2\", \"ts\": \"2026-07-05T10:00:00Z\", \"amount\": 2}\n")

	result, runError := newService(eventsRoot, []string{legacyRoot}).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Empty(testInstance, result.Relocated)
	require.Len(testInstance, findSkip(result, "split_conflict"), 1)
	require.FileExists(testInstance, legacyFile)
	require.NoFileExists(testInstance, filepath.Join(eventsRoot, "2026-07-04", "evt-1.json"))
}

func TestRunSkipsUndiscoverableFiles(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	eventsRoot := filepath.Join(baseDirectory, "events")
	legacyRoot := filepath.Join(baseDirectory, "legacy")
	writeFile(testInstance, filepath.Join(legacyRoot, "empty.json"), "   \n")
	writeFile(testInstance, filepath.Join(legacyRoot, "garbage.json"), "### not json ###")
	writeFile(testInstance, filepath.Join(legacyRoot, "anonymous.json"), `{"kind": "spend", "amount": 2}`)

	result, runError := newService(eventsRoot, []string{legacyRoot}).Run(context.Background())

	require.NoError(testInstance, runError)
	require.Empty(testInstance, result.Relocated)
	require.Len(testInstance, findSkip(result, "empty_file"), 1)
	require.Len(testInstance, findSkip(result, "unparsable"), 1)
	require.Len(testInstance, findSkip(result, "missing_id"), 1)
}

func TestWriteReportProducesFixedNameJSON(testInstance *testing.T) {
	reportsRoot := testInstance.TempDir()
	service := newService(filepath.Join(reportsRoot, "events"), nil)

	result, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)

	reportPath, writeError := service.WriteReport(result, reportsRoot)
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, filepath.Join(reportsRoot, "ledger", "layout_normalization_report.json"), reportPath)

	reportContent, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)

	var decodedReport map[string]any
	require.NoError(testInstance, json.Unmarshal(reportContent, &decodedReport))
	require.Contains(testInstance, decodedReport, "ts")
}
