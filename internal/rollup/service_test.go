package rollup_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerctl/internal/rollup"
)

var fixedRollupInstant = time.Date(2026, time.August, 15, 18, 0, 0, 0, time.UTC)

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

func newService(reportsRoot string, telemetryRoot string) *rollup.Service {
	return rollup.NewService(reportsRoot, telemetryRoot, fixedClock{instant: fixedRollupInstant}, nil)
}

func TestBuildDigestPicksNewestArtifacts(testInstance *testing.T) {
	reportsRoot := testInstance.TempDir()
	telemetryRoot := testInstance.TempDir()

	writeFile(testInstance, filepath.Join(telemetryRoot, "wallet_snapshot_2026-08-14.md"), "old")
	writeFile(testInstance, filepath.Join(telemetryRoot, "wallet_snapshot_2026-08-15.md"), "new")
	writeFile(testInstance, filepath.Join(reportsRoot, "financial", "daily_2026-08-15.md"), "telemetry")
	writeFile(testInstance, filepath.Join(reportsRoot, "ledger", "ledger_integrity_2026-08-15.md"), "integrity")

	digest := newService(reportsRoot, telemetryRoot).BuildDigest()

	require.True(testInstance, digest.Snapshot.Found)
	require.Equal(testInstance, filepath.Join(telemetryRoot, "wallet_snapshot_2026-08-15.md"), digest.Snapshot.Path)
	require.True(testInstance, digest.Telemetry.Found)
	require.True(testInstance, digest.Integrity.Found)
}

func TestBuildDigestIgnoresEarlierRollupsWhenScanningTelemetry(testInstance *testing.T) {
	reportsRoot := testInstance.TempDir()
	telemetryRoot := testInstance.TempDir()

	writeFile(testInstance, filepath.Join(reportsRoot, "financial", "daily_2026-08-14.md"), "telemetry")
	writeFile(testInstance, filepath.Join(reportsRoot, "financial", "daily_rollup_2026-08-15.md"), "rollup")

	digest := newService(reportsRoot, telemetryRoot).BuildDigest()

	require.True(testInstance, digest.Telemetry.Found)
	require.Equal(testInstance, filepath.Join(reportsRoot, "financial", "daily_2026-08-14.md"), digest.Telemetry.Path)
}

func TestBuildDigestReadsTelemetryStatus(testInstance *testing.T) {
	reportsRoot := testInstance.TempDir()
	telemetryRoot := testInstance.TempDir()
	writeFile(testInstance, filepath.Join(telemetryRoot, "daily_2026-08-15.json"), `{"status": "WARN"}`)

	digest := newService(reportsRoot, telemetryRoot).BuildDigest()

	require.Equal(testInstance, "WARN", digest.TelemetryStatus)
}

func TestBuildDigestToleratesMissingArtifacts(testInstance *testing.T) {
	digest := newService(testInstance.TempDir(), testInstance.TempDir()).BuildDigest()

	require.False(testInstance, digest.Snapshot.Found)
	require.False(testInstance, digest.Telemetry.Found)
	require.False(testInstance, digest.Integrity.Found)
	require.Empty(testInstance, digest.TelemetryStatus)
}

func TestWriteRollupRendersDigest(testInstance *testing.T) {
	reportsRoot := testInstance.TempDir()
	telemetryRoot := testInstance.TempDir()
	writeFile(testInstance, filepath.Join(telemetryRoot, "wallet_snapshot_2026-08-15.md"), "snapshot")
	writeFile(testInstance, filepath.Join(telemetryRoot, "daily_2026-08-15.json"), `{"status": "OK"}`)

	service := newService(reportsRoot, telemetryRoot)
	rollupPath, writeError := service.WriteRollup(service.BuildDigest())

	require.NoError(testInstance, writeError)
	require.Equal(testInstance, filepath.Join(reportsRoot, "financial", "daily_rollup_2026-08-15.md"), rollupPath)

	rollupContent, readError := os.ReadFile(rollupPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rollupContent), "# Daily Operations Rollup")
	require.Contains(testInstance, string(rollupContent), "Spending status: **OK**")
	require.Contains(testInstance, string(rollupContent), "wallet_snapshot_2026-08-15.md")
	require.Contains(testInstance, string(rollupContent), "_not available yet_")
}
