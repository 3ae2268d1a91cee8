package snapshot_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerctl/internal/balance"
	"github.com/ledgerline/ledgerctl/internal/snapshot"
)

var fixedProjectionInstant = time.Date(2026, time.August, 15, 9, 0, 0, 0, time.UTC)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func newProjector(telemetryRoot string) *snapshot.Projector {
	return snapshot.NewProjector(telemetryRoot, "USD", fixedClock{instant: fixedProjectionInstant}, nil)
}

func makeBalances(entries map[balance.Key]string) balance.Balances {
	balances := make(balance.Balances, len(entries))
	for key, amount := range entries {
		parsedAmount, parseError := decimal.NewFromString(amount)
		if parseError != nil {
			panic(parseError)
		}
		balances[key] = parsedAmount
	}
	return balances
}

func TestRenderEmptyLedger(testInstance *testing.T) {
	rendered := newProjector(testInstance.TempDir()).Render(balance.Balances{})

	require.Contains(testInstance, rendered, "# Wallet Snapshot")
	require.Contains(testInstance, rendered, "## Balances by Account (USD)")
	require.Contains(testInstance, rendered, "No ledger events recorded yet.")
}

func TestRenderPrimaryCurrencySection(testInstance *testing.T) {
	balances := makeBalances(map[balance.Key]string{
		{Account: "operating", Currency: "USD"}: "30.00",
		{Account: "savings", Currency: "USD"}:   "40.00",
		{Account: "operating", Currency: "EUR"}: "12.50",
	})

	rendered := newProjector(testInstance.TempDir()).Render(balances)

	require.Contains(testInstance, rendered, "- **operating**: 30.00 USD")
	require.Contains(testInstance, rendered, "- **savings**: 40.00 USD")
	require.Contains(testInstance, rendered, "### Balances in EUR")
	require.Contains(testInstance, rendered, "- **operating**: 12.50 EUR")

	operatingIndex := strings.Index(rendered, "- **operating**: 30.00 USD")
	savingsIndex := strings.Index(rendered, "- **savings**: 40.00 USD")
	require.Less(testInstance, operatingIndex, savingsIndex)
}

func TestRenderNoPrimaryDenominatedBalances(testInstance *testing.T) {
	balances := makeBalances(map[balance.Key]string{
		{Account: "operating", Currency: "EUR"}: "12.50",
	})

	rendered := newProjector(testInstance.TempDir()).Render(balances)

	require.Contains(testInstance, rendered, "_No USD-denominated balances yet._")
	require.Contains(testInstance, rendered, "### Balances in EUR")
}

func TestWriteSnapshotOverwritesSameDayArtifact(testInstance *testing.T) {
	telemetryRoot := testInstance.TempDir()
	projector := newProjector(telemetryRoot)

	firstPath, firstWriteError := projector.WriteSnapshot(balance.Balances{})
	require.NoError(testInstance, firstWriteError)
	require.Equal(testInstance, filepath.Join(telemetryRoot, "wallet_snapshot_2026-08-15.md"), firstPath)

	updatedBalances := makeBalances(map[balance.Key]string{
		{Account: "operating", Currency: "USD"}: "99.00",
	})
	secondPath, secondWriteError := projector.WriteSnapshot(updatedBalances)
	require.NoError(testInstance, secondWriteError)
	require.Equal(testInstance, firstPath, secondPath)

	snapshotContent, readError := os.ReadFile(secondPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(snapshotContent), "- **operating**: 99.00 USD")
	require.NotContains(testInstance, string(snapshotContent), "No ledger events recorded yet.")
}

func TestWriteSnapshotCreatesTelemetryRoot(testInstance *testing.T) {
	telemetryRoot := filepath.Join(testInstance.TempDir(), "ledger", "telemetry", "financial")
	projector := newProjector(telemetryRoot)

	snapshotPath, writeError := projector.WriteSnapshot(balance.Balances{})

	require.NoError(testInstance, writeError)
	require.FileExists(testInstance, snapshotPath)
}
