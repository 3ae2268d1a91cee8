package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/balance"
	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	snapshotFileTemplateConstant            = "wallet_snapshot_%s.md"
	snapshotDateLayoutConstant              = "2006-01-02"
	snapshotDirectoryCreateTemplateConstant = "unable to create snapshot directory: %w"
	snapshotWriteTemplateConstant           = "unable to write wallet snapshot: %w"
	snapshotWrittenMessageConstant          = "wallet snapshot written"
	logFieldSnapshotPathConstant            = "snapshot_path"

	snapshotTitleConstant             = "# Wallet Snapshot"
	snapshotGeneratedAtLineTemplate   = "- Generated at: `%s`"
	snapshotPrimaryHeaderTemplate     = "## Balances by Account (%s)"
	snapshotBreakdownHeaderConstant   = "## Full Balance Breakdown"
	snapshotCurrencySectionTemplate   = "### Balances in %s"
	snapshotAccountLineTemplate       = "- **%s**: %s %s"
	snapshotNoEventsLineConstant      = "No ledger events recorded yet."
	snapshotNoPrimaryBalancesTemplate = "_No %s-denominated balances yet._"
	snapshotAmountDecimalPlaces       = 2
)

// Projector renders balances into the daily wallet snapshot artifact.
type Projector struct {
	telemetryRoot   string
	primaryCurrency string
	clock           ledger.Clock
	logger          *zap.Logger
}

// NewProjector constructs a Projector writing beneath the telemetry root.
func NewProjector(telemetryRoot string, primaryCurrency string, clock ledger.Clock, logger *zap.Logger) *Projector {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		telemetryRoot:   telemetryRoot,
		primaryCurrency: strings.ToUpper(strings.TrimSpace(primaryCurrency)),
		clock:           clock,
		logger:          logger,
	}
}

// Render produces the snapshot artifact content for the provided balances.
// An empty ledger yields an explicit "no events yet" state so that consumers
// can distinguish an empty ledger from a failed projection.
func (projector *Projector) Render(balances balance.Balances) string {
	generatedAt := projector.clock.Now().UTC()

	var lines []string
	lines = append(lines,
		snapshotTitleConstant,
		"",
		fmt.Sprintf(snapshotGeneratedAtLineTemplate, generatedAt.Format(time.RFC3339)),
		"",
		fmt.Sprintf(snapshotPrimaryHeaderTemplate, projector.primaryCurrency),
		"",
	)

	grouped := balances.GroupedByCurrency()
	primaryAccounts := grouped[projector.primaryCurrency]
	switch {
	case len(primaryAccounts) > 0:
		for _, account := range sortedKeys(primaryAccounts) {
			lines = append(lines, fmt.Sprintf(snapshotAccountLineTemplate, account, primaryAccounts[account].StringFixed(snapshotAmountDecimalPlaces), projector.primaryCurrency))
		}
		lines = append(lines, "")
	case len(balances) == 0:
		lines = append(lines, snapshotNoEventsLineConstant, "")
	default:
		lines = append(lines, fmt.Sprintf(snapshotNoPrimaryBalancesTemplate, projector.primaryCurrency), "")
	}

	lines = append(lines, snapshotBreakdownHeaderConstant, "")
	if len(balances) == 0 {
		lines = append(lines, snapshotNoEventsLineConstant, "")
	} else {
		for _, currency := range balances.SortedCurrencies() {
			lines = append(lines, fmt.Sprintf(snapshotCurrencySectionTemplate, currency), "")
			accounts := grouped[currency]
			for _, account := range sortedKeys(accounts) {
				lines = append(lines, fmt.Sprintf(snapshotAccountLineTemplate, account, accounts[account].StringFixed(snapshotAmountDecimalPlaces), currency))
			}
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

// WriteSnapshot renders and persists the artifact, one per calendar day.
// Re-running the same day overwrites the existing artifact, which keeps the
// projection idempotent for identical inputs.
func (projector *Projector) WriteSnapshot(balances balance.Balances) (string, error) {
	if directoryError := os.MkdirAll(projector.telemetryRoot, 0o755); directoryError != nil {
		return "", fmt.Errorf(snapshotDirectoryCreateTemplateConstant, directoryError)
	}

	snapshotPath := filepath.Join(
		projector.telemetryRoot,
		fmt.Sprintf(snapshotFileTemplateConstant, projector.clock.Now().UTC().Format(snapshotDateLayoutConstant)),
	)

	if writeError := os.WriteFile(snapshotPath, []byte(projector.Render(balances)), 0o644); writeError != nil {
		return "", fmt.Errorf(snapshotWriteTemplateConstant, writeError)
	}

	projector.logger.Info(snapshotWrittenMessageConstant, zap.String(logFieldSnapshotPathConstant, snapshotPath))
	return snapshotPath, nil
}

func sortedKeys[ValueType any](mapping map[string]ValueType) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
