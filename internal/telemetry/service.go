package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	financialReportsSubdirectoryConstant = "financial"
	telemetryReportFileTemplateConstant  = "daily_%s.md"
	telemetrySummaryFileTemplate         = "daily_%s.json"
	telemetryDateLayoutConstant          = "2006-01-02"
	telemetryDirectoryCreateTemplate     = "unable to create telemetry directory: %w"
	telemetryReportWriteTemplate         = "unable to write telemetry report: %w"
	telemetrySummaryWriteTemplate        = "unable to write telemetry summary: %w"
	telemetryCompletedMessageConstant    = "spending telemetry completed"
	logFieldTelemetryStatusConstant      = "status"
	logFieldCurrentSpendConstant         = "current_spend"

	// Status thresholds as percentages of the configured caps.
	warnSoftCapPercentThresholdConstant     = 85.0
	throttleSoftCapPercentThresholdConstant = 95.0
	throttleHardCapPercentThresholdConstant = 90.0

	// StatusOK indicates spend comfortably within the soft cap.
	StatusOK = "OK"
	// StatusWarn indicates spend approaching the soft cap.
	StatusWarn = "WARN"
	// StatusThrottle indicates spend near or above the configured limits.
	StatusThrottle = "THROTTLE"

	notesOKConstant       = "Within soft cap."
	notesWarnConstant     = "Approaching soft cap. Consider slowing non-essential work."
	notesThrottleConstant = "Near or above limits. Workloads should be throttled."

	percentDecimalPlacesConstant = 1
	amountDecimalPlacesConstant  = 2
)

// Summary is the machine-readable outcome of one telemetry run.
type Summary struct {
	SoftCap        json.Number `json:"soft_cap"`
	HardCap        json.Number `json:"hard_cap"`
	CurrentSpend   json.Number `json:"current_spend"`
	SoftCapPercent json.Number `json:"soft_pct"`
	HardCapPercent json.Number `json:"hard_pct"`
	Currency       string      `json:"currency"`
	Month          string      `json:"month"`
	Status         string      `json:"status"`
	Notes          string      `json:"notes"`
}

// EventLoader supplies the full event set for a telemetry run.
type EventLoader interface {
	LoadEvents(executionContext context.Context) (store.LoadResult, error)
}

// Service derives the current-month spend and compares it to the caps.
type Service struct {
	eventLoader   EventLoader
	limits        Limits
	currency      string
	reportsRoot   string
	telemetryRoot string
	clock         ledger.Clock
	logger        *zap.Logger
}

// NewService constructs a Service using the provided collaborators.
func NewService(eventLoader EventLoader, limits Limits, currency string, reportsRoot string, telemetryRoot string, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		eventLoader:   eventLoader,
		limits:        limits,
		currency:      strings.ToUpper(strings.TrimSpace(currency)),
		reportsRoot:   reportsRoot,
		telemetryRoot: telemetryRoot,
		clock:         clock,
		logger:        logger,
	}
}

// BuildSummary sums the current calendar month's spend-kind events in the
// configured currency and evaluates the cap thresholds.
func (service *Service) BuildSummary(executionContext context.Context) (Summary, error) {
	loadResult, loadError := service.eventLoader.LoadEvents(executionContext)
	if loadError != nil {
		return Summary{}, loadError
	}

	now := service.clock.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	currentSpend := decimal.Zero
	seenIdentifiers := make(map[string]struct{})
	for _, event := range loadResult.Events {
		// Same first-occurrence-by-id policy as the balance engine; the two
		// derived views must agree on re-ingested events.
		if len(event.ID) > 0 {
			if _, alreadySeen := seenIdentifiers[event.ID]; alreadySeen {
				continue
			}
			seenIdentifiers[event.ID] = struct{}{}
		}
		if event.Kind != ledger.KindSpend {
			continue
		}
		if event.Currency != service.currency {
			continue
		}
		if !event.HasTimestamp() {
			continue
		}
		if event.Timestamp.Before(monthStart) || !event.Timestamp.Before(monthEnd) {
			continue
		}
		if event.Amount.IsNegative() {
			continue
		}
		currentSpend = currentSpend.Add(event.Amount)
	}

	softPercent := capPercentage(currentSpend, service.limits.MonthlySoftCap)
	hardPercent := capPercentage(currentSpend, service.limits.MonthlyHardCap)

	status := StatusOK
	notes := notesOKConstant
	switch {
	case softPercent.GreaterThanOrEqual(decimal.NewFromFloat(throttleSoftCapPercentThresholdConstant)) ||
		hardPercent.GreaterThanOrEqual(decimal.NewFromFloat(throttleHardCapPercentThresholdConstant)):
		status = StatusThrottle
		notes = notesThrottleConstant
	case softPercent.GreaterThanOrEqual(decimal.NewFromFloat(warnSoftCapPercentThresholdConstant)):
		status = StatusWarn
		notes = notesWarnConstant
	}

	summary := Summary{
		SoftCap:        json.Number(service.limits.MonthlySoftCap.StringFixed(amountDecimalPlacesConstant)),
		HardCap:        json.Number(service.limits.MonthlyHardCap.StringFixed(amountDecimalPlacesConstant)),
		CurrentSpend:   json.Number(currentSpend.StringFixed(amountDecimalPlacesConstant)),
		SoftCapPercent: json.Number(softPercent.StringFixed(percentDecimalPlacesConstant)),
		HardCapPercent: json.Number(hardPercent.StringFixed(percentDecimalPlacesConstant)),
		Currency:       service.currency,
		Month:          monthStart.Format("2006-01"),
		Status:         status,
		Notes:          notes,
	}

	return summary, nil
}

func capPercentage(spend decimal.Decimal, capAmount decimal.Decimal) decimal.Decimal {
	if !capAmount.IsPositive() {
		return decimal.Zero
	}
	return spend.Div(capAmount).Mul(decimal.NewFromInt(100))
}

// WriteReport persists the daily Markdown report and its JSON summary sidecar,
// returning their paths.
func (service *Service) WriteReport(summary Summary) (string, string, error) {
	day := service.clock.Now().UTC().Format(telemetryDateLayoutConstant)

	reportDirectory := filepath.Join(service.reportsRoot, financialReportsSubdirectoryConstant)
	if directoryError := os.MkdirAll(reportDirectory, 0o755); directoryError != nil {
		return "", "", fmt.Errorf(telemetryDirectoryCreateTemplate, directoryError)
	}
	reportPath := filepath.Join(reportDirectory, fmt.Sprintf(telemetryReportFileTemplateConstant, day))
	if writeError := os.WriteFile(reportPath, []byte(renderReport(summary, day)), 0o644); writeError != nil {
		return "", "", fmt.Errorf(telemetryReportWriteTemplate, writeError)
	}

	if directoryError := os.MkdirAll(service.telemetryRoot, 0o755); directoryError != nil {
		return "", "", fmt.Errorf(telemetryDirectoryCreateTemplate, directoryError)
	}
	encodedSummary, encodeError := json.MarshalIndent(summary, "", "  ")
	if encodeError != nil {
		return "", "", fmt.Errorf(telemetrySummaryWriteTemplate, encodeError)
	}
	summaryPath := filepath.Join(service.telemetryRoot, fmt.Sprintf(telemetrySummaryFileTemplate, day))
	if writeError := os.WriteFile(summaryPath, append(encodedSummary, '\n'), 0o644); writeError != nil {
		return "", "", fmt.Errorf(telemetrySummaryWriteTemplate, writeError)
	}

	service.logger.Info(telemetryCompletedMessageConstant,
		zap.String(logFieldTelemetryStatusConstant, summary.Status),
		zap.String(logFieldCurrentSpendConstant, string(summary.CurrentSpend)),
	)

	return reportPath, summaryPath, nil
}

func renderReport(summary Summary, day string) string {
	lines := []string{
		"# Financial Telemetry - Daily Snapshot",
		"",
		fmt.Sprintf("- Date: `%s`", day),
		fmt.Sprintf("- Month: `%s`", summary.Month),
		"",
		"## Limits",
		fmt.Sprintf("- Monthly soft cap: **%s %s**", summary.SoftCap, summary.Currency),
		fmt.Sprintf("- Monthly hard cap: **%s %s**", summary.HardCap, summary.Currency),
		"",
		"## Current Spend",
		fmt.Sprintf("- Amount: **%s %s**", summary.CurrentSpend, summary.Currency),
		fmt.Sprintf("- %% of soft cap: **%s%%**", summary.SoftCapPercent),
		fmt.Sprintf("- %% of hard cap: **%s%%**", summary.HardCapPercent),
		"",
		"## Status",
		fmt.Sprintf("- Status: **%s**", summary.Status),
		fmt.Sprintf("- Notes: %s", summary.Notes),
		"",
	}
	return strings.Join(lines, "\n")
}
