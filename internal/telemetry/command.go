package telemetry

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	telemetryCommandUseConstant   = "telemetry"
	telemetryCommandShortConstant = "Report current-month spend against the configured caps"
	telemetryCommandLongConstant  = "telemetry sums the current calendar month's spend events in the default currency, compares the total to the configured soft and hard monthly caps, and writes a dated Markdown report plus a machine-readable JSON summary."

	telemetryStatusOutputTemplateConstant  = "Status: %s (spend %s %s, %s%% of soft cap)\n"
	telemetryReportOutputTemplateConstant  = "Wrote telemetry report to: %s\n"
	telemetrySummaryOutputTemplateConstant = "Wrote telemetry summary to: %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// ConfigurationProvider supplies the persisted telemetry command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the telemetry cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	ConfigurationProvider       ConfigurationProvider
	EventLoader                 EventLoader
	Clock                       ledger.Clock
}

// Build constructs the cobra command for spending telemetry.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   telemetryCommandUseConstant,
		Short: telemetryCommandShortConstant,
		Long:  telemetryCommandLongConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	ledgerConfiguration := builder.resolveLedgerConfiguration()
	commandConfiguration := builder.resolveCommandConfiguration()

	limits, limitsError := LoadLimits(commandConfiguration.LimitsFile)
	if limitsError != nil {
		return limitsError
	}

	eventLoader := builder.EventLoader
	if eventLoader == nil {
		eventLoader = store.NewStore(
			ledgerConfiguration.EventsRoot,
			nil,
			ledger.NewNormalizer(ledgerConfiguration.DefaultCurrency, ledgerConfiguration.FallbackAccount),
			logger,
		)
	}

	service := NewService(
		eventLoader,
		limits,
		ledgerConfiguration.DefaultCurrency,
		ledgerConfiguration.ReportsRoot,
		ledgerConfiguration.TelemetryRoot,
		builder.Clock,
		logger,
	)

	summary, summaryError := service.BuildSummary(command.Context())
	if summaryError != nil {
		return summaryError
	}

	reportPath, summaryPath, writeError := service.WriteReport(summary)
	if writeError != nil {
		return writeError
	}

	fmt.Fprintf(command.OutOrStdout(), telemetryStatusOutputTemplateConstant, summary.Status, summary.CurrentSpend, summary.Currency, summary.SoftCapPercent)
	fmt.Fprintf(command.OutOrStdout(), telemetryReportOutputTemplateConstant, reportPath)
	fmt.Fprintf(command.OutOrStdout(), telemetrySummaryOutputTemplateConstant, summaryPath)
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveLedgerConfiguration() ledger.Configuration {
	if builder.LedgerConfigurationProvider == nil {
		return ledger.DefaultConfiguration()
	}
	return builder.LedgerConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveCommandConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
