package layout

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	normalizeCommandUseConstant   = "normalize"
	normalizeCommandShortConstant = "Relocate stray event files into the canonical layout"
	normalizeCommandLongConstant  = "normalize scans the configured legacy locations and the events root for stray event files and relocates each discoverable event into events/<UTC-date>/<id>. Existing canonical files are never overwritten; conflicting relocations are skipped and reported. The operation must not run concurrently with itself or with an active append."

	relocationReportOutputTemplateConstant = "Wrote relocation report to: %s\n"
	relocationSummaryOutputTemplate        = "Relocated %d file(s), skipped %d.\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// ConfigurationProvider supplies the persisted normalize command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the normalize cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	ConfigurationProvider       ConfigurationProvider
	Clock                       ledger.Clock
}

// Build constructs the cobra command for layout normalization.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   normalizeCommandUseConstant,
		Short: normalizeCommandShortConstant,
		Long:  normalizeCommandLongConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	ledgerConfiguration := builder.resolveLedgerConfiguration()
	commandConfiguration := builder.resolveCommandConfiguration()

	service := NewService(ledgerConfiguration.EventsRoot, commandConfiguration.LegacyRoots, builder.Clock, logger)

	result, runError := service.Run(command.Context())
	if runError != nil {
		return runError
	}

	reportPath, reportError := service.WriteReport(result, ledgerConfiguration.ReportsRoot)
	if reportError != nil {
		return reportError
	}

	fmt.Fprintf(command.OutOrStdout(), relocationSummaryOutputTemplate, len(result.Relocated), len(result.Skipped))
	fmt.Fprintf(command.OutOrStdout(), relocationReportOutputTemplateConstant, reportPath)
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
