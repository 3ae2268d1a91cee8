package rollup

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	rollupCommandUseConstant   = "rollup"
	rollupCommandShortConstant = "Write the daily digest of the latest generated reports"
	rollupCommandLongConstant  = "rollup collects the most recent wallet snapshot, spending telemetry report, and ledger integrity report into a single dated digest. Missing artifacts are listed as not yet available rather than failing the run."

	rollupOutputTemplateConstant = "Wrote daily rollup to: %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// CommandBuilder assembles the rollup cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	Clock                       ledger.Clock
}

// Build constructs the cobra command for the daily rollup.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   rollupCommandUseConstant,
		Short: rollupCommandShortConstant,
		Long:  rollupCommandLongConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	ledgerConfiguration := builder.resolveLedgerConfiguration()

	service := NewService(
		ledgerConfiguration.ReportsRoot,
		ledgerConfiguration.TelemetryRoot,
		builder.Clock,
		builder.resolveLogger(),
	)

	digest := service.BuildDigest()
	rollupPath, writeError := service.WriteRollup(digest)
	if writeError != nil {
		return writeError
	}

	fmt.Fprintf(command.OutOrStdout(), rollupOutputTemplateConstant, rollupPath)
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
