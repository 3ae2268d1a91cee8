package integrity

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	verifyCommandUseConstant   = "verify"
	verifyCommandShortConstant = "Validate the event store and report integrity findings"
	verifyCommandLongConstant  = "verify scans every event file, checks for duplicate ids, malformed or negative amounts, future-dated timestamps, and parse failures, then writes a daily report artifact. Findings are informational: the command succeeds regardless of the issue count."
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// CommandBuilder assembles the verify cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	EventLoader                 EventLoader
	Clock                       ledger.Clock
}

// Build constructs the cobra command for ledger validation.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   verifyCommandUseConstant,
		Short: verifyCommandShortConstant,
		Long:  verifyCommandLongConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	ledgerConfiguration := builder.resolveLedgerConfiguration()

	eventLoader := builder.EventLoader
	if eventLoader == nil {
		normalizer := ledger.NewNormalizer(ledgerConfiguration.DefaultCurrency, ledgerConfiguration.FallbackAccount)
		eventLoader = store.NewStore(ledgerConfiguration.EventsRoot, nil, normalizer, logger)
	}

	service := NewService(eventLoader, ledgerConfiguration.EventsRoot, ledgerConfiguration.ReportsRoot, builder.Clock, logger)
	return service.Run(command.Context(), command.OutOrStdout())
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
