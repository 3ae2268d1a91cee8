package store

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	recordCommandUseConstant   = "record"
	recordCommandShortConstant = "Append one economic event to the ledger"
	recordCommandLongConstant  = "record validates the provided event fields and writes exactly one new canonical event file under events/<UTC-date>/<id>.json. Events are write-once; corrections are recorded as new compensating events."

	flagAmountName        = "amount"
	flagAmountDescription = "Event amount in currency units (e.g. 25.00)."
	flagCurrencyName      = "currency"
	flagCurrencyUsage     = "Currency code; defaults to the configured default currency."
	flagKindName          = "kind"
	flagKindUsage         = "Event kind: revenue|spend|transfer|meta."
	flagAccountName       = "account"
	flagAccountUsage      = "Ledger account; defaults to the configured fallback account."
	flagSourceName        = "source"
	flagSourceUsage       = "Origin of this event (manual|stripe|coinbase|internal|other)."
	flagMemoName          = "memo"
	flagMemoUsage         = "Free-form note attached to the event."
	flagToAccountName     = "to-account"
	flagToAccountUsage    = "Destination account; required for transfer events."

	recordedEventOutputTemplateConstant = "%s\nWrote to: %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// CommandBuilder assembles the record cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	Identifiers                 IdentifierGenerator
	Clock                       ledger.Clock
}

// Build constructs the cobra command that appends one ledger event.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   recordCommandUseConstant,
		Short: recordCommandShortConstant,
		Long:  recordCommandLongConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagAmountName, "", flagAmountDescription)
	command.Flags().String(flagCurrencyName, "", flagCurrencyUsage)
	command.Flags().String(flagKindName, string(ledger.KindRevenue), flagKindUsage)
	command.Flags().String(flagAccountName, "", flagAccountUsage)
	command.Flags().String(flagSourceName, defaultAppendSourceConstant, flagSourceUsage)
	command.Flags().String(flagMemoName, "", flagMemoUsage)
	command.Flags().String(flagToAccountName, "", flagToAccountUsage)
	if markError := command.MarkFlagRequired(flagAmountName); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	amountValue, _ := command.Flags().GetString(flagAmountName)
	currencyValue, _ := command.Flags().GetString(flagCurrencyName)
	kindValue, _ := command.Flags().GetString(flagKindName)
	accountValue, _ := command.Flags().GetString(flagAccountName)
	sourceValue, _ := command.Flags().GetString(flagSourceName)
	memoValue, _ := command.Flags().GetString(flagMemoName)
	toAccountValue, _ := command.Flags().GetString(flagToAccountName)

	ledgerConfiguration := builder.resolveLedgerConfiguration()

	appender := NewAppender(
		ledgerConfiguration.EventsRoot,
		ledgerConfiguration.DefaultCurrency,
		ledgerConfiguration.FallbackAccount,
		builder.Identifiers,
		builder.Clock,
		builder.resolveLogger(),
	)

	serializedRecord, eventPath, appendError := appender.Append(AppendRequest{
		Kind:      kindValue,
		Account:   accountValue,
		Amount:    amountValue,
		Currency:  currencyValue,
		Source:    sourceValue,
		Memo:      memoValue,
		ToAccount: toAccountValue,
	})
	if appendError != nil {
		return appendError
	}

	fmt.Fprintf(command.OutOrStdout(), recordedEventOutputTemplateConstant, serializedRecord, eventPath)
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
