package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/balance"
	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	snapshotCommandUseConstant   = "snapshot"
	snapshotCommandShortConstant = "Render the daily wallet snapshot from the event store"
	snapshotCommandLongConstant  = "snapshot replays the full event set into balances and writes the daily wallet snapshot artifact. With --watch the projection is re-run whenever the event tree changes."

	flagWatchName  = "watch"
	flagWatchUsage = "Keep running and re-project whenever the event tree changes."

	snapshotPathOutputTemplateConstant = "Wrote wallet snapshot to: %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LedgerConfigurationProvider supplies the shared ledger configuration.
type LedgerConfigurationProvider func() ledger.Configuration

// EventLoader supplies the full event set for a projection run.
type EventLoader interface {
	LoadEvents(executionContext context.Context) (store.LoadResult, error)
}

// CommandBuilder assembles the snapshot cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	LedgerConfigurationProvider LedgerConfigurationProvider
	EventLoader                 EventLoader
	Clock                       ledger.Clock
}

// Build constructs the cobra command for wallet snapshot projection.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   snapshotCommandUseConstant,
		Short: snapshotCommandShortConstant,
		Long:  snapshotCommandLongConstant,
		RunE:  builder.run,
	}
	command.Flags().Bool(flagWatchName, false, flagWatchUsage)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	watchRequested, _ := command.Flags().GetBool(flagWatchName)

	logger := builder.resolveLogger()
	ledgerConfiguration := builder.resolveLedgerConfiguration()

	eventLoader := builder.EventLoader
	if eventLoader == nil {
		normalizer := ledger.NewNormalizer(ledgerConfiguration.DefaultCurrency, ledgerConfiguration.FallbackAccount)
		eventLoader = store.NewStore(ledgerConfiguration.EventsRoot, nil, normalizer, logger)
	}

	projector := NewProjector(ledgerConfiguration.TelemetryRoot, ledgerConfiguration.DefaultCurrency, builder.Clock, logger)

	project := func(executionContext context.Context) error {
		loadResult, loadError := eventLoader.LoadEvents(executionContext)
		if loadError != nil {
			return loadError
		}
		snapshotPath, writeError := projector.WriteSnapshot(balance.Compute(loadResult.Events))
		if writeError != nil {
			return writeError
		}
		fmt.Fprintf(command.OutOrStdout(), snapshotPathOutputTemplateConstant, snapshotPath)
		return nil
	}

	if projectionError := project(command.Context()); projectionError != nil {
		return projectionError
	}

	if !watchRequested {
		return nil
	}

	watchContext, stopSignals := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	watcher := NewWatcher(ledgerConfiguration.EventsRoot, func() error {
		return project(watchContext)
	}, logger)

	watchError := watcher.Watch(watchContext)
	if errors.Is(watchError, context.Canceled) {
		return nil
	}
	return watchError
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
