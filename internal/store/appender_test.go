package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	fixedAppendIdentifierConstant = "fixed-evt-id"
)

type fixedIdentifierGenerator struct {
	identifier string
}

func (generator fixedIdentifierGenerator) NewIdentifier() string {
	return generator.identifier
}

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func newTestAppender(eventsRoot string) *store.Appender {
	return store.NewAppender(
		eventsRoot,
		"USD",
		"core",
		fixedIdentifierGenerator{identifier: fixedAppendIdentifierConstant},
		fixedClock{instant: time.Date(2026, time.August, 15, 12, 30, 0, 0, time.UTC)},
		nil,
	)
}

func TestAppendWritesCanonicalEventFile(testInstance *testing.T) {
	eventsRoot := testInstance.TempDir()
	appender := newTestAppender(eventsRoot)

	serializedRecord, eventPath, appendError := appender.Append(store.AppendRequest{
		Kind:     "spend",
		Account:  "operating",
		Amount:   "12.50",
		Currency: "usd",
		Memo:     "coffee beans",
	})

	require.NoError(testInstance, appendError)
	require.Equal(testInstance, filepath.Join(eventsRoot, "2026-08-15", fixedAppendIdentifierConstant+".json"), eventPath)

	persistedContent, readError := os.ReadFile(eventPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, serializedRecord, persistedContent)

	var persisted map[string]any
	require.NoError(testInstance, json.Unmarshal(persistedContent, &persisted))
	require.Equal(testInstance, fixedAppendIdentifierConstant, persisted["id"])
	require.Equal(testInstance, "2026-08-15T12:30:00Z", persisted["ts"])
	require.Equal(testInstance, "spend", persisted["kind"])
	require.Equal(testInstance, "operating", persisted["account"])
	require.Equal(testInstance, "USD", persisted["currency"])
	require.Equal(testInstance, "manual", persisted["source"])
	require.Equal(testInstance, "coffee beans", persisted["memo"])
}

func TestAppendDefaultsKindAccountAndCurrency(testInstance *testing.T) {
	appender := newTestAppender(testInstance.TempDir())

	serializedRecord, _, appendError := appender.Append(store.AppendRequest{Amount: "5"})

	require.NoError(testInstance, appendError)

	var persisted map[string]any
	require.NoError(testInstance, json.Unmarshal(serializedRecord, &persisted))
	require.Equal(testInstance, string(ledger.KindRevenue), persisted["kind"])
	require.Equal(testInstance, "core", persisted["account"])
	require.Equal(testInstance, "USD", persisted["currency"])
}

func TestAppendRejectsInvalidAmounts(testInstance *testing.T) {
	appender := newTestAppender(testInstance.TempDir())

	_, _, unparsableError := appender.Append(store.AppendRequest{Amount: "ten dollars"})
	require.Error(testInstance, unparsableError)

	_, _, negativeError := appender.Append(store.AppendRequest{Amount: "-5.00"})
	require.Error(testInstance, negativeError)
	require.Contains(testInstance, negativeError.Error(), "negative")
}

func TestAppendRequiresTransferDestination(testInstance *testing.T) {
	appender := newTestAppender(testInstance.TempDir())

	_, _, missingDestinationError := appender.Append(store.AppendRequest{Kind: "transfer", Amount: "10"})
	require.Error(testInstance, missingDestinationError)

	serializedRecord, _, appendError := appender.Append(store.AppendRequest{
		Kind:      "transfer",
		Account:   "operating",
		Amount:    "10",
		ToAccount: "savings",
	})
	require.NoError(testInstance, appendError)

	var persisted map[string]any
	require.NoError(testInstance, json.Unmarshal(serializedRecord, &persisted))
	meta, metaIsObject := persisted["meta"].(map[string]any)
	require.True(testInstance, metaIsObject)
	require.Equal(testInstance, "savings", meta["to_account"])
}

func TestAppendNeverOverwritesExistingFiles(testInstance *testing.T) {
	appender := newTestAppender(testInstance.TempDir())

	_, _, firstAppendError := appender.Append(store.AppendRequest{Amount: "1"})
	require.NoError(testInstance, firstAppendError)

	_, _, secondAppendError := appender.Append(store.AppendRequest{Amount: "2"})
	require.Error(testInstance, secondAppendError)
	require.Contains(testInstance, secondAppendError.Error(), "already exists")
}

func TestAppendedEventRoundTripsThroughStore(testInstance *testing.T) {
	eventsRoot := testInstance.TempDir()
	appender := newTestAppender(eventsRoot)

	_, _, appendError := appender.Append(store.AppendRequest{
		Kind:    "revenue",
		Account: "operating",
		Amount:  "25.00",
	})
	require.NoError(testInstance, appendError)

	eventStore := newTestStore(eventsRoot)
	loadResult, loadError := eventStore.LoadEvents(context.Background())

	require.NoError(testInstance, loadError)
	require.Len(testInstance, loadResult.Events, 1)
	require.Equal(testInstance, fixedAppendIdentifierConstant, loadResult.Events[0].ID)
	require.True(testInstance, loadResult.Events[0].HasTimestamp())
	require.Equal(testInstance, ledger.KindRevenue, loadResult.Events[0].Kind)
}
