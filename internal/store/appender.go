package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	canonicalDateLayoutConstant            = "2006-01-02"
	canonicalTimestampLayoutConstant       = "2006-01-02T15:04:05Z"
	eventRecordedMessageConstant           = "event recorded"
	invalidAmountTemplateConstant          = "invalid amount %q: %w"
	negativeAmountTemplateConstant         = "amount must not be negative, got %s"
	missingTransferDestinationConstant     = "transfer events require a destination account"
	eventDirectoryCreateTemplateConstant   = "unable to create event directory: %w"
	eventSerializationTemplateConstant     = "unable to serialize event: %w"
	eventFileWriteTemplateConstant         = "unable to write event file: %w"
	eventFileExistsTemplateConstant        = "event file already exists: %s"
	defaultAppendSourceConstant            = "manual"
	logFieldCanonicalEventPathConstant     = "event_path"
	metadataDestinationAccountKeyConstant  = "to_account"
)

// IdentifierGenerator produces globally-unique event identifiers.
type IdentifierGenerator interface {
	NewIdentifier() string
}

// UUIDIdentifierGenerator generates random UUID identifiers.
type UUIDIdentifierGenerator struct{}

// NewIdentifier returns a random UUID string.
func (UUIDIdentifierGenerator) NewIdentifier() string {
	return uuid.NewString()
}

// AppendRequest describes one event to record.
type AppendRequest struct {
	Kind      string
	Account   string
	Amount    string
	Currency  string
	Source    string
	Memo      string
	ToAccount string
}

// persistedEvent is the canonical wire form written to disk, one per file.
type persistedEvent struct {
	ID       string         `json:"id"`
	TS       string         `json:"ts"`
	Kind     string         `json:"kind"`
	Account  string         `json:"account"`
	Amount   json.Number    `json:"amount"`
	Currency string         `json:"currency"`
	Source   string         `json:"source"`
	Memo     string         `json:"memo,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Appender writes exactly one new canonical event file per call. It never
// updates or deletes: corrections are modeled as new compensating events.
type Appender struct {
	eventsRoot      string
	defaultCurrency string
	fallbackAccount string
	identifiers     IdentifierGenerator
	clock           ledger.Clock
	logger          *zap.Logger
}

// NewAppender constructs an Appender over the provided events root.
func NewAppender(eventsRoot string, defaultCurrency string, fallbackAccount string, identifiers IdentifierGenerator, clock ledger.Clock, logger *zap.Logger) *Appender {
	if identifiers == nil {
		identifiers = UUIDIdentifierGenerator{}
	}
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Appender{
		eventsRoot:      eventsRoot,
		defaultCurrency: defaultCurrency,
		fallbackAccount: fallbackAccount,
		identifiers:     identifiers,
		clock:           clock,
		logger:          logger,
	}
}

// Append validates the request and writes one new event file at
// events/<UTC-date>/<id>.json, refusing to overwrite an existing file.
// It returns the persisted record and the path it was written to.
func (appender *Appender) Append(request AppendRequest) ([]byte, string, error) {
	amount, amountError := decimal.NewFromString(strings.TrimSpace(request.Amount))
	if amountError != nil {
		return nil, "", fmt.Errorf(invalidAmountTemplateConstant, request.Amount, amountError)
	}
	if amount.IsNegative() {
		return nil, "", fmt.Errorf(negativeAmountTemplateConstant, amount.String())
	}

	kind := strings.ToLower(strings.TrimSpace(request.Kind))
	if len(kind) == 0 {
		kind = string(ledger.KindRevenue)
	}

	destinationAccount := strings.TrimSpace(request.ToAccount)
	if kind == string(ledger.KindTransfer) && len(destinationAccount) == 0 {
		return nil, "", fmt.Errorf(missingTransferDestinationConstant)
	}

	account := strings.TrimSpace(request.Account)
	if len(account) == 0 {
		account = appender.fallbackAccount
	}

	currency := strings.ToUpper(strings.TrimSpace(request.Currency))
	if len(currency) == 0 {
		currency = appender.defaultCurrency
	}

	source := strings.TrimSpace(request.Source)
	if len(source) == 0 {
		source = defaultAppendSourceConstant
	}

	now := appender.clock.Now().UTC()
	record := persistedEvent{
		ID:       appender.identifiers.NewIdentifier(),
		TS:       now.Format(canonicalTimestampLayoutConstant),
		Kind:     kind,
		Account:  account,
		Amount:   json.Number(amount.String()),
		Currency: currency,
		Source:   source,
		Memo:     request.Memo,
	}
	if len(destinationAccount) > 0 {
		record.Meta = map[string]any{metadataDestinationAccountKeyConstant: destinationAccount}
	}

	serializedRecord, serializationError := json.MarshalIndent(record, "", "  ")
	if serializationError != nil {
		return nil, "", fmt.Errorf(eventSerializationTemplateConstant, serializationError)
	}
	serializedRecord = append(serializedRecord, '\n')

	dayDirectory := filepath.Join(appender.eventsRoot, now.Format(canonicalDateLayoutConstant))
	if directoryError := os.MkdirAll(dayDirectory, 0o755); directoryError != nil {
		return nil, "", fmt.Errorf(eventDirectoryCreateTemplateConstant, directoryError)
	}

	eventPath := filepath.Join(dayDirectory, record.ID+jsonFileExtensionConstant)
	eventFile, openError := os.OpenFile(eventPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if openError != nil {
		if os.IsExist(openError) {
			return nil, "", fmt.Errorf(eventFileExistsTemplateConstant, eventPath)
		}
		return nil, "", fmt.Errorf(eventFileWriteTemplateConstant, openError)
	}
	defer eventFile.Close()

	if _, writeError := eventFile.Write(serializedRecord); writeError != nil {
		return nil, "", fmt.Errorf(eventFileWriteTemplateConstant, writeError)
	}

	appender.logger.Info(eventRecordedMessageConstant,
		zap.String(logFieldEventIdentifierConstant, record.ID),
		zap.String(logFieldCanonicalEventPathConstant, eventPath),
	)

	return serializedRecord, eventPath, nil
}
