package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrencyFallbackConstant       = "USD"
	defaultAccountFallbackConstant        = "core"
	recordDecodeFailureTemplateConstant   = "record does not decode: %v"
	amountCoercionFailureTemplate         = "amount %q does not coerce to a finite number: %v"
	amountUnsupportedTypeTemplateConstant = "amount has unsupported type %T"
	amountNotFiniteTemplateConstant       = "amount %v is not a finite number"
	rejectionErrorTemplateConstant        = "record rejected (%s): %s"
)

// RejectionReason classifies why the normalizer refused a raw record.
type RejectionReason string

// Rejection reasons surfaced to the integrity validator.
const (
	RejectionMalformedRecord RejectionReason = "malformed_record"
	RejectionMalformedAmount RejectionReason = "malformed_amount"
)

// RejectionError reports a record that is structurally present but
// semantically unusable. Rejections degrade a batch, they never abort it.
type RejectionError struct {
	Reason  RejectionReason
	EventID string
	Detail  string
}

// Error describes the rejection.
func (rejection *RejectionError) Error() string {
	return fmt.Sprintf(rejectionErrorTemplateConstant, rejection.Reason, rejection.Detail)
}

// rawRecord mirrors every historical field spelling observed on disk.
type rawRecord struct {
	ID        string         `mapstructure:"id"`
	EventID   string         `mapstructure:"event_id"`
	TS        string         `mapstructure:"ts"`
	Timestamp string         `mapstructure:"timestamp"`
	Kind      string         `mapstructure:"kind"`
	Account   string         `mapstructure:"account"`
	Stream    string         `mapstructure:"stream"`
	Amount    any            `mapstructure:"amount"`
	Currency  string         `mapstructure:"currency"`
	Source    string         `mapstructure:"source"`
	Memo      string         `mapstructure:"memo"`
	Meta      map[string]any `mapstructure:"meta"`
	Metadata  map[string]any `mapstructure:"metadata"`
}

// Normalizer converts raw untyped records into canonical events, unifying the
// historical schema variants behind field aliasing and configured defaults.
type Normalizer struct {
	defaultCurrency string
	fallbackAccount string
}

// NewNormalizer constructs a Normalizer with the provided defaults. Empty
// arguments fall back to the package defaults.
func NewNormalizer(defaultCurrency string, fallbackAccount string) *Normalizer {
	sanitizedCurrency := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if len(sanitizedCurrency) == 0 {
		sanitizedCurrency = defaultCurrencyFallbackConstant
	}

	sanitizedAccount := strings.TrimSpace(fallbackAccount)
	if len(sanitizedAccount) == 0 {
		sanitizedAccount = defaultAccountFallbackConstant
	}

	return &Normalizer{
		defaultCurrency: sanitizedCurrency,
		fallbackAccount: sanitizedAccount,
	}
}

// Normalize converts one raw record into a canonical Event. The returned
// error, when non-nil, is always a *RejectionError.
func (normalizer *Normalizer) Normalize(record map[string]any) (Event, error) {
	var decodedRecord rawRecord
	recordDecoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decodedRecord,
		WeaklyTypedInput: true,
	})
	if decoderError != nil {
		return Event{}, &RejectionError{Reason: RejectionMalformedRecord, Detail: decoderError.Error()}
	}
	if decodeError := recordDecoder.Decode(record); decodeError != nil {
		return Event{}, &RejectionError{
			Reason: RejectionMalformedRecord,
			Detail: fmt.Sprintf(recordDecodeFailureTemplateConstant, decodeError),
		}
	}

	eventIdentifier := strings.TrimSpace(decodedRecord.ID)
	if len(eventIdentifier) == 0 {
		eventIdentifier = strings.TrimSpace(decodedRecord.EventID)
	}

	rawTimestamp := strings.TrimSpace(decodedRecord.TS)
	if len(rawTimestamp) == 0 {
		rawTimestamp = strings.TrimSpace(decodedRecord.Timestamp)
	}
	parsedTimestamp, _ := ParseTimestamp(rawTimestamp)

	amount, amountError := coerceAmount(decodedRecord.Amount)
	if amountError != nil {
		return Event{}, &RejectionError{
			Reason:  RejectionMalformedAmount,
			EventID: eventIdentifier,
			Detail:  amountError.Error(),
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(decodedRecord.Currency))
	if len(currency) == 0 {
		currency = normalizer.defaultCurrency
	}

	account := strings.TrimSpace(decodedRecord.Account)
	if len(account) == 0 {
		account = strings.TrimSpace(decodedRecord.Stream)
	}
	if len(account) == 0 {
		account = normalizer.fallbackAccount
	}

	metadata := decodedRecord.Meta
	if metadata == nil {
		metadata = decodedRecord.Metadata
	}

	normalizedEvent := Event{
		ID:           eventIdentifier,
		Timestamp:    parsedTimestamp,
		RawTimestamp: rawTimestamp,
		Kind:         Kind(strings.ToLower(strings.TrimSpace(decodedRecord.Kind))),
		Account:      account,
		Amount:       amount,
		Currency:     currency,
		Source:       strings.TrimSpace(decodedRecord.Source),
		Memo:         decodedRecord.Memo,
		Metadata:     metadata,
	}

	return normalizedEvent, nil
}

// coerceAmount accepts the numeric and stringly-typed amount spellings found
// across the historical schemas. A missing amount counts as zero.
func coerceAmount(rawAmount any) (decimal.Decimal, error) {
	switch typedAmount := rawAmount.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		if math.IsNaN(typedAmount) || math.IsInf(typedAmount, 0) {
			return decimal.Zero, fmt.Errorf(amountNotFiniteTemplateConstant, typedAmount)
		}
		return decimal.NewFromFloat(typedAmount), nil
	case int:
		return decimal.NewFromInt(int64(typedAmount)), nil
	case int64:
		return decimal.NewFromInt(typedAmount), nil
	case string:
		parsedAmount, parseError := decimal.NewFromString(strings.TrimSpace(typedAmount))
		if parseError != nil {
			return decimal.Zero, fmt.Errorf(amountCoercionFailureTemplate, typedAmount, parseError)
		}
		return parsedAmount, nil
	default:
		return decimal.Zero, fmt.Errorf(amountUnsupportedTypeTemplateConstant, rawAmount)
	}
}
