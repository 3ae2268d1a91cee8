package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies the economic effect of an event.
type Kind string

// Event kinds understood by the balance engine. Unknown kinds are preserved
// verbatim and carry no balance effect.
const (
	KindRevenue  Kind = "revenue"
	KindSpend    Kind = "spend"
	KindTransfer Kind = "transfer"
	KindMeta     Kind = "meta"
)

const (
	metadataToAccountKeyConstant = "to_account"

	timestampLayoutDateOnlyConstant = "2006-01-02"
	timestampLayoutNoZoneConstant   = "2006-01-02T15:04:05"
	timestampLayoutNoZoneFractional = "2006-01-02T15:04:05.999999999"
)

// Event is the canonical, immutable representation of one economic occurrence.
// Instances are produced by the Normalizer and never written back to disk.
type Event struct {
	ID           string
	Timestamp    time.Time
	RawTimestamp string
	Kind         Kind
	Account      string
	Amount       decimal.Decimal
	Currency     string
	Source       string
	Memo         string
	Metadata     map[string]any
	SourceFile   string
}

// HasTimestamp reports whether the event carried a parseable timestamp.
func (event Event) HasTimestamp() bool {
	return !event.Timestamp.IsZero()
}

// TransferDestination returns the destination account for transfer events.
func (event Event) TransferDestination() (string, bool) {
	if event.Metadata == nil {
		return "", false
	}
	rawDestination, destinationPresent := event.Metadata[metadataToAccountKeyConstant]
	if !destinationPresent {
		return "", false
	}
	destination, destinationIsString := rawDestination.(string)
	destination = strings.TrimSpace(destination)
	if !destinationIsString || len(destination) == 0 {
		return "", false
	}
	return destination, true
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	timestampLayoutNoZoneFractional,
	timestampLayoutNoZoneConstant,
	timestampLayoutDateOnlyConstant,
}

// ParseTimestamp interprets an ISO-8601 instant, accepting an optional
// trailing Z and missing zone information (interpreted as UTC).
func ParseTimestamp(rawTimestamp string) (time.Time, bool) {
	trimmedTimestamp := strings.TrimSpace(rawTimestamp)
	if len(trimmedTimestamp) == 0 {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		parsedTimestamp, parseError := time.Parse(layout, trimmedTimestamp)
		if parseError == nil {
			return parsedTimestamp.UTC(), true
		}
	}

	zoneless := strings.TrimSuffix(trimmedTimestamp, "Z")
	for _, layout := range []string{timestampLayoutNoZoneFractional, timestampLayoutNoZoneConstant} {
		parsedTimestamp, parseError := time.Parse(layout, zoneless)
		if parseError == nil {
			return parsedTimestamp.UTC(), true
		}
	}

	return time.Time{}, false
}
