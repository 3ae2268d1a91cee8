package store

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	fileReadFailureMessageConstant  = "event file unreadable"
	recordRejectedMessageConstant   = "event record rejected"
	lineParseFailureMessageConstant = "event file contains unparsable content"
	logFieldEventFileConstant       = "event_file"
	logFieldEventIdentifierConstant = "event_id"
	logFieldRejectionReasonConstant = "rejection_reason"
	logFieldDetailConstant          = "detail"
)

// EventDiscoverer locates physical event files under a root directory.
type EventDiscoverer interface {
	DiscoverEventFiles(eventsRoot string) ([]string, error)
}

// ParseFinding surfaces a codec failure attributed to a file.
type ParseFinding struct {
	File    string
	Line    int
	Message string
}

// RejectionFinding surfaces a normalizer rejection attributed to a file.
type RejectionFinding struct {
	File    string
	EventID string
	Reason  ledger.RejectionReason
	Detail  string
}

// LoadResult carries the canonical event set for one run together with every
// problem encountered while assembling it. Problems degrade the result, they
// never abort the load.
type LoadResult struct {
	Events        []ledger.Event
	ParseFindings []ParseFinding
	Rejections    []RejectionFinding
	FilesScanned  int
}

// Store reads the full event set from disk on every invocation.
type Store struct {
	eventsRoot string
	discoverer EventDiscoverer
	normalizer *ledger.Normalizer
	logger     *zap.Logger
}

// NewStore constructs a Store over the provided events root.
func NewStore(eventsRoot string, discoverer EventDiscoverer, normalizer *ledger.Normalizer, logger *zap.Logger) *Store {
	if discoverer == nil {
		discoverer = NewFilesystemEventDiscoverer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		eventsRoot: eventsRoot,
		discoverer: discoverer,
		normalizer: normalizer,
		logger:     logger,
	}
}

// EventsRoot returns the configured events root directory.
func (store *Store) EventsRoot() string {
	return store.eventsRoot
}

// LoadEvents scans the events root, decodes every discovered file, and
// normalizes the records into canonical events.
func (store *Store) LoadEvents(executionContext context.Context) (LoadResult, error) {
	eventFiles, discoveryError := store.discoverer.DiscoverEventFiles(store.eventsRoot)
	if discoveryError != nil {
		return LoadResult{}, discoveryError
	}

	result := LoadResult{}
	for _, eventFile := range eventFiles {
		if contextError := executionContext.Err(); contextError != nil {
			return LoadResult{}, contextError
		}

		result.FilesScanned++

		fileContent, readError := os.ReadFile(eventFile)
		if readError != nil {
			store.logger.Warn(fileReadFailureMessageConstant,
				zap.String(logFieldEventFileConstant, eventFile),
				zap.Error(readError),
			)
			result.ParseFindings = append(result.ParseFindings, ParseFinding{
				File:    eventFile,
				Message: readError.Error(),
			})
			continue
		}

		records, parseFailures := ledger.DecodeRecords(fileContent)
		for _, parseFailure := range parseFailures {
			store.logger.Warn(lineParseFailureMessageConstant,
				zap.String(logFieldEventFileConstant, eventFile),
				zap.String(logFieldDetailConstant, parseFailure.Message),
			)
			result.ParseFindings = append(result.ParseFindings, ParseFinding{
				File:    eventFile,
				Line:    parseFailure.Line,
				Message: parseFailure.Message,
			})
		}

		for _, record := range records {
			normalizedEvent, normalizationError := store.normalizer.Normalize(record)
			if normalizationError != nil {
				var rejection *ledger.RejectionError
				if errors.As(normalizationError, &rejection) {
					store.logger.Warn(recordRejectedMessageConstant,
						zap.String(logFieldEventFileConstant, eventFile),
						zap.String(logFieldEventIdentifierConstant, rejection.EventID),
						zap.String(logFieldRejectionReasonConstant, string(rejection.Reason)),
						zap.String(logFieldDetailConstant, rejection.Detail),
					)
					result.Rejections = append(result.Rejections, RejectionFinding{
						File:    eventFile,
						EventID: rejection.EventID,
						Reason:  rejection.Reason,
						Detail:  rejection.Detail,
					})
				}
				continue
			}

			normalizedEvent.SourceFile = eventFile
			result.Events = append(result.Events, normalizedEvent)
		}
	}

	return result, nil
}
