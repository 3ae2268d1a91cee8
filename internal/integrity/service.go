package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/balance"
	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	ledgerReportsSubdirectoryConstant     = "ledger"
	integrityReportFileTemplateConstant   = "ledger_integrity_%s.md"
	reportDateLayoutConstant              = "2006-01-02"
	reportDirectoryCreateTemplateConstant = "unable to create report directory: %w"
	reportWriteTemplateConstant           = "unable to write integrity report: %w"
	summaryEncodeTemplateConstant         = "unable to encode summary: %w"
	validationCompletedMessageConstant    = "ledger validation completed"
	logFieldReportPathConstant            = "report_path"
	logFieldIssueCountConstant            = "issue_count"

	missingIdentifierDetailConstant   = "missing or empty event id"
	duplicateIdentifierDetailTemplate = "duplicate id `%s`"
	negativeAmountDetailTemplate      = "negative amount %s"
	missingTimestampDetailConstant    = "event has no timestamp"
	malformedTimestampDetailTemplate  = "unparseable timestamp %q"
	futureTimestampDetailTemplate     = "future-dated event at %s"
)

// EventLoader supplies the full event set for a validation run.
type EventLoader interface {
	LoadEvents(executionContext context.Context) (store.LoadResult, error)
}

// Service drives one read-only validation pass over the event store.
type Service struct {
	eventLoader EventLoader
	eventsRoot  string
	reportsRoot string
	clock       ledger.Clock
	logger      *zap.Logger
}

// NewService constructs a Service using the provided collaborators.
func NewService(eventLoader EventLoader, eventsRoot string, reportsRoot string, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		eventLoader: eventLoader,
		eventsRoot:  eventsRoot,
		reportsRoot: reportsRoot,
		clock:       clock,
		logger:      logger,
	}
}

// BuildReport loads the event set and evaluates every integrity check.
func (service *Service) BuildReport(executionContext context.Context) (Report, error) {
	loadResult, loadError := service.eventLoader.LoadEvents(executionContext)
	if loadError != nil {
		return Report{}, loadError
	}

	now := service.clock.Now().UTC()
	report := Report{
		GeneratedAt: now,
		EventsRoot:  service.eventsRoot,
		Balances:    balance.Compute(loadResult.Events),
	}
	report.Summary.FilesScanned = loadResult.FilesScanned
	report.Summary.EventsScanned = len(loadResult.Events) + len(loadResult.Rejections)

	filesWithParseErrors := make(map[string]struct{})
	for _, parseFinding := range loadResult.ParseFindings {
		filesWithParseErrors[parseFinding.File] = struct{}{}
		report.Issues = append(report.Issues, Issue{
			File:   parseFinding.File,
			Check:  CheckParseFailure,
			Detail: parseFinding.Message,
		})
	}
	report.Summary.FilesWithParseErrors = len(filesWithParseErrors)

	for _, rejection := range loadResult.Rejections {
		report.Summary.EventsWithIssues++
		rejectionCheck := CheckMalformedRecord
		if rejection.Reason == ledger.RejectionMalformedAmount {
			report.Summary.MalformedAmounts++
			rejectionCheck = CheckMalformedAmount
		}
		report.Issues = append(report.Issues, Issue{
			File:    rejection.File,
			EventID: rejection.EventID,
			Check:   rejectionCheck,
			Detail:  rejection.Detail,
		})
	}

	seenIdentifiers := make(map[string]struct{})
	for _, event := range loadResult.Events {
		issuesBefore := len(report.Issues)

		if len(event.ID) == 0 {
			report.Issues = append(report.Issues, Issue{
				File:   event.SourceFile,
				Check:  CheckMissingIdentifier,
				Detail: missingIdentifierDetailConstant,
			})
		} else if _, alreadySeen := seenIdentifiers[event.ID]; alreadySeen {
			report.Summary.DuplicateIdentifiers++
			report.Issues = append(report.Issues, Issue{
				File:    event.SourceFile,
				EventID: event.ID,
				Check:   CheckDuplicateIdentifier,
				Detail:  fmt.Sprintf(duplicateIdentifierDetailTemplate, event.ID),
			})
		} else {
			seenIdentifiers[event.ID] = struct{}{}
		}

		if event.Amount.IsNegative() {
			report.Summary.NegativeAmounts++
			report.Issues = append(report.Issues, Issue{
				File:    event.SourceFile,
				EventID: event.ID,
				Check:   CheckNegativeAmount,
				Detail:  fmt.Sprintf(negativeAmountDetailTemplate, event.Amount.String()),
			})
		}

		switch {
		case len(event.RawTimestamp) == 0:
			report.Issues = append(report.Issues, Issue{
				File:    event.SourceFile,
				EventID: event.ID,
				Check:   CheckMissingTimestamp,
				Detail:  missingTimestampDetailConstant,
			})
		case !event.HasTimestamp():
			report.Issues = append(report.Issues, Issue{
				File:    event.SourceFile,
				EventID: event.ID,
				Check:   CheckMalformedTimestamp,
				Detail:  fmt.Sprintf(malformedTimestampDetailTemplate, event.RawTimestamp),
			})
		case event.Timestamp.After(now):
			report.Summary.FutureTimestamps++
			report.Issues = append(report.Issues, Issue{
				File:    event.SourceFile,
				EventID: event.ID,
				Check:   CheckFutureTimestamp,
				Detail:  fmt.Sprintf(futureTimestampDetailTemplate, event.Timestamp.Format(time.RFC3339)),
			})
		}

		if len(report.Issues) > issuesBefore {
			report.Summary.EventsWithIssues++
		}
	}

	return report, nil
}

// WriteReport persists the rendered report artifact, one per calendar day,
// overwriting any artifact already produced the same day.
func (service *Service) WriteReport(report Report) (string, error) {
	reportDirectory := filepath.Join(service.reportsRoot, ledgerReportsSubdirectoryConstant)
	if directoryError := os.MkdirAll(reportDirectory, 0o755); directoryError != nil {
		return "", fmt.Errorf(reportDirectoryCreateTemplateConstant, directoryError)
	}

	reportPath := filepath.Join(reportDirectory, fmt.Sprintf(integrityReportFileTemplateConstant, report.GeneratedAt.Format(reportDateLayoutConstant)))
	if writeError := os.WriteFile(reportPath, []byte(RenderMarkdown(report)), 0o644); writeError != nil {
		return "", fmt.Errorf(reportWriteTemplateConstant, writeError)
	}

	return reportPath, nil
}

// runSummary is the machine-readable envelope printed after a validation run.
type runSummary struct {
	Report  string  `json:"report"`
	Summary Summary `json:"summary"`
}

// Run builds the report, persists the artifact, and prints the summary as
// indented JSON. Findings never fail the run.
func (service *Service) Run(executionContext context.Context, outputWriter io.Writer) error {
	report, buildError := service.BuildReport(executionContext)
	if buildError != nil {
		return buildError
	}

	reportPath, writeError := service.WriteReport(report)
	if writeError != nil {
		return writeError
	}

	service.logger.Info(validationCompletedMessageConstant,
		zap.String(logFieldReportPathConstant, reportPath),
		zap.Int(logFieldIssueCountConstant, len(report.Issues)),
	)

	encodedSummary, encodeError := json.MarshalIndent(runSummary{Report: reportPath, Summary: report.Summary}, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(summaryEncodeTemplateConstant, encodeError)
	}

	fmt.Fprintln(outputWriter, string(encodedSummary))
	return nil
}
