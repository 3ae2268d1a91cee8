package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
	"github.com/ledgerline/ledgerctl/internal/store"
)

const (
	canonicalDateLayoutConstant         = "2006-01-02"
	splitFileExtensionConstant          = ".json"
	ledgerReportsSubdirectoryConstant   = "ledger"
	relocationReportFileNameConstant    = "layout_normalization_report.json"
	reportDirectoryCreateTemplate       = "unable to create report directory: %w"
	relocationReportWriteTemplate       = "unable to write relocation report: %w"
	fileRelocatedMessageConstant        = "event file relocated"
	fileSkippedMessageConstant          = "event file skipped"
	normalizationCompletedMessage       = "layout normalization completed"
	logFieldSourcePathConstant          = "source_path"
	logFieldTargetPathConstant          = "target_path"
	logFieldSkipReasonConstant          = "skip_reason"
	logFieldRelocatedCountConstant      = "relocated_count"
	logFieldSkippedCountConstant        = "skipped_count"
	skipReasonEmptyFileConstant         = "empty_file"
	skipReasonUnparsableConstant        = "unparsable"
	skipReasonMissingIdentifierConstant = "missing_id"
	skipReasonTargetExistsConstant      = "target_exists"
	skipReasonMoveFailedConstant        = "move_failed"
	skipReasonSplitConflictConstant     = "split_conflict"
)

var canonicalDayDirectoryPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Relocation records one file moved into the canonical layout.
type Relocation struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SkippedFile records one relocation that was not performed, and why.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
	Target string `json:"target,omitempty"`
}

// Result captures the observable outcome of one normalization run.
type Result struct {
	GeneratedAt time.Time     `json:"ts"`
	Relocated   []Relocation  `json:"moved"`
	Skipped     []SkippedFile `json:"skipped"`
}

// Service relocates stray event files into the canonical per-day layout.
type Service struct {
	eventsRoot  string
	legacyRoots []string
	clock       ledger.Clock
	logger      *zap.Logger
}

// NewService constructs a Service over the provided event tree roots.
func NewService(eventsRoot string, legacyRoots []string, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		eventsRoot:  eventsRoot,
		legacyRoots: legacyRoots,
		clock:       clock,
		logger:      logger,
	}
}

// Run discovers stray event files and relocates each discoverable event into
// events/<UTC-date>/<id>. Existing canonical files are never overwritten;
// every skipped relocation is reported rather than silently dropped.
func (service *Service) Run(executionContext context.Context) (Result, error) {
	result := Result{GeneratedAt: service.clock.Now().UTC()}

	candidates, discoveryError := service.discoverStrayFiles()
	if discoveryError != nil {
		return Result{}, discoveryError
	}

	for _, candidatePath := range candidates {
		if contextError := executionContext.Err(); contextError != nil {
			return Result{}, contextError
		}
		service.relocateFile(candidatePath, &result)
	}

	service.logger.Info(normalizationCompletedMessage,
		zap.Int(logFieldRelocatedCountConstant, len(result.Relocated)),
		zap.Int(logFieldSkippedCountConstant, len(result.Skipped)),
	)

	return result, nil
}

// discoverStrayFiles collects event files from the legacy roots plus any file
// under the events root that is not already inside a canonical day directory.
func (service *Service) discoverStrayFiles() ([]string, error) {
	var candidates []string

	for _, legacyRoot := range service.legacyRoots {
		legacyFiles, walkError := collectEventFiles(legacyRoot, nil)
		if walkError != nil {
			return nil, walkError
		}
		candidates = append(candidates, legacyFiles...)
	}

	strayFiles, walkError := collectEventFiles(service.eventsRoot, func(path string) bool {
		return service.isCanonicalPath(path)
	})
	if walkError != nil {
		return nil, walkError
	}
	candidates = append(candidates, strayFiles...)

	sort.Strings(candidates)
	return candidates, nil
}

func collectEventFiles(root string, exclude func(string) bool) ([]string, error) {
	if _, statError := os.Stat(root); statError != nil {
		if os.IsNotExist(statError) {
			return nil, nil
		}
		return nil, statError
	}

	var collected []string
	walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if directoryEntry.IsDir() {
			return nil
		}
		if !store.HasEventFileExtension(path) {
			return nil
		}
		if exclude != nil && exclude(path) {
			return nil
		}
		collected = append(collected, path)
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}
	return collected, nil
}

// isCanonicalPath reports whether the file already sits directly inside a
// canonical day directory beneath the events root.
func (service *Service) isCanonicalPath(path string) bool {
	relativePath, relativeError := filepath.Rel(service.eventsRoot, path)
	if relativeError != nil {
		return false
	}
	pathSegments := strings.Split(filepath.ToSlash(relativePath), "/")
	return len(pathSegments) == 2 && canonicalDayDirectoryPattern.MatchString(pathSegments[0])
}

func (service *Service) relocateFile(sourcePath string, result *Result) {
	fileContent, readError := os.ReadFile(sourcePath)
	if readError != nil {
		service.recordSkip(result, sourcePath, skipReasonUnparsableConstant, "")
		return
	}

	records, parseFailures := ledger.DecodeRecords(fileContent)
	switch {
	case len(records) == 0 && len(parseFailures) == 0:
		service.recordSkip(result, sourcePath, skipReasonEmptyFileConstant, "")
	case len(records) == 0:
		service.recordSkip(result, sourcePath, skipReasonUnparsableConstant, "")
	case len(records) == 1:
		service.moveSingleRecordFile(sourcePath, records[0], result)
	default:
		service.splitMultiRecordFile(sourcePath, records, result)
	}
}

func (service *Service) moveSingleRecordFile(sourcePath string, record map[string]any, result *Result) {
	eventIdentifier := rawRecordIdentifier(record)
	if len(eventIdentifier) == 0 {
		service.recordSkip(result, sourcePath, skipReasonMissingIdentifierConstant, "")
		return
	}

	targetPath := service.canonicalTargetPath(record, eventIdentifier, strings.ToLower(filepath.Ext(sourcePath)))
	if sourcePath == targetPath {
		return
	}
	if _, statError := os.Stat(targetPath); statError == nil {
		service.recordSkip(result, sourcePath, skipReasonTargetExistsConstant, targetPath)
		return
	}

	if directoryError := os.MkdirAll(filepath.Dir(targetPath), 0o755); directoryError != nil {
		service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, targetPath)
		return
	}
	if renameError := os.Rename(sourcePath, targetPath); renameError != nil {
		service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, targetPath)
		return
	}

	service.logger.Info(fileRelocatedMessageConstant,
		zap.String(logFieldSourcePathConstant, sourcePath),
		zap.String(logFieldTargetPathConstant, targetPath),
	)
	result.Relocated = append(result.Relocated, Relocation{From: sourcePath, To: targetPath})
}

// splitMultiRecordFile writes each event of a legacy multi-event file into
// its own canonical file. The legacy source is removed only when every event
// was placed fresh; any conflict keeps the source in place and reports it.
func (service *Service) splitMultiRecordFile(sourcePath string, records []map[string]any, result *Result) {
	plannedTargets := make([]string, len(records))
	for recordIndex, record := range records {
		eventIdentifier := rawRecordIdentifier(record)
		if len(eventIdentifier) == 0 {
			service.recordSkip(result, sourcePath, skipReasonMissingIdentifierConstant, "")
			return
		}
		plannedTargets[recordIndex] = service.canonicalTargetPath(record, eventIdentifier, splitFileExtensionConstant)
	}

	conflictFound := false
	for _, targetPath := range plannedTargets {
		if _, statError := os.Stat(targetPath); statError == nil {
			conflictFound = true
			service.recordSkip(result, sourcePath, skipReasonSplitConflictConstant, targetPath)
		}
	}
	if conflictFound {
		return
	}

	for recordIndex, record := range records {
		targetPath := plannedTargets[recordIndex]
		serializedRecord, serializationError := json.MarshalIndent(record, "", "  ")
		if serializationError != nil {
			service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, targetPath)
			return
		}
		if directoryError := os.MkdirAll(filepath.Dir(targetPath), 0o755); directoryError != nil {
			service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, targetPath)
			return
		}
		if writeError := os.WriteFile(targetPath, append(serializedRecord, '\n'), 0o644); writeError != nil {
			service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, targetPath)
			return
		}
		result.Relocated = append(result.Relocated, Relocation{From: sourcePath, To: targetPath})
		service.logger.Info(fileRelocatedMessageConstant,
			zap.String(logFieldSourcePathConstant, sourcePath),
			zap.String(logFieldTargetPathConstant, targetPath),
		)
	}

	if removeError := os.Remove(sourcePath); removeError != nil {
		service.recordSkip(result, sourcePath, skipReasonMoveFailedConstant, "")
	}
}

func (service *Service) recordSkip(result *Result, sourcePath string, reason string, targetPath string) {
	service.logger.Warn(fileSkippedMessageConstant,
		zap.String(logFieldSourcePathConstant, sourcePath),
		zap.String(logFieldSkipReasonConstant, reason),
	)
	result.Skipped = append(result.Skipped, SkippedFile{File: sourcePath, Reason: reason, Target: targetPath})
}

// canonicalTargetPath derives events/<UTC-date>/<id><extension>. The day
// bucket comes from the event's own timestamp when parseable, otherwise the
// current UTC date at migration time.
func (service *Service) canonicalTargetPath(record map[string]any, eventIdentifier string, extension string) string {
	dayBucket := service.clock.Now().UTC().Format(canonicalDateLayoutConstant)
	if parsedTimestamp, timestampValid := ledger.ParseTimestamp(rawRecordTimestamp(record)); timestampValid {
		dayBucket = parsedTimestamp.Format(canonicalDateLayoutConstant)
	}
	return filepath.Join(service.eventsRoot, dayBucket, eventIdentifier+extension)
}

func rawRecordIdentifier(record map[string]any) string {
	for _, fieldName := range []string{"id", "event_id"} {
		if rawValue, fieldPresent := record[fieldName]; fieldPresent {
			if stringValue, isString := rawValue.(string); isString {
				trimmedValue := strings.TrimSpace(stringValue)
				if len(trimmedValue) > 0 {
					return trimmedValue
				}
			}
		}
	}
	return ""
}

func rawRecordTimestamp(record map[string]any) string {
	for _, fieldName := range []string{"ts", "timestamp"} {
		if rawValue, fieldPresent := record[fieldName]; fieldPresent {
			if stringValue, isString := rawValue.(string); isString {
				return stringValue
			}
		}
	}
	return ""
}

// WriteReport persists the relocation report as indented JSON.
func (service *Service) WriteReport(result Result, reportsRoot string) (string, error) {
	reportDirectory := filepath.Join(reportsRoot, ledgerReportsSubdirectoryConstant)
	if directoryError := os.MkdirAll(reportDirectory, 0o755); directoryError != nil {
		return "", fmt.Errorf(reportDirectoryCreateTemplate, directoryError)
	}

	encodedResult, encodeError := json.MarshalIndent(result, "", "  ")
	if encodeError != nil {
		return "", fmt.Errorf(relocationReportWriteTemplate, encodeError)
	}

	reportPath := filepath.Join(reportDirectory, relocationReportFileNameConstant)
	if writeError := os.WriteFile(reportPath, append(encodedResult, '\n'), 0o644); writeError != nil {
		return "", fmt.Errorf(relocationReportWriteTemplate, writeError)
	}

	return reportPath, nil
}
