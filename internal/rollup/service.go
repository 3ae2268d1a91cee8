package rollup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

const (
	financialReportsSubdirectoryConstant = "financial"
	ledgerReportsSubdirectoryConstant    = "ledger"
	rollupFileTemplateConstant           = "daily_rollup_%s.md"
	rollupDateLayoutConstant             = "2006-01-02"

	walletSnapshotPrefixConstant   = "wallet_snapshot_"
	telemetryReportPrefixConstant  = "daily_"
	telemetryRollupPrefixConstant  = "daily_rollup_"
	integrityReportPrefixConstant  = "ledger_integrity_"
	markdownExtensionConstant      = ".md"
	telemetrySummaryExtensionConst = ".json"

	rollupDirectoryCreateTemplateConstant = "unable to create rollup directory: %w"
	rollupWriteTemplateConstant           = "unable to write rollup report: %w"
	rollupWrittenMessageConstant          = "daily rollup written"
	logFieldRollupPathConstant            = "path"

	artifactMissingNoteConstant = "_not available yet_"
)

// Artifact describes one referenced report in the rollup.
type Artifact struct {
	Title string
	Path  string
	Found bool
}

// Digest is the collected set of latest artifacts for one rollup run.
type Digest struct {
	Snapshot        Artifact
	Telemetry       Artifact
	Integrity       Artifact
	TelemetryStatus string
}

// Service builds the daily rollup from previously generated reports.
type Service struct {
	reportsRoot   string
	telemetryRoot string
	clock         ledger.Clock
	logger        *zap.Logger
}

// NewService constructs a rollup Service rooted at the report directories.
func NewService(reportsRoot string, telemetryRoot string, clock ledger.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reportsRoot:   reportsRoot,
		telemetryRoot: telemetryRoot,
		clock:         clock,
		logger:        logger,
	}
}

// BuildDigest locates the newest snapshot, telemetry, and integrity reports.
func (service *Service) BuildDigest() Digest {
	financialDirectory := filepath.Join(service.reportsRoot, financialReportsSubdirectoryConstant)
	ledgerDirectory := filepath.Join(service.reportsRoot, ledgerReportsSubdirectoryConstant)

	digest := Digest{
		Snapshot:  locateArtifact("Wallet snapshot", service.telemetryRoot, walletSnapshotPrefixConstant, nil),
		Telemetry: locateArtifact("Spending telemetry", financialDirectory, telemetryReportPrefixConstant, []string{telemetryRollupPrefixConstant}),
		Integrity: locateArtifact("Ledger integrity", ledgerDirectory, integrityReportPrefixConstant, nil),
	}
	digest.TelemetryStatus = service.latestTelemetryStatus()
	return digest
}

// latestTelemetryStatus reads the status field from the newest telemetry JSON
// summary, returning an empty string when none can be read.
func (service *Service) latestTelemetryStatus() string {
	summaryPath := latestFileWithPrefix(service.telemetryRoot, telemetryReportPrefixConstant, telemetrySummaryExtensionConst, []string{telemetryRollupPrefixConstant})
	if len(summaryPath) == 0 {
		return ""
	}
	summaryContent, readError := os.ReadFile(summaryPath)
	if readError != nil {
		return ""
	}
	var summary struct {
		Status string `json:"status"`
	}
	if decodeError := json.Unmarshal(summaryContent, &summary); decodeError != nil {
		return ""
	}
	return summary.Status
}

func locateArtifact(title string, directory string, prefix string, excludedPrefixes []string) Artifact {
	latestPath := latestFileWithPrefix(directory, prefix, markdownExtensionConstant, excludedPrefixes)
	return Artifact{
		Title: title,
		Path:  latestPath,
		Found: len(latestPath) > 0,
	}
}

// latestFileWithPrefix returns the lexicographically newest matching file.
// File names embed ISO dates, so lexical order is chronological order.
func latestFileWithPrefix(directory string, prefix string, extension string, excludedPrefixes []string) string {
	entries, readError := os.ReadDir(directory)
	if readError != nil {
		return ""
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, extension) {
			continue
		}
		excluded := false
		for _, excludedPrefix := range excludedPrefixes {
			if strings.HasPrefix(name, excludedPrefix) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Strings(candidates)
	return filepath.Join(directory, candidates[len(candidates)-1])
}

// WriteRollup renders the digest and persists the dated rollup file, returning
// its path.
func (service *Service) WriteRollup(digest Digest) (string, error) {
	rollupDirectory := filepath.Join(service.reportsRoot, financialReportsSubdirectoryConstant)
	if directoryError := os.MkdirAll(rollupDirectory, 0o755); directoryError != nil {
		return "", fmt.Errorf(rollupDirectoryCreateTemplateConstant, directoryError)
	}

	day := service.clock.Now().UTC().Format(rollupDateLayoutConstant)
	rollupPath := filepath.Join(rollupDirectory, fmt.Sprintf(rollupFileTemplateConstant, day))
	if writeError := os.WriteFile(rollupPath, []byte(service.render(digest, day)), 0o644); writeError != nil {
		return "", fmt.Errorf(rollupWriteTemplateConstant, writeError)
	}

	service.logger.Info(rollupWrittenMessageConstant, zap.String(logFieldRollupPathConstant, rollupPath))
	return rollupPath, nil
}

func (service *Service) render(digest Digest, day string) string {
	var reportBuilder strings.Builder
	reportBuilder.WriteString("# Daily Operations Rollup\n\n")
	reportBuilder.WriteString(fmt.Sprintf("- Date: `%s`\n", day))
	if len(digest.TelemetryStatus) > 0 {
		reportBuilder.WriteString(fmt.Sprintf("- Spending status: **%s**\n", digest.TelemetryStatus))
	}
	reportBuilder.WriteString("\n## Latest Reports\n\n")
	for _, artifact := range []Artifact{digest.Snapshot, digest.Telemetry, digest.Integrity} {
		if artifact.Found {
			reportBuilder.WriteString(fmt.Sprintf("- %s: `%s`\n", artifact.Title, artifact.Path))
			continue
		}
		reportBuilder.WriteString(fmt.Sprintf("- %s: %s\n", artifact.Title, artifactMissingNoteConstant))
	}
	reportBuilder.WriteString("\n")
	return reportBuilder.String()
}
