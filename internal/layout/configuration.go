package layout

import "strings"

const (
	defaultLegacyRootConstant          = "scripts/ledger/events"
	legacyRootsConfigKeySuffixConstant = ".legacy_roots"
)

// CommandConfiguration captures persistent settings for the normalize command.
type CommandConfiguration struct {
	LegacyRoots []string `mapstructure:"legacy_roots"`
}

// DefaultCommandConfiguration returns baseline configuration values for the normalize command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LegacyRoots: []string{defaultLegacyRootConstant},
	}
}

// DefaultConfigurationValues exposes the command defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + legacyRootsConfigKeySuffixConstant: defaults.LegacyRoots,
	}
}

// Sanitize trims whitespace and discards empty legacy root entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.LegacyRoots = sanitizeLegacyRoots(configuration.LegacyRoots)
	return sanitized
}

func sanitizeLegacyRoots(rawRoots []string) []string {
	sanitized := make([]string, 0, len(rawRoots))
	for index := range rawRoots {
		trimmedRoot := strings.TrimSpace(rawRoots[index])
		if len(trimmedRoot) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmedRoot)
	}
	return sanitized
}
