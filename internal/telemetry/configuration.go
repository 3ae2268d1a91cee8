package telemetry

import "strings"

const (
	defaultLimitsFileConstant         = "config/financial_limits.yaml"
	limitsFileConfigKeySuffixConstant = ".limits_file"
)

// CommandConfiguration captures persistent settings for the telemetry command.
type CommandConfiguration struct {
	LimitsFile string `mapstructure:"limits_file"`
}

// DefaultCommandConfiguration returns baseline configuration values for the telemetry command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LimitsFile: defaultLimitsFileConstant,
	}
}

// DefaultConfigurationValues exposes the command defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + limitsFileConfigKeySuffixConstant: defaults.LimitsFile,
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	trimmedLimitsFile := strings.TrimSpace(configuration.LimitsFile)
	if len(trimmedLimitsFile) == 0 {
		trimmedLimitsFile = defaultLimitsFileConstant
	}
	sanitized.LimitsFile = trimmedLimitsFile
	return sanitized
}
