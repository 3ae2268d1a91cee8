package ledger

import "strings"

const (
	defaultEventsRootConstant    = "ledger/events"
	defaultReportsRootConstant   = "reports"
	defaultTelemetryRootConstant = "ledger/telemetry/financial"

	eventsRootConfigKeySuffixConstant      = ".events_root"
	reportsRootConfigKeySuffixConstant     = ".reports_root"
	telemetryRootConfigKeySuffixConstant   = ".telemetry_root"
	defaultCurrencyConfigKeySuffixConstant = ".default_currency"
	fallbackAccountConfigKeySuffixConstant = ".fallback_account"
)

// Configuration captures the filesystem layout and ingestion defaults shared
// by every ledger command.
type Configuration struct {
	EventsRoot      string `mapstructure:"events_root"`
	ReportsRoot     string `mapstructure:"reports_root"`
	TelemetryRoot   string `mapstructure:"telemetry_root"`
	DefaultCurrency string `mapstructure:"default_currency"`
	FallbackAccount string `mapstructure:"fallback_account"`
}

// DefaultConfiguration returns baseline values for the shared ledger configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		EventsRoot:      defaultEventsRootConstant,
		ReportsRoot:     defaultReportsRootConstant,
		TelemetryRoot:   defaultTelemetryRootConstant,
		DefaultCurrency: defaultCurrencyFallbackConstant,
		FallbackAccount: defaultAccountFallbackConstant,
	}
}

// DefaultConfigurationValues exposes the shared defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		configurationPrefix + eventsRootConfigKeySuffixConstant:      defaults.EventsRoot,
		configurationPrefix + reportsRootConfigKeySuffixConstant:     defaults.ReportsRoot,
		configurationPrefix + telemetryRootConfigKeySuffixConstant:   defaults.TelemetryRoot,
		configurationPrefix + defaultCurrencyConfigKeySuffixConstant: defaults.DefaultCurrency,
		configurationPrefix + fallbackAccountConfigKeySuffixConstant: defaults.FallbackAccount,
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	defaults := DefaultConfiguration()

	sanitized.EventsRoot = valueOrDefault(configuration.EventsRoot, defaults.EventsRoot)
	sanitized.ReportsRoot = valueOrDefault(configuration.ReportsRoot, defaults.ReportsRoot)
	sanitized.TelemetryRoot = valueOrDefault(configuration.TelemetryRoot, defaults.TelemetryRoot)
	sanitized.DefaultCurrency = strings.ToUpper(valueOrDefault(configuration.DefaultCurrency, defaults.DefaultCurrency))
	sanitized.FallbackAccount = valueOrDefault(configuration.FallbackAccount, defaults.FallbackAccount)

	return sanitized
}

func valueOrDefault(rawValue string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
