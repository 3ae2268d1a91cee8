package telemetry

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	limitsParseErrorTemplateConstant = "unable to parse spending limits: %w"
	defaultMonthlySoftCapConstant    = 250.0
	defaultMonthlyHardCapConstant    = 275.0
)

// Limits holds the configured monthly spending caps.
type Limits struct {
	MonthlySoftCap decimal.Decimal
	MonthlyHardCap decimal.Decimal
}

// limitsFile mirrors the on-disk YAML limits document.
type limitsFile struct {
	Limits struct {
		MonthlySoftCap float64 `yaml:"monthly_soft_cap"`
		MonthlyHardCap float64 `yaml:"monthly_hard_cap"`
	} `yaml:"limits"`
}

// DefaultLimits returns the baseline caps used when no limits file exists.
func DefaultLimits() Limits {
	return Limits{
		MonthlySoftCap: decimal.NewFromFloat(defaultMonthlySoftCapConstant),
		MonthlyHardCap: decimal.NewFromFloat(defaultMonthlyHardCapConstant),
	}
}

// LoadLimits reads the spending caps from the provided YAML file. A missing
// file yields the defaults; unreadable content is an error.
func LoadLimits(limitsFilePath string) (Limits, error) {
	fileContent, readError := os.ReadFile(limitsFilePath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return DefaultLimits(), nil
		}
		return Limits{}, readError
	}

	var parsedLimits limitsFile
	if parseError := yaml.Unmarshal(fileContent, &parsedLimits); parseError != nil {
		return Limits{}, fmt.Errorf(limitsParseErrorTemplateConstant, parseError)
	}

	limits := DefaultLimits()
	if parsedLimits.Limits.MonthlySoftCap > 0 {
		limits.MonthlySoftCap = decimal.NewFromFloat(parsedLimits.Limits.MonthlySoftCap)
	}
	if parsedLimits.Limits.MonthlyHardCap > 0 {
		limits.MonthlyHardCap = decimal.NewFromFloat(parsedLimits.Limits.MonthlyHardCap)
	}

	return limits, nil
}
