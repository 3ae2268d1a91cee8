package utils

import "context"

type commandContextKey int

const configurationFilePathContextKey commandContextKey = iota

// CommandContextAccessor passes per-invocation values through the cobra
// command context. The root command stores the resolved configuration file
// path here so subcommands can report which file configured the run.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath returns a context carrying the configuration file path.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKey, configurationFilePath)
}

// ConfigurationFilePath reads the stored configuration file path, reporting
// whether one is present.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	storedPath, pathPresent := executionContext.Value(configurationFilePathContextKey).(string)
	return storedPath, pathPresent
}
