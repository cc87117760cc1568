package config

const (
	defaultDataDir                = "~/.local/share/geomigrate"
	defaultLogDir                 = "~/.local/share/geomigrate/logs"
	defaultProviderBaseURL        = "http://127.0.0.1:8200"
	defaultProviderTimeoutSeconds = 30
	defaultMigrationPageSize      = 100
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Provider: Provider{
			BaseURL:        defaultProviderBaseURL,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Migration: Migration{
			PageSize: defaultMigrationPageSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
