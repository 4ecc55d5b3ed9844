package backend

import (
	"fmt"

	"outlay/internal/config"
	"outlay/internal/core"
	"outlay/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	edition, err := core.ParseEdition(appConfig.Edition)
	if err != nil {
		return Config{}, fmt.Errorf("parse edition: %w", err)
	}
	policy, err := services.ParseDeletePolicy(appConfig.CategoryDeletePolicy)
	if err != nil {
		return Config{}, fmt.Errorf("parse delete policy: %w", err)
	}

	return Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,

		Prefs:     PrefsType(appConfig.PrefsBackend),
		PrefsFile: appConfig.PrefsFile,

		Edition:      edition,
		DeletePolicy: policy,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		CacheSize: appConfig.CacheSize,
		CacheTTL:  appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Prefs {
	case MemoryPrefs, "":
	case FilePrefs:
		if c.PrefsFile == "" {
			return fmt.Errorf("preferences file is required for file preferences")
		}
	default:
		return fmt.Errorf("invalid preferences type: %s", c.Prefs)
	}
	// AMQP is optional, so we don't validate it
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
