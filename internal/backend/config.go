package backend

import (
	"fmt"

	"pnl/internal/config"
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

	cfg := Config{
		Type:                      backendType,
		SeedFile:                  appConfig.SeedFile,
		SQLiteDBPath:              appConfig.SQLiteDBPath,
		DatabaseURL:               appConfig.DatabaseURL,
		GoogleSpreadsheetID:       appConfig.GoogleSpreadsheetID,
		GoogleFactsSheetName:      appConfig.GoogleFactsSheetName,
		GoogleCategoriesSheetName: appConfig.GoogleCategoriesSheetName,
	}
	if appConfig.FactsCacheEnabled() {
		cfg.FactsCacheSize = appConfig.FactsCacheSize
		cfg.FactsCacheTTL = appConfig.FactsCacheTTL
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// An empty seed file yields an empty store.
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
