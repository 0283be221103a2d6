package backend

import (
	"fmt"

	"expenses/internal/config"
	"expenses/internal/ledger/google"
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

	return Config{
		Type: backendType,

		LedgerFile:  appConfig.LedgerFile,
		LedgerSheet: appConfig.LedgerSheet,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Google: google.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			SheetName:          appConfig.GoogleSheetName,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
			OAuthClientFile:    appConfig.GoogleOAuthClientFile,
			OAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		},

		MirrorType: BackendType(appConfig.MirrorBackend),
		MirrorFile: appConfig.MirrorFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case XLSXBackend:
		if c.LedgerFile == "" {
			return fmt.Errorf("ledger file is required for xlsx backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if err := c.validateGoogle(); err != nil {
			return fmt.Errorf("sheets backend: %w", err)
		}
	case MemoryBackend:
		// nothing to check
	}

	return nil
}

// ValidateMirror checks the settings CreateMirror needs.
func (c Config) ValidateMirror() error {
	switch c.MirrorType {
	case XLSXBackend:
		if c.MirrorFile == "" {
			return fmt.Errorf("mirror file is required for xlsx mirror")
		}
	case SheetsBackend:
		if err := c.validateGoogle(); err != nil {
			return fmt.Errorf("sheets mirror: %w", err)
		}
	default:
		return fmt.Errorf("invalid mirror type: %s", c.MirrorType)
	}
	return nil
}

func (c Config) validateGoogle() error {
	if c.Google.SpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required")
	}
	hasServiceAccount := c.Google.ServiceAccountJSON != "" || c.Google.ServiceAccountFile != ""
	hasOAuth := c.Google.OAuthClientFile != "" && c.Google.OAuthTokenFile != ""
	if !hasServiceAccount && !hasOAuth {
		return fmt.Errorf("service account or OAuth client and token must be provided")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{XLSXBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
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
