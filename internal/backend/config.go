package backend

import (
	"fmt"

	"kitchenledger/internal/config"
	gsheet "kitchenledger/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		SessionType: BackendType(appConfig.SessionBackend),
		DBPath:      appConfig.DBPath,
		ExportType:  BackendType(appConfig.ExportBackend),
		Sheets: gsheet.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			SheetName:          appConfig.GoogleSheetName,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		},
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the backend selections. Credentials are checked by config.
func (c Config) Validate() error {
	switch c.SessionType {
	case SQLiteBackend:
		if c.DBPath == "" {
			return fmt.Errorf("database path is required for sqlite session backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid session backend type: %s", c.SessionType)
	}

	switch c.ExportType {
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets export")
		}
	case MemoryBackend, "":
	default:
		return fmt.Errorf("invalid export backend type: %s", c.ExportType)
	}
	return nil
}
