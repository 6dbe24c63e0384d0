// Package backend builds the pluggable infrastructure of the binaries: the
// session KV, the spreadsheet exporter and the optional event client.
package backend

import (
	"context"

	"kitchenledger/internal/amqp"
	"kitchenledger/internal/sheets"
	gsheet "kitchenledger/internal/sheets/google"
	"kitchenledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SessionResult holds the KV backing the session store.
type SessionResult struct {
	KV      storage.KV
	Cleanup CleanupFunc
}

// ExportResult holds the spreadsheet mirror.
type ExportResult struct {
	Exporter sheets.Exporter
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateSessionKV(ctx context.Context, config Config) (*SessionResult, error)
	CreateExporter(ctx context.Context, config Config) (*ExportResult, error)
	// CreateEventClient returns nil and no error when events are disabled.
	CreateEventClient(ctx context.Context, config Config) (*amqp.Client, error)
}

// Config holds configuration for backend creation
type Config struct {
	SessionType BackendType
	DBPath      string

	ExportType BackendType
	Sheets     gsheet.Config

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
