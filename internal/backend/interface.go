package backend

import (
	"context"

	"expenses/internal/cache"
	"expenses/internal/ledger"
	"expenses/internal/ledger/google"
	"expenses/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired service, the store behind it and an optional cleanup function
type BackendResult struct {
	Service *services.ExpenseService
	Store   ledger.Store
	// Caches lists the store caches the server's janitor should sweep.
	Caches  []cache.Cleaner
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the primary ledger store and the service over it
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror creates the secondary store the worker copies the ledger into
	CreateMirror(ctx context.Context, config Config) (ledger.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Spreadsheet file
	LedgerFile  string
	LedgerSheet string

	// SQLite specific
	SQLiteDBPath string

	// Change events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	Google google.Config

	// Mirror store for the worker
	MirrorType BackendType
	MirrorFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	XLSXBackend   BackendType = "xlsx"
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
	case XLSXBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// IsValidMirror reports whether the type can receive mirrored ledgers.
func (bt BackendType) IsValidMirror() bool {
	return bt == SheetsBackend || bt == XLSXBackend
}
