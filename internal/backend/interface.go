package backend

import (
	"context"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/cache"
	"outlay/internal/core"
	"outlay/internal/preferences"
	"outlay/internal/services"
	"outlay/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything the commands need to serve requests.
type BackendResult struct {
	Repository  store.Repository
	Preferences preferences.Store
	Expenses    *services.ExpenseService
	Settings    *services.SettingsService

	// AMQP is nil when change events are disabled or the broker was
	// unreachable at startup.
	AMQP *amqp.Client

	Caches *cache.Manager

	// Ready reports whether storage can serve requests.
	Ready func(context.Context) error

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific; seed_categories.txt in this directory, when
	// present, replaces the default categories.
	DataDirectory string

	Prefs     PrefsType
	PrefsFile string

	Edition      core.Edition
	DeletePolicy services.DeletePolicy

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// PrefsType selects where preferences live.
type PrefsType string

const (
	MemoryPrefs PrefsType = "memory"
	FilePrefs   PrefsType = "file"
)

func (pt PrefsType) IsValid() bool {
	return pt == MemoryPrefs || pt == FilePrefs
}
