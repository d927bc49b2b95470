package audit

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// IntegrationConfig configures audit logging for the application.
type IntegrationConfig struct {
	// Database connection for DB logger
	DB *sql.DB

	// File logging configuration
	FileLoggingEnabled bool
	FileLogPath        string
	FileLogRotate      bool
	FileLogMaxSize     int64
	FileLogMaxFiles    int

	// DB logging configuration
	DBLoggingEnabled bool

	// Middleware configuration
	LogAllRequests bool // If false, only log mutations and sensitive operations

	// Retention policy
	RetentionPolicy RetentionPolicy
}

// DefaultIntegrationConfig returns a DB-only integration configuration: file
// logging needs an operator-chosen path, so it stays off until IntegrationConfig
// is edited to turn it on.
func DefaultIntegrationConfig(db *sql.DB) IntegrationConfig {
	return IntegrationConfig{
		DB:               db,
		DBLoggingEnabled: true,
		LogAllRequests:   false,
		RetentionPolicy:  DefaultRetentionPolicy(),
	}
}

// SetupAuditLogging builds the audit middleware and the read-only query
// handlers from one IntegrationConfig. handlers is nil when DB logging is
// off, since there is then no Store to back /api/audit with.
func SetupAuditLogging(config IntegrationConfig) (*Middleware, *Handlers, error) {
	loggers := make([]Logger, 0)

	if config.FileLoggingEnabled {
		fileConfig := FileLoggerConfig{
			BasePath: config.FileLogPath,
			Rotate:   config.FileLogRotate,
			MaxSize:  config.FileLogMaxSize,
			MaxFiles: config.FileLogMaxFiles,
		}

		fileLogger, err := NewFileLogger(fileConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
		}

		loggers = append(loggers, fileLogger)
	}

	var dbLogger *DBLogger
	if config.DBLoggingEnabled && config.DB != nil {
		var err error
		dbLogger, err = NewDBLogger(config.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database logger: %w", err)
		}

		loggers = append(loggers, dbLogger)
	}

	multiLogger := NewMultiLogger(loggers...)
	middleware := NewMiddleware(multiLogger, config.LogAllRequests)

	var handlers *Handlers
	if dbLogger != nil {
		store := NewDBStore(dbLogger)
		handlers = NewHandlers(store)
	}

	return middleware, handlers, nil
}

// WrapRouterWithAudit is a convenience function to wrap a router with audit middleware
func WrapRouterWithAudit(router *mux.Router, middleware *Middleware) http.Handler {
	return middleware.Handler(router)
}

// AddAuditRoutes adds audit API routes to a router
func AddAuditRoutes(router *mux.Router, handlers *Handlers) {
	if handlers != nil {
		handlers.RegisterRoutes(router)
	}
}
