package store

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// DataBackendType names a supported database backend.
type DataBackendType string

const (
	BackendSQLite DataBackendType = "sqlite"
	BackendTurso  DataBackendType = "turso"
)

// DataBackend abstracts where the SQL database lives. Both backends
// speak SQLite dialect, so the Store's queries are backend-agnostic.
type DataBackend interface {
	Type() DataBackendType

	// Connect opens the database connection.
	Connect() (*sql.DB, error)

	// Description is logged at startup so a deployment's backend is
	// visible without reading its environment.
	Description() string
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend DataBackendType `json:"backend"`

	// Local SQLite file, or ":memory:" for tests.
	SQLitePath string `json:"sqlitePath,omitempty"`

	// Turso database URL (libsql://...) and auth token.
	TursoURL   string `json:"tursoUrl,omitempty"`
	TursoToken string `json:"tursoToken,omitempty"`
}

// ConfigFromEnv builds a Config from the environment. DB_BACKEND picks
// the backend explicitly; when unset, a TURSO_DATABASE_URL implies
// turso and anything else falls back to a local SQLite file.
//
//	DB_BACKEND  "sqlite" | "turso"
//	SQLITE_PATH database file, default "toasthub.db"
//	TURSO_DATABASE_URL, TURSO_AUTH_TOKEN
func ConfigFromEnv() Config {
	backend := DataBackendType(os.Getenv("DB_BACKEND"))
	if backend == "" {
		if os.Getenv("TURSO_DATABASE_URL") != "" {
			backend = BackendTurso
		} else {
			backend = BackendSQLite
		}
	}

	cfg := Config{Backend: backend}

	switch backend {
	case BackendTurso:
		cfg.TursoURL = os.Getenv("TURSO_DATABASE_URL")
		cfg.TursoToken = os.Getenv("TURSO_AUTH_TOKEN")
	case BackendSQLite:
		cfg.SQLitePath = os.Getenv("SQLITE_PATH")
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "toasthub.db"
		}
	}

	return cfg
}

// NewDataBackend resolves a Config into its backend.
func NewDataBackend(cfg Config) (DataBackend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return &SQLiteBackend{Path: cfg.SQLitePath}, nil
	case BackendTurso:
		return &TursoBackend{URL: cfg.TursoURL, Token: cfg.TursoToken}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// SQLiteBackend is a local file (or in-memory) database via
// modernc.org/sqlite, the default for single-box deployments.
type SQLiteBackend struct {
	Path string
}

func (b *SQLiteBackend) Type() DataBackendType {
	return BackendSQLite
}

func (b *SQLiteBackend) Connect() (*sql.DB, error) {
	path := b.Path
	if path == "" {
		path = "toasthub.db"
	}
	return sql.Open("sqlite", path)
}

func (b *SQLiteBackend) Description() string {
	if b.Path == ":memory:" || b.Path == "file::memory:" {
		return "SQLite (in-memory)"
	}
	return fmt.Sprintf("SQLite (%s)", b.Path)
}

// TursoBackend is a hosted libsql database, for deployments where the
// binary runs on ephemeral hosts and the data must not.
type TursoBackend struct {
	URL   string
	Token string
}

func (b *TursoBackend) Type() DataBackendType {
	return BackendTurso
}

func (b *TursoBackend) Connect() (*sql.DB, error) {
	if b.URL == "" {
		return nil, fmt.Errorf("turso URL is required")
	}

	connStr := b.URL
	if b.Token != "" {
		connStr += "?authToken=" + b.Token
	}

	return sql.Open("libsql", connStr)
}

func (b *TursoBackend) Description() string {
	return fmt.Sprintf("Turso (%s)", b.URL)
}
