// Package database provisions one MySQL database per worker so modules running
// in parallel never share database state.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"mtr/internal/config"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// Manager manages per-worker test databases
type Manager struct {
	config *config.Config
	log    zerolog.Logger
}

// NewManager creates a new Manager
func NewManager(cfg *config.Config, log zerolog.Logger) *Manager {
	return &Manager{config: cfg, log: log}
}

// DSN returns the server connection string built from DB_HOST, DB_PORT,
// DB_USERNAME and DB_PASSWORD (the project's .env is loaded by config).
func (m *Manager) DSN() string {
	c := mysql.NewConfig()
	c.User = getenv("DB_USERNAME", "root")
	c.Passwd = os.Getenv("DB_PASSWORD")
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(getenv("DB_HOST", "127.0.0.1"), getenv("DB_PORT", "3306"))
	return c.FormatDSN()
}

// EnsureDatabases creates the databases of workers 1..workerCount that do not
// exist yet and returns their names.
func (m *Manager) EnsureDatabases(ctx context.Context, workerCount int) ([]string, error) {
	names := make([]string, 0, workerCount)
	for i := 1; i <= workerCount; i++ {
		name := m.config.GetDatabaseName(i)
		if !validName.MatchString(name) {
			return nil, fmt.Errorf("invalid database name: %s", name)
		}
		names = append(names, name)
	}

	db, err := sql.Open("mysql", m.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	var created int
	for _, name := range names {
		exists, err := m.databaseExists(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check database %s: %w", name, err)
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", name, err)
		}
		created++
	}

	m.log.Info().Int("databases", len(names)).Int("created", created).Msg("worker databases ready")
	return names, nil
}

func (m *Manager) databaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRowContext(ctx, query, name).Scan(&exists)
	return exists, err
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
