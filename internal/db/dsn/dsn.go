// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/staffgate/staffgate/internal/config"
)

// Create builds the Data Source Name for the configured engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.Engine {
	case config.EnginePostgres:
		return Postgres(cfg)
	case config.EngineSQLite:
		return cfg.DB.Name
	default:
		return MySQL(cfg)
	}
}

// MySQL builds a go-sql-driver DSN.
func MySQL(cfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
	)

	if cfg.DB.Extras != "" {
		out += "?" + cfg.DB.Extras
	}

	return out
}

// Postgres builds a keyword/value DSN as understood by pgx.
func Postgres(cfg *config.Config) string {
	parts := []string{
		"host=" + cfg.DB.Host,
		fmt.Sprintf("port=%d", cfg.DB.Port),
		"user=" + cfg.DB.User,
		"password=" + quote(cfg.DB.Password),
		"dbname=" + cfg.DB.Name,
	}

	if cfg.DB.SSLMode != "" {
		parts = append(parts, "sslmode="+cfg.DB.SSLMode)
	}

	if cfg.DB.Extras != "" {
		parts = append(parts, cfg.DB.Extras)
	}

	return strings.Join(parts, " ")
}

// PostgresURI builds a postgres:// connection URI, used by the shared token cache storage.
func PostgresURI(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DB.User, cfg.DB.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.DB.Host, cfg.DB.Port),
		Path:   "/" + cfg.DB.Name,
	}

	if cfg.DB.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", cfg.DB.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " '\\") {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
	}

	return s
}
