package config

import (
	"time"

	"github.com/staffgate/staffgate/internal/logger"
)

// Token cache drivers.
const (
	TokenCacheMemory   = "memory"
	TokenCacheMySQL    = "mysql"
	TokenCachePostgres = "postgres"
)

// Config overall data structure.
type Config struct {
	DevMode      bool // enable dev mode for development
	DB           DB
	Log          logger.Log
	Title        string
	Webserver    Webserver
	Directory    Directory
	External     External
	Credentials  Credentials
	Provisioning Provisioning
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	ShutDownTime int    // wait time for shutdown
	URL          string // base url for the webserver
	BodyLimit    int    // max request body size in bytes, 0 keeps the fiber default
}

// Directory holds the Microsoft Graph application settings.
type Directory struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	Domain         string // principal name domain, e.g. contoso.com
	GraphURL       string
	TokenURL       string
	Scope          string
	UsageLocation  string // two letter country code set on new accounts
	PasswordLength int
	Timeout        time.Duration
	TokenCacheTTL  time.Duration
	RateLimit      float64 // requests per second towards graph
	RateBurst      int
	TokenCache     TokenCache
}

// TokenCache selects where the directory access token is shared.
type TokenCache struct {
	Driver string // memory, mysql or postgres
	Table  string
}

// External holds the third-party provisioning client settings.
type External struct {
	Timeout             time.Duration
	DefaultAPIKeyHeader string
}

// Credentials holds the key material for module credentials at rest.
type Credentials struct {
	Key string
}

// Provisioning holds orchestration settings.
type Provisioning struct {
	Locations []string // location codes an "all" sentinel expands to
}
