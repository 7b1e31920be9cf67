// Package daemon wires configuration, storage, clients and the web service together.
package daemon

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/staffgate/staffgate/internal/cache"
	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/credential"
	"github.com/staffgate/staffgate/internal/db/controller/store"
	"github.com/staffgate/staffgate/internal/db/dsn"
	"github.com/staffgate/staffgate/internal/db/models"
	"github.com/staffgate/staffgate/internal/directory"
	"github.com/staffgate/staffgate/internal/external"
	"github.com/staffgate/staffgate/internal/provisioning"
	"github.com/staffgate/staffgate/internal/web"
)

// tokenCachePrefix namespaces directory tokens in a shared storage table.
const tokenCachePrefix = "staffgate:"

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start serves the API until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(addr)
	}()

	go d.webService.WaitShutdown()

	if err := <-errCh; err != nil {
		return errors.Wrap(err, "web service stopped")
	}

	return nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	p, err := NewProvisioner(cfg)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, p),
	}, nil
}

// NewProvisioner opens and migrates the database and builds the provisioning orchestrator.
// The CLI commands share it with the daemon.
func NewProvisioner(cfg *config.Config) (*provisioning.Provisioner, error) {
	db, err := openMigrated(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := credential.New(cfg.Credentials.Key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init credential store")
	}

	tokens, err := NewTokenCache(cfg)
	if err != nil {
		return nil, err
	}

	dir := directory.New(cfg.Directory, tokens)
	ext := external.New(cfg.External, creds)

	log.Info().
		Str("db_engine", cfg.DB.Engine).
		Str("token_cache", cfg.Directory.TokenCache.Driver).
		Strs("locations", cfg.Provisioning.Locations).
		Msg("provisioning initialized")

	return provisioning.New(db, dir, ext, cfg.Provisioning.Locations), nil
}

// SetModuleCredentials encrypts plaintext with the configured credential key and stores it
// as the API credentials of the module with code.
func SetModuleCredentials(ctx context.Context, cfg *config.Config, code, plaintext string) error {
	creds, err := credential.New(cfg.Credentials.Key)
	if err != nil {
		return errors.Wrap(err, "failed to init credential store")
	}

	sealed, err := creds.Encrypt(plaintext)
	if err != nil {
		return errors.Wrap(err, "failed to encrypt credentials")
	}

	db, err := openMigrated(cfg)
	if err != nil {
		return err
	}

	module, err := store.New(db).SetModuleCredentials(ctx, code, sealed)
	if err != nil {
		return errors.Wrapf(err, "module %q", code)
	}

	log.Info().Str("module", module.Code).Msg("module credentials updated")

	return nil
}

func openMigrated(cfg *config.Config) (*gorm.DB, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	if err = seed(db); err != nil {
		return nil, errors.Wrap(err, "failed to seed database")
	}

	return db, nil
}

// OpenDB opens the database configured by DB.Engine.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Engine {
	case config.EngineMySQL, "":
		dialector = gormmysql.Open(dsn.MySQL(cfg))
	case config.EnginePostgres:
		dialector = gormpostgres.Open(dsn.Postgres(cfg))
	case config.EngineSQLite:
		dialector = sqlite.Open(cfg.DB.Name)
	default:
		return nil, errors.Wrapf(config.ErrUnknownDBEngine, "%q", cfg.DB.Engine)
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	return db, nil
}

// NewTokenCache returns the directory token cache selected by Directory.TokenCache.Driver.
// The database drivers share one token between every instance using the same database.
func NewTokenCache(cfg *config.Config) (cache.Cache, error) {
	tc := cfg.Directory.TokenCache

	switch strings.ToLower(tc.Driver) {
	case config.TokenCacheMemory, "":
		return cache.NewMemory(), nil
	case config.TokenCacheMySQL:
		return cache.NewStorage(storagemysql.New(storagemysql.Config{
			ConnectionURI: dsn.MySQL(cfg),
			Table:         tc.Table,
		}), tokenCachePrefix), nil
	case config.TokenCachePostgres:
		return cache.NewStorage(storagepostgres.New(storagepostgres.Config{
			ConnectionURI: dsn.PostgresURI(cfg),
			Table:         tc.Table,
		}), tokenCachePrefix), nil
	default:
		return nil, errors.Errorf("unknown token cache driver %q", tc.Driver)
	}
}
