// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON names the environment variable holding a JSON document merged over the file config.
const EnvConfigJSON = "STAFFGATE_CONFIG_JSON"

const (
	defaultShutDownTime   = 5
	defaultTimeout        = 30 * time.Second
	defaultTokenCacheTTL  = 55 * time.Minute
	defaultPasswordLength = 16
	minPasswordLength     = 12
	defaultRateLimit      = 10
	defaultRateBurst      = 20
	defaultGraphURL       = "https://graph.microsoft.com/v1.0"
	defaultScope          = "https://graph.microsoft.com/.default"
	defaultAPIKeyHeader   = "X-API-Key"
	redactedValue         = "********"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	if err = validate(&c); err != nil {
		return c, err
	}

	return c, nil
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config json from env")
	}

	return c, nil
}

// DumpConfig config as TOML String. Secrets are redacted.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(redacted(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String. Secrets are redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(redacted(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func redacted(c *Config) Config {
	out := *c

	if out.Directory.ClientSecret != "" {
		out.Directory.ClientSecret = redactedValue
	}

	if out.Credentials.Key != "" {
		out.Credentials.Key = redactedValue
	}

	if out.DB.Password != "" {
		out.DB.Password = redactedValue
	}

	return out
}

// validate checks the settings staffgate can not run without and fills in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	switch c.DB.Engine {
	case EngineMySQL, EnginePostgres, EngineSQLite:
	case "":
		c.DB.Engine = EngineMySQL
	default:
		return errors.Wrapf(ErrUnknownDBEngine, "%s: %q", invalidErrMessage, c.DB.Engine)
	}

	if c.Directory.Domain == "" {
		return errors.Wrap(ErrEmptyDirectoryDomain, invalidErrMessage)
	}

	if c.Credentials.Key == "" {
		return errors.Wrap(ErrEmptyCredentialsKey, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	setDirectoryDefaults(&c.Directory)

	if c.External.Timeout == 0 {
		c.External.Timeout = defaultTimeout
	}

	if c.External.DefaultAPIKeyHeader == "" {
		c.External.DefaultAPIKeyHeader = defaultAPIKeyHeader
	}

	return nil
}

func setDirectoryDefaults(d *Directory) {
	if d.GraphURL == "" {
		d.GraphURL = defaultGraphURL
	}

	if d.TokenURL == "" && d.TenantID != "" {
		d.TokenURL = "https://login.microsoftonline.com/" + d.TenantID + "/oauth2/v2.0/token"
	}

	if d.Scope == "" {
		d.Scope = defaultScope
	}

	if d.Timeout == 0 {
		d.Timeout = defaultTimeout
	}

	if d.TokenCacheTTL == 0 {
		d.TokenCacheTTL = defaultTokenCacheTTL
	}

	if d.PasswordLength == 0 {
		d.PasswordLength = defaultPasswordLength
	}

	if d.PasswordLength < minPasswordLength {
		d.PasswordLength = minPasswordLength
	}

	if d.RateLimit == 0 {
		d.RateLimit = defaultRateLimit
	}

	if d.RateBurst == 0 {
		d.RateBurst = defaultRateBurst
	}

	if d.TokenCache.Driver == "" {
		d.TokenCache.Driver = TokenCacheMemory
	}

	if d.TokenCache.Table == "" {
		d.TokenCache.Table = "directory_token_cache"
	}
}
