package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.engine is none of mysql, postgres or sqlite.
	ErrUnknownDBEngine = errors.New("toml config db.engine is not supported")

	// ErrEmptyDirectoryDomain error if config directory.domain is empty.
	ErrEmptyDirectoryDomain = errors.New("toml config directory.domain can not be empty")

	// ErrEmptyCredentialsKey error if config credentials.key is empty.
	ErrEmptyCredentialsKey = errors.New("toml config credentials.key can not be empty")
)
