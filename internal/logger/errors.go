package logger

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrAppNameIsEmpty is returned when Log.AppName is not set.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned when Log.ServiceName is not set.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "log_write_errors_total",
	Help: "Number of log events zerolog failed to write.",
})

// checkConfig parses the level and rejects a config without the names every event carries.
func checkConfig(cfg Log) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "loglevel %s is not supported", cfg.LogLevel)
	}

	switch {
	case cfg.ServiceName == "":
		return level, ErrServiceNameIsEmpty
	case cfg.AppName == "":
		return level, ErrAppNameIsEmpty
	}

	return level, nil
}

// ErrorHandler counts events zerolog failed to write and reports them on stderr.
func ErrorHandler(err error) {
	droppedEvents.Inc()
	_, _ = fmt.Fprintf(os.Stderr, "zerolog: could not write event: %v\n", err)
}
