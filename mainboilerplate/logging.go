package mainboilerplate

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level      string `long:"level" env:"LEVEL" default:"warn" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
	Format     string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
	Output     string `long:"output" env:"OUTPUT" default:"stderr" description:"Logging destination: stderr, stdout, or a file path to append to"`
	Timestamps bool   `long:"timestamps" env:"TIMESTAMPS" description:"Log full timestamps, rather than seconds since start"`
}

// logFormatters builds a Formatter for each supported LogConfig.Format.
var logFormatters = map[string]func(timestamps bool) log.Formatter{
	"json": func(bool) log.Formatter {
		return &log.JSONFormatter{}
	},
	"text": func(timestamps bool) log.Formatter {
		return &log.TextFormatter{FullTimestamp: timestamps, DisableColors: true}
	},
	"color": func(timestamps bool) log.Formatter {
		return &log.TextFormatter{FullTimestamp: timestamps, ForceColors: true}
	},
}

// Apply the LogConfig to |logger|. A file Output is opened for append, and
// returned as a Closer which the caller should close at exit (or nil).
func (cfg LogConfig) Apply(logger *log.Logger) (io.Closer, error) {
	var format = cfg.Format
	if format == "" {
		format = "text"
	}
	var newFormatter, ok = logFormatters[format]
	if !ok {
		var names []string
		for name := range logFormatters {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errors.Errorf("unrecognized log format %q (expected one of %s)",
			format, strings.Join(names, ", "))
	}

	var lvl = log.WarnLevel
	if cfg.Level != "" {
		var err error
		if lvl, err = log.ParseLevel(cfg.Level); err != nil {
			return nil, errors.WithMessage(err, "parsing log level")
		}
	}

	var out io.Writer
	var closer io.Closer

	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		var f, err = os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.WithMessage(err, "opening log output")
		}
		out, closer = f, f
	}

	logger.SetFormatter(newFormatter(cfg.Timestamps))
	logger.SetLevel(lvl)
	logger.SetOutput(out)

	return closer, nil
}

// InitLog configures the standard logger, and exits if the LogConfig is invalid.
// A file Output remains open for the life of the process.
func InitLog(cfg LogConfig) {
	if _, err := cfg.Apply(log.StandardLogger()); err != nil {
		log.WithField("err", err).Fatal("invalid log configuration")
	}
	log.WithFields(log.Fields{
		"level":  log.GetLevel(),
		"format": cfg.Format,
		"output": cfg.Output,
	}).Debug("configured logging")
}
