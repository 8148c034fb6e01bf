package mainboilerplate

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLogConfigApply(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "out.log")
	var logger = log.New()

	var closer, err = LogConfig{Level: "debug", Format: "json", Output: path}.Apply(logger)
	require.NoError(t, err)
	require.NotNil(t, closer)
	require.Equal(t, log.DebugLevel, logger.GetLevel())
	require.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	logger.WithField("table", "t").Debug("hello")
	logger.Trace("dropped")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"hello"`)
	require.Contains(t, string(b), `"table":"t"`)
	require.NotContains(t, string(b), "dropped")

	// Zero-valued fields select defaults.
	closer, err = LogConfig{Timestamps: true}.Apply(logger)
	require.NoError(t, err)
	require.Nil(t, closer)
	require.Equal(t, log.WarnLevel, logger.GetLevel())
	require.Equal(t, &log.TextFormatter{FullTimestamp: true, DisableColors: true}, logger.Formatter)
	require.Equal(t, os.Stderr, logger.Out)
}

func TestLogConfigApplyValidation(t *testing.T) {
	var logger = log.New()

	var _, err = LogConfig{Format: "xml"}.Apply(logger)
	require.EqualError(t, err, `unrecognized log format "xml" (expected one of color, json, text)`)

	_, err = LogConfig{Level: "loud"}.Apply(logger)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing log level")

	_, err = LogConfig{Output: filepath.Join(t.TempDir(), "missing", "out.log")}.Apply(logger)
	require.Error(t, err)
	require.Contains(t, err.Error(), "opening log output")
}
