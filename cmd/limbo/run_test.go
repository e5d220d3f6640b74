package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/limbomc/limbo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
	assert.Equal(t, "config.toml", flag.DefValue)
}

func TestRootCmdRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"unexpected"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRunFailsOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[forwarding]\nenabled = true\n"), 0o644))

	err := run(context.Background(), path)
	assert.ErrorContains(t, err, "forwarding.secret")
}

func TestRunFailsOnBindError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[network]\nbind_address = \"256.0.0.1:1\"\n[logging]\nformat = \"json\"\nlevel = \"error\"\n"), 0o644))

	err := run(context.Background(), path)
	assert.ErrorContains(t, err, "listen")
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = newLogger(config.LoggingConfig{Level: "nonsense", Format: "console"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
