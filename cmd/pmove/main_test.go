package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nikand.dev/go/cli"
	"tlog.app/go/tlog"
)

func TestLogFile(t *testing.T) {
	old := tlog.DefaultLogger
	defer func() { tlog.DefaultLogger = old }()

	name := filepath.Join(t.TempDir(), "pmove.log")

	c := &cli.Command{
		Name: "pmove",
		Flags: []*cli.Flag{
			cli.NewFlag("log", name, ""),
			cli.NewFlag("verbosity,v", "", ""),
		},
	}

	require.NoError(t, before(c))
	require.NotNil(t, logFile)

	f := logFile

	tlog.Printw("to the log file")

	require.NoError(t, after(c))
	assert.Nil(t, logFile)

	// already closed by after
	assert.Error(t, f.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the log file")

	// nothing to close for stderr
	assert.NoError(t, after(c))
}
