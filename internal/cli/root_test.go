package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "clubfridge", cmd.Use)
	assert.Contains(t, cmd.Long, "Vereinsflieger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "sales", "sync", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("db"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("offline"))
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("headless"))

	syncCmd, _, err := cmd.Find([]string{"sync"})
	require.NoError(t, err)
	assert.NotNil(t, syncCmd.Flags().Lookup("catalog"))
	assert.NotNil(t, syncCmd.Flags().Lookup("sales"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "", "version", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestUnknownFlag(t *testing.T) {
	_, _, err := execute(t, "", "version", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	env := newTestEnv(t, "offline: false\n")

	cfg, err := loadConfig(&RootOptions{
		ConfigPath: env.config,
		Database:   "/tmp/other.db",
		Offline:    true,
		Verbose:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database)
	assert.True(t, cfg.Offline)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Update.Enabled)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	env := newTestEnv(t, "intervals: [not, a, map]\n")

	_, err := loadConfig(&RootOptions{ConfigPath: env.config})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExecute_ReportsErrorAsJSON(t *testing.T) {
	env := newTestEnv(t, "")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), &stdout, &stderr,
		[]string{"sync", "--config", env.config, "--format", "json"})
	assert.Equal(t, ExitCommandError, code)
	assert.NotContains(t, stderr.String(), "Error:")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ExitCommandError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no credentials stored")
}

func TestExecute_ReportsErrorAsText(t *testing.T) {
	env := newTestEnv(t, "")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), &stdout, &stderr,
		[]string{"sync", "--config", env.config})
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Error: no credentials stored")
}

func TestExecute_Success(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), &stdout, &stderr, []string{"version"})
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "clubfridge dev\n", stdout.String())
	assert.Empty(t, stderr.String())
}
