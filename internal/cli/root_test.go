package cli

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/fakestore"
	"github.com/roach88/tablebridge/internal/testutil"
)

const (
	testBaseID = "appTEST"
	testToken  = "patTEST1234"
)

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// clearEnv unsets connection settings for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.KeyAPIKey, config.KeyPAT, config.KeyBaseID, config.KeyEndpoint, config.KeyTimeout} {
		t.Setenv(k, "")
	}
}

// startFakeBase serves the farm seed and points the environment at it.
func startFakeBase(t *testing.T) *fakestore.Server {
	t.Helper()
	clearEnv(t)

	fake := fakestore.New(testBaseID,
		fakestore.WithToken(testToken),
		fakestore.WithClock(testutil.NewFixedDate(2026, time.October, 16, time.UTC)),
		fakestore.WithIDGenerator(testutil.NewSequentialIDs("id")),
	)
	seed, err := fakestore.LoadSeed("../harness/testdata/seeds/farm.yaml")
	require.NoError(t, err)
	require.NoError(t, fake.Load(seed))

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv(config.KeyAPIKey, testToken)
	t.Setenv(config.KeyBaseID, testBaseID)
	t.Setenv(config.KeyEndpoint, srv.URL)
	return fake
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tablebridge", cmd.Use)
	assert.Contains(t, cmd.Long, "AIRTABLE_BASE_ID")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"tools", "call", "formula", "doctor", "fake-server", "test", "history"}

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

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, config.DefaultEnvFile, envFlag.DefValue)

	for _, name := range []string{"catalog", "audit-db"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestCallCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	callCmd, _, err := cmd.Find([]string{"call"})
	require.NoError(t, err)

	argsFlag := callCmd.Flags().Lookup("args")
	require.NotNil(t, argsFlag)
	assert.Equal(t, "{}", argsFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFakeServerCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	fsCmd, _, err := cmd.Find([]string{"fake-server"})
	require.NoError(t, err)

	assert.Equal(t, ":8855", fsCmd.Flags().Lookup("addr").DefValue)
	assert.Equal(t, "appFAKE", fsCmd.Flags().Lookup("base").DefValue)
	require.NotNil(t, fsCmd.Flags().Lookup("seed"))
	require.NotNil(t, fsCmd.Flags().Lookup("token"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsGoToStderr(t *testing.T) {
	startFakeBase(t)

	stdout, stderr, err := execute(t, "-v", "--format", "json", "call", "list_tasks", "--args", `{"all":true}`)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status":"ok"`)
	assert.NotContains(t, stdout, "DEBUG")
	assert.Contains(t, stderr, "DEBUG")
}
