package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersCoreSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	require.NotNil(t, cmd.Commands())
	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.Equal(t, "config.toml", cmd.Flags().Lookup("config").DefValue)
	require.NotNil(t, cmd.Flags().Lookup("verbose"))
	require.NotNil(t, cmd.Flags().Lookup("json"))
	require.NotNil(t, cmd.Flags().Lookup("no-progress"))
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "setup")
	require.Contains(t, out.String(), "version")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe a local audio file"},
		{name: "setup", args: []string{"setup", "--help"}, contains: "Download and verify speech model assets"},
		{name: "version", args: []string{"version", "--help"}, contains: "Print the version number"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestRootRunInvokesServe(t *testing.T) {
	t.Parallel()

	served := false
	app := &appState{
		configPath: "config.toml",
		serveFn: func(ctx context.Context) error {
			served = true
			return nil
		},
	}

	_, _, err := runCommandWith(t, app, nil)
	require.NoError(t, err)
	require.True(t, served)
}

func TestRootRunSurfacesServeError(t *testing.T) {
	t.Parallel()

	app := &appState{
		configPath: "config.toml",
		serveFn: func(ctx context.Context) error {
			return errors.New("gateway unreachable")
		},
	}

	_, _, err := runCommandWith(t, app, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway unreachable")
}

func TestServeFailsWithoutConfigFile(t *testing.T) {
	app := &appState{configPath: "/no/such/config.toml"}
	app.serveFn = app.serve

	_, _, err := runCommandWith(t, app, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}
