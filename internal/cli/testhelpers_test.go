package cli

import (
	"bytes"
	"testing"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runCommandWith(t, nil, args)
}

func runCommandWith(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	var cmd = NewRootCmd()
	if app != nil {
		cmd = newRootCmd(app)
	}

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}
