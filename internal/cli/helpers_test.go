package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

// decodeData unmarshals the data of a JSON CLIResponse into v.
func decodeData(t *testing.T, output string, v any) string {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp), output)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.Status
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const wideDDM = `
package models

model: ddm_wide: {
	simulator: "ddm_flexbound"
	params: {
		v: {low: -4, high: 4, default: 0.5}
		a: {low: 0.2, high: 3, default: 1}
		z: {low: 0.1, high: 0.9, default: 0.5}
		t: {low: 0, high: 2, default: 0.1}
	}
}
`

const raceTwo = `
package models

model: race_two: {
	simulator: "race"
	nchoices:  2
	params: {
		v0: {low: 0, high: 2.5}
		v1: {low: 0, high: 2.5}
		a:  {low: 1, high: 3}
		z0: {low: 0, high: 0.9}
		z1: {low: 0, high: 0.9}
		t:  {low: 0, high: 2}
	}
}
`

// modelsDir writes valid model definitions into a temp dir.
func modelsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "ddm_wide.cue", wideDDM)
	writeFile(t, dir, "race_two.cue", raceTwo)
	return dir
}
