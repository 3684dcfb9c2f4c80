package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/simulator"
)

func TestSimulateText(t *testing.T) {
	out, _, err := execute(t, "simulate", "ddm", "--theta", "v=1,a=1", "-n", "500", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: ddm")
	assert.Contains(t, out, "Theta: v=1 a=1 z=0.5")
	assert.Contains(t, out, "Trials: 500 (omissions: 0, 0.00%)")
	assert.Contains(t, out, "choice")
}

func TestSimulateJSON(t *testing.T) {
	out, _, err := execute(t, "simulate", "ddm", "--theta", "v=1,a=1,z=0.5,t=0.3", "-n", "2000", "--seed", "5", "--format", "json", "--raw")
	require.NoError(t, err)

	var got SimulateOutput
	assert.Equal(t, "ok", decodeData(t, out, &got))
	assert.Equal(t, "ddm", got.Model)
	assert.Equal(t, 0.3, got.Theta["t"])
	require.Len(t, got.RTs, 2000)
	require.Len(t, got.Choices, 2000)
	assert.Nil(t, got.Metadata)
	for _, rt := range got.RTs {
		assert.GreaterOrEqual(t, rt, 0.3)
	}

	require.Len(t, got.Summary.Choices, 2)
	up := got.Summary.Choices[1]
	assert.Equal(t, 1, up.Choice)
	assert.InDelta(t, 0.8808, up.Proportion, 0.04)
}

func TestSimulateDeterministic(t *testing.T) {
	args := []string{"simulate", "angle", "--theta", "theta=0.3", "-n", "200", "--seed", "9", "--format", "json", "--raw"}
	first, _, err := execute(t, args...)
	require.NoError(t, err)
	second, _, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulateTrajectory(t *testing.T) {
	out, _, err := execute(t, "simulate", "ddm", "-n", "10", "--trajectory", "--format", "json")
	require.NoError(t, err)

	var got SimulateOutput
	decodeData(t, out, &got)
	require.NotNil(t, got.Metadata)
	assert.NotEmpty(t, got.Metadata.Trajectory)
	assert.NotEmpty(t, got.Metadata.Boundary)
}

func TestSimulateCustomModel(t *testing.T) {
	out, _, err := execute(t, "--models-dir", modelsDir(t), "simulate", "race_two", "-n", "200", "--format", "json")
	require.NoError(t, err)

	var got SimulateOutput
	decodeData(t, out, &got)
	assert.Equal(t, "race_two", got.Model)
	require.Len(t, got.Summary.Choices, 2)
	assert.Equal(t, 0, got.Summary.Choices[0].Choice)
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown model", []string{"simulate", "nope"}, ErrCodeUnknownModel},
		{"unknown param", []string{"simulate", "ddm", "--theta", "q=1"}, ErrCodeBadTheta},
		{"not a number", []string{"simulate", "ddm", "--theta", "v=fast"}, ErrCodeBadTheta},
		{"out of bounds", []string{"simulate", "ddm", "--theta", "v=100", "--strict"}, ErrCodeBadTheta},
		{"bad samples", []string{"simulate", "ddm", "-n", "0"}, ErrCodeSimulation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestParseTheta(t *testing.T) {
	got, err := parseTheta(map[string]string{"v": "1.5", "a": "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"v": 1.5, "a": 2}, got)

	_, err = parseTheta(map[string]string{"v": "x"})
	assert.Error(t, err)
}

func TestPrintSummary_Omissions(t *testing.T) {
	res := &simulator.Result{
		RTs:      []float64{0.5, simulator.OmissionRT},
		Choices:  []int{1, 1},
		Metadata: simulator.Metadata{PossibleChoices: []int{-1, 1}},
	}
	var buf strings.Builder
	printSummary(&buf, []string{"v"}, SimulateOutput{Model: "ddm", Theta: map[string]float64{"v": 0}, Summary: res.Summary()})
	assert.Contains(t, buf.String(), "omissions: 1, 50.00%")
}
