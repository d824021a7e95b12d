package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Text(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/reroot.yaml")
	require.NoError(t, err)
	assert.Equal(t, "✓ reroot valid (9 steps, 1 targets)\n", out)
}

func TestValidate_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/callable.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ValidationResult{Valid: true, Name: "callable", Steps: 5, Targets: 1}, resp.Data)
}

func TestValidate_IgnoresExpectations(t *testing.T) {
	_, _, err := execute(t, "validate", "testdata/wrong_expect.yaml")
	assert.NoError(t, err)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantExit int
		wantText string
	}{
		{"missing script", "testdata/nope.cue", ExitCommandError, "Error [E005]"},
		{"unknown extension", "testdata", ExitCommandError, "Error [E002]: unknown script extension"},
		{"parse error", "testdata/bad_op.yaml", ExitCommandError, `unknown op "source"`},
		{"build error", "testdata/unbound.yaml", ExitFailure, `Error [E003]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", tt.script)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantText)
		})
	}
}
