package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("node_type", "type \"Hash\" already registered", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "node_type", validationErr.Field)
	require.Contains(t, validationErr.Message, "already registered")
}

func TestConfigErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("unexpected token")
	err := NewConfigError("pipelined.yaml", 12, underlying)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "pipelined.yaml", cfgErr.Path)
	require.Equal(t, 12, cfgErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "pipelined.yaml:12")
}

func TestBuildErrorKinds(t *testing.T) {
	t.Parallel()

	err := NewNoNodeError("e1", "ghost")
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, BuildErrNoNode, buildErr.Kind)
	require.Equal(t, "e1", buildErr.EdgeID)
	require.Equal(t, "ghost", buildErr.NodeID)
	require.Contains(t, err.Error(), "NoNode")

	err = NewMissingInputError("data")
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, BuildErrMissingInput, buildErr.Kind)
	require.Equal(t, "data", buildErr.Name)
}

func TestRunErrorWrapsNodeFailure(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("exit status 1")
	err := NewNodeError("transcode", underlying)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, RunErrNodeError, runErr.Kind)
	require.Equal(t, "transcode", runErr.NodeID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestRunErrorSchedulerInvariants(t *testing.T) {
	t.Parallel()

	err := NewOutputPortSetTwiceError("split", "out")
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, RunErrOutputPortSetTwice, runErr.Kind)
	require.Equal(t, "out", runErr.Port)

	err = NewUnrecognizedOutputError("split", "out")
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, RunErrUnrecognizedOutput, runErr.Kind)

	err = NewDeadlockError()
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, RunErrDeadlock, runErr.Kind)
}
