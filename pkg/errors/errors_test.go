package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("foundry.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "foundry.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "foundry.yaml:12")
}

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("projects[1].depends_on", "references unknown project", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "projects[1].depends_on", validationErr.Field)
	require.Contains(t, validationErr.Message, "references unknown project")
}

func TestConfigurationErrorRendersCycle(t *testing.T) {
	t.Parallel()

	err := NewCycleError(KindCycle, []string{"jvm:a", "jvm:b"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, KindCycle, cfgErr.Kind)
	require.Contains(t, err.Error(), "jvm:a -> jvm:b -> jvm:a")
	require.True(t, IsConfiguration(fmt.Errorf("plan: %w", err)))
}

func TestConfigurationErrorIncludesSubject(t *testing.T) {
	t.Parallel()

	err := NewConfigurationError(KindUnknownTarget, "deploy", "no task matches target")
	require.Equal(t, "configuration error [deploy]: no task matches target", err.Error())
	require.False(t, IsConfiguration(stdErrors.New("plain")))
}

func TestExecutionErrorIncludesTaskContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("compiler exited 1")
	err := NewExecutionError("jvm:compile", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "jvm:compile", executionErr.TaskID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestPluginErrorIncludesPluginName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("already registered")
	err := NewPluginError("jvm", underlying)

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "jvm", pluginErr.Plugin)
	require.True(t, stdErrors.Is(err, underlying))
}
