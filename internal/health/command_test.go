package health_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/health"
)

type stubChecker struct {
	status api.HealthStatus
}

func (checker *stubChecker) HealthCheck(requestContext context.Context) api.HealthStatus {
	return checker.status
}

func executeHealthCommand(testInstance *testing.T, status api.HealthStatus) string {
	testInstance.Helper()

	builder := health.CommandBuilder{
		CheckerProvider: func() (health.Checker, error) {
			return &stubChecker{status: status}, nil
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetArgs([]string{})

	require.NoError(testInstance, command.Execute())

	return outputBuffer.String()
}

func TestHealthCommandReportsHealthyBackend(testInstance *testing.T) {
	testInstance.Parallel()

	output := executeHealthCommand(testInstance, api.HealthStatus{
		Status:  api.HealthStateHealthy,
		Details: map[string]any{"database": "ok", "salesforce": "ok"},
	})

	require.Contains(testInstance, output, "backend: healthy")
	require.Contains(testInstance, output, "database: ok")
	require.Contains(testInstance, output, "salesforce: ok")
}

func TestHealthCommandSucceedsForUnreachableBackend(testInstance *testing.T) {
	testInstance.Parallel()

	output := executeHealthCommand(testInstance, api.HealthStatus{
		Status: api.HealthStateUnhealthy,
		Error:  "connection refused",
	})

	require.Contains(testInstance, output, "backend: unhealthy")
	require.Contains(testInstance, output, "connection refused")
}
