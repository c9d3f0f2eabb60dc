package tests

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const (
	integrationBuildTimeoutConstant   = 2 * time.Minute
	integrationCommandTimeoutConstant = 30 * time.Second
	integrationBinaryNameConstant     = "sfaudit-integration"
)

func buildIntegrationBinary(testInstance *testing.T, repositoryRoot string) string {
	testInstance.Helper()

	buildContext, cancelBuild := context.WithTimeout(context.Background(), integrationBuildTimeoutConstant)
	defer cancelBuild()

	binaryPath := filepath.Join(testInstance.TempDir(), integrationBinaryNameConstant)
	buildCommand := exec.CommandContext(buildContext, "go", "build", "-o", binaryPath, ".")
	buildCommand.Dir = repositoryRoot

	outputBytes, buildError := buildCommand.CombinedOutput()
	if buildError != nil {
		testInstance.Fatalf("binary build failed: %v\n%s", buildError, string(outputBytes))
	}

	return binaryPath
}

func runIntegrationCommand(testInstance *testing.T, binaryPath string, environmentOverrides map[string]string, arguments []string) (string, error) {
	testInstance.Helper()

	executionContext, cancelExecution := context.WithTimeout(context.Background(), integrationCommandTimeoutConstant)
	defer cancelExecution()

	command := exec.CommandContext(executionContext, binaryPath, arguments...)
	command.Dir = testInstance.TempDir()

	environment := append([]string{}, os.Environ()...)
	for environmentName, environmentValue := range environmentOverrides {
		environment = append(environment, environmentName+"="+environmentValue)
	}
	command.Env = environment

	outputBytes, runError := command.CombinedOutput()

	return string(outputBytes), runError
}
