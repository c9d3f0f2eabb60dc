package auditflow_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/auditflow"
	"github.com/temirov/sfaudit/internal/lifecycle"
)

func executeAuditCommand(testInstance *testing.T, builder auditflow.CommandBuilder, arguments []string) (string, error) {
	testInstance.Helper()

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetArgs(arguments)
	command.SilenceErrors = true
	command.SilenceUsage = true

	executionError := command.Execute()

	return outputBuffer.String(), executionError
}

func TestAuditRunCommandUsesStoredSessionAndRendersFindings(testInstance *testing.T) {
	testInstance.Parallel()

	registry := lifecycle.NewRegistry()
	defer registry.ClearAll()

	settledAudit := completedAudit()
	settledAudit.Summary = map[string]any{
		"total_findings":           2.0,
		"total_time_savings_hours": 36.5,
		"total_annual_roi":         48000.0,
	}
	settledAudit.Findings = []api.Finding{
		{ID: "f-1", Title: "Manual lead routing", Category: "automation", Impact: "high", TimeSavingsHours: 24.0, ROIEstimate: 31000},
		{ID: "f-2", Title: "Stale dashboards", Category: "reporting", Impact: "medium", TimeSavingsHours: 12.5, ROIEstimate: 17000},
	}

	client := &stubAuditClient{
		runResponse:   api.AuditRunResponse{SessionID: runSessionIdentifierConstant},
		auditSequence: []api.Audit{settledAudit},
	}

	builder := auditflow.CommandBuilder{
		ClientProvider: func() (auditflow.Client, error) {
			return client, nil
		},
		RegistryProvider: func() *lifecycle.Registry {
			return registry
		},
		SessionIdentifierProvider: func() string {
			return runSessionIdentifierConstant
		},
		ConfigurationProvider: func() auditflow.CommandConfiguration {
			return auditflow.CommandConfiguration{PollIntervalMilliseconds: 10}
		},
	}

	output, executionError := executeAuditCommand(testInstance, builder, []string{"run"})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "findings: 2")
	require.Contains(testInstance, output, "Manual lead routing")
	require.Contains(testInstance, output, "Stale dashboards")
	require.Less(testInstance,
		bytes.Index([]byte(output), []byte("Manual lead routing")),
		bytes.Index([]byte(output), []byte("Stale dashboards")),
	)
}

func TestAuditRunCommandRequiresSessionIdentifier(testInstance *testing.T) {
	testInstance.Parallel()

	builder := auditflow.CommandBuilder{
		ClientProvider: func() (auditflow.Client, error) {
			return &stubAuditClient{}, nil
		},
		SessionIdentifierProvider: func() string {
			return ""
		},
	}

	_, executionError := executeAuditCommand(testInstance, builder, []string{"run"})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "no session identifier")
}

func TestAuditShowCommandRendersErrorStatusAsFailure(testInstance *testing.T) {
	testInstance.Parallel()

	erroredAudit := api.Audit{
		SessionID: runSessionIdentifierConstant,
		Status:    api.AuditStatusError,
		Error:     "metadata scan aborted",
	}
	builder := auditflow.CommandBuilder{
		ClientProvider: func() (auditflow.Client, error) {
			return &stubAuditClient{auditSequence: []api.Audit{erroredAudit}}, nil
		},
	}

	_, executionError := executeAuditCommand(testInstance, builder, []string{"show", runSessionIdentifierConstant})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "metadata scan aborted")
}

func TestAuditAssumptionsCommandRequiresInputsFlag(testInstance *testing.T) {
	testInstance.Parallel()

	builder := auditflow.CommandBuilder{
		ClientProvider: func() (auditflow.Client, error) {
			return &stubAuditClient{}, nil
		},
	}

	_, executionError := executeAuditCommand(testInstance, builder, []string{"assumptions", runSessionIdentifierConstant})
	require.Error(testInstance, executionError)
}

func TestAuditPDFCommandWritesReportFile(testInstance *testing.T) {
	testInstance.Parallel()

	reportContent := []byte("%PDF-1.7 report body")
	client := &stubAuditClient{pdfContent: reportContent}
	builder := auditflow.CommandBuilder{
		ClientProvider: func() (auditflow.Client, error) {
			return client, nil
		},
	}

	outputPath := filepath.Join(testInstance.TempDir(), "report.pdf")
	output, executionError := executeAuditCommand(testInstance, builder, []string{
		"pdf", runSessionIdentifierConstant, "--output", outputPath,
	})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, outputPath)

	writtenContent, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, reportContent, writtenContent)
}
