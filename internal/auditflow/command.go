package auditflow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/lifecycle"
)

const (
	commandNameConstant             = "audit"
	commandShortDescriptionConstant = "Run audits and inspect their results"
	commandLongDescription          = "audit submits analysis runs against the connected Salesforce org, waits for completion, and renders findings, assumptions updates, and PDF reports."

	runSubcommandNameConstant         = "run"
	runSubcommandShortDescription     = "Submit an audit run and wait for completion"
	showSubcommandNameConstant        = "show"
	showSubcommandShortDescription    = "Display the results of one audit session"
	assumptionsSubcommandNameConstant = "assumptions"
	assumptionsSubcommandShortDesc    = "Update calculation assumptions for an audit session"
	pdfSubcommandNameConstant         = "pdf"
	pdfSubcommandShortDescription     = "Download the PDF report for an audit session"

	flagSessionIDName        = "session-id"
	flagSessionIDDescription = "Salesforce connection session identifier (defaults to the stored session)."
	flagQuickName            = "quick"
	flagQuickDescription     = "Use the quick estimate instead of a full calculation."
	flagInputsName           = "inputs"
	flagInputsDescription    = "Path to a YAML file with department salaries and business inputs."
	flagOutputName           = "output"
	flagOutputDescription    = "Destination path for the downloaded PDF report."

	sessionArgumentNameConstant   = "session-id"
	missingSessionMessageConstant = "no session identifier provided; pass --session-id or connect first"
	missingArgumentTemplate       = "%s argument required"
	pdfOutputTemplateConstant     = "salesforce-audit-%s.pdf"
	pdfWrittenTemplateConstant    = "report written to %s\n"
	pdfFilePermissionsConstant    = 0o644

	summaryHeaderConstant           = "Audit %s (%s)\n"
	summaryTotalsTemplateConstant   = "  findings: %d  time savings: %.1f h/mo  annual ROI: $%.0f\n"
	summaryStageTemplateConstant    = "  business stage: %s\n"
	findingLineTemplateConstant     = "  [%s] %s (%s): %.1f h/mo, $%.0f\n"
	summaryTotalFindingsFieldName   = "total_findings"
	summaryTimeSavingsFieldName     = "total_time_savings_hours"
	summaryAnnualROIFieldName       = "total_annual_roi"
	businessStageNameFieldConstant  = "name"
	auditErroredTemplateConstant    = "audit failed: %s"
	auditErrorFallbackMessage       = "backend reported an error"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ClientProvider supplies the backend client.
type ClientProvider func() (Client, error)

// RegistryProvider supplies the shared lifecycle registry.
type RegistryProvider func() *lifecycle.Registry

// SessionIdentifierProvider supplies the stored Salesforce session identifier.
type SessionIdentifierProvider func() string

// CommandConfiguration carries configured defaults for audit commands.
type CommandConfiguration struct {
	PollIntervalMilliseconds int `mapstructure:"poll_interval_ms"`
}

// CommandBuilder assembles the audit cobra command group with configurable
// dependencies.
type CommandBuilder struct {
	LoggerProvider            LoggerProvider
	ClientProvider            ClientProvider
	RegistryProvider          RegistryProvider
	SessionIdentifierProvider SessionIdentifierProvider
	ConfigurationProvider     func() CommandConfiguration
}

// Build constructs the audit command and its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescription,
	}

	runCommand := &cobra.Command{
		Use:   runSubcommandNameConstant,
		Short: runSubcommandShortDescription,
		RunE:  builder.runAudit,
	}
	runCommand.Flags().String(flagSessionIDName, "", flagSessionIDDescription)
	runCommand.Flags().Bool(flagQuickName, true, flagQuickDescription)
	runCommand.Flags().String(flagInputsName, "", flagInputsDescription)

	showCommand := &cobra.Command{
		Use:   showSubcommandNameConstant + " <" + sessionArgumentNameConstant + ">",
		Short: showSubcommandShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.showAudit,
	}

	assumptionsCommand := &cobra.Command{
		Use:   assumptionsSubcommandNameConstant + " <" + sessionArgumentNameConstant + ">",
		Short: assumptionsSubcommandShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.updateAssumptions,
	}
	assumptionsCommand.Flags().String(flagInputsName, "", flagInputsDescription)

	pdfCommand := &cobra.Command{
		Use:   pdfSubcommandNameConstant + " <" + sessionArgumentNameConstant + ">",
		Short: pdfSubcommandShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.downloadPDF,
	}
	pdfCommand.Flags().String(flagOutputName, "", flagOutputDescription)

	command.AddCommand(runCommand, showCommand, assumptionsCommand, pdfCommand)

	return command, nil
}

func (builder *CommandBuilder) runAudit(command *cobra.Command, arguments []string) error {
	sessionIdentifier, _ := command.Flags().GetString(flagSessionIDName)
	if len(strings.TrimSpace(sessionIdentifier)) == 0 && builder.SessionIdentifierProvider != nil {
		sessionIdentifier = builder.SessionIdentifierProvider()
	}
	if len(strings.TrimSpace(sessionIdentifier)) == 0 {
		return errors.New(missingSessionMessageConstant)
	}

	useQuickEstimate, _ := command.Flags().GetBool(flagQuickName)
	inputsPath, _ := command.Flags().GetString(flagInputsName)

	auditRequest := api.AuditRequest{
		SessionID:        strings.TrimSpace(sessionIdentifier),
		UseQuickEstimate: useQuickEstimate,
	}

	if len(inputsPath) > 0 {
		inputsDocument, inputsError := LoadInputsDocument(inputsPath)
		if inputsError != nil {
			return inputsError
		}
		auditRequest.DepartmentSalaries = inputsDocument.DepartmentSalaries
		auditRequest.BusinessInputs = inputsDocument.BusinessInputs
	}

	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}

	audit, runError := service.Run(command.Context(), auditRequest)
	if runError != nil {
		return runError
	}

	return renderAudit(command.OutOrStdout(), audit)
}

func (builder *CommandBuilder) showAudit(command *cobra.Command, arguments []string) error {
	client, clientError := builder.resolveClient()
	if clientError != nil {
		return clientError
	}

	audit, fetchError := client.GetAuditData(command.Context(), arguments[0])
	if fetchError != nil {
		return fetchError
	}

	return renderAudit(command.OutOrStdout(), audit)
}

func (builder *CommandBuilder) updateAssumptions(command *cobra.Command, arguments []string) error {
	inputsPath, _ := command.Flags().GetString(flagInputsName)
	if len(inputsPath) == 0 {
		return fmt.Errorf(missingArgumentTemplate, flagInputsName)
	}

	assumptions, loadError := LoadAssumptionsDocument(inputsPath)
	if loadError != nil {
		return loadError
	}

	client, clientError := builder.resolveClient()
	if clientError != nil {
		return clientError
	}

	audit, updateError := client.UpdateAssumptions(command.Context(), arguments[0], assumptions)
	if updateError != nil {
		return updateError
	}

	return renderAudit(command.OutOrStdout(), audit)
}

func (builder *CommandBuilder) downloadPDF(command *cobra.Command, arguments []string) error {
	client, clientError := builder.resolveClient()
	if clientError != nil {
		return clientError
	}

	reportBytes, fetchError := client.GeneratePDF(command.Context(), arguments[0])
	if fetchError != nil {
		return fetchError
	}

	outputPath, _ := command.Flags().GetString(flagOutputName)
	if len(outputPath) == 0 {
		outputPath = fmt.Sprintf(pdfOutputTemplateConstant, arguments[0])
	}

	if writeError := os.WriteFile(outputPath, reportBytes, pdfFilePermissionsConstant); writeError != nil {
		return writeError
	}

	fmt.Fprintf(command.OutOrStdout(), pdfWrittenTemplateConstant, outputPath)
	return nil
}

func (builder *CommandBuilder) resolveClient() (Client, error) {
	if builder.ClientProvider == nil {
		return nil, errClientMissing
	}
	return builder.ClientProvider()
}

func (builder *CommandBuilder) resolveService() (*Service, error) {
	client, clientError := builder.resolveClient()
	if clientError != nil {
		return nil, clientError
	}

	registry := lifecycle.NewRegistry()
	if builder.RegistryProvider != nil {
		registry = builder.RegistryProvider()
	}

	pollInterval := time.Duration(0)
	if builder.ConfigurationProvider != nil {
		pollInterval = time.Duration(builder.ConfigurationProvider().PollIntervalMilliseconds) * time.Millisecond
	}

	return NewService(ServiceOptions{
		Client:       client,
		Registry:     registry,
		Logger:       builder.resolveLogger(),
		PollInterval: pollInterval,
	})
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func renderAudit(outputWriter io.Writer, audit api.Audit) error {
	if audit.Status == api.AuditStatusError {
		message := audit.Error
		if len(message) == 0 {
			message = auditErrorFallbackMessage
		}
		return fmt.Errorf(auditErroredTemplateConstant, message)
	}

	sessionIdentifier := audit.SessionID
	if len(sessionIdentifier) == 0 {
		if identifier, isString := audit.Session["id"].(string); isString {
			sessionIdentifier = identifier
		}
	}

	fmt.Fprintf(outputWriter, summaryHeaderConstant, sessionIdentifier, audit.Status)

	totalFindings := len(audit.Findings)
	if summaryCount, isNumber := audit.Summary[summaryTotalFindingsFieldName].(float64); isNumber {
		totalFindings = int(summaryCount)
	}
	timeSavings, _ := audit.Summary[summaryTimeSavingsFieldName].(float64)
	annualROI, _ := audit.Summary[summaryAnnualROIFieldName].(float64)
	fmt.Fprintf(outputWriter, summaryTotalsTemplateConstant, totalFindings, timeSavings, annualROI)

	if stageName, isString := audit.BusinessStage[businessStageNameFieldConstant].(string); isString {
		fmt.Fprintf(outputWriter, summaryStageTemplateConstant, stageName)
	}

	findings := append([]api.Finding{}, audit.Findings...)
	sort.SliceStable(findings, func(firstIndex int, secondIndex int) bool {
		return findings[firstIndex].ROIEstimate > findings[secondIndex].ROIEstimate
	})
	for _, finding := range findings {
		fmt.Fprintf(outputWriter, findingLineTemplateConstant, finding.Impact, finding.Title, finding.Category, finding.TimeSavingsHours, finding.ROIEstimate)
	}

	return nil
}
