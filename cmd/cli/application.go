package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/auditflow"
	"github.com/temirov/sfaudit/internal/business"
	"github.com/temirov/sfaudit/internal/businessinfo"
	"github.com/temirov/sfaudit/internal/connect"
	"github.com/temirov/sfaudit/internal/health"
	"github.com/temirov/sfaudit/internal/lifecycle"
	"github.com/temirov/sfaudit/internal/storage"
	"github.com/temirov/sfaudit/internal/utils"
)

const (
	applicationNameConstant             = "sfaudit"
	applicationShortDescriptionConstant = "Command-line interface for the Salesforce audit service"
	applicationLongDescriptionConstant  = "sfaudit connects a Salesforce org to the audit backend, captures the business profile, runs audits, and downloads reports."

	configFileFlagNameConstant  = "config"
	configFileFlagUsageConstant = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant    = "log-level"
	logLevelFlagUsageConstant   = "Override the configured log level."
	logFormatFlagNameConstant   = "log-format"
	logFormatFlagUsageConstant  = "Override the configured log format (structured or console)."

	commonConfigurationKeyConstant   = "common"
	commonLogLevelConfigKeyConstant  = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant = commonConfigurationKeyConstant + ".log_format"
	apiConfigurationKeyConstant      = "api"
	apiBaseAddressConfigKeyConstant  = apiConfigurationKeyConstant + ".base_address"
	storageConfigurationKeyConstant  = "storage"
	storageDatabaseConfigKeyConstant = storageConfigurationKeyConstant + ".database_path"
	toolsConfigurationKeyConstant    = "tools"
	auditConfigurationKeyConstant    = toolsConfigurationKeyConstant + ".audit"
	auditPollIntervalConfigKey       = auditConfigurationKeyConstant + ".poll_interval_ms"

	environmentPrefixConstant              = "SFAUDIT"
	configurationNameConstant              = "config"
	configurationTypeConstant              = "yaml"
	defaultConfigurationSearchPathConstant = "."

	defaultBaseAddressConstant      = "http://localhost:8000"
	defaultPollIntervalMilliseconds = 2000
	defaultDatabaseFileNameConstant = "state.db"

	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	storageOpenErrorTemplateConstant        = "unable to open state database: %w"
	storageCloseFailedMessageConstant       = "state database close failed"
	sessionExpiredWarningMessageConstant    = "stored session expired; run connect to reauthorize"
	rootCommandInfoMessageConstant          = "sfaudit CLI executed"
	rootCommandDebugMessageConstant         = "sfaudit CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration  `mapstructure:"common"`
	API     ApplicationAPIConfiguration     `mapstructure:"api"`
	Storage ApplicationStorageConfiguration `mapstructure:"storage"`
	Tools   ApplicationToolsConfiguration   `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationAPIConfiguration stores backend client settings.
type ApplicationAPIConfiguration struct {
	BaseAddress           string `mapstructure:"base_address"`
	RequestTimeoutMillis  int    `mapstructure:"request_timeout_ms"`
	AuditRunTimeoutMillis int    `mapstructure:"audit_run_timeout_ms"`
	MaxRetryAttempts      int    `mapstructure:"max_retry_attempts"`
	RetryBaseDelayMillis  int    `mapstructure:"retry_base_delay_ms"`
}

// ApplicationStorageConfiguration stores the persistent state settings.
type ApplicationStorageConfiguration struct {
	DatabasePath     string `mapstructure:"database_path"`
	MaxRecordAgeDays int    `mapstructure:"max_record_age_days"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool family.
type ApplicationToolsConfiguration struct {
	Audit auditflow.CommandConfiguration `mapstructure:"audit"`
}

// Application wires the Cobra root command, configuration loader, structured
// logger, persistent store, and backend client.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string

	store           *storage.Store
	sessionProvider *api.StoreSessionProvider
	apiClient       *api.Client
	registry        *lifecycle.Registry
	businessState   *businessinfo.StateStore
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		registry:            lifecycle.NewRegistry(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	connectBuilder := connect.CommandBuilder{
		LoggerProvider: loggerProvider,
		URLProvider: func() (connect.AuthorizationURLProvider, error) {
			return application.resolveClient()
		},
		SessionListerProvider: func() (connect.SessionLister, error) {
			return application.resolveClient()
		},
		SessionWriterProvider: func() (connect.SessionWriter, error) {
			return application.resolveSessionProvider()
		},
	}
	if connectCommand, connectBuildError := connectBuilder.BuildConnectCommand(); connectBuildError == nil {
		cobraCommand.AddCommand(connectCommand)
	}
	if disconnectCommand, disconnectBuildError := connectBuilder.BuildDisconnectCommand(); disconnectBuildError == nil {
		cobraCommand.AddCommand(disconnectCommand)
	}
	if sessionsCommand, sessionsBuildError := connectBuilder.BuildSessionsCommand(); sessionsBuildError == nil {
		cobraCommand.AddCommand(sessionsCommand)
	}

	businessBuilder := business.CommandBuilder{
		LoggerProvider: loggerProvider,
		StateStoreProvider: func() (*businessinfo.StateStore, error) {
			return application.resolveBusinessState()
		},
	}
	if businessCommand, businessBuildError := businessBuilder.Build(); businessBuildError == nil {
		cobraCommand.AddCommand(businessCommand)
	}

	auditBuilder := auditflow.CommandBuilder{
		LoggerProvider: loggerProvider,
		ClientProvider: func() (auditflow.Client, error) {
			return application.resolveClient()
		},
		RegistryProvider: func() *lifecycle.Registry {
			return application.registry
		},
		SessionIdentifierProvider: func() string {
			sessionProvider, providerError := application.resolveSessionProvider()
			if providerError != nil {
				return ""
			}
			return sessionProvider.SalesforceSessionID()
		},
		ConfigurationProvider: func() auditflow.CommandConfiguration {
			return application.configuration.Tools.Audit
		},
	}
	if auditCommand, auditBuildError := auditBuilder.Build(); auditBuildError == nil {
		cobraCommand.AddCommand(auditCommand)
	}

	healthBuilder := health.CommandBuilder{
		CheckerProvider: func() (health.Checker, error) {
			return application.resolveClient()
		},
	}
	if healthCommand, healthBuildError := healthBuilder.Build(); healthBuildError == nil {
		cobraCommand.AddCommand(healthCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, then releases timers
// and in-flight request contexts and runs the registered shutdown hooks,
// which close the state database when one was opened.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()

	application.registry.ClearAll()

	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		apiBaseAddressConfigKeyConstant:  defaultBaseAddressConstant,
		storageDatabaseConfigKeyConstant: defaultDatabasePath(),
		auditPollIntervalConfigKey:       defaultPollIntervalMilliseconds,
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerInstance, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerInstance

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) resolveStore() (*storage.Store, error) {
	if application.store != nil {
		return application.store, nil
	}

	databasePath := application.configuration.Storage.DatabasePath
	if len(databasePath) == 0 {
		databasePath = defaultDatabasePath()
	}
	if directoryError := os.MkdirAll(filepath.Dir(databasePath), 0o755); directoryError != nil {
		return nil, fmt.Errorf(storageOpenErrorTemplateConstant, directoryError)
	}

	storageMedium, openError := storage.OpenSQLiteMedium(databasePath)
	if openError != nil {
		return nil, fmt.Errorf(storageOpenErrorTemplateConstant, openError)
	}

	storeOptions := storage.StoreOptions{
		Medium: storageMedium,
		Logger: application.logger,
	}
	if application.configuration.Storage.MaxRecordAgeDays > 0 {
		storeOptions.MaxRecordAge = time.Duration(application.configuration.Storage.MaxRecordAgeDays) * 24 * time.Hour
	}

	storeInstance, storeError := storage.NewStore(storeOptions)
	if storeError != nil {
		storageMedium.Close()
		return nil, storeError
	}

	application.registry.RegisterShutdown(func() {
		if closeError := storageMedium.Close(); closeError != nil {
			application.logger.Warn(storageCloseFailedMessageConstant, zap.Error(closeError))
		}
	})

	storeInstance.MigrateLegacyEntries(storage.KeyBusinessInfo, storage.KeyBusinessSessionID, storage.KeySalesforceSessionID)

	application.store = storeInstance

	return storeInstance, nil
}

func (application *Application) resolveSessionProvider() (*api.StoreSessionProvider, error) {
	if application.sessionProvider != nil {
		return application.sessionProvider, nil
	}

	storeInstance, storeError := application.resolveStore()
	if storeError != nil {
		return nil, storeError
	}

	sessionProvider, providerError := api.NewStoreSessionProvider(storeInstance)
	if providerError != nil {
		return nil, providerError
	}

	application.sessionProvider = sessionProvider

	return sessionProvider, nil
}

func (application *Application) resolveClient() (*api.Client, error) {
	if application.apiClient != nil {
		return application.apiClient, nil
	}

	sessionProvider, providerError := application.resolveSessionProvider()
	if providerError != nil {
		return nil, providerError
	}

	clientOptions := api.ClientOptions{
		BaseAddress:      application.configuration.API.BaseAddress,
		RequestTimeout:   time.Duration(application.configuration.API.RequestTimeoutMillis) * time.Millisecond,
		AuditRunTimeout:  time.Duration(application.configuration.API.AuditRunTimeoutMillis) * time.Millisecond,
		MaxRetryAttempts: application.configuration.API.MaxRetryAttempts,
		RetryBaseDelay:   time.Duration(application.configuration.API.RetryBaseDelayMillis) * time.Millisecond,
		SessionProvider:  sessionProvider,
		UnauthorizedHandler: func() {
			application.logger.Warn(sessionExpiredWarningMessageConstant)
		},
		Logger: application.logger,
	}

	clientInstance, clientError := api.NewClient(clientOptions)
	if clientError != nil {
		return nil, clientError
	}

	application.apiClient = clientInstance

	return clientInstance, nil
}

func (application *Application) resolveBusinessState() (*businessinfo.StateStore, error) {
	if application.businessState != nil {
		return application.businessState, nil
	}

	clientInstance, clientError := application.resolveClient()
	if clientError != nil {
		return nil, clientError
	}

	storeInstance, storeError := application.resolveStore()
	if storeError != nil {
		return nil, storeError
	}

	businessState, stateError := businessinfo.NewStateStore(clientInstance, storeInstance, application.logger)
	if stateError != nil {
		return nil, stateError
	}

	application.businessState = businessState

	return businessState, nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

func defaultDatabasePath() string {
	configurationDirectory, directoryError := os.UserConfigDir()
	if directoryError != nil {
		return defaultDatabaseFileNameConstant
	}
	return filepath.Join(configurationDirectory, applicationNameConstant, defaultDatabaseFileNameConstant)
}
