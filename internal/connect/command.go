// Package connect manages the Salesforce connection surface: the OAuth
// authorization URL, stored connection sessions, and dashboard listings of
// past audit sessions.
package connect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
)

const (
	connectCommandNameConstant     = "connect"
	connectShortDescriptionConst   = "Start or finish connecting a Salesforce org"
	connectLongDescriptionConstant = "connect prints the OAuth authorization URL for the configured backend. After completing the browser flow, rerun with --session-id to store the issued connection session."

	disconnectCommandNameConstant   = "disconnect"
	disconnectShortDescriptionConst = "Forget the stored Salesforce connection session"

	sessionsCommandNameConstant   = "sessions"
	sessionsShortDescriptionConst = "List past audit sessions"

	flagCallbackSessionName        = "session-id"
	flagCallbackSessionDescription = "Connection session identifier issued by the OAuth callback."

	clientMissingMessageConstant       = "api client not configured"
	sessionStoreMissingMessageConstant = "session store not configured"
	sessionRejectedMessageConstant     = "connection session could not be stored"

	oauthURLTemplateConstant        = "Open this URL to authorize access:\n%s\n"
	sessionStoredMessageConstant    = "connection session stored\n"
	disconnectedMessageConstant     = "connection session cleared\n"
	noSessionsMessageConstant       = "no audit sessions yet\n"
	sessionsTableHeaderConstant     = "SESSION\tORG\tSTATUS\tFINDINGS\tCREATED"
	sessionsTableRowTemplate        = "%s\t%s\t%s\t%d\t%s\n"
	sessionStoredLogMessageConstant = "salesforce session stored"
)

var (
	errClientMissing       = errors.New(clientMissingMessageConstant)
	errSessionStoreMissing = errors.New(sessionStoreMissingMessageConstant)
	errSessionRejected     = errors.New(sessionRejectedMessageConstant)
)

// SessionLister is the backend surface needed for the sessions listing.
type SessionLister interface {
	GetSessions(requestContext context.Context) ([]api.SessionSummary, error)
}

// AuthorizationURLProvider supplies the OAuth authorization URL.
type AuthorizationURLProvider interface {
	OAuthURL() string
}

// SessionWriter persists and clears the stored connection session.
type SessionWriter interface {
	StoreSalesforceSession(sessionIdentifier string) bool
	ClearSalesforceSession()
}

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the connect, disconnect, and sessions commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	URLProvider           func() (AuthorizationURLProvider, error)
	SessionListerProvider func() (SessionLister, error)
	SessionWriterProvider func() (SessionWriter, error)
}

// BuildConnectCommand constructs the connect command.
func (builder *CommandBuilder) BuildConnectCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   connectCommandNameConstant,
		Short: connectShortDescriptionConst,
		Long:  connectLongDescriptionConstant,
		RunE:  builder.runConnect,
	}
	command.Flags().String(flagCallbackSessionName, "", flagCallbackSessionDescription)

	return command, nil
}

// BuildDisconnectCommand constructs the disconnect command.
func (builder *CommandBuilder) BuildDisconnectCommand() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   disconnectCommandNameConstant,
		Short: disconnectShortDescriptionConst,
		RunE:  builder.runDisconnect,
	}, nil
}

// BuildSessionsCommand constructs the sessions listing command.
func (builder *CommandBuilder) BuildSessionsCommand() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   sessionsCommandNameConstant,
		Short: sessionsShortDescriptionConst,
		RunE:  builder.runSessions,
	}, nil
}

func (builder *CommandBuilder) runConnect(command *cobra.Command, arguments []string) error {
	callbackSession, _ := command.Flags().GetString(flagCallbackSessionName)
	callbackSession = strings.TrimSpace(callbackSession)

	if len(callbackSession) > 0 {
		sessionWriter, writerError := builder.resolveSessionWriter()
		if writerError != nil {
			return writerError
		}

		if !sessionWriter.StoreSalesforceSession(callbackSession) {
			return errSessionRejected
		}

		builder.resolveLogger().Info(sessionStoredLogMessageConstant)
		fmt.Fprint(command.OutOrStdout(), sessionStoredMessageConstant)
		return nil
	}

	if builder.URLProvider == nil {
		return errClientMissing
	}
	urlProvider, providerError := builder.URLProvider()
	if providerError != nil {
		return providerError
	}

	fmt.Fprintf(command.OutOrStdout(), oauthURLTemplateConstant, urlProvider.OAuthURL())
	return nil
}

func (builder *CommandBuilder) runDisconnect(command *cobra.Command, arguments []string) error {
	sessionWriter, writerError := builder.resolveSessionWriter()
	if writerError != nil {
		return writerError
	}

	sessionWriter.ClearSalesforceSession()
	fmt.Fprint(command.OutOrStdout(), disconnectedMessageConstant)
	return nil
}

func (builder *CommandBuilder) runSessions(command *cobra.Command, arguments []string) error {
	if builder.SessionListerProvider == nil {
		return errClientMissing
	}
	sessionLister, listerError := builder.SessionListerProvider()
	if listerError != nil {
		return listerError
	}

	sessions, listError := sessionLister.GetSessions(command.Context())
	if listError != nil {
		return listError
	}

	if len(sessions) == 0 {
		fmt.Fprint(command.OutOrStdout(), noSessionsMessageConstant)
		return nil
	}

	tableWriter := tabwriter.NewWriter(command.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tableWriter, sessionsTableHeaderConstant)
	for _, session := range sessions {
		fmt.Fprintf(tableWriter, sessionsTableRowTemplate, session.ID, session.OrgName, session.Status, session.FindingsCount, session.CreatedAt)
	}

	return tableWriter.Flush()
}

func (builder *CommandBuilder) resolveSessionWriter() (SessionWriter, error) {
	if builder.SessionWriterProvider == nil {
		return nil, errSessionStoreMissing
	}
	return builder.SessionWriterProvider()
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
