// Package health reports reachability of the audit backend.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/temirov/sfaudit/internal/api"
)

const (
	healthCommandNameConstant        = "health"
	healthShortDescriptionConstant   = "Check backend availability"
	clientMissingMessageConstant     = "api client not configured"
	healthStatusTemplateConstant     = "backend: %s\n"
	healthDetailLineTemplateConstant = "  %s: %v\n"
	healthErrorTemplateConstant      = "  error: %s\n"
)

var errClientMissing = errors.New(clientMissingMessageConstant)

// Checker is the backend surface the health command depends on.
type Checker interface {
	HealthCheck(requestContext context.Context) api.HealthStatus
}

// CommandBuilder assembles the health command.
type CommandBuilder struct {
	CheckerProvider func() (Checker, error)
}

// Build constructs the health command. The command prints the backend state
// and succeeds even when the backend is unreachable.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   healthCommandNameConstant,
		Short: healthShortDescriptionConstant,
		RunE:  builder.run,
	}, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if builder.CheckerProvider == nil {
		return errClientMissing
	}
	checker, checkerError := builder.CheckerProvider()
	if checkerError != nil {
		return checkerError
	}

	status := checker.HealthCheck(command.Context())

	fmt.Fprintf(command.OutOrStdout(), healthStatusTemplateConstant, status.Status)
	if len(status.Error) > 0 {
		fmt.Fprintf(command.OutOrStdout(), healthErrorTemplateConstant, status.Error)
	}

	detailNames := make([]string, 0, len(status.Details))
	for detailName := range status.Details {
		detailNames = append(detailNames, detailName)
	}
	sort.Strings(detailNames)
	for _, detailName := range detailNames {
		fmt.Fprintf(command.OutOrStdout(), healthDetailLineTemplateConstant, detailName, status.Details[detailName])
	}

	return nil
}
