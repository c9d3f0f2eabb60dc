// Package business exposes the business profile commands that capture the
// revenue and headcount figures backing ROI calculations.
package business

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/businessinfo"
)

const (
	businessCommandNameConstant   = "business"
	businessShortDescriptionConst = "Manage the stored business profile"

	setSubcommandNameConstant   = "set"
	setShortDescriptionConstant = "Save the business profile to the backend"

	showSubcommandNameConstant   = "show"
	showShortDescriptionConstant = "Print the stored business profile"

	updateSubcommandNameConstant   = "update"
	updateShortDescriptionConstant = "Change selected business profile fields and resave"

	clearSubcommandNameConstant   = "clear"
	clearShortDescriptionConstant = "Forget the stored business profile"

	flagAnnualRevenueName        = "annual-revenue"
	flagAnnualRevenueDescription = "Annual revenue in dollars."
	flagHeadcountName            = "employees"
	flagHeadcountDescription     = "Employee headcount."
	flagRevenueRangeName         = "revenue-range"
	flagRevenueRangeDescription  = "Self-reported revenue band."
	flagEmployeeRangeName        = "employee-range"
	flagEmployeeRangeDescription = "Self-reported headcount band."

	stateStoreMissingMessageConstant = "business profile store not configured"

	profileSavedTemplateConstant   = "business profile saved (session %s)\n"
	profileClearedMessageConstant  = "business profile cleared\n"
	profileMissingMessageConstant  = "no business profile stored\n"
	profileShowTemplateConstant    = "Annual revenue:  %.2f\nEmployees:       %d\nRevenue range:   %s\nEmployee range:  %s\n"
	profileSavedLogMessageConstant = "business profile saved"
)

var errStateStoreMissing = errors.New(stateStoreMissingMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// StateStoreProvider supplies the business profile state store.
type StateStoreProvider func() (*businessinfo.StateStore, error)

// CommandBuilder assembles the business command tree.
type CommandBuilder struct {
	LoggerProvider     LoggerProvider
	StateStoreProvider StateStoreProvider
}

// Build constructs the business command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	businessCommand := &cobra.Command{
		Use:   businessCommandNameConstant,
		Short: businessShortDescriptionConst,
	}

	setCommand := &cobra.Command{
		Use:   setSubcommandNameConstant,
		Short: setShortDescriptionConstant,
		RunE:  builder.runSet,
	}
	setCommand.Flags().Float64(flagAnnualRevenueName, 0, flagAnnualRevenueDescription)
	setCommand.Flags().Int(flagHeadcountName, 0, flagHeadcountDescription)
	setCommand.Flags().String(flagRevenueRangeName, "", flagRevenueRangeDescription)
	setCommand.Flags().String(flagEmployeeRangeName, "", flagEmployeeRangeDescription)

	showCommand := &cobra.Command{
		Use:   showSubcommandNameConstant,
		Short: showShortDescriptionConstant,
		RunE:  builder.runShow,
	}

	updateCommand := &cobra.Command{
		Use:   updateSubcommandNameConstant,
		Short: updateShortDescriptionConstant,
		RunE:  builder.runUpdate,
	}
	updateCommand.Flags().Float64(flagAnnualRevenueName, 0, flagAnnualRevenueDescription)
	updateCommand.Flags().Int(flagHeadcountName, 0, flagHeadcountDescription)
	updateCommand.Flags().String(flagRevenueRangeName, "", flagRevenueRangeDescription)
	updateCommand.Flags().String(flagEmployeeRangeName, "", flagEmployeeRangeDescription)

	clearCommand := &cobra.Command{
		Use:   clearSubcommandNameConstant,
		Short: clearShortDescriptionConstant,
		RunE:  builder.runClear,
	}

	businessCommand.AddCommand(setCommand, showCommand, updateCommand, clearCommand)

	return businessCommand, nil
}

func (builder *CommandBuilder) runSet(command *cobra.Command, arguments []string) error {
	stateStore, storeError := builder.resolveStateStore()
	if storeError != nil {
		return storeError
	}

	annualRevenue, _ := command.Flags().GetFloat64(flagAnnualRevenueName)
	employeeHeadcount, _ := command.Flags().GetInt(flagHeadcountName)
	revenueRange, _ := command.Flags().GetString(flagRevenueRangeName)
	employeeRange, _ := command.Flags().GetString(flagEmployeeRangeName)

	profile := api.BusinessInfo{
		AnnualRevenue:     annualRevenue,
		EmployeeHeadcount: employeeHeadcount,
		RevenueRange:      revenueRange,
		EmployeeRange:     employeeRange,
	}

	response, saveError := stateStore.Save(command.Context(), profile)
	if saveError != nil {
		return saveError
	}

	builder.resolveLogger().Info(profileSavedLogMessageConstant, zap.String("business_session_id", response.BusinessSessionID))
	fmt.Fprintf(command.OutOrStdout(), profileSavedTemplateConstant, response.BusinessSessionID)
	return nil
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	stateStore, storeError := builder.resolveStateStore()
	if storeError != nil {
		return storeError
	}

	stateStore.Load()

	profile, known := stateStore.Info()
	if !known {
		fmt.Fprint(command.OutOrStdout(), profileMissingMessageConstant)
		return nil
	}

	fmt.Fprintf(command.OutOrStdout(), profileShowTemplateConstant, profile.AnnualRevenue, profile.EmployeeHeadcount, profile.RevenueRange, profile.EmployeeRange)
	return nil
}

func (builder *CommandBuilder) runUpdate(command *cobra.Command, arguments []string) error {
	stateStore, storeError := builder.resolveStateStore()
	if storeError != nil {
		return storeError
	}

	stateStore.Load()

	patch := businessinfo.Patch{}
	if command.Flags().Changed(flagAnnualRevenueName) {
		annualRevenue, _ := command.Flags().GetFloat64(flagAnnualRevenueName)
		patch.AnnualRevenue = &annualRevenue
	}
	if command.Flags().Changed(flagHeadcountName) {
		employeeHeadcount, _ := command.Flags().GetInt(flagHeadcountName)
		patch.EmployeeHeadcount = &employeeHeadcount
	}
	if command.Flags().Changed(flagRevenueRangeName) {
		revenueRange, _ := command.Flags().GetString(flagRevenueRangeName)
		patch.RevenueRange = &revenueRange
	}
	if command.Flags().Changed(flagEmployeeRangeName) {
		employeeRange, _ := command.Flags().GetString(flagEmployeeRangeName)
		patch.EmployeeRange = &employeeRange
	}

	response, updateError := stateStore.Update(command.Context(), patch)
	if updateError != nil {
		return updateError
	}

	fmt.Fprintf(command.OutOrStdout(), profileSavedTemplateConstant, response.BusinessSessionID)
	return nil
}

func (builder *CommandBuilder) runClear(command *cobra.Command, arguments []string) error {
	stateStore, storeError := builder.resolveStateStore()
	if storeError != nil {
		return storeError
	}

	stateStore.Clear()
	fmt.Fprint(command.OutOrStdout(), profileClearedMessageConstant)
	return nil
}

func (builder *CommandBuilder) resolveStateStore() (*businessinfo.StateStore, error) {
	if builder.StateStoreProvider == nil {
		return nil, errStateStoreMissing
	}
	return builder.StateStoreProvider()
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
