package business_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/business"
	"github.com/temirov/sfaudit/internal/businessinfo"
	"github.com/temirov/sfaudit/internal/storage"
)

const issuedBusinessSessionConstant = "biz-session-404"

type recordingSaver struct {
	callCount int
	lastInfo  api.BusinessInfo
}

func (saver *recordingSaver) SaveBusinessInfo(requestContext context.Context, info api.BusinessInfo) (api.BusinessInfoResponse, error) {
	saver.callCount++
	saver.lastInfo = info
	return api.BusinessInfoResponse{BusinessSessionID: issuedBusinessSessionConstant}, nil
}

func newCommandForTest(testInstance *testing.T, saver businessinfo.Saver) (*recordingSaver, func() (*businessinfo.StateStore, error)) {
	testInstance.Helper()

	recorder, isRecorder := saver.(*recordingSaver)
	if !isRecorder {
		recorder = &recordingSaver{}
		saver = recorder
	}

	store, storeError := storage.NewStore(storage.StoreOptions{Medium: storage.NewMemoryMedium()})
	require.NoError(testInstance, storeError)

	stateStore, stateError := businessinfo.NewStateStore(saver, store, zap.NewNop())
	require.NoError(testInstance, stateError)

	return recorder, func() (*businessinfo.StateStore, error) {
		return stateStore, nil
	}
}

func executeBusinessCommand(testInstance *testing.T, stateStoreProvider business.StateStoreProvider, arguments []string) (string, error) {
	testInstance.Helper()

	builder := business.CommandBuilder{StateStoreProvider: stateStoreProvider}
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

func TestBusinessSetSavesProfile(testInstance *testing.T) {
	testInstance.Parallel()

	recorder, stateStoreProvider := newCommandForTest(testInstance, nil)

	output, executionError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"set",
		"--annual-revenue", "1500000",
		"--employees", "25",
		"--revenue-range", "1M-5M",
		"--employee-range", "11-50",
	})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, issuedBusinessSessionConstant)

	require.Equal(testInstance, 1, recorder.callCount)
	require.Equal(testInstance, float64(1500000), recorder.lastInfo.AnnualRevenue)
	require.Equal(testInstance, 25, recorder.lastInfo.EmployeeHeadcount)
}

func TestBusinessSetRejectsEmptyProfile(testInstance *testing.T) {
	testInstance.Parallel()

	recorder, stateStoreProvider := newCommandForTest(testInstance, nil)

	_, executionError := executeBusinessCommand(testInstance, stateStoreProvider, []string{"set"})
	require.ErrorIs(testInstance, executionError, businessinfo.ErrMissingRequiredFields)
	require.Zero(testInstance, recorder.callCount)
}

func TestBusinessShowReportsMissingProfile(testInstance *testing.T) {
	testInstance.Parallel()

	_, stateStoreProvider := newCommandForTest(testInstance, nil)

	output, executionError := executeBusinessCommand(testInstance, stateStoreProvider, []string{"show"})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "no business profile stored")
}

func TestBusinessShowPrintsSavedProfile(testInstance *testing.T) {
	testInstance.Parallel()

	_, stateStoreProvider := newCommandForTest(testInstance, nil)

	_, setError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"set", "--annual-revenue", "900000", "--employees", "14",
	})
	require.NoError(testInstance, setError)

	output, showError := executeBusinessCommand(testInstance, stateStoreProvider, []string{"show"})
	require.NoError(testInstance, showError)
	require.Contains(testInstance, output, "900000")
	require.Contains(testInstance, output, "14")
}

func TestBusinessUpdateMergesSelectedFields(testInstance *testing.T) {
	testInstance.Parallel()

	recorder, stateStoreProvider := newCommandForTest(testInstance, nil)

	_, setError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"set", "--annual-revenue", "900000", "--employees", "14",
	})
	require.NoError(testInstance, setError)

	_, updateError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"update", "--employees", "30",
	})
	require.NoError(testInstance, updateError)

	require.Equal(testInstance, 2, recorder.callCount)
	require.Equal(testInstance, float64(900000), recorder.lastInfo.AnnualRevenue)
	require.Equal(testInstance, 30, recorder.lastInfo.EmployeeHeadcount)
}

func TestBusinessUpdateWithoutSavedProfileFails(testInstance *testing.T) {
	testInstance.Parallel()

	_, stateStoreProvider := newCommandForTest(testInstance, nil)

	_, updateError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"update", "--employees", "30",
	})
	require.ErrorIs(testInstance, updateError, businessinfo.ErrNothingToUpdate)
}

func TestBusinessClearForgetsProfile(testInstance *testing.T) {
	testInstance.Parallel()

	_, stateStoreProvider := newCommandForTest(testInstance, nil)

	_, setError := executeBusinessCommand(testInstance, stateStoreProvider, []string{
		"set", "--annual-revenue", "900000", "--employees", "14",
	})
	require.NoError(testInstance, setError)

	_, clearError := executeBusinessCommand(testInstance, stateStoreProvider, []string{"clear"})
	require.NoError(testInstance, clearError)

	output, showError := executeBusinessCommand(testInstance, stateStoreProvider, []string{"show"})
	require.NoError(testInstance, showError)
	require.Contains(testInstance, output, "no business profile stored")
}
